package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/JEEEEEEHO/currecnyAlert/internal/mailer"
	"github.com/JEEEEEEHO/currecnyAlert/internal/storage"
)

// Notifier pushes a computed statistic to interested subscribers and
// reports how many recipients were reached.
type Notifier interface {
	NotifyLowRate(ctx context.Context, stat storage.RateStat) (int, error)
}

// EmailNotifier mails every active subscriber when a statistic comes in
// LOW. Anything other than LOW is a no-op.
type EmailNotifier struct {
	subscribers   storage.SubscriberStore
	sender        mailer.Sender
	subjectPrefix string
	logger        zerolog.Logger
}

// NewEmailNotifier constructs an email notifier.
func NewEmailNotifier(subscribers storage.SubscriberStore, sender mailer.Sender, subjectPrefix string, logger zerolog.Logger) *EmailNotifier {
	if subjectPrefix == "" {
		subjectPrefix = "[FX Alert]"
	}
	return &EmailNotifier{
		subscribers:   subscribers,
		sender:        sender,
		subjectPrefix: subjectPrefix,
		logger:        logger.With().Str("component", "email_notifier").Logger(),
	}
}

// NotifyLowRate sends one email per active subscriber, sequentially.
// The first delivery failure aborts the remaining recipients and
// propagates; there is no per-recipient isolation or retry. Returns the
// number of emails delivered.
func (n *EmailNotifier) NotifyLowRate(ctx context.Context, stat storage.RateStat) (int, error) {
	if stat.Status != storage.StatusLow {
		return 0, nil
	}

	ids, err := n.subscribers.ListActiveSubscriberIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active subscribers: %w", err)
	}
	if len(ids) == 0 {
		n.logger.Debug().Str("base", stat.Base).Str("target", stat.Target).Msg("no active subscribers")
		return 0, nil
	}

	users, err := n.subscribers.ListUsersByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("resolve subscriber users: %w", err)
	}

	subject := renderSubject(n.subjectPrefix, stat)
	body := renderBody(stat)

	sent := 0
	for _, user := range users {
		if err := n.sender.Send(ctx, user.Email, subject, body); err != nil {
			return sent, fmt.Errorf("notify %s: %w", user.Email, err)
		}
		sent++
	}

	n.logger.Info().
		Str("base", stat.Base).
		Str("target", stat.Target).
		Int("recipients", sent).
		Msg("low rate notifications sent")
	return sent, nil
}

func renderSubject(prefix string, stat storage.RateStat) string {
	return fmt.Sprintf("%s %s/%s current rate below 3-year average", prefix, stat.Base, stat.Target)
}

func renderBody(stat storage.RateStat) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Base currency: %s\n", stat.Base))
	builder.WriteString(fmt.Sprintf("Target currency: %s\n", stat.Target))
	builder.WriteString(fmt.Sprintf("Current rate: %s\n", stat.CurrentRate.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("3-year average: %s\n", stat.Avg3Y.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("Status: %s\n", stat.Status))
	builder.WriteString(fmt.Sprintf("Calculated at (UTC): %s", stat.CalculatedAt.UTC().Format(time.RFC3339)))
	return builder.String()
}

var _ Notifier = (*EmailNotifier)(nil)
