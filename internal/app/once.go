package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Once runs a single compute-store-notify pass and prints the result.
func (a *App) Once(ctx context.Context, base, target string) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot persist a computation")
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := a.newService(store, nil)

	stat, err := svc.ComputeStoreAndNotify(ctx, base, target)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s/%s current=%s avg_3y=%s status=%s calculated_at=%s\n",
		stat.Base,
		stat.Target,
		stat.CurrentRate.StringFixed(4),
		stat.Avg3Y.StringFixed(4),
		stat.Status,
		stat.CalculatedAt.UTC().Format(time.RFC3339),
	)
	return nil
}
