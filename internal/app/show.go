package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent statistics for a pair.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show statistics")
	}
	if closeStore != nil {
		defer closeStore()
	}

	base, target := a.Config.Pair(opts.Base, opts.Target)

	stats, err := store.ListRecentStats(ctx, base, target, opts.Limit)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintf(os.Stdout, "no statistics found for %s/%s\n", base, target)
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Calculated (UTC)\tPair\tCurrent\tAvg 3y\tStatus")

	for _, stat := range stats {
		fmt.Fprintf(
			writer,
			"%s\t%s/%s\t%s\t%s\t%s\n",
			stat.CalculatedAt.UTC().Format(time.RFC3339),
			stat.Base,
			stat.Target,
			stat.CurrentRate.StringFixed(4),
			stat.Avg3Y.StringFixed(4),
			stat.Status,
		)
	}

	writer.Flush()
	return nil
}
