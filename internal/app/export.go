package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/JEEEEEEHO/currecnyAlert/internal/storage"
)

// Export renders a pair's statistic history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	base, target := a.Config.Pair(opts.Base, opts.Target)

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Scheduler.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	stats, err := store.ListStatsBetween(ctx, base, target, from, to)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		a.Logger.Info().Str("base", base).Str("target", target).Msg("no statistics found for export window")
		return nil
	}

	downsampled := downsampleStats(stats, opts.MaxPoints)
	a.Logger.Info().Int("total", len(stats)).Int("exported", len(downsampled)).Msg("exporting statistics")

	if opts.CSVPath != "" {
		if err := writeStatsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeStatsPNG(opts.PNGPath, base, target, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleStats(stats []storage.RateStat, max int) []storage.RateStat {
	if max <= 0 || len(stats) <= max {
		return stats
	}

	result := make([]storage.RateStat, 0, max)
	step := float64(len(stats)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(stats) {
			idx = len(stats) - 1
		}
		result = append(result, stats[idx])
	}
	return result
}

func writeStatsCSV(path string, stats []storage.RateStat) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"calculated_at", "base", "target", "current_rate", "avg_3y", "status"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, stat := range stats {
		record := []string{
			stat.CalculatedAt.Format(time.RFC3339),
			stat.Base,
			stat.Target,
			stat.CurrentRate.String(),
			stat.Avg3Y.String(),
			stat.Status,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeStatsPNG(path, base, target string, stats []storage.RateStat) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(stats))
	current := make([]float64, len(stats))
	average := make([]float64, len(stats))

	for i, stat := range stats {
		x[i] = stat.CalculatedAt
		current[i] = stat.CurrentRate.InexactFloat64()
		average[i] = stat.Avg3Y.InexactFloat64()
	}

	rateFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Rate (" + base + "/" + target + ")",
			ValueFormatter: rateFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Current",
				XValues: x,
				YValues: current,
			},
			chart.TimeSeries{
				Name:    "3y average",
				XValues: x,
				YValues: average,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
