package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roman-kulish/link-budget/internal/budget"
	"github.com/roman-kulish/link-budget/internal/fec"
	"github.com/roman-kulish/link-budget/internal/observability"
	"github.com/roman-kulish/link-budget/internal/render"
	"github.com/roman-kulish/link-budget/internal/report"
	"github.com/roman-kulish/link-budget/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	return run(ctx, config, logger, os.Stdout)
}

func run(ctx context.Context, config *Config, logger *slog.Logger, out io.Writer) (err error) {
	var store *storage.SqliteStore
	if config.Output.Database != "" {
		store = storage.NewSqliteStore(config.Output.Database)
		defer func() {
			err = errors.Join(err, store.Close())
		}()
	}

	table := report.NewTableWriter(out, report.WithColor(!config.Output.NoColor))

	switch {
	case config.ListRuns:
		return listRuns(ctx, store, config, table)
	case config.ShowRun != 0:
		return showRun(ctx, store, config, out)
	}

	var collector *observability.Collector
	if config.Output.Metrics != "" {
		if collector, err = observability.NewCollector(prometheus.NewRegistry()); err != nil {
			return fmt.Errorf("creating metrics collector: %w", err)
		}
	}

	entries, cfg, err := compute(ctx, config, collector, logger)
	if err != nil {
		return err
	}

	logger.Info("computed link budget",
		slog.String("formula", string(config.Budget.Formula)),
		slog.String("dataRate", config.Budget.DataRate.String()),
		slog.Int("orders", len(entries)),
		slog.Int("failed", len(entries.Failures())))

	caption := fmt.Sprintf("%s at %s", config.Budget.Formula, config.Budget.DataRate)
	if err = writeEntries(out, entries, caption, config); err != nil {
		return err
	}

	if config.Output.Chart != "" {
		if err = renderChart(entries, caption, config, logger); err != nil {
			return err
		}
	}

	if store != nil {
		runID, err := store.CreateRun(ctx, string(config.Budget.Formula), float64(config.Budget.DataRate), cfg)
		if err != nil {
			return fmt.Errorf("archiving run: %w", err)
		}
		if err = store.StoreEntries(ctx, runID, entries); err != nil {
			return fmt.Errorf("archiving entries: %w", err)
		}
		logger.Info("archived run", slog.Int64("runID", runID), slog.String("database", config.Output.Database))
	}

	if collector != nil {
		if err = collector.WriteTextfile(config.Output.Metrics); err != nil {
			return err
		}
		logger.Debug("wrote metrics", slog.String("path", config.Output.Metrics))
	}

	return nil
}

// compute runs the engine and returns the entries with the engine config
// actually used, after the FEC coding rate was applied
func compute(ctx context.Context, config *Config, collector *observability.Collector, logger *slog.Logger) (budget.Entries, budget.Config, error) {
	cfg := config.Budget.Config
	if config.FEC.Enabled() {
		scheme, err := fec.NewScheme(config.FEC.DataShards, config.FEC.ParityShards)
		if err != nil {
			return nil, cfg, err
		}
		cfg.CodingRate = scheme.Rate()

		logger.Info("using FEC coding rate",
			slog.String("scheme", scheme.String()),
			slog.Float64("codingRate", cfg.CodingRate))
	}

	options := []func(*budget.Engine){budget.WithLogger(logger)}
	if collector != nil {
		options = append(options, budget.WithRecorder(collector))
	}

	rate := float64(config.Budget.DataRate)
	if config.Budget.Concurrency > 1 {
		options = append(options, budget.WithConcurrency(config.Budget.Concurrency))
		entries, err := budget.New(options...).ComputeConcurrent(ctx, rate, config.Budget.Orders, config.Budget.Formula, cfg)
		return entries, cfg, err
	}

	entries, err := budget.New(options...).Compute(rate, config.Budget.Orders, config.Budget.Formula, cfg)
	return entries, cfg, err
}

func writeEntries(out io.Writer, entries budget.Entries, caption string, config *Config) error {
	if config.Output.Format == OutputJSON {
		return report.WriteJSON(out, entries)
	}

	return report.NewTableWriter(out,
		report.WithColor(!config.Output.NoColor),
		report.WithCaption(caption),
	).WriteBudget(entries)
}

func renderChart(entries budget.Entries, title string, config *Config, logger *slog.Logger) (err error) {
	format, err := render.FormatFromPath(config.Output.Chart)
	if err != nil {
		return err
	}

	img, err := render.NewChartRenderer(render.Config{ColorTheme: config.Output.Theme}).Render(title, entries)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	f, err := os.Create(config.Output.Chart)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	logger.Info("rendering chart",
		slog.Group("image",
			slog.String("destination", config.Output.Chart),
			slog.String("format", string(format)),
			slog.String("theme", string(config.Output.Theme)),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
		))

	return render.Encode(f, img, format)
}

func listRuns(ctx context.Context, store *storage.SqliteStore, config *Config, table *report.TableWriter) error {
	if _, err := os.Stat(config.Output.Database); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.Output.Database, err)
	}

	var options []func(*storage.RunFilter)
	if config.Filter.Formula != "" {
		options = append(options, storage.WithFormula(string(config.Filter.Formula)))
	}
	if config.Filter.Since > 0 {
		options = append(options, storage.WithStartTime(time.Now().Add(-config.Filter.Since)))
	}

	runs, err := store.Runs(ctx, options...)
	if err != nil {
		return err
	}
	return table.WriteRuns(runs)
}

func showRun(ctx context.Context, store *storage.SqliteStore, config *Config, out io.Writer) error {
	if _, err := os.Stat(config.Output.Database); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.Output.Database, err)
	}

	r, err := store.Run(ctx, config.ShowRun)
	if err != nil {
		return err
	}
	stored, err := store.Entries(ctx, r.ID)
	if err != nil {
		return err
	}

	entries := make(budget.Entries, len(stored))
	for i, e := range stored {
		entries[i] = e.Entry()
	}

	caption := fmt.Sprintf("run %d: %s at %s", r.ID, r.Formula, DataRate(r.DataRateBps))
	return writeEntries(out, entries, caption, config)
}
