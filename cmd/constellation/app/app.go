package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roman-kulish/link-budget/internal/constellation"
	"github.com/roman-kulish/link-budget/internal/fec"
	"github.com/roman-kulish/link-budget/internal/observability"
	"github.com/roman-kulish/link-budget/internal/render"
	"github.com/roman-kulish/link-budget/internal/report"
)

const textBitsPerSymbol = 8

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	return run(ctx, config, logger, os.Stdout)
}

func run(ctx context.Context, config *Config, logger *slog.Logger, out io.Writer) error {
	symbols, err := buildSymbols(config, logger)
	if err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	mappings := constellation.MapAll(symbols, config.Family)

	var failed int
	for _, m := range mappings {
		if m.Err != nil {
			failed++
			logger.Warn("skipping symbol",
				slog.String("bits", m.Bits),
				slog.String("family", config.Family.String()),
				slog.String("reason", m.Err.Error()))
		}
	}
	logger.Info("mapped symbols",
		slog.String("family", config.Family.String()),
		slog.Int("symbols", len(mappings)),
		slog.Int("failed", failed))

	caption := fmt.Sprintf("%s constellation of %s", config.Family, describeInput(config))
	if err = report.NewTableWriter(out,
		report.WithColor(!config.NoColor),
		report.WithCaption(caption),
	).WriteMappings(mappings); err != nil {
		return err
	}

	if config.OutputFile != "" {
		if err = renderScatter(mappings, caption, config, logger); err != nil {
			return err
		}
	}

	if config.Metrics != "" {
		collector, err := observability.NewCollector(prometheus.NewRegistry())
		if err != nil {
			return fmt.Errorf("creating metrics collector: %w", err)
		}
		for _, m := range mappings {
			collector.ObserveMapping(config.Family, m)
		}
		if err = collector.WriteTextfile(config.Metrics); err != nil {
			return err
		}
	}

	return nil
}

// buildSymbols returns the bit strings to map: the -bits list as given, or the
// text bytes optionally protected by Reed-Solomon parity
func buildSymbols(config *Config, logger *slog.Logger) ([]string, error) {
	if len(config.Bits) > 0 {
		return config.Bits, nil
	}

	if !config.FEC.Enabled() && config.BitsPerSymbol == 0 {
		return constellation.TextSymbols(config.Text), nil
	}

	data := []byte(config.Text)
	if config.FEC.Enabled() {
		scheme, err := fec.NewScheme(config.FEC.DataShards, config.FEC.ParityShards)
		if err != nil {
			return nil, err
		}

		block, err := scheme.Encode(data)
		if err != nil {
			return nil, err
		}
		ok, err := scheme.Verify(block)
		if err != nil {
			return nil, fmt.Errorf("verifying %s block: %w", scheme, err)
		}
		if !ok {
			return nil, fmt.Errorf("verifying %s block: parity mismatch", scheme)
		}

		logger.Info("encoded text",
			slog.String("scheme", scheme.String()),
			slog.Int("payload", len(data)),
			slog.Int("encoded", len(block.Bytes())),
			slog.Float64("codingRate", scheme.Rate()))

		data = block.Bytes()
	}

	bitsPerSymbol := config.BitsPerSymbol
	if bitsPerSymbol == 0 {
		bitsPerSymbol = textBitsPerSymbol
	}
	return constellation.Symbols(data, bitsPerSymbol)
}

func describeInput(config *Config) string {
	if len(config.Bits) > 0 {
		return fmt.Sprintf("%d bit strings", len(config.Bits))
	}

	s := fmt.Sprintf("'%s'", config.Text)
	var opts []string
	if config.FEC.Enabled() {
		opts = append(opts, fmt.Sprintf("RS(%d,%d)", config.FEC.DataShards+config.FEC.ParityShards, config.FEC.DataShards))
	}
	if config.BitsPerSymbol != 0 {
		opts = append(opts, fmt.Sprintf("%d bits/symbol", config.BitsPerSymbol))
	}
	if len(opts) > 0 {
		s += " (" + strings.Join(opts, ", ") + ")"
	}
	return s
}

func renderScatter(mappings []constellation.Mapping, title string, config *Config, logger *slog.Logger) (err error) {
	format, err := render.FormatFromPath(config.OutputFile)
	if err != nil {
		return err
	}

	img, err := render.NewScatterRenderer(render.Config{
		ColorTheme: config.Theme,
		NoLabels:   config.NoLabels,
	}).Render(title, config.Family, mappings)
	if err != nil {
		return fmt.Errorf("rendering scatter plot: %w", err)
	}

	f, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}()

	logger.Info("rendering scatter plot",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
		))

	return render.Encode(f, img, format)
}
