package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/resist/internal/config"
	"github.com/aretw0/resist/internal/presentation/tui"
	"github.com/aretw0/resist/pkg/runner"
	"github.com/muesli/termenv"
)

// Output formats of Simulate.
const (
	FormatMarkdown = "markdown"
	FormatLines    = "lines"
	FormatJSON     = "json"
)

// SimulateOptions contains the configuration for the simulate command.
type SimulateOptions struct {
	ConfigPath string
	Scenario   string
	Format     string
	Locale     string
	Out        io.Writer
}

// Simulate plays a scenario file and writes its transcript. It returns
// runner.ErrExpectationFailed, after writing, when an expectation did not hold.
func Simulate(ctx context.Context, opts SimulateOptions) error {
	cfg, logger, err := setup(opts.ConfigPath)
	if err != nil {
		return err
	}

	sc, err := runner.LoadScenario(opts.Scenario)
	if err != nil {
		return err
	}
	if opts.Locale != "" {
		sc.Locale = opts.Locale
	}

	stack, err := NewStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	transcript, runErr := runner.NewRunner(stack.RunnerOptions()...).Run(ctx, sc)
	if transcript == nil {
		return runErr
	}
	if err := writeTranscript(opts.Out, opts.Format, transcript); err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, runner.ErrExpectationFailed) {
		logger.Error("Scenario aborted", "scenario", sc.Name, "err", runErr)
	}
	return runErr
}

func writeTranscript(w io.Writer, format string, t *runner.Transcript) error {
	switch format {
	case "", FormatMarkdown:
		render := tui.PlainRenderer
		if isTerminal(w) {
			render = tui.NewRenderer()
		}
		out, err := tui.RenderTranscript(render, t)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case FormatLines:
		profile := termenv.NewOutput(w).Profile
		for _, l := range t.Lines {
			if _, err := fmt.Fprintln(w, tui.FormatLine(profile, l)); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	default:
		return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, FormatMarkdown, FormatLines, FormatJSON)
	}
}

// setup loads the configuration and builds the logger it asks for.
func setup(configPath string) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := CreateLogger(cfg.LogLevel)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}
