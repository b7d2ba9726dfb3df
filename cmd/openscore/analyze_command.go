package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/LdDl/openscore-go/internal/detections"
	"github.com/LdDl/openscore-go/internal/report"
	"github.com/LdDl/openscore-go/result"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		outputPath string
		htmlPath   string
		useCommand bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [detections.jsonl | - | detector args...]",
		Short: "Analyse one play and write the result",
		Long: `Reads per-frame detections as JSON lines from a file or stdin ("-"), or
starts the configured detector command (--detector) with the given arguments
and reads its stdout. The result is written as JSON; a text report goes to
stdout when --output is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.mustLogger()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var src detections.Source
			if useCommand {
				if len(cfg.Pipeline.DetectorCommand) == 0 {
					return errors.New("pipeline.detector_command is not configured")
				}
				src, err = detections.StartCommand(runCtx, cfg.Pipeline.DetectorCommand, args...)
			} else {
				if len(args) != 1 {
					return errors.New("expected exactly one detections file (use - for stdin)")
				}
				src, err = detections.OpenFile(args[0])
			}
			if err != nil {
				return err
			}
			defer src.Close()

			runner, err := newRunner(cfg, logger)
			if err != nil {
				return err
			}

			progress, finish := newProgress(src.Meta().FrameCount, quiet || !isTerminal(os.Stderr))
			res, err := runner.Run(runCtx, src, progress)
			finish()
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return fmt.Errorf("analysis interrupted: %w", err)
				}
				return fmt.Errorf("analysis failed: %w", err)
			}

			if htmlPath != "" {
				if err := writeChart(htmlPath, res, cfg.Feedback.ClearlyOpen); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if strings.TrimSpace(outputPath) == "" {
				return result.Encode(out, res)
			}
			if err := writeResult(outputPath, res); err != nil {
				return err
			}
			return report.Text(out, res)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write result JSON to this file instead of stdout")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Also write HTML openness chart to this file")
	cmd.Flags().BoolVar(&useCommand, "detector", false, "Run pipeline.detector_command and read its output")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Disable progress bar")
	return cmd
}

// newProgress returns callback driving progress bar on stderr and function finishing it
func newProgress(total int, disabled bool) (func(done, total int), func()) {
	if disabled {
		return nil, func() {}
	}
	limit := total
	if limit <= 0 {
		// Spinner
		limit = -1
	}
	bar := progressbar.NewOptions(limit,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("analyzing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionClearOnFinish(),
	)
	update := func(done, _ int) {
		_ = bar.Set(done)
	}
	return update, func() {
		_ = bar.Finish()
	}
}

func writeResult(path string, res *result.Result) error {
	return writeFile(path, func(w io.Writer) error {
		return result.Encode(w, res)
	})
}

func writeChart(path string, res *result.Result, threshold float64) error {
	return writeFile(path, func(w io.Writer) error {
		return report.Chart(w, res, report.ChartOptions{Threshold: threshold})
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
