package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LdDl/openscore-go/internal/report"
	"github.com/LdDl/openscore-go/result"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var htmlPath string

	cmd := &cobra.Command{
		Use:   "report <result.json>",
		Short: "Print play evaluation of a stored result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open result: %w", err)
			}
			defer f.Close()
			res, err := result.Decode(f)
			if err != nil {
				return err
			}
			if htmlPath != "" {
				if err := writeChart(htmlPath, res, cfg.Feedback.ClearlyOpen); err != nil {
					return err
				}
			}
			return report.Text(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&htmlPath, "html", "", "Also write HTML openness chart to this file")
	return cmd
}
