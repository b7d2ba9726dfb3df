package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/LdDl/openscore-go/internal/api"
	"github.com/LdDl/openscore-go/internal/logging"
	"github.com/LdDl/openscore-go/internal/tasks"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API with background analysis workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.mustLogger()
			if bind == "" {
				bind = cfg.Server.Bind
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					logger.Warn("closing task store failed", logging.Error(err))
				}
			}()

			runner, err := newRunner(cfg, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			manager := tasks.NewManager(store, runner, tasks.Options{
				Workers:       cfg.Server.Workers,
				QueueSize:     cfg.Server.QueueSize,
				Retention:     time.Duration(cfg.Server.RetentionMinutes) * time.Minute,
				SweepInterval: time.Duration(cfg.Server.SweepSeconds) * time.Second,
			}, logger)
			manager.Start(runCtx)

			router := api.NewRouter(manager, api.Options{
				MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
				ChartThreshold: cfg.Feedback.ClearlyOpen,
			}, logger)
			err = api.Serve(runCtx, bind, router, logger)
			// Workers exit once the context is done
			stop()
			manager.Wait()
			return err
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides server.bind)")
	return cmd
}
