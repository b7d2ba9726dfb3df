package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/LdDl/openscore-go/internal/config"
	"github.com/LdDl/openscore-go/internal/enrich"
	"github.com/LdDl/openscore-go/internal/pipeline"
	"github.com/LdDl/openscore-go/internal/tasks"
)

// newRunner builds analysis runner with optional enrichment
func newRunner(cfg *config.Config, logger *slog.Logger) (*pipeline.Runner, error) {
	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if cfg.Enrichment.Enabled {
		client := enrich.NewHTTPEnricher(cfg.Enrichment.URL, cfg.Enrichment.APIKey, nil)
		timeout := time.Duration(cfg.Enrichment.TimeoutSeconds) * time.Second
		opts = append(opts, pipeline.WithEnricher(enrich.NewBounded(client, timeout, logger)))
	}
	return pipeline.NewRunner(*cfg, opts...)
}

// openStore opens task registry selected by [store] section
func openStore(cfg *config.Config) (tasks.Store, error) {
	switch cfg.Store.Driver {
	case "", "memory":
		return tasks.NewMemoryStore(), nil
	case "sqlite":
		store, err := tasks.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open task store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
