package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LdDl/openscore-go/internal/config"
	"github.com/LdDl/openscore-go/internal/logging"
)

type commandContext struct {
	configFlag string
	viper      *viper.Viper

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
	logger     *slog.Logger
}

func newCommandContext() *commandContext {
	return &commandContext{viper: viper.New()}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.viper, strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		logger, err := logging.NewFromConfig(cfg.Logging)
		if err != nil {
			c.configErr = fmt.Errorf("init logging: %w", err)
			return
		}
		c.config = cfg
		c.configPath = path
		c.logger = logger
		if path != "" {
			logger.Debug("configuration loaded", logging.String("path", path))
		}
	})
	return c.config, c.configErr
}

// mustLogger returns configured logger or no-op one when config was skipped
func (c *commandContext) mustLogger() *slog.Logger {
	if c.logger == nil {
		return logging.NewNop()
	}
	return c.logger
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
