package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.KinematicsConfig(0).Validate(); err != nil {
		return fmt.Errorf("kinematics: %w", err)
	}
	if err := c.validateOpenScore(); err != nil {
		return err
	}
	if err := c.FeedbackConfig().Validate(); err != nil {
		return fmt.Errorf("feedback: %w", err)
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateEnrichment()
}

func badNumber(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func validateUnit(key string, v float64) error {
	if badNumber(v) || v < 0 || v > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %v", key, v)
	}
	return nil
}

func (c *Config) validateVideo() error {
	if badNumber(c.Video.FPS) || c.Video.FPS <= 0 {
		return errors.New("video.fps must be positive")
	}
	if badNumber(c.Video.YardsPerPixel) || c.Video.YardsPerPixel <= 0 {
		return errors.New("video.yards_per_pixel must be positive")
	}
	if c.Video.Width < 0 || c.Video.Height < 0 {
		return errors.New("video.width and video.height must not be negative")
	}
	return nil
}

func (c *Config) validateTracker() error {
	t := c.Tracker
	for _, check := range []struct {
		key   string
		value float64
	}{
		{"tracker.high_threshold", t.HighThreshold},
		{"tracker.low_threshold", t.LowThreshold},
		{"tracker.match_iou", t.MatchIoU},
		{"tracker.low_match_iou", t.LowMatchIoU},
	} {
		if err := validateUnit(check.key, check.value); err != nil {
			return err
		}
	}
	if t.LowThreshold > t.HighThreshold {
		return errors.New("tracker.low_threshold must not exceed tracker.high_threshold")
	}
	if t.LowMatchIoU > t.MatchIoU {
		return errors.New("tracker.low_match_iou must not exceed tracker.match_iou")
	}
	if t.MatchIoU == 0 {
		return errors.New("tracker.match_iou must be positive")
	}
	if t.MaxLost < 0 {
		return errors.New("tracker.max_lost must not be negative")
	}
	if t.MinHits < 1 {
		return errors.New("tracker.min_hits must be at least 1")
	}
	if t.MaxHistory < 0 {
		return errors.New("tracker.max_history must not be negative")
	}
	if t.MaxHistory == 1 {
		return errors.New("tracker.max_history must keep at least 2 observations for velocity")
	}
	if _, err := c.TrackerOptions(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOpenScore() error {
	scoreCfg, err := c.OpenScoreConfig()
	if err != nil {
		return err
	}
	if err := scoreCfg.Validate(); err != nil {
		return fmt.Errorf("openscore: %w", err)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.ScoreWorkers < 1 {
		return errors.New("pipeline.score_workers must be at least 1")
	}
	if c.Pipeline.MaxFrameGap < 1 {
		return errors.New("pipeline.max_frame_gap must be at least 1")
	}
	return nil
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind must be set")
	}
	if c.Server.Workers < 1 {
		return errors.New("server.workers must be at least 1")
	}
	if c.Server.QueueSize < 0 {
		return errors.New("server.queue_size must not be negative")
	}
	if c.Server.MaxUploadMB < 1 {
		return errors.New("server.max_upload_mb must be at least 1")
	}
	if c.Server.RetentionMinutes < 0 || c.Server.SweepSeconds < 0 {
		return errors.New("server.retention_minutes and server.sweep_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "memory":
		return nil
	case "sqlite":
		if strings.TrimSpace(c.Store.Path) == "" {
			return errors.New("store.path must be set when store.driver is sqlite")
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q", c.Store.Driver)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if !c.Enrichment.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Enrichment.URL) == "" {
		return errors.New("enrichment.url must be set when enrichment.enabled is true")
	}
	if c.Enrichment.TimeoutSeconds < 1 {
		return errors.New("enrichment.timeout_seconds must be at least 1")
	}
	return nil
}
