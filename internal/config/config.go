package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Video holds scale metadata used when the detection stream has no header.
type Video struct {
	FPS           float64 `toml:"fps" mapstructure:"fps"`
	YardsPerPixel float64 `toml:"yards_per_pixel" mapstructure:"yards_per_pixel"`
	Width         int     `toml:"width" mapstructure:"width"`
	Height        int     `toml:"height" mapstructure:"height"`
}

// Tracker contains association and lifecycle parameters.
type Tracker struct {
	HighThreshold float64 `toml:"high_threshold" mapstructure:"high_threshold"`
	LowThreshold  float64 `toml:"low_threshold" mapstructure:"low_threshold"`
	MatchIoU      float64 `toml:"match_iou" mapstructure:"match_iou"`
	LowMatchIoU   float64 `toml:"low_match_iou" mapstructure:"low_match_iou"`
	MaxLost       int     `toml:"max_lost" mapstructure:"max_lost"`
	MinHits       int     `toml:"min_hits" mapstructure:"min_hits"`
	MaxHistory    int     `toml:"max_history" mapstructure:"max_history"`
	Algorithm     string  `toml:"algorithm" mapstructure:"algorithm"`
}

// Kinematics contains velocity smoothing parameters.
type Kinematics struct {
	Smoothing float64 `toml:"smoothing" mapstructure:"smoothing"`
}

// Weights of openness components.
type Weights struct {
	Distance   float64 `toml:"distance" mapstructure:"distance"`
	Velocity   float64 `toml:"velocity" mapstructure:"velocity"`
	Separation float64 `toml:"separation" mapstructure:"separation"`
	Coverage   float64 `toml:"coverage" mapstructure:"coverage"`
}

// OpenScore contains scoring parameters. Distances are in yards.
type OpenScore struct {
	Weights            Weights  `toml:"weights" mapstructure:"weights"`
	MaxDistance        float64  `toml:"max_distance" mapstructure:"max_distance"`
	MaxClosingSpeed    float64  `toml:"max_closing_speed" mapstructure:"max_closing_speed"`
	SeparationDistance float64  `toml:"separation_distance" mapstructure:"separation_distance"`
	CoverageRadius     float64  `toml:"coverage_radius" mapstructure:"coverage_radius"`
	ManPenalty         float64  `toml:"man_penalty" mapstructure:"man_penalty"`
	ZoneBonus          float64  `toml:"zone_bonus" mapstructure:"zone_bonus"`
	ManAlignment       float64  `toml:"man_alignment" mapstructure:"man_alignment"`
	MinHeadingSpeed    float64  `toml:"min_heading_speed" mapstructure:"min_heading_speed"`
	ReceiverClasses    []string `toml:"receiver_classes" mapstructure:"receiver_classes"`
	DefenderClasses    []string `toml:"defender_classes" mapstructure:"defender_classes"`
}

// Grades contains minimal overall scores per letter.
type Grades struct {
	A float64 `toml:"a" mapstructure:"a"`
	B float64 `toml:"b" mapstructure:"b"`
	C float64 `toml:"c" mapstructure:"c"`
	D float64 `toml:"d" mapstructure:"d"`
}

// Feedback contains play aggregation thresholds.
type Feedback struct {
	ClearlyOpen      float64 `toml:"clearly_open" mapstructure:"clearly_open"`
	MissedMargin     float64 `toml:"missed_margin" mapstructure:"missed_margin"`
	Notable          float64 `toml:"notable" mapstructure:"notable"`
	KeyMomentMinGap  int     `toml:"key_moment_min_gap" mapstructure:"key_moment_min_gap"`
	MaxKeyMoments    int     `toml:"max_key_moments" mapstructure:"max_key_moments"`
	BestOptions      int     `toml:"best_options" mapstructure:"best_options"`
	BestOptionWeight float64 `toml:"best_option_weight" mapstructure:"best_option_weight"`
	Grades           Grades  `toml:"grades" mapstructure:"grades"`
}

// Pipeline contains per-video processing settings.
type Pipeline struct {
	ScoreWorkers int `toml:"score_workers" mapstructure:"score_workers"`
	// Largest allowed forward jump between consecutive frame ids
	MaxFrameGap int `toml:"max_frame_gap" mapstructure:"max_frame_gap"`
	// Detector process started by `analyze --detector` and by the server for video uploads
	DetectorCommand []string `toml:"detector_command" mapstructure:"detector_command"`
}

// Server contains HTTP API and worker pool settings.
type Server struct {
	Bind             string `toml:"bind" mapstructure:"bind"`
	Workers          int    `toml:"workers" mapstructure:"workers"`
	QueueSize        int    `toml:"queue_size" mapstructure:"queue_size"`
	MaxUploadMB      int    `toml:"max_upload_mb" mapstructure:"max_upload_mb"`
	RetentionMinutes int    `toml:"retention_minutes" mapstructure:"retention_minutes"`
	SweepSeconds     int    `toml:"sweep_seconds" mapstructure:"sweep_seconds"`
}

// Store selects task registry backend.
type Store struct {
	Driver string `toml:"driver" mapstructure:"driver"`
	Path   string `toml:"path" mapstructure:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
	File   string `toml:"file" mapstructure:"file"`
}

// Enrichment configures optional free-text summary enrichment over HTTP.
type Enrichment struct {
	Enabled        bool   `toml:"enabled" mapstructure:"enabled"`
	URL            string `toml:"url" mapstructure:"url"`
	APIKey         string `toml:"api_key" mapstructure:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// Config is the complete application configuration.
type Config struct {
	Video      Video      `toml:"video" mapstructure:"video"`
	Tracker    Tracker    `toml:"tracker" mapstructure:"tracker"`
	Kinematics Kinematics `toml:"kinematics" mapstructure:"kinematics"`
	OpenScore  OpenScore  `toml:"openscore" mapstructure:"openscore"`
	Feedback   Feedback   `toml:"feedback" mapstructure:"feedback"`
	Pipeline   Pipeline   `toml:"pipeline" mapstructure:"pipeline"`
	Server     Server     `toml:"server" mapstructure:"server"`
	Store      Store      `toml:"store" mapstructure:"store"`
	Logging    Logging    `toml:"logging" mapstructure:"logging"`
	Enrichment Enrichment `toml:"enrichment" mapstructure:"enrichment"`
}

// EnvPrefix is prefix of environment overrides, e.g. OPENSCORE_TRACKER_MAX_LOST
const EnvPrefix = "OPENSCORE"

// DefaultConfigPath returns per-user config location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/openscore/config.toml")
}

// Load reads defaults, the config file (if any) and environment overrides into v,
// then decodes and validates the result. Empty path searches ./openscore.toml and the
// per-user location. Returns resolved path and whether the file existed.
func Load(v *viper.Viper, path string) (*Config, string, bool, error) {
	if v == nil {
		v = viper.New()
	}
	defaults, err := Render(Default())
	if err != nil {
		return nil, "", false, err
	}
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, "", false, fmt.Errorf("load defaults: %w", err)
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		v.SetConfigFile(resolvedPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", false, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	candidates := []string{"openscore.toml"}
	if userPath, err := DefaultConfigPath(); err == nil {
		candidates = append(candidates, userPath)
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return "", false, err
			}
			return abs, true, nil
		}
	}
	return "", false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		pathValue = filepath.Join(home, strings.TrimPrefix(pathValue, "~"))
	}
	return filepath.Abs(pathValue)
}

// normalize trims and lowercases free-form values
func (c *Config) normalize() {
	c.Tracker.Algorithm = strings.ToLower(strings.TrimSpace(c.Tracker.Algorithm))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	for i, class := range c.OpenScore.ReceiverClasses {
		c.OpenScore.ReceiverClasses[i] = strings.ToLower(strings.TrimSpace(class))
	}
	for i, class := range c.OpenScore.DefenderClasses {
		c.OpenScore.DefenderClasses[i] = strings.ToLower(strings.TrimSpace(class))
	}
	if c.Store.Path != "" {
		if expanded, err := expandPath(c.Store.Path); err == nil {
			c.Store.Path = expanded
		}
	}
}

// Render encodes configuration as TOML.
func Render(cfg Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// CreateSample writes the default configuration to the specified location.
func CreateSample(path string) error {
	data, err := Render(Default())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
