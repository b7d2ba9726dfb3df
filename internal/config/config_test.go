package config_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/openscore-go/internal/config"
	"github.com/LdDl/openscore-go/mot"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.TrackerOptions()
	require.NoError(t, err)
	assert.Equal(t, mot.DefaultByteTrackerOptions(), opts)

	scoreCfg, err := cfg.OpenScoreConfig()
	require.NoError(t, err)
	assert.Equal(t, []mot.ObjectClass{mot.ClassReceiver}, scoreCfg.ReceiverClasses)
}

func TestSampleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "openscore.toml")
	require.NoError(t, config.CreateSample(path))

	cfg, resolved, exists, err := config.Load(viper.New(), path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)
	if diff := cmp.Diff(config.Default(), *cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("sample config differs from defaults (-want +got):\n%s", diff)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openscore.toml")
	content := `
[tracker]
max_lost = 10
algorithm = "Greedy"

[openscore]
receiver_classes = ["receiver", "player"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("OPENSCORE_OPENSCORE_WEIGHTS_DISTANCE", "0.5")

	cfg, _, _, err := config.Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Tracker.MaxLost)
	assert.Equal(t, "greedy", cfg.Tracker.Algorithm)
	assert.Equal(t, 3, cfg.Tracker.MinHits, "untouched keys keep defaults")
	assert.Equal(t, []string{"receiver", "player"}, cfg.OpenScore.ReceiverClasses)
	assert.InDelta(t, 0.5, cfg.OpenScore.Weights.Distance, 1e-12)

	opts, err := cfg.TrackerOptions()
	require.NoError(t, err)
	assert.Equal(t, mot.MatchingAlgorithmGreedy, opts.Algorithm)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, _, _, err := config.Load(viper.New(), filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openscore.toml")
	require.NoError(t, os.WriteFile(path, []byte("[openscore.weights]\nvelocity = -1\n"), 0o644))
	_, _, _, err := config.Load(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights.velocity")
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"nan weight", func(c *config.Config) { c.OpenScore.Weights.Coverage = math.NaN() }},
		{"negative weight", func(c *config.Config) { c.OpenScore.Weights.Distance = -0.1 }},
		{"inverted confidence", func(c *config.Config) { c.Tracker.LowThreshold = 0.8 }},
		{"inverted iou floors", func(c *config.Config) { c.Tracker.LowMatchIoU = 0.5 }},
		{"unknown algorithm", func(c *config.Config) { c.Tracker.Algorithm = "auction" }},
		{"zero min hits", func(c *config.Config) { c.Tracker.MinHits = 0 }},
		{"unknown class", func(c *config.Config) { c.OpenScore.DefenderClasses = []string{"referee"} }},
		{"grades not decreasing", func(c *config.Config) { c.Feedback.Grades.C = 80 }},
		{"negative notable", func(c *config.Config) { c.Feedback.Notable = -5 }},
		{"zero fps", func(c *config.Config) { c.Video.FPS = 0 }},
		{"smoothing above one", func(c *config.Config) { c.Kinematics.Smoothing = 1.2 }},
		{"sqlite without path", func(c *config.Config) { c.Store.Driver = "sqlite" }},
		{"unknown store", func(c *config.Config) { c.Store.Driver = "redis" }},
		{"enrichment without url", func(c *config.Config) { c.Enrichment.Enabled = true }},
		{"no workers", func(c *config.Config) { c.Server.Workers = 0 }},
		{"zero frame gap", func(c *config.Config) { c.Pipeline.MaxFrameGap = 0 }},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestKinematicsConfigFallback(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, cfg.Video.FPS, cfg.KinematicsConfig(0).FPS)
	assert.Equal(t, 60.0, cfg.KinematicsConfig(60).FPS)
}
