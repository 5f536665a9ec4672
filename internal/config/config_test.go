package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/grantpull/internal/config"
)

func loadDefaults(t *testing.T) *config.Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	config.SetDefaults()
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadDefaults(t)

	require.Equal(t, "sam", cfg.Source.Name)
	require.Equal(t, config.DefaultBackfillDays, cfg.Source.BackfillDays)
	require.Equal(t, config.DefaultMaxWindowDays, cfg.Source.MaxWindowDays)
	require.Equal(t, config.DefaultPageLimit, cfg.Source.PageLimit)

	require.Equal(t, config.DefaultMaxRetries, cfg.Fetch.MaxRetries)
	require.Equal(t, time.Second, cfg.Fetch.MinInterval)

	require.NotEmpty(t, cfg.Classifier.TopicKeywords)
	require.NotEmpty(t, cfg.Classifier.TrustedHosts)
	require.True(t, cfg.Classifier.GovLenientSpecificity)
	require.InDelta(t, 1.0,
		cfg.Classifier.TopicWeight+cfg.Classifier.DomainWeight+cfg.Classifier.DeadlineWeight, 0.001)

	require.Equal(t, config.DefaultSelectLimit, cfg.Select.Limit)
	require.NotEmpty(t, cfg.Checkpoint.Path)
	require.NotEmpty(t, cfg.Rejects.Path)
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Classifier.TopicWeight = 0.9

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "weights")
}

func TestValidateRejectsBadPageLimit(t *testing.T) {
	cfg := loadDefaults(t)

	cfg.Source.PageLimit = 0
	require.Error(t, cfg.Validate())

	cfg.Source.PageLimit = 5000
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveRetries(t *testing.T) {
	cfg := loadDefaults(t)
	cfg.Fetch.MaxRetries = 0
	require.Error(t, cfg.Validate())
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("SOURCE_BACKFILL_DAYS", "30")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.SetDefaults()

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 30, cfg.Source.BackfillDays)
}
