package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/sheet-reeval/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Len(t, cfg.GeminiModels, 4)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModels[0])
	assert.Equal(t, 0.1, cfg.ModelTemperature)
	assert.Equal(t, 8192, cfg.ModelMaxOutputTokens)
	assert.Equal(t, 3, cfg.ReEvalMaxAttempts)
	assert.Equal(t, time.Second, cfg.ReEvalRetryInitial)
	assert.Equal(t, 15*time.Second, cfg.ReEvalRetryMax)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("GEMINI_MODELS", "a,b")
	t.Setenv("REEVAL_MAX_ATTEMPTS", "5")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.Equal(t, []string{"a", "b"}, cfg.GeminiModels)
	assert.Equal(t, 5, cfg.ReEvalMaxAttempts)
}

func TestGetRetryPolicy_TestMode(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	cfg, err := config.Load()
	require.NoError(t, err)

	attempts, initial, maxInterval, multiplier := cfg.GetRetryPolicy()
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 10*time.Millisecond, initial)
	assert.Equal(t, 50*time.Millisecond, maxInterval)
	assert.Equal(t, 2.0, multiplier)
}
