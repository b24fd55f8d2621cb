package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validApp() App {
	return App{
		RootSecret:      "secret",
		Timezone:        "Asia/Kolkata",
		DailyTaskOffset: 30 * time.Minute,
		DBMaxOpenConns:  10,
		QueueBackend:    "memory",
		APIKeyCost:      10,
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ROOT_SECRET", "s3cret")
	t.Setenv("DAILY_TASK_OFFSET", "")
	t.Setenv("TIMEZONE", "")

	cfg := Load()
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, 30*time.Minute, cfg.DailyTaskOffset)
	assert.Equal(t, "s3cret", cfg.StateSigningKey)
	assert.True(t, cfg.SchedulerEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ROOT_SECRET", "s3cret")
	t.Setenv("STATE_SIGNING_KEY", "other")
	t.Setenv("DAILY_TASK_OFFSET", "0s")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("RATE_LIMIT_PER_MIN", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://root.example, ,https://admin.example")

	cfg := Load()
	assert.Equal(t, "other", cfg.StateSigningKey)
	assert.Equal(t, time.Duration(0), cfg.DailyTaskOffset)
	assert.False(t, cfg.SchedulerEnabled)
	assert.Equal(t, 4, cfg.DBMaxOpenConns)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, []string{"https://root.example", "https://admin.example"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validApp().Validate())

	tests := []struct {
		name   string
		mutate func(*App)
	}{
		{"missing secret", func(a *App) { a.RootSecret = "" }},
		{"bad timezone", func(a *App) { a.Timezone = "Mars/Olympus" }},
		{"negative offset", func(a *App) { a.DailyTaskOffset = -time.Minute }},
		{"offset a full day", func(a *App) { a.DailyTaskOffset = 24 * time.Hour }},
		{"single connection", func(a *App) { a.DBMaxOpenConns = 1 }},
		{"unknown queue", func(a *App) { a.QueueBackend = "kafka" }},
		{"cost too low", func(a *App) { a.APIKeyCost = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := validApp()
			tt.mutate(&app)
			assert.Error(t, app.Validate())
		})
	}
}
