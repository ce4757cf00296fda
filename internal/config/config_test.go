package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(home))
	t.Cleanup(func() { os.Chdir(wd) })
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolateHome(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".booknest", "books.db"), cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "tint", cfg.Log.Format)
	assert.True(t, cfg.Notifications.DefaultEnabled)
	assert.Equal(t, "Deadline Reminder", cfg.Reminder.Title)
	assert.Equal(t, `Your book "%s" is due!`, cfg.Reminder.Body)
	assert.Equal(t, 30*time.Second, cfg.Watch.Interval)
	assert.False(t, cfg.Progress.AllowStatusRegression)
	assert.Equal(t, 15*time.Second, cfg.Catalog.Timeout)
}

func TestLoadFileAndEnv(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	yaml := `
database:
  path: /tmp/booknest-test.db
log:
  format: json
notifications:
  default_enabled: false
watch:
  interval: 5s
progress:
  allow_status_regression: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("BOOKNEST_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/booknest-test.db", cfg.Database.Path)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Notifications.DefaultEnabled)
	assert.Equal(t, 5*time.Second, cfg.Watch.Interval)
	assert.True(t, cfg.Progress.AllowStatusRegression)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown log format", env: map[string]string{"BOOKNEST_LOG_FORMAT": "xml"}},
		{name: "zero interval", env: map[string]string{"BOOKNEST_WATCH_INTERVAL": "0s"}},
		{name: "body without title", env: map[string]string{"BOOKNEST_REMINDER_BODY": "Book due"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
