package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaults(t *testing.T) {
	cfg := GetDefaults()

	assert.Equal(t, 25, cfg.Data.DefaultPageSize)
	assert.Equal(t, []int{10, 25, 50, 75, 100}, cfg.Data.PageSizes)
	assert.Equal(t, 30*time.Second, cfg.StatusInterval())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "lazyweave", cfg.Storage.KeyringService)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ui:
  theme: catppuccin
data:
  default_page_size: 50
polling:
  view_interval: 60
storage:
  path: /tmp/lazyweave-test/conns.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "catppuccin", cfg.UI.Theme)
	assert.Equal(t, 50, cfg.Data.DefaultPageSize)
	assert.Equal(t, time.Minute, cfg.ViewInterval())
	// Unset keys keep their defaults
	assert.Equal(t, 6*time.Second, cfg.NotificationTTL())

	dbPath, err := cfg.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/lazyweave-test/conns.db", dbPath)
}

func TestLoadFile_NormalizesInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ui:
  panel_width_ratio: 150
data:
  default_page_size: 33
  page_sizes: [20, 40]
polling:
  failure_threshold: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []int{20, 40}, cfg.Data.PageSizes)
	assert.Equal(t, 20, cfg.Data.DefaultPageSize, "default page size must be one of the allowed sizes")
	assert.Equal(t, 25, cfg.UI.PanelWidthRatio)
	assert.Equal(t, 1, cfg.Polling.FailureThreshold)
}

func TestLoadFile_MissingExplicitFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
