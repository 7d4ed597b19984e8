package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, DefaultCatalogURL, cfg.Harvest.URL)
	assert.Equal(t, DefaultReadySelector, cfg.Harvest.ReadySelector)
	assert.Equal(t, 10*time.Second, cfg.Harvest.StepTimeout)
	assert.Equal(t, 5*time.Second, cfg.Harvest.ScrollTimeout)
	assert.Equal(t, 200, cfg.Harvest.MaxScrolls)
	assert.Equal(t, []string{"Image", "Font", "Media"}, cfg.Harvest.BlockedResourceTypes)
	assert.Equal(t, "browser", cfg.Harvest.FetchMode)
	assert.Equal(t, "stdout", cfg.Sink.Default)
	assert.Equal(t, ".", cfg.Sink.Dir)
	assert.Equal(t, 4, cfg.Browser.MaxPages)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CATALOGER_URL", "https://example.com/catalog")
	t.Setenv("CATALOGER_SCROLL_TIMEOUT", "750ms")
	t.Setenv("CATALOGER_MAX_SCROLLS", "12")
	t.Setenv("CATALOGER_BLOCKED_RESOURCES", "Image, Media ,")
	t.Setenv("CATALOGER_STEALTH", "false")
	t.Setenv("CATALOGER_RATE_RPS", "3.5")
	t.Setenv("CATALOGER_CATEGORY_LABEL", "Видеокарта")

	cfg := Load()

	assert.Equal(t, "https://example.com/catalog", cfg.Harvest.URL)
	assert.Equal(t, 750*time.Millisecond, cfg.Harvest.ScrollTimeout)
	assert.Equal(t, 12, cfg.Harvest.MaxScrolls)
	assert.Equal(t, []string{"Image", "Media"}, cfg.Harvest.BlockedResourceTypes)
	assert.False(t, cfg.Harvest.Stealth)
	assert.Equal(t, 3.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "Видеокарта", cfg.Extract.CategoryLabel)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CATALOGER_MAX_SCROLLS", "many")
	t.Setenv("CATALOGER_STEP_TIMEOUT", "10")
	t.Setenv("CATALOGER_HEADLESS", "sometimes")

	cfg := Load()

	assert.Equal(t, 200, cfg.Harvest.MaxScrolls)
	assert.Equal(t, 10*time.Second, cfg.Harvest.StepTimeout)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CATALOGER_TEST_DOTENV=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("CATALOGER_TEST_DOTENV") })

	LoadDotEnv(path)

	assert.Equal(t, "from-file", os.Getenv("CATALOGER_TEST_DOTENV"))
}
