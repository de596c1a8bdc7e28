package yaml_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/unfurl"
	"github.com/fwojciec/unfurl/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("overlays the file on the defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "unfurl.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
fetch_timeout: 3s
max_attempts: 5
crawler_window: 2h
render_proxy: "https://render.example.com/?url={url}"
store: postgres
`), 0o600))

		cfg, err := yaml.LoadConfig(path)

		require.NoError(t, err)
		assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
		assert.Equal(t, 5, cfg.MaxAttempts)
		assert.Equal(t, 2*time.Hour, cfg.CrawlerWindow)
		assert.Equal(t, "https://render.example.com/?url={url}", cfg.RenderProxy)
		assert.Equal(t, "postgres", cfg.Store)
		assert.Equal(t, unfurl.HumanFreshness, cfg.HumanWindow)
		assert.Equal(t, unfurl.DefaultConfig().Deadline, cfg.Deadline)
	})

	t.Run("returns an error for a missing file", func(t *testing.T) {
		t.Parallel()

		_, err := yaml.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))

		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParseConfig(t *testing.T) {
	t.Parallel()

	t.Run("empty input yields the defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := yaml.ParseConfig(nil)

		require.NoError(t, err)
		assert.Equal(t, unfurl.DefaultConfig(), cfg)
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		t.Parallel()

		_, err := yaml.ParseConfig([]byte("fetch_timeot: 3s\n"))

		assert.Equal(t, unfurl.EINVALID, unfurl.ErrorCode(err))
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Parallel()

		_, err := yaml.ParseConfig([]byte("store: memcached\n"))

		assert.Equal(t, unfurl.EINVALID, unfurl.ErrorCode(err))
	})

	t.Run("rejects a retry delay without a cap", func(t *testing.T) {
		t.Parallel()

		_, err := yaml.ParseConfig([]byte("max_delay: 0s\n"))

		assert.Equal(t, unfurl.EINVALID, unfurl.ErrorCode(err))
	})
}
