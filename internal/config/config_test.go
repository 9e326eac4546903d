package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "source:\n  index_id: abc123\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Site Title", cfg.Site.Title)
	assert.Equal(t, "header.jpg", cfg.Site.Banner)
	assert.Equal(t, "http://localhost/folder/", cfg.Site.BaseURL)
	assert.Equal(t, SourceHTTP, cfg.Source.Kind)
	assert.Equal(t, ".*", cfg.Blog.AcceptCat)
	assert.Empty(t, cfg.Blog.RejectCat)
	assert.Empty(t, cfg.Blog.BannerExclude)
	assert.Equal(t, "all", cfg.Blog.MixedCat)
	assert.Equal(t, 10, cfg.Blog.PostsPerPage)
	assert.Equal(t, 100000, cfg.Blog.FeedFullMaxChars)
	assert.Equal(t, StoreFS, cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Retry.Timeout.Duration())
	assert.Equal(t, 15*time.Second, cfg.Retry.Initial.Duration())
	assert.Equal(t, 90, cfg.Media.JPEGQuality)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("IZUPRESS_TEST_INDEX", "from-env")
	path := writeConfig(t, "source:\n  index_id: ${IZUPRESS_TEST_INDEX}\nsite:\n  base_url: https://example.com/blog\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Source.IndexID)
	assert.Equal(t, "https://example.com/blog/", cfg.Site.BaseURL)
}

func TestLoadReadsDotEnvBesideConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("IZUPRESS_DOTENV_INDEX=dotenv-index\n"), 0o600))
	path := filepath.Join(dir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("source:\n  index_id: ${IZUPRESS_DOTENV_INDEX}\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("IZUPRESS_DOTENV_INDEX") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-index", cfg.Source.IndexID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("source:\n  index_id: x\nbogus: true\n"))
	require.Error(t, err)
}

func TestDurationAcceptsStringsAndSeconds(t *testing.T) {
	cfg, err := Parse([]byte("source:\n  index_id: x\nretry:\n  timeout: 45\n  initial: 1500ms\n  max: 1m\n"))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Retry.Timeout.Duration())
	assert.Equal(t, 1500*time.Millisecond, cfg.Retry.Initial.Duration())
	assert.Equal(t, time.Minute, cfg.Retry.Max.Duration())
}

func TestValidationFailures(t *testing.T) {
	cases := map[string]string{
		"missing index":    "site:\n  title: x\n",
		"bad backend":      "source:\n  index_id: x\nstore:\n  backend: redis\n",
		"nats without url": "source:\n  index_id: x\nstore:\n  backend: nats\n",
		"bad pattern":      "source:\n  index_id: x\nblog:\n  reject_cat: \"(unclosed\"\n",
		"bad backoff":      "source:\n  index_id: x\nretry:\n  backoff: random\n",
		"relative base":    "source:\n  index_id: x\nsite:\n  base_url: /folder/\n",
		"dir without dir":  "source:\n  kind: dir\n  index_id: index.html\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig), "got %v", err)
		})
	}
}

func TestSourceKindInferredFromDir(t *testing.T) {
	cfg, err := Parse([]byte("source:\n  dir: ./docs\n  index_id: index.html\n"))
	require.NoError(t, err)
	assert.Equal(t, SourceDir, cfg.Source.Kind)
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, Init(path, false))

	err := Init(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use --force to overwrite")

	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "YOUR_INDEX_DOCUMENT_ID", cfg.Source.IndexID)
	assert.Equal(t, "./templates", cfg.Templates.Dir)
}

func TestNormalizeEnums(t *testing.T) {
	assert.Equal(t, RetryBackoffExponential, NormalizeRetryBackoff(" Exponential "))
	assert.Equal(t, RetryBackoffMode(""), NormalizeRetryBackoff("random"))
	assert.Equal(t, StoreBolt, NormalizeStoreBackend("BOLT"))
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel("warning"))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("loud"))
}
