package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/izupress/internal/config"
	"git.home.luguber.info/inful/izupress/internal/daemon"
	"git.home.luguber.info/inful/izupress/internal/eventstore"
)

// execute parses args and runs the selected command the way main does.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("izupress"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return ctx.Run(&Global{Logger: cli.Logger()}, &cli)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// project lays out a directory source with one article and one blog and a
// configuration pointing at it.
func project(t *testing.T) (cfgPath, outDir string) {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "docs")
	outDir = filepath.Join(root, "site")
	writeFile(t, filepath.Join(src, "index.txt"), "about.html about\nblog news\n")
	writeFile(t, filepath.Join(src, "about.html"),
		"<html><body><p>Hello from the article page.</p></body></html>")
	writeFile(t, filepath.Join(src, "news.html"), "<html><body>"+
		"<p>[izu:blog] [izu:cat:news] [izu:blog-title:Daily News]</p>"+
		"<p>Welcome.</p><p>[izu:header:end]</p>"+
		"<p>[s:2024-01-01] First</p><p>one</p>"+
		"<p>[s:2024-01-02] Second</p><p>two</p>"+
		"</body></html>")

	cfgPath = filepath.Join(root, "izupress.yaml")
	writeFile(t, cfgPath, `site:
  title: My Site
  base_url: https://example.com/
source:
  kind: dir
  dir: `+src+`
  index_id: index
output:
  directory: `+outDir+`
store:
  backend: bolt
  dir: `+filepath.Join(root, "cache")+`
metrics:
  enabled: true
  textfile: `+filepath.Join(root, "izupress.prom")+`
history:
  enabled: true
  path: `+filepath.Join(root, "history.db")+`
`)
	return cfgPath, outDir
}

func TestPublishCommand(t *testing.T) {
	cfgPath, outDir := project(t)

	require.NoError(t, execute(t, "-c", cfgPath, "publish"))

	article, err := os.ReadFile(filepath.Join(outDir, "about.html"))
	require.NoError(t, err)
	assert.Contains(t, string(article), "Hello from the article page.")
	index, err := os.ReadFile(filepath.Join(outDir, "blog", "news", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "Daily News")
	assert.FileExists(t, filepath.Join(outDir, "blog", "news", "atom.xml"))

	prom, err := os.ReadFile(filepath.Join(filepath.Dir(cfgPath), "izupress.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "izupress_")

	// the second run is recorded too and finds nothing to do
	require.NoError(t, execute(t, "-c", cfgPath, "publish"))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	store, err := eventstore.NewSQLiteStore(cfg.History.Path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	runs, err := recentRuns(context.Background(), store, 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		assert.Equal(t, eventstore.StatusSuccess, r.Status)
		assert.Equal(t, "cli", r.Trigger)
	}

	require.NoError(t, execute(t, "-c", cfgPath, "history", "-n", "1"))
}

func TestPublishCommandDryRunWritesNothing(t *testing.T) {
	cfgPath, outDir := project(t)

	require.NoError(t, execute(t, "-c", cfgPath, "publish", "--dry-run"))
	assert.NoFileExists(t, filepath.Join(outDir, "about.html"))
}

func TestPublishCommandMissingConfig(t *testing.T) {
	err := execute(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "publish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, execute(t, "init", "-o", dir))
	assert.FileExists(t, filepath.Join(dir, config.DefaultConfigFile))
	for _, name := range []string{"article.html", "blog_page.html", "blog_post.html"} {
		assert.FileExists(t, filepath.Join(dir, "templates", name))
	}

	require.Error(t, execute(t, "init", "-o", dir))
	require.NoError(t, execute(t, "init", "-o", dir, "--force"))
}

func TestRenderCommandWithoutConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "news.html")
	writeFile(t, file, "<html><body>"+
		"<p>[izu:blog] [izu:cat:news]</p>"+
		"<p>[s:2024-01-01] Only</p><p>body</p>"+
		"</body></html>")
	out := filepath.Join(dir, "out")

	require.NoError(t, execute(t, "-c", filepath.Join(dir, "none.yaml"), "render", file, "--category-out", out))
	assert.FileExists(t, filepath.Join(out, "blog", "news", "2024-01-01_only.html"))
}

func TestHistoryCommandRequiresHistory(t *testing.T) {
	cfgPath, _ := project(t)
	// an empty history prints a notice
	require.NoError(t, execute(t, "-c", cfgPath, "history"))

	plain := filepath.Join(t.TempDir(), "plain.yaml")
	writeFile(t, plain, "site:\n  base_url: https://example.com/\nsource:\n  dir: ./docs\n  index_id: index\n")
	err := execute(t, "-c", plain, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history is disabled")
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, (&CLI{}).level())
	assert.Equal(t, slog.LevelDebug, (&CLI{Verbose: true}).level())
	assert.Equal(t, slog.LevelWarn, (&CLI{Verbose: true, LogLevel: "warning"}).level())
	assert.Equal(t, slog.LevelError, (&CLI{LogLevel: "ERROR"}).level())
}

func TestStatusMux(t *testing.T) {
	runs := make(chan string, 4)
	d, err := daemon.New(config.DaemonConfig{Interval: config.Duration(time.Hour)},
		func(_ context.Context, trigger string) error {
			runs <- trigger
			return nil
		})
	require.NoError(t, err)
	srv := httptest.NewServer(statusMux(&runtime{}, d))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	var st daemon.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	_ = resp.Body.Close()
	assert.Equal(t, 0, st.Runs)

	resp, err = http.Get(srv.URL + "/trigger")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/trigger", "text/plain", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
