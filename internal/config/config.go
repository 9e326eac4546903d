package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the file name looked up when no --config flag is given.
const DefaultConfigFile = "izupress.yaml"

// Config represents the application configuration.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Source    SourceConfig    `yaml:"source"`
	Output    OutputConfig    `yaml:"output"`
	Templates TemplatesConfig `yaml:"templates"`
	Blog      BlogConfig      `yaml:"blog"`
	Store     StoreConfig     `yaml:"store"`
	Retry     RetryConfig     `yaml:"retry"`
	Media     MediaConfig     `yaml:"media"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	History   HistoryConfig   `yaml:"history"`
	Notify    NotifyConfig    `yaml:"notify"`
	Deploy    DeployConfig    `yaml:"deploy"`
	Daemon    DaemonConfig    `yaml:"daemon"`
}

// SiteConfig holds the values every rendered page shares.
type SiteConfig struct {
	Title string `yaml:"title"`
	// BaseURL is the absolute site URL with a trailing slash, e.g. https://example.com/folder/.
	BaseURL string `yaml:"base_url"`
	Banner  string `yaml:"banner"`
	CSS     string `yaml:"css,omitempty"`
	GAUid   string `yaml:"ga_uid,omitempty"`
	Author  string `yaml:"author,omitempty"`
	// RewrittenURL, when set, is an old site prefix; redirector targets starting with it
	// are rewritten onto BaseURL.
	RewrittenURL string `yaml:"rewritten_url,omitempty"`
}

// SourceConfig selects where exported documents come from.
type SourceConfig struct {
	Kind    SourceKind `yaml:"kind"`
	IndexID string     `yaml:"index_id"`
	// ExportURL is a template expanded with {id} and {format} (html or txt).
	ExportURL string `yaml:"export_url,omitempty"`
	// MetadataURL is a template expanded with {id}; empty means a HEAD request on the export URL.
	MetadataURL string `yaml:"metadata_url,omitempty"`
	Token       string `yaml:"token,omitempty"`
	UserAgent   string `yaml:"user_agent,omitempty"`
	Dir         string `yaml:"dir,omitempty"`
}

// OutputConfig represents output configuration.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// TemplatesConfig points at the page templates. An empty Dir uses the built-in templates.
type TemplatesConfig struct {
	Dir      string `yaml:"dir,omitempty"`
	Article  string `yaml:"article"`
	BlogPage string `yaml:"blog_page"`
	BlogPost string `yaml:"blog_post"`
}

// BlogConfig carries the category filters and pagination of generated blogs.
// Filters are comma-separated regular expression lists; '#' starts a comment.
type BlogConfig struct {
	AcceptCat        string `yaml:"accept_cat"`
	RejectCat        string `yaml:"reject_cat"`
	GenSingle        string `yaml:"gen_single"`
	GenMixed         string `yaml:"gen_mixed"`
	BannerExclude    string `yaml:"banner_exclude"`
	MixedCat         string `yaml:"mixed_cat"`
	PostsPerPage     int    `yaml:"posts_per_page"`
	FeedFullPosts    int    `yaml:"feed_full_posts"`
	FeedFullMaxChars int    `yaml:"feed_full_max_chars"`
}

// StoreConfig selects the ByteStore backend behind the hash cache.
type StoreConfig struct {
	Backend    StoreBackend `yaml:"backend"`
	Dir        string       `yaml:"dir"`
	NATSURL    string       `yaml:"nats_url,omitempty"`
	NATSBucket string       `yaml:"nats_bucket,omitempty"`
}

// RetryConfig configures backoff for document and media fetches.
type RetryConfig struct {
	Backoff    string   `yaml:"backoff"`
	Initial    Duration `yaml:"initial"`
	Max        Duration `yaml:"max"`
	MaxRetries int      `yaml:"max_retries"`
	Timeout    Duration `yaml:"timeout"`
}

// MediaConfig configures image and drawing processing.
type MediaConfig struct {
	Parallelism int `yaml:"parallelism"`
	JPEGQuality int `yaml:"jpeg_quality"`
}

// MetricsConfig enables the Prometheus recorder.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile,omitempty"`
	// Listen serves /metrics in daemon mode when set, e.g. ":9464".
	Listen string `yaml:"listen,omitempty"`
}

// HistoryConfig enables the SQLite run history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// NotifyConfig enables page change events on NATS.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// DeployConfig controls committing the output tree after a run.
type DeployConfig struct {
	GitCommit   bool   `yaml:"git_commit"`
	AuthorName  string `yaml:"author_name,omitempty"`
	AuthorEmail string `yaml:"author_email,omitempty"`
}

// DaemonConfig drives the serve command.
type DaemonConfig struct {
	Interval Duration `yaml:"interval"`
	// Cron, when set, replaces Interval with a five-field cron expression.
	Cron     string   `yaml:"cron,omitempty"`
	Watch    bool     `yaml:"watch"`
	Debounce Duration `yaml:"debounce"`
}

// Load loads configuration from the specified file. A .env file next to the config file
// (and one in the working directory) is loaded first; ${VAR} references are expanded.
func Load(configPath string) (*Config, error) {
	loadEnvFiles(filepath.Dir(configPath))

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
