package config

import (
	"fmt"
	"strings"
	"time"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// defaultAppliers returns the appliers in the order they run.
func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		&SiteDefaultApplier{},
		&SourceDefaultApplier{},
		&OutputDefaultApplier{},
		&TemplatesDefaultApplier{},
		&BlogDefaultApplier{},
		&StoreDefaultApplier{},
		&RetryDefaultApplier{},
		&MediaDefaultApplier{},
		&ObservabilityDefaultApplier{},
		&DaemonDefaultApplier{},
	}
}

// ApplyDefaults fills every unset field with its default value.
func ApplyDefaults(cfg *Config) error {
	for _, applier := range defaultAppliers() {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("apply %s defaults: %w", applier.Domain(), err)
		}
	}
	return nil
}

// SiteDefaultApplier handles Site configuration defaults.
type SiteDefaultApplier struct{}

func (s *SiteDefaultApplier) Domain() string { return "site" }

func (s *SiteDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Site.Title == "" {
		cfg.Site.Title = "Site Title"
	}
	if cfg.Site.Banner == "" {
		cfg.Site.Banner = "header.jpg"
	}
	if cfg.Site.BaseURL == "" {
		cfg.Site.BaseURL = "http://localhost/folder/"
	}
	if !strings.HasSuffix(cfg.Site.BaseURL, "/") {
		cfg.Site.BaseURL += "/"
	}
	return nil
}

// SourceDefaultApplier handles Source configuration defaults.
type SourceDefaultApplier struct{}

func (s *SourceDefaultApplier) Domain() string { return "source" }

func (s *SourceDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Source.Kind == "" {
		if cfg.Source.Dir != "" {
			cfg.Source.Kind = SourceDir
		} else {
			cfg.Source.Kind = SourceHTTP
		}
	} else if k := NormalizeSourceKind(string(cfg.Source.Kind)); k != "" {
		cfg.Source.Kind = k
	}
	if cfg.Source.Kind == SourceHTTP && cfg.Source.ExportURL == "" {
		cfg.Source.ExportURL = "https://docs.google.com/document/d/{id}/export?format={format}"
	}
	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = "izupress"
	}
	return nil
}

// OutputDefaultApplier handles Output configuration defaults.
type OutputDefaultApplier struct{}

func (o *OutputDefaultApplier) Domain() string { return "output" }

func (o *OutputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "./site"
	}
	return nil
}

// TemplatesDefaultApplier handles Templates configuration defaults.
type TemplatesDefaultApplier struct{}

func (t *TemplatesDefaultApplier) Domain() string { return "templates" }

func (t *TemplatesDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Templates.Article == "" {
		cfg.Templates.Article = "article.html"
	}
	if cfg.Templates.BlogPage == "" {
		cfg.Templates.BlogPage = "blog_page.html"
	}
	if cfg.Templates.BlogPost == "" {
		cfg.Templates.BlogPost = "blog_post.html"
	}
	return nil
}

// BlogDefaultApplier handles Blog configuration defaults.
type BlogDefaultApplier struct{}

func (b *BlogDefaultApplier) Domain() string { return "blog" }

func (b *BlogDefaultApplier) ApplyDefaults(cfg *Config) error {
	// Empty strings are meaningful for reject_cat and banner_exclude (match nothing),
	// so only the accepting filters get a catch-all default.
	if cfg.Blog.AcceptCat == "" {
		cfg.Blog.AcceptCat = ".*"
	}
	if cfg.Blog.GenSingle == "" {
		cfg.Blog.GenSingle = ".*"
	}
	if cfg.Blog.GenMixed == "" {
		cfg.Blog.GenMixed = ".*"
	}
	if cfg.Blog.MixedCat == "" {
		cfg.Blog.MixedCat = "all"
	}
	if cfg.Blog.PostsPerPage <= 0 {
		cfg.Blog.PostsPerPage = 10
	}
	if cfg.Blog.FeedFullPosts <= 0 {
		cfg.Blog.FeedFullPosts = 10
	}
	if cfg.Blog.FeedFullMaxChars <= 0 {
		cfg.Blog.FeedFullMaxChars = 100000
	}
	return nil
}

// StoreDefaultApplier handles Store configuration defaults.
type StoreDefaultApplier struct{}

func (s *StoreDefaultApplier) Domain() string { return "store" }

func (s *StoreDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreFS
	} else if b := NormalizeStoreBackend(string(cfg.Store.Backend)); b != "" {
		cfg.Store.Backend = b
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = "./.izupress-cache"
	}
	if cfg.Store.Backend == StoreNATS && cfg.Store.NATSBucket == "" {
		cfg.Store.NATSBucket = "izupress"
	}
	return nil
}

// RetryDefaultApplier handles Retry configuration defaults.
type RetryDefaultApplier struct{}

func (r *RetryDefaultApplier) Domain() string { return "retry" }

func (r *RetryDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Retry.Backoff == "" {
		cfg.Retry.Backoff = string(RetryBackoffFixed)
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.Retry.Timeout <= 0 {
		cfg.Retry.Timeout = Duration(30 * time.Second)
	}
	if cfg.Retry.Initial <= 0 {
		cfg.Retry.Initial = cfg.Retry.Timeout / 2
	}
	if cfg.Retry.Max <= 0 {
		cfg.Retry.Max = Duration(2 * time.Minute)
	}
	return nil
}

// MediaDefaultApplier handles Media configuration defaults.
type MediaDefaultApplier struct{}

func (m *MediaDefaultApplier) Domain() string { return "media" }

func (m *MediaDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Media.Parallelism <= 0 {
		cfg.Media.Parallelism = 4
	}
	if cfg.Media.JPEGQuality <= 0 || cfg.Media.JPEGQuality > 100 {
		cfg.Media.JPEGQuality = 90
	}
	return nil
}

// ObservabilityDefaultApplier covers metrics, history and notify.
type ObservabilityDefaultApplier struct{}

func (o *ObservabilityDefaultApplier) Domain() string { return "observability" }

func (o *ObservabilityDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.History.Enabled && cfg.History.Path == "" {
		cfg.History.Path = "./.izupress-cache/history.db"
	}
	if cfg.Notify.NATSURL != "" && cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "izupress.page.written"
	}
	if cfg.Deploy.AuthorName == "" {
		cfg.Deploy.AuthorName = "izupress"
	}
	if cfg.Deploy.AuthorEmail == "" {
		cfg.Deploy.AuthorEmail = "izupress@localhost"
	}
	return nil
}

// DaemonDefaultApplier handles Daemon configuration defaults.
type DaemonDefaultApplier struct{}

func (d *DaemonDefaultApplier) Domain() string { return "daemon" }

func (d *DaemonDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Daemon.Interval <= 0 {
		cfg.Daemon.Interval = Duration(15 * time.Minute)
	}
	if cfg.Daemon.Debounce <= 0 {
		cfg.Daemon.Debounce = Duration(2 * time.Second)
	}
	return nil
}
