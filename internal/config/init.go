package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Example returns the configuration written by Init.
func Example() Config {
	return Config{
		Site: SiteConfig{
			Title:   "My Site",
			BaseURL: "https://example.com/",
			Banner:  "header.jpg",
		},
		Source: SourceConfig{
			Kind:      SourceHTTP,
			IndexID:   "YOUR_INDEX_DOCUMENT_ID",
			ExportURL: "https://docs.google.com/document/d/{id}/export?format={format}",
			Token:     "${IZUPRESS_SOURCE_TOKEN}",
		},
		Output: OutputConfig{Directory: "./site"},
		Templates: TemplatesConfig{
			Dir:      "./templates",
			Article:  "article.html",
			BlogPage: "blog_page.html",
			BlogPost: "blog_post.html",
		},
		Blog: BlogConfig{
			AcceptCat:        ".*",
			GenSingle:        ".*",
			GenMixed:         ".*",
			MixedCat:         "all",
			PostsPerPage:     10,
			FeedFullPosts:    10,
			FeedFullMaxChars: 100000,
		},
		Store: StoreConfig{Backend: StoreFS, Dir: "./.izupress-cache"},
		Retry: RetryConfig{
			Backoff:    string(RetryBackoffFixed),
			Initial:    Duration(15 * time.Second),
			Max:        Duration(2 * time.Minute),
			MaxRetries: 3,
			Timeout:    Duration(30 * time.Second),
		},
		Media:  MediaConfig{Parallelism: 4, JPEGQuality: 90},
		Daemon: DaemonConfig{Interval: Duration(15 * time.Minute), Debounce: Duration(2 * time.Second)},
	}
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Example()
	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
