package source

import (
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/izupress/internal/config"
	"git.home.luguber.info/inful/izupress/internal/retry"
)

// NewReader builds the Reader selected by cfg. It also returns a Fetcher for
// remote media, which never carries the source token.
func NewReader(cfg config.SourceConfig, rc config.RetryConfig, client *http.Client, logger *slog.Logger) (Reader, *Fetcher) {
	policy := retry.FromConfig(rc)
	media := NewFetcher(policy,
		WithHTTPClient(client),
		WithUserAgent(cfg.UserAgent),
		WithFetchLogger(logger),
	)
	if cfg.Kind == config.SourceDir {
		return NewDirReader(cfg.Dir), media
	}
	docs := NewFetcher(policy,
		WithHTTPClient(client),
		WithUserAgent(cfg.UserAgent),
		WithToken(cfg.Token),
		WithFetchLogger(logger),
	)
	return NewHTTPReader(docs, cfg.ExportURL, cfg.MetadataURL), media
}
