package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

// Validate checks a defaulted configuration. Failures are ClassifiedErrors in the
// config category.
func Validate(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	for _, check := range []func() error{
		v.validateSite,
		v.validateSource,
		v.validateBlog,
		v.validateStore,
		v.validateRetry,
		v.validateDaemon,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validateSite() error {
	u, err := url.Parse(cv.config.Site.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ferrors.ConfigError("site.base_url must be an absolute URL").
			WithContext("value", cv.config.Site.BaseURL).Build()
	}
	if cv.config.Site.RewrittenURL != "" && !strings.HasPrefix(cv.config.Site.RewrittenURL, "http") {
		return ferrors.ConfigError("site.rewritten_url must be an http(s) URL prefix").
			WithContext("value", cv.config.Site.RewrittenURL).Build()
	}
	return nil
}

func (cv *configurationValidator) validateSource() error {
	src := cv.config.Source
	switch src.Kind {
	case SourceHTTP:
		if src.IndexID == "" {
			return ferrors.ConfigError("source.index_id is required for the http source").Build()
		}
		if !strings.Contains(src.ExportURL, "{id}") {
			return ferrors.ConfigError("source.export_url must contain {id}").
				WithContext("value", src.ExportURL).Build()
		}
	case SourceDir:
		if src.Dir == "" {
			return ferrors.ConfigError("source.dir is required for the dir source").Build()
		}
		if src.IndexID == "" {
			return ferrors.ConfigError("source.index_id is required (file name of the index document)").Build()
		}
	default:
		return ferrors.ConfigError(fmt.Sprintf("unsupported source.kind: %s", src.Kind)).Build()
	}
	return nil
}

func (cv *configurationValidator) validateBlog() error {
	b := cv.config.Blog
	for name, value := range map[string]string{
		"accept_cat":     b.AcceptCat,
		"reject_cat":     b.RejectCat,
		"gen_single":     b.GenSingle,
		"gen_mixed":      b.GenMixed,
		"banner_exclude": b.BannerExclude,
	} {
		if err := checkPatternList(value); err != nil {
			return ferrors.ConfigError("invalid blog."+name+" pattern").
				WithCause(err).
				WithContext("value", value).Build()
		}
	}
	if strings.ContainsAny(b.MixedCat, "/\\ ") {
		return ferrors.ConfigError("blog.mixed_cat must be a single path segment").
			WithContext("value", b.MixedCat).Build()
	}
	return nil
}

// checkPatternList compiles each entry of a comma separated pattern list.
func checkPatternList(value string) error {
	if i := strings.Index(value, "#"); i >= 0 {
		value = value[:i]
	}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, err := regexp.Compile("^(?:" + part + ")$"); err != nil {
			return err
		}
	}
	return nil
}

func (cv *configurationValidator) validateStore() error {
	st := cv.config.Store
	switch st.Backend {
	case StoreFS, StoreBolt, StoreSQLite, StoreMemory:
	case StoreNATS:
		if st.NATSURL == "" {
			return ferrors.ConfigError("store.nats_url is required for the nats backend").Build()
		}
	default:
		return ferrors.ConfigError(fmt.Sprintf("unsupported store.backend: %s", st.Backend)).Build()
	}
	return nil
}

func (cv *configurationValidator) validateRetry() error {
	if NormalizeRetryBackoff(cv.config.Retry.Backoff) == "" {
		return ferrors.ConfigError(fmt.Sprintf("invalid retry.backoff: %s", cv.config.Retry.Backoff)).Build()
	}
	if cv.config.Retry.Initial > cv.config.Retry.Max {
		return ferrors.ConfigError("retry.initial cannot exceed retry.max").Build()
	}
	return nil
}

func (cv *configurationValidator) validateDaemon() error {
	if cv.config.Daemon.Interval.Duration() < cv.config.Daemon.Debounce.Duration() {
		return ferrors.ConfigError("daemon.interval must not be shorter than daemon.debounce").Build()
	}
	return nil
}
