package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/logfields"
	"git.home.luguber.info/inful/izupress/internal/retry"
)

// DefaultMaxBody bounds any single download.
const DefaultMaxBody = 64 << 20

// Fetcher performs GET and HEAD requests with retries on transient failures.
// Network errors, 429 and 5xx responses are transient; other 4xx are not.
type Fetcher struct {
	client    *http.Client
	policy    retry.Policy
	userAgent string
	token     string
	maxBody   int64
	logger    *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithToken sends a bearer token with every request.
func WithToken(token string) FetcherOption {
	return func(f *Fetcher) { f.token = token }
}

// WithMaxBody replaces DefaultMaxBody. Larger responses fail instead of being
// truncated.
func WithMaxBody(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// WithFetchLogger sets a custom logger.
func WithFetchLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a Fetcher retrying with policy.
func NewFetcher(policy retry.Policy, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{client: http.DefaultClient, policy: policy, userAgent: "izupress", maxBody: DefaultMaxBody, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Response is a fully read HTTP response.
type Response struct {
	Header http.Header
	Body   []byte
}

// Get downloads url.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	return f.do(ctx, http.MethodGet, url)
}

// Head returns the headers of url.
func (f *Fetcher) Head(ctx context.Context, url string) (*Response, error) {
	return f.do(ctx, http.MethodHead, url)
}

func (f *Fetcher) do(ctx context.Context, method, url string) (*Response, error) {
	var out *Response
	err := retry.DoWithLogger(ctx, f.policy, f.logger, func(ctx context.Context, attempt int) error {
		if attempt > 0 {
			f.logger.Info("Retrying fetch", logfields.URL(url), slog.Int("attempt", attempt))
		}
		resp, err := f.once(ctx, method, url)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Fetcher) once(ctx context.Context, method, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return nil, ferrors.FetchError("failed to create request").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, err
		}
		return nil, ferrors.NewError(ferrors.CategoryNetwork, "request failed").
			WithCause(err).
			Retryable().
			WithContext("method", method).
			WithContext("url", url).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		bodyStr := strings.ReplaceAll(string(limitedBody), "\n", " ")

		var b *ferrors.ErrorBuilder
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			b = ferrors.TransientFetchError(fmt.Sprintf("fetch failed: %s", resp.Status))
		case resp.StatusCode == http.StatusNotFound:
			b = ferrors.NewError(ferrors.CategoryNotFound, fmt.Sprintf("fetch failed: %s", resp.Status))
		default:
			b = ferrors.FetchError(fmt.Sprintf("fetch failed: %s", resp.Status))
		}
		return nil, b.
			WithContext("code", resp.StatusCode).
			WithContext("url", url).
			WithContext("response", bodyStr).
			Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, ferrors.TransientFetchError("read response body").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	if int64(len(body)) > f.maxBody {
		return nil, ferrors.FetchError("response body too large").
			WithContext("url", url).
			WithContext("limit", f.maxBody).
			Build()
	}
	return &Response{Header: resp.Header, Body: body}, nil
}
