// Package errors provides the classified error primitives used across izupress.
//
// Key features:
//   - ErrorCategory: broad classification (marker, duplicate, date, link, fetch, cache, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: retry behavior (never, backoff, user action, ...)
//   - ClassifiedError: structured error with category, severity, and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and user-facing messages
//
// Example usage:
//
//	err := errors.TransientFetchError("export failed").
//		WithContext("document", id).
//		WithCause(httpErr).
//		Build()
package errors
