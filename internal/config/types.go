package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads and writes Go duration strings ("30s", "5m").
type Duration time.Duration

// Duration returns the value as a time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML accepts duration strings; a bare integer is taken as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		*d = 0
		return nil
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}
	var seconds int
	if err := value.Decode(&seconds); err != nil {
		return fmt.Errorf("invalid duration %q", raw)
	}
	*d = Duration(time.Duration(seconds) * time.Second)
	return nil
}

// MarshalYAML writes the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// NormalizeRetryBackoff converts arbitrary user input (case-insensitive) into a typed mode,
// returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	return normalizeEnum(raw, RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential)
}

// SourceKind selects the DocumentSource implementation.
type SourceKind string

const (
	SourceHTTP SourceKind = "http"
	SourceDir  SourceKind = "dir"
)

// NormalizeSourceKind returns the typed source kind or empty string when unknown.
func NormalizeSourceKind(raw string) SourceKind {
	return normalizeEnum(raw, SourceHTTP, SourceDir)
}

// StoreBackend selects the ByteStore implementation behind the hash cache.
type StoreBackend string

const (
	StoreFS     StoreBackend = "fs"
	StoreBolt   StoreBackend = "bolt"
	StoreSQLite StoreBackend = "sqlite"
	StoreNATS   StoreBackend = "nats"
	StoreMemory StoreBackend = "memory"
)

// NormalizeStoreBackend returns the typed backend or empty string when unknown.
func NormalizeStoreBackend(raw string) StoreBackend {
	return normalizeEnum(raw, StoreFS, StoreBolt, StoreSQLite, StoreNATS, StoreMemory)
}

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// NormalizeLogLevel maps user input onto a level, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	if l := normalizeEnum(raw, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError); l != "" {
		return l
	}
	if strings.EqualFold(strings.TrimSpace(raw), "warning") {
		return LogLevelWarn
	}
	return LogLevelInfo
}

func normalizeEnum[T ~string](raw string, valid ...T) T {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	for _, v := range valid {
		if string(v) == cleaned {
			return v
		}
	}
	return ""
}
