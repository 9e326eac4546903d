package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyDocument   = "document"
	KeyCategory   = "category"
	KeyPostKey    = "post_key"
	KeyPath       = "path"
	KeyContextKey = "context_key"
	KeyURL        = "url"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyBackend    = "backend"
	KeySchedule   = "schedule_name"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Document(id string) slog.Attr     { return slog.String(KeyDocument, id) }
func Category(c string) slog.Attr      { return slog.String(KeyCategory, c) }
func PostKey(k string) slog.Attr       { return slog.String(KeyPostKey, k) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func ContextKey(k string) slog.Attr    { return slog.String(KeyContextKey, k) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Backend(name string) slog.Attr    { return slog.String(KeyBackend, name) }
func ScheduleName(n string) slog.Attr  { return slog.String(KeySchedule, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
