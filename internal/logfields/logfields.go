package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyComponent  = "component"
	KeyOperation  = "op"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyLocation   = "location"
	KeyWorld      = "world"
	KeySlot       = "slot"
	KeyOwner      = "owner"
	KeyContainer  = "container"
	KeyKind       = "kind"
	KeyCount      = "count"
	KeyPath       = "path"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }
func Operation(op string) slog.Attr   { return slog.String(KeyOperation, op) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Location(loc string) slog.Attr   { return slog.String(KeyLocation, loc) }
func World(name string) slog.Attr     { return slog.String(KeyWorld, name) }
func Slot(i int) slog.Attr            { return slog.Int(KeySlot, i) }
func Owner(ref string) slog.Attr      { return slog.String(KeyOwner, ref) }
func Container(c string) slog.Attr    { return slog.String(KeyContainer, c) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
