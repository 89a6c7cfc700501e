// Package notify delivers short-lived advisory messages to the user. No
// failure surfaced here is fatal; the worst outcome of any operation is one
// of these messages.
package notify

import "log/slog"

// maxAdvisoryLen truncates runaway message text before display.
const maxAdvisoryLen = 200

// Messenger shows a transient user-facing message (toast equivalent).
type Messenger interface {
	Advise(text string)
}

// Truncate shortens text for display.
func Truncate(text string) string {
	if len(text) <= maxAdvisoryLen {
		return text
	}
	return text[:maxAdvisoryLen] + "..."
}

// LogMessenger renders advisories into the structured log. Used when no
// richer frontend is attached and as the test default.
type LogMessenger struct{}

func (LogMessenger) Advise(text string) {
	slog.Info("advisory", "text", Truncate(text))
}

// Multi fans one advisory out to several sinks (e.g. log plus tray tooltip).
type Multi []Messenger

func (m Multi) Advise(text string) {
	for _, sink := range m {
		sink.Advise(text)
	}
}
