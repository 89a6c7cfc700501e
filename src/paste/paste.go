// Package paste forwards a history entry into the focused application,
// falling back to a plain clipboard copy when direct injection is not
// available.
package paste

import (
	"log/slog"

	"overlaybox/src/notify"
)

// Injector types text into the focused application directly.
type Injector interface {
	// IsEnabled reports whether injection can work right now.
	IsEnabled() bool
	Paste(text string) error
}

// Clipboard is the copy surface used for the fallback path. The watcher's
// CopyText satisfies this so the fallback also lands in history.
type Clipboard interface {
	CopyText(text string) error
}

// Disabled is an Injector that never injects, forcing the fallback.
type Disabled struct{}

func (Disabled) IsEnabled() bool         { return false }
func (Disabled) Paste(text string) error { return nil }

// Forwarder delivers text to the user's target application.
type Forwarder struct {
	injector Injector
	clip     Clipboard
	msg      notify.Messenger
}

func NewForwarder(injector Injector, clip Clipboard, msg notify.Messenger) *Forwarder {
	if injector == nil {
		injector = Disabled{}
	}
	if msg == nil {
		msg = notify.LogMessenger{}
	}
	return &Forwarder{injector: injector, clip: clip, msg: msg}
}

// Forward injects text when possible, otherwise copies it and tells the
// user to paste manually.
func (f *Forwarder) Forward(text string) error {
	if f.injector.IsEnabled() {
		err := f.injector.Paste(text)
		if err == nil {
			return nil
		}
		slog.Warn("paste: injection failed, falling back to clipboard", "error", err)
	}

	if err := f.clip.CopyText(text); err != nil {
		return err
	}
	f.msg.Advise("Copied to clipboard. Paste manually.")
	return nil
}
