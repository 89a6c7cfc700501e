// Package watcher bridges clipboard-change signals into the history store.
// Push notifications from the platform and pull-based forced checks both
// funnel through the same read-and-record path, with a hash fast path that
// suppresses repeat reads of the same value before the store's own
// duplicate handling runs.
package watcher

import (
	"crypto/sha256"
	"log/slog"
	"time"

	"overlaybox/src/history"
)

// Clipboard is the external clipboard read/write surface.
type Clipboard interface {
	ReadCurrent() (string, error)
	Write(text string) error
}

// FocusController grants the process transient input focus. On platforms
// gating clipboard reads behind focus, a read without a preceding Acquire
// may silently return stale or empty data.
type FocusController interface {
	Acquire() error
	Release()
}

// Scheduler defers a function; the watcher uses it to release focus shortly
// after a forced read. The UI loop's PostDelayed satisfies this.
type Scheduler func(d time.Duration, fn func())

// DefaultReleaseDelay is how long focus is held after a forced read so the
// read has at least one scheduling tick under focus.
const DefaultReleaseDelay = 200 * time.Millisecond

// Watcher normalizes clipboard signals into Store.RecordIfNew calls.
// Like the store it serves, it must be driven from the UI loop goroutine.
type Watcher struct {
	clip  Clipboard
	store *history.Store
	focus FocusController
	sched Scheduler

	releaseDelay time.Duration

	lastText string
	lastHash [sha256.Size]byte
	hasLast  bool
}

func New(clip Clipboard, store *history.Store, focus FocusController, sched Scheduler) *Watcher {
	return &Watcher{
		clip:         clip,
		store:        store,
		focus:        focus,
		sched:        sched,
		releaseDelay: DefaultReleaseDelay,
	}
}

// SetReleaseDelay overrides the focus release delay. Test hook.
func (w *Watcher) SetReleaseDelay(d time.Duration) { w.releaseDelay = d }

// OnClipboardChanged handles a platform push notification: read the current
// clipboard text and record it if new.
func (w *Watcher) OnClipboardChanged() bool {
	return w.readAndRecord()
}

// ForceCheck re-reads the clipboard on demand, e.g. after a capture flow or
// on a heuristic hint.
//
// Precondition: clipboard reads are only trustworthy while this process
// holds input focus. ForceCheck therefore acquires a transient focus grant
// before the read and releases it after a short delay, so the read gets at
// least one scheduling tick under focus. Callers on focus-gated platforms
// must not bypass this path.
func (w *Watcher) ForceCheck() bool {
	if w.focus != nil {
		if err := w.focus.Acquire(); err != nil {
			slog.Warn("watcher: focus grant failed, clipboard read may be stale", "error", err)
		} else if w.sched != nil {
			w.sched(w.releaseDelay, w.focus.Release)
		} else {
			defer w.focus.Release()
		}
	}
	return w.readAndRecord()
}

// CopyText writes text to the system clipboard and records it in the
// history directly. The last-observed state is primed with the written
// value so the echo from the platform change notification is ignored.
func (w *Watcher) CopyText(text string) error {
	if err := w.clip.Write(text); err != nil {
		return err
	}
	w.noteObserved(text)
	w.store.RecordIfNew(text)
	return nil
}

func (w *Watcher) readAndRecord() bool {
	text, err := w.clip.ReadCurrent()
	if err != nil {
		slog.Warn("watcher: clipboard read failed", "error", err)
		return false
	}
	if text == "" {
		return false
	}

	// Fast path: skip the store entirely when the value is the one we saw
	// last. The store's own duplicate-by-value handling still applies for
	// older history entries.
	if w.hasLast {
		if text == w.lastText {
			return false
		}
		if sha256.Sum256([]byte(text)) == w.lastHash {
			return false
		}
	}

	w.noteObserved(text)
	return w.store.RecordIfNew(text)
}

func (w *Watcher) noteObserved(text string) {
	w.lastText = text
	w.lastHash = sha256.Sum256([]byte(text))
	w.hasLast = true
}
