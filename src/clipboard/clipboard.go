// Package clipboard adapts the system clipboard behind the small surface the
// watcher and capture flows need: read current text, write text, and a
// push-style change feed.
package clipboard

import (
	"context"
	"sync"

	xclip "golang.design/x/clipboard"
)

// Init must be called once before any other function. It fails when the
// platform clipboard is unavailable (e.g. headless session).
func Init() error {
	return xclip.Init()
}

// System is the real clipboard backed by golang.design/x/clipboard.
type System struct {
	writeMu sync.Mutex
}

func NewSystem() *System { return &System{} }

// ReadCurrent returns the current clipboard text, empty when the clipboard
// holds no text data.
func (s *System) ReadCurrent() (string, error) {
	return string(xclip.Read(xclip.FmtText)), nil
}

// Write performs a mutex-guarded clipboard write to prevent corruption under
// parallel writes.
func (s *System) Write(text string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	xclip.Write(xclip.FmtText, []byte(text))
	return nil
}

// Watch emits the new clipboard text whenever the platform reports a change.
// The channel closes when ctx is cancelled. Change delivery may be
// unreliable while the process is unfocused; callers pair this with
// heuristic forced checks.
func (s *System) Watch(ctx context.Context) <-chan string {
	raw := xclip.Watch(ctx, xclip.FmtText)
	out := make(chan string, 4)
	go func() {
		defer close(out)
		for data := range raw {
			select {
			case out <- string(data):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
