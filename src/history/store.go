// Package history holds the in-memory clipboard history: a bounded,
// newest-first list with duplicate-by-value collapsing and a single change
// listener. The store is not persisted; a process restart starts empty.
package history

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity bounds the history length.
const DefaultCapacity = 10

// minTextLen is the minimum trimmed length accepted into the history.
const minTextLen = 2

// Entry is one recorded clipboard value. Entries are immutable; re-copying
// the same text replaces the entry with a fresh id and timestamp.
type Entry struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// Preview returns a short single-line rendering for list views.
func (e Entry) Preview() string {
	text := strings.ReplaceAll(e.Text, "\n", " ")
	runes := []rune(text)
	if len(runes) > 50 {
		return string(runes[:47]) + "..."
	}
	return text
}

// Age renders a coarse relative timestamp ("Just now", "5m ago", ...).
func (e Entry) Age(now time.Time) string {
	diff := now.Sub(e.CreatedAt)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return formatCount(int(diff.Minutes()), "m")
	case diff < 24*time.Hour:
		return formatCount(int(diff.Hours()), "h")
	default:
		return formatCount(int(diff.Hours()/24), "d")
	}
}

func formatCount(n int, unit string) string {
	return strconv.Itoa(n) + unit + " ago"
}

// Store is the clipboard history. It must only be used from the UI loop
// goroutine; worker goroutines post mutations instead of calling directly.
type Store struct {
	capacity int
	entries  []Entry
	onChange func()

	now   func() time.Time
	newID func() string
}

// New creates an empty store. capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// SetClock overrides the time source. Test hook.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// SetChangeListener registers the single callback invoked synchronously
// after any mutating call that changed the store. A later call replaces the
// previous listener.
func (s *Store) SetChangeListener(fn func()) { s.onChange = fn }

// RecordIfNew inserts text at the head of the history and reports whether an
// insertion happened. Text whose trimmed length is shorter than two runes is
// rejected. An existing entry with identical text is removed first, so the
// history stays unique by value. The oldest entries are evicted beyond the
// capacity bound.
func (s *Store) RecordIfNew(text string) bool {
	if len([]rune(strings.TrimSpace(text))) < minTextLen {
		return false
	}

	for i, e := range s.entries {
		if e.Text == text {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}

	entry := Entry{ID: s.newID(), Text: text, CreatedAt: s.now()}
	s.entries = append([]Entry{entry}, s.entries...)
	for len(s.entries) > s.capacity {
		s.entries = s.entries[:len(s.entries)-1]
	}

	s.notify()
	return true
}

// List returns a snapshot of the history, newest first.
func (s *Store) List() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the current history length.
func (s *Store) Len() int { return len(s.entries) }

// Delete removes the entry with the given id and reports whether anything
// was removed. Deleting an unknown id is a silent no-op.
func (s *Store) Delete(id string) bool {
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.notify()
			return true
		}
	}
	return false
}

// Clear empties the history.
func (s *Store) Clear() {
	s.entries = nil
	s.notify()
}

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
