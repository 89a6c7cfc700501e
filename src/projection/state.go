// Package projection tracks the screen-capture authorization: whether a
// grant is live, when it was issued, and whether the underlying handle can
// still be used. Grants are time-limited on platforms that enforce it, so
// callers consult NeedsNewPermission before every capture.
package projection

import (
	"log/slog"
	"time"
)

// ValidityDuration is how long a grant stays usable on platforms with
// time-limited capture permissions.
const ValidityDuration = 30 * time.Minute

// Handle is the opaque capture authorization object. It is single-owner;
// the State holds at most one live handle at a time.
type Handle interface {
	Close()
}

// Resynthesizer recreates a handle from the last-known grant data after the
// platform invalidated it out-of-band.
type Resynthesizer func() (Handle, error)

// Reason classifies an invalidation.
type Reason int

const (
	ReasonExpired Reason = iota
	ReasonDenied
	ReasonCleanup
)

func (r Reason) String() string {
	switch r {
	case ReasonExpired:
		return "expired"
	case ReasonDenied:
		return "denied"
	case ReasonCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Callback receives permission lifecycle notifications.
type Callback interface {
	OnGranted()
	OnInvalidated(reason Reason)
}

// State is the capture-permission state machine. Owned by the UI loop; the
// recreation guard is a plain flag, not a mutex, because all access is
// single-threaded.
type State struct {
	now         func() time.Time
	timeLimited bool
	validity    time.Duration

	granted   bool
	grantedAt time.Time
	handle    Handle
	resynth   Resynthesizer

	recreating bool
	callback   Callback
}

// Option configures a State.
type Option func(*State)

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// WithoutTimeLimit models platforms whose grants never expire by age.
func WithoutTimeLimit() Option {
	return func(s *State) { s.timeLimited = false }
}

func NewState(opts ...Option) *State {
	s := &State{
		now:         time.Now,
		timeLimited: true,
		validity:    ValidityDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetCallback registers the single permission listener. A later call
// replaces the previous one.
func (s *State) SetCallback(cb Callback) { s.callback = cb }

// Grant records a fresh user grant. resynth recreates the handle later if
// the platform drops it while the grant is still valid.
func (s *State) Grant(h Handle, resynth Resynthesizer) {
	if s.handle != nil {
		s.handle.Close()
	}
	s.granted = true
	s.grantedAt = s.now()
	s.handle = h
	s.resynth = resynth
	slog.Info("projection: grant recorded")
	if s.callback != nil {
		s.callback.OnGranted()
	}
}

// NeedsNewPermission reports whether a capture must be preceded by a fresh
// grant request: never granted, grant aged out, or the handle vanished and
// no resynthesis source exists.
func (s *State) NeedsNewPermission() bool {
	if !s.granted {
		return true
	}
	if s.timeLimited && s.now().Sub(s.grantedAt) > s.validity {
		slog.Debug("projection: grant aged out", "grantedAt", s.grantedAt)
		return true
	}
	if s.handle == nil && s.resynth == nil {
		return true
	}
	return false
}

// HasActiveHandle reports whether a live handle is currently held.
func (s *State) HasActiveHandle() bool { return s.handle != nil }

// Invalidate clears the grant. Expired and Denied notify the permission
// callback; Cleanup is silent.
func (s *State) Invalidate(reason Reason) {
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
	wasGranted := s.granted
	s.granted = false
	s.resynth = nil
	slog.Info("projection: invalidated", "reason", reason.String())

	if !wasGranted {
		return
	}
	if s.callback != nil && reason != ReasonCleanup {
		s.callback.OnInvalidated(reason)
	}
}

// EnsureHandle returns a live handle, resynthesizing one from the last
// grant when the platform dropped it out-of-band. At most one resynthesis
// runs at a time; a reentrant call while one is in flight returns nil.
func (s *State) EnsureHandle() Handle {
	if !s.granted {
		return nil
	}
	if s.timeLimited && s.now().Sub(s.grantedAt) > s.validity {
		return nil
	}
	if s.handle != nil {
		return s.handle
	}
	if s.resynth == nil || s.recreating {
		return nil
	}

	s.recreating = true
	defer func() { s.recreating = false }()

	h, err := s.resynth()
	if err != nil {
		slog.Warn("projection: handle resynthesis failed", "error", err)
		return nil
	}
	s.handle = h
	slog.Info("projection: handle resynthesized")
	return h
}
