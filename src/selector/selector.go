// Package selector turns a drag gesture on a full-screen surface into a
// validated capture rectangle. One Selector instance serves one gesture
// flow and emits exactly one completion, after which it is torn down.
package selector

import (
	"log/slog"
	"time"
)

// MinSpan is the smallest accepted selection edge, in pixels. Smaller
// selections are rejected and the user redraws.
const MinSpan = 50

// DefaultAutoCaptureDelay is how long a pending selection waits for a
// confirming tap before capturing on its own.
const DefaultAutoCaptureDelay = 2 * time.Second

// redrawThreshold is the movement, in pixels, that turns a touch on a
// pending selection into a redraw instead of a confirming tap.
const redrawThreshold = 10

// Rect is a normalized screen rectangle: Left < Right, Top < Bottom.
type Rect struct {
	Left, Top, Right, Bottom int
}

// RectFromPoints builds a normalized Rect from two corner points in any
// order.
func RectFromPoints(x0, y0, x1, y1 int) Rect {
	r := Rect{Left: x0, Top: y0, Right: x1, Bottom: y1}
	if r.Left > r.Right {
		r.Left, r.Right = r.Right, r.Left
	}
	if r.Top > r.Bottom {
		r.Top, r.Bottom = r.Bottom, r.Top
	}
	return r
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// Valid reports whether the rectangle meets the minimum selection size.
func (r Rect) Valid() bool {
	return r.Width() >= MinSpan && r.Height() >= MinSpan
}

// Phase is the gesture state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhasePending
	PhaseCaptured
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDragging:
		return "dragging"
	case PhasePending:
		return "pending"
	case PhaseCaptured:
		return "captured"
	default:
		return "unknown"
	}
}

// Canceller stops a scheduled callback.
type Canceller interface {
	Cancel()
}

// Schedule defers fn by d and returns a handle to cancel it. The UI loop's
// PostDelayed satisfies this.
type Schedule func(d time.Duration, fn func()) Canceller

// Config wires a Selector's outputs.
type Config struct {
	// OnComplete receives the confirmed rectangle. Called exactly once.
	OnComplete func(Rect)
	// OnRejected is an advisory for a too-small selection. May be nil.
	OnRejected func(Rect)
	// Schedule arms the auto-capture timer. Nil disables auto-capture.
	Schedule Schedule
	// AutoCaptureDelay defaults to DefaultAutoCaptureDelay.
	AutoCaptureDelay time.Duration
}

// Selector is the drag-to-select state machine. Drive it from the UI loop
// with the surface's touch events.
type Selector struct {
	cfg Config

	phase            Phase
	anchorX, anchorY int
	curX, curY       int

	pending      Rect
	pendingTimer Canceller

	// tap tracking while a selection is pending
	tapDown    bool
	tapX, tapY int

	captured bool
}

func New(cfg Config) *Selector {
	if cfg.AutoCaptureDelay <= 0 {
		cfg.AutoCaptureDelay = DefaultAutoCaptureDelay
	}
	return &Selector{cfg: cfg}
}

// Phase returns the current gesture phase.
func (s *Selector) Phase() Phase { return s.phase }

// LiveRect returns the rectangle to render as drag feedback and whether one
// should be drawn at all.
func (s *Selector) LiveRect() (Rect, bool) {
	switch s.phase {
	case PhaseDragging:
		return RectFromPoints(s.anchorX, s.anchorY, s.curX, s.curY), true
	case PhasePending:
		return s.pending, true
	default:
		return Rect{}, false
	}
}

// TouchDown starts a new drag, or begins a confirming tap when a selection
// is pending.
func (s *Selector) TouchDown(x, y int) {
	switch s.phase {
	case PhaseIdle:
		s.beginDrag(x, y)
	case PhasePending:
		// Either a confirming tap or the start of a redraw; decided by
		// how far the touch moves before release.
		s.tapDown = true
		s.tapX, s.tapY = x, y
	}
}

// TouchMove updates the live rectangle while dragging. Movement beyond the
// redraw threshold on a pending selection discards it and starts over.
func (s *Selector) TouchMove(x, y int) {
	switch s.phase {
	case PhaseDragging:
		s.curX, s.curY = x, y
	case PhasePending:
		if !s.tapDown {
			return
		}
		if abs(x-s.tapX) > redrawThreshold || abs(y-s.tapY) > redrawThreshold {
			slog.Debug("selector: pending selection discarded for redraw")
			s.discardPending()
			s.beginDrag(s.tapX, s.tapY)
			s.curX, s.curY = x, y
		}
	}
}

// TouchUp finishes a drag or confirms a pending selection.
func (s *Selector) TouchUp(x, y int) {
	switch s.phase {
	case PhaseDragging:
		s.curX, s.curY = x, y
		rect := RectFromPoints(s.anchorX, s.anchorY, s.curX, s.curY)
		if !rect.Valid() {
			slog.Debug("selector: selection too small", "width", rect.Width(), "height", rect.Height())
			s.phase = PhaseIdle
			if s.cfg.OnRejected != nil {
				s.cfg.OnRejected(rect)
			}
			return
		}
		s.pending = rect
		s.phase = PhasePending
		s.tapDown = false
		if s.cfg.Schedule != nil {
			s.pendingTimer = s.cfg.Schedule(s.cfg.AutoCaptureDelay, s.fire)
		}
	case PhasePending:
		if s.tapDown {
			s.tapDown = false
			s.fire()
		}
	}
}

// fire emits the single completion event. The one-shot guard makes a
// near-simultaneous tap and auto-capture timeout harmless.
func (s *Selector) fire() {
	if s.captured || s.phase != PhasePending {
		return
	}
	s.captured = true
	if s.pendingTimer != nil {
		s.pendingTimer.Cancel()
		s.pendingTimer = nil
	}
	s.phase = PhaseCaptured
	if s.cfg.OnComplete != nil {
		s.cfg.OnComplete(s.pending)
	}
}

func (s *Selector) beginDrag(x, y int) {
	s.phase = PhaseDragging
	s.anchorX, s.anchorY = x, y
	s.curX, s.curY = x, y
	s.tapDown = false
}

func (s *Selector) discardPending() {
	if s.pendingTimer != nil {
		s.pendingTimer.Cancel()
		s.pendingTimer = nil
	}
	s.pending = Rect{}
	s.phase = PhaseIdle
	s.tapDown = false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
