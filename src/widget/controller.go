// Package widget drives the floating overlay widget: tap and double-tap
// state changes, drag-to-move with a delete zone, and the hidden state
// used while a capture is in flight. The controller holds all gesture
// logic; rendering stays behind the View interface.
package widget

import (
	"log/slog"
	"math"
	"time"

	"overlaybox/src/events"
)

const (
	// AlphaCollapsed is the idle, mostly transparent appearance.
	AlphaCollapsed = 0.3
	// AlphaSemi is the attention-grabbing half-opaque appearance.
	AlphaSemi = 0.7
	// AlphaExpanded is full opacity with action buttons visible.
	AlphaExpanded = 1.0

	// DoubleTapTimeout is the maximum gap between taps that still counts
	// as a double tap.
	DoubleTapTimeout = 300 * time.Millisecond
	// maxClickDuration separates a tap from a press-and-hold.
	maxClickDuration = 200 * time.Millisecond
	// DragThreshold is the movement, in pixels, that turns a touch into
	// a drag.
	DragThreshold = 10
	// HiddenFallback restores the widget if no completion signal arrives
	// after it was hidden for a capture.
	HiddenFallback = 12 * time.Second
	// DeleteZoneHideDelay keeps the delete zone briefly visible after a
	// drop outside it.
	DeleteZoneHideDelay = 500 * time.Millisecond
)

// State is the widget's visual state.
type State int

const (
	StateCollapsed State = iota
	StateSemi
	StateExpanded
	StateHidden
)

func (s State) String() string {
	switch s {
	case StateCollapsed:
		return "collapsed"
	case StateSemi:
		return "semi"
	case StateExpanded:
		return "expanded"
	case StateHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// View renders the widget. All calls arrive on the UI loop.
type View interface {
	SetAlpha(alpha float64)
	// SetExpanded toggles the action button row.
	SetExpanded(expanded bool)
	SetVisible(visible bool)
	MoveTo(x, y int)
	ShowDeleteZone()
	HideDeleteZone()
	// DeleteZoneCenter is the zone's center in the same coordinate space
	// as touch events.
	DeleteZoneCenter() (x, y int)
	DeleteZoneWidth() int
}

// Publisher is the event-bus surface the controller needs.
type Publisher interface {
	Publish(ev events.Event)
}

// Canceller stops a scheduled callback.
type Canceller interface {
	Cancel()
}

// Schedule defers fn by d; the UI loop's PostDelayed satisfies this.
type Schedule func(d time.Duration, fn func()) Canceller

// Config wires a Controller.
type Config struct {
	View      View
	Publisher Publisher
	Schedule  Schedule

	// OnCapture runs when an action button is pressed.
	OnCapture func(mode events.CaptureMode)
	// OnStop runs after the widget is dropped on the delete zone.
	OnStop func()
	// OnPositionChanged persists the drop position. May be nil.
	OnPositionChanged func(x, y int)

	InitialX, InitialY int

	// Now is a clock override for tests.
	Now func() time.Time
}

// Controller is the widget gesture and state machine. Call it from the UI
// loop only.
type Controller struct {
	cfg Config
	now func() time.Time

	state State
	posX  int
	posY  int

	// touch tracking
	touchActive    bool
	dragging       bool
	downX, downY   int
	startX, startY int
	downAt         time.Time
	lastTapAt      time.Time
	stopped        bool

	fallbackTimer Canceller
	zoneHideTimer Canceller
}

func NewController(cfg Config) *Controller {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		cfg:  cfg,
		now:  now,
		posX: cfg.InitialX,
		posY: cfg.InitialY,
	}
	c.cfg.View.MoveTo(c.posX, c.posY)
	c.setState(StateSemi)
	return c
}

// State returns the current visual state.
func (c *Controller) State() State { return c.state }

// Position returns the widget's current top-left position.
func (c *Controller) Position() (x, y int) { return c.posX, c.posY }

func (c *Controller) setState(s State) {
	c.state = s
	switch s {
	case StateCollapsed:
		c.cfg.View.SetAlpha(AlphaCollapsed)
	case StateSemi:
		c.cfg.View.SetAlpha(AlphaSemi)
	case StateExpanded:
		c.cfg.View.SetAlpha(AlphaExpanded)
	}
	c.cfg.View.SetExpanded(s == StateExpanded)
	c.cfg.View.SetVisible(s != StateHidden)
}

// TouchDown starts tracking a touch on the widget body.
func (c *Controller) TouchDown(x, y int) {
	if c.stopped || c.state == StateHidden {
		return
	}
	c.touchActive = true
	c.dragging = false
	c.downX, c.downY = x, y
	c.startX, c.startY = c.posX, c.posY
	c.downAt = c.now()
}

// TouchMove moves the widget once the drag threshold is crossed.
func (c *Controller) TouchMove(x, y int) {
	if !c.touchActive {
		return
	}
	dx, dy := x-c.downX, y-c.downY
	if !c.dragging {
		if abs(dx) <= DragThreshold && abs(dy) <= DragThreshold {
			return
		}
		c.dragging = true
		c.cancelZoneHide()
		c.cfg.View.ShowDeleteZone()
	}
	c.posX, c.posY = c.startX+dx, c.startY+dy
	c.cfg.View.MoveTo(c.posX, c.posY)
}

// TouchUp finishes a drag or resolves a tap.
func (c *Controller) TouchUp(x, y int) {
	if !c.touchActive {
		return
	}
	c.touchActive = false

	if c.dragging {
		c.dragging = false
		c.finishDrag(x, y)
		return
	}

	if c.now().Sub(c.downAt) >= maxClickDuration {
		return
	}
	c.handleTap()
}

func (c *Controller) finishDrag(x, y int) {
	if c.insideDeleteZone(x, y) {
		slog.Info("widget: dropped on delete zone, stopping")
		c.cfg.View.HideDeleteZone()
		c.remove()
		return
	}
	if c.cfg.OnPositionChanged != nil {
		c.cfg.OnPositionChanged(c.posX, c.posY)
	}
	c.zoneHideTimer = c.cfg.Schedule(DeleteZoneHideDelay, func() {
		c.zoneHideTimer = nil
		c.cfg.View.HideDeleteZone()
	})
}

// insideDeleteZone checks the release point against the zone center. The
// radius is deliberately wider than the zone itself so near misses still
// count as a drop.
func (c *Controller) insideDeleteZone(x, y int) bool {
	cx, cy := c.cfg.View.DeleteZoneCenter()
	radius := float64(c.cfg.View.DeleteZoneWidth()) / 1.5
	dx, dy := float64(x-cx), float64(y-cy)
	return math.Hypot(dx, dy) <= radius
}

func (c *Controller) handleTap() {
	tapAt := c.now()
	if !c.lastTapAt.IsZero() && tapAt.Sub(c.lastTapAt) <= DoubleTapTimeout {
		c.lastTapAt = time.Time{}
		c.setState(StateExpanded)
		return
	}
	c.lastTapAt = tapAt

	switch c.state {
	case StateCollapsed:
		c.setState(StateSemi)
	case StateSemi:
		c.setState(StateCollapsed)
	case StateExpanded:
		c.setState(StateSemi)
	}
}

// OnScreenshotButton handles the screenshot action button.
func (c *Controller) OnScreenshotButton() { c.captureButton(events.ModeScreenshot) }

// OnOCRButton handles the text-extraction action button.
func (c *Controller) OnOCRButton() { c.captureButton(events.ModeOCR) }

func (c *Controller) captureButton(mode events.CaptureMode) {
	if c.stopped || c.state != StateExpanded {
		return
	}
	if c.cfg.OnCapture != nil {
		c.cfg.OnCapture(mode)
	}
}

// HideForCapture hides the widget while a capture runs and arms a fallback
// timer so a lost completion signal cannot leave it hidden forever.
func (c *Controller) HideForCapture() {
	if c.stopped {
		return
	}
	c.cancelFallback()
	c.setState(StateHidden)
	c.fallbackTimer = c.cfg.Schedule(HiddenFallback, func() {
		c.fallbackTimer = nil
		if c.state == StateHidden {
			slog.Warn("widget: completion signal never arrived, restoring")
			c.setState(StateSemi)
		}
	})
}

// ShowAfterCapture restores the widget once a capture finishes.
func (c *Controller) ShowAfterCapture() {
	c.cancelFallback()
	if c.stopped {
		return
	}
	if c.state == StateHidden {
		c.setState(StateSemi)
	}
}

// Show makes the widget visible on an external request, such as a second
// process invocation.
func (c *Controller) Show() {
	if c.stopped {
		return
	}
	c.cancelFallback()
	if c.state == StateHidden {
		c.setState(StateSemi)
	}
	c.cfg.View.SetVisible(true)
}

// remove tears the widget down permanently.
func (c *Controller) remove() {
	c.stopped = true
	c.cancelFallback()
	c.cancelZoneHide()
	c.cfg.View.SetVisible(false)
	if c.cfg.Publisher != nil {
		c.cfg.Publisher.Publish(events.WidgetStopped{})
	}
	if c.cfg.OnStop != nil {
		c.cfg.OnStop()
	}
}

// Stopped reports whether the widget was removed.
func (c *Controller) Stopped() bool { return c.stopped }

func (c *Controller) cancelFallback() {
	if c.fallbackTimer != nil {
		c.fallbackTimer.Cancel()
		c.fallbackTimer = nil
	}
}

func (c *Controller) cancelZoneHide() {
	if c.zoneHideTimer != nil {
		c.zoneHideTimer.Cancel()
		c.zoneHideTimer = nil
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
