// Package capture orchestrates a region capture end to end: permission
// check, selection surface, blocking capture on a worker, and result
// fan-out. The coordinator owns the busy/waiting flags and guarantees the
// widget is re-shown no matter how a capture ends.
package capture

import (
	"context"
	"log/slog"
	"time"

	"overlaybox/src/events"
	"overlaybox/src/notify"
	"overlaybox/src/projection"
	"overlaybox/src/selector"
	"overlaybox/src/worker"
)

const (
	// MaxPermissionRetries bounds permission request attempts for one
	// user action before a fatal advisory.
	MaxPermissionRetries = 3
	// DefaultPermissionTimeout is how long an unanswered permission
	// request is allowed to hang before the coordinator resets.
	DefaultPermissionTimeout = 6 * time.Second
	// DefaultCaptureDeadline bounds the blocking capture/OCR call.
	DefaultCaptureDeadline = 20 * time.Second
)

// Backend is the external capture API. Both calls block and must only run
// while a valid permission handle exists.
type Backend interface {
	// CaptureRegion captures the rectangle and returns the saved file
	// path, empty on failure.
	CaptureRegion(ctx context.Context, handle projection.Handle, rect selector.Rect) (string, error)
	// CaptureRegionForOCR captures the rectangle and returns extracted
	// text, empty when none was found.
	CaptureRegionForOCR(ctx context.Context, handle projection.Handle, rect selector.Rect) (string, error)
}

// Surface presents the full-screen selection overlay and feeds its touch
// events into the given selector.
type Surface interface {
	Present(mode events.CaptureMode, sel *selector.Selector) error
	Dismiss()
}

// Widget is the coordinator's view of the floating widget.
type Widget interface {
	HideForCapture()
	ShowAfterCapture()
}

// ClipboardSink receives OCR text: write-to-clipboard plus a forced
// history refresh. The watcher satisfies this.
type ClipboardSink interface {
	CopyText(text string) error
	ForceCheck() bool
}

// Publisher decouples the coordinator from the bus implementation.
type Publisher interface {
	Publish(ev events.Event)
}

// Submitter is the worker-pool surface the coordinator needs.
type Submitter interface {
	Submit(ctx context.Context, job worker.Job, cb worker.ResultCallback) bool
}

// Deps wires a Coordinator. All callbacks run on the UI loop; Post is the
// thread-safe way back onto it from worker goroutines.
type Deps struct {
	Perm      *projection.State
	Backend   Backend
	Surface   Surface
	Widget    Widget
	Clipboard ClipboardSink
	Publisher Publisher
	Pool      Submitter
	Messenger notify.Messenger

	Post     func(fn func())
	Schedule selector.Schedule

	PermissionTimeout time.Duration
	CaptureDeadline   time.Duration
}

type request struct {
	mode      events.CaptureMode
	completed bool
}

// Coordinator drives the capture flow. All methods must be called on the
// UI loop goroutine.
type Coordinator struct {
	deps Deps

	busy    bool
	active  *request
	waiting bool
	pending events.CaptureMode
	retries int

	permTimer selector.Canceller
}

func NewCoordinator(deps Deps) *Coordinator {
	if deps.PermissionTimeout <= 0 {
		deps.PermissionTimeout = DefaultPermissionTimeout
	}
	if deps.CaptureDeadline <= 0 {
		deps.CaptureDeadline = DefaultCaptureDeadline
	}
	if deps.Messenger == nil {
		deps.Messenger = notify.LogMessenger{}
	}
	return &Coordinator{deps: deps}
}

// Busy reports whether a capture is currently in flight.
func (c *Coordinator) Busy() bool { return c.busy }

// WaitingForPermission reports whether a permission request is unanswered.
func (c *Coordinator) WaitingForPermission() bool { return c.waiting }

// RequestCapture starts a capture in the given mode. With no valid
// permission it asks the external authority first and resumes once granted.
func (c *Coordinator) RequestCapture(mode events.CaptureMode) {
	if c.busy {
		slog.Debug("capture: busy, request dropped", "mode", mode.String())
		c.deps.Messenger.Advise("Capture already in progress")
		return
	}
	if c.deps.Perm.NeedsNewPermission() {
		c.requestPermission(mode)
		return
	}
	c.beginSelection(mode)
}

func (c *Coordinator) requestPermission(mode events.CaptureMode) {
	if c.waiting {
		return
	}
	c.retries++
	if c.retries > MaxPermissionRetries {
		slog.Warn("capture: permission retries exhausted")
		c.deps.Messenger.Advise("Screen capture permission failed. Try again later.")
		c.retries = 0
		return
	}

	c.waiting = true
	c.pending = mode
	slog.Info("capture: requesting projection grant", "mode", mode.String(), "attempt", c.retries)
	c.deps.Publisher.Publish(events.RequestNewProjection{Mode: mode, Retry: c.retries})

	c.permTimer = c.deps.Schedule(c.deps.PermissionTimeout, func() {
		if !c.waiting {
			return
		}
		slog.Warn("capture: permission request timed out")
		c.waiting = false
		c.permTimer = nil
		c.deps.Messenger.Advise("Screen capture permission request timed out")
	})
}

// OnProjectionReady resumes a deferred capture after a grant arrives.
// Duplicate or unsolicited ready signals are ignored.
func (c *Coordinator) OnProjectionReady() {
	c.cancelPermTimer()
	c.retries = 0
	if !c.waiting {
		return
	}
	c.waiting = false
	c.beginSelection(c.pending)
}

// OnPermissionDenied resets the waiting state after an explicit refusal.
func (c *Coordinator) OnPermissionDenied() {
	c.cancelPermTimer()
	c.deps.Perm.Invalidate(projection.ReasonDenied)
	if !c.waiting {
		return
	}
	c.waiting = false
	c.deps.Messenger.Advise("Screen capture permission denied")
}

func (c *Coordinator) cancelPermTimer() {
	if c.permTimer != nil {
		c.permTimer.Cancel()
		c.permTimer = nil
	}
}

func (c *Coordinator) beginSelection(mode events.CaptureMode) {
	req := &request{mode: mode}
	c.busy = true
	c.active = req
	c.deps.Widget.HideForCapture()

	sel := selector.New(selector.Config{
		OnComplete: func(rect selector.Rect) { c.onRegionSelected(req, rect) },
		OnRejected: func(selector.Rect) {
			c.deps.Messenger.Advise("Selection too small (minimum 50x50)")
		},
		Schedule: c.deps.Schedule,
	})

	if err := c.deps.Surface.Present(mode, sel); err != nil {
		slog.Error("capture: failed to present selection surface", "error", err)
		c.deps.Messenger.Advise("Failed to start region selection")
		c.finish(req)
	}
}

// onRegionSelected runs once per gesture; the request-level flag shields
// against duplicate completion delivery on top of the selector's one-shot
// guard.
func (c *Coordinator) onRegionSelected(req *request, rect selector.Rect) {
	if req.completed || c.active != req {
		return
	}
	req.completed = true
	c.deps.Surface.Dismiss()

	handle := c.deps.Perm.EnsureHandle()
	if handle == nil {
		slog.Warn("capture: no usable projection handle at capture time")
		c.deps.Perm.Invalidate(projection.ReasonExpired)
		c.deps.Publisher.Publish(events.ProjectionExpired{})
		c.deps.Messenger.Advise("Screen capture session expired, please retry")
		c.finish(req)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.deps.CaptureDeadline)
	var job worker.Job
	switch req.mode {
	case events.ModeOCR:
		job = func(ctx context.Context) (string, error) {
			return c.deps.Backend.CaptureRegionForOCR(ctx, handle, rect)
		}
	default:
		job = func(ctx context.Context) (string, error) {
			return c.deps.Backend.CaptureRegion(ctx, handle, rect)
		}
	}

	submitted := c.deps.Pool.Submit(ctx, job, func(value string, err error) {
		c.deps.Post(func() {
			cancel()
			c.handleResult(req, value, err)
		})
	})
	if !submitted {
		cancel()
		c.deps.Messenger.Advise("Capture worker busy, please retry")
		c.finish(req)
	}
}

func (c *Coordinator) handleResult(req *request, value string, err error) {
	switch req.mode {
	case events.ModeOCR:
		c.handleOCRResult(value, err)
	default:
		c.handleScreenshotResult(value, err)
	}
	c.finish(req)
}

func (c *Coordinator) handleScreenshotResult(path string, err error) {
	if err != nil || path == "" {
		slog.Warn("capture: screenshot failed", "error", err)
		c.deps.Messenger.Advise("Screenshot failed")
		c.deps.Publisher.Publish(events.CaptureComplete{})
		return
	}
	c.deps.Messenger.Advise("Screenshot saved: " + path)
	c.deps.Publisher.Publish(events.CaptureComplete{Path: path})
}

func (c *Coordinator) handleOCRResult(text string, err error) {
	if err != nil {
		slog.Warn("capture: text extraction failed", "error", err)
		c.deps.Messenger.Advise("Text extraction failed")
		c.deps.Publisher.Publish(events.OCRComplete{})
		return
	}
	if text == "" {
		c.deps.Messenger.Advise("No text found in selected region")
		c.deps.Publisher.Publish(events.OCRComplete{})
		return
	}

	if copyErr := c.deps.Clipboard.CopyText(text); copyErr != nil {
		slog.Warn("capture: clipboard write failed", "error", copyErr)
		c.deps.Messenger.Advise("Text extracted but clipboard write failed")
	} else {
		c.deps.Messenger.Advise("Text extracted: " + notify.Truncate(text))
	}
	c.deps.Clipboard.ForceCheck()
	c.deps.Publisher.Publish(events.OCRComplete{Text: text})
}

// finish releases the busy state and re-shows the widget. Runs for every
// outcome so the widget cannot stay hidden after a failed capture.
func (c *Coordinator) finish(req *request) {
	if c.active == req {
		c.active = nil
	}
	c.busy = false
	c.waiting = false
	c.deps.Widget.ShowAfterCapture()
}
