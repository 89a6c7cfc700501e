package capture

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"overlaybox/src/events"
	"overlaybox/src/projection"
	"overlaybox/src/selector"
	"overlaybox/src/worker"
)

type fakeHandle struct{ closed bool }

func (h *fakeHandle) Close() { h.closed = true }

type fakeBackend struct {
	path    string
	text    string
	err     error
	calls   int
	gotRect selector.Rect
}

func (b *fakeBackend) CaptureRegion(ctx context.Context, h projection.Handle, rect selector.Rect) (string, error) {
	b.calls++
	b.gotRect = rect
	return b.path, b.err
}

func (b *fakeBackend) CaptureRegionForOCR(ctx context.Context, h projection.Handle, rect selector.Rect) (string, error) {
	b.calls++
	b.gotRect = rect
	return b.text, b.err
}

type fakeSurface struct {
	sel        *selector.Selector
	presentErr error
	presents   int
	dismissed  int
}

func (s *fakeSurface) Present(mode events.CaptureMode, sel *selector.Selector) error {
	s.presents++
	s.sel = sel
	return s.presentErr
}

func (s *fakeSurface) Dismiss() { s.dismissed++ }

type fakeWidget struct {
	hides, shows int
}

func (w *fakeWidget) HideForCapture()   { w.hides++ }
func (w *fakeWidget) ShowAfterCapture() { w.shows++ }

type fakeSink struct {
	copied  []string
	copyErr error
	checks  int
}

func (s *fakeSink) CopyText(text string) error {
	s.copied = append(s.copied, text)
	return s.copyErr
}

func (s *fakeSink) ForceCheck() bool {
	s.checks++
	return true
}

type fakePublisher struct {
	published []events.Event
}

func (p *fakePublisher) Publish(ev events.Event) {
	p.published = append(p.published, ev)
}

type fakePool struct {
	full bool
}

func (p *fakePool) Submit(ctx context.Context, job worker.Job, cb worker.ResultCallback) bool {
	if p.full {
		return false
	}
	value, err := job(ctx)
	cb(value, err)
	return true
}

type fakeMessenger struct {
	advisories []string
}

func (m *fakeMessenger) Advise(text string) {
	m.advisories = append(m.advisories, text)
}

func (m *fakeMessenger) contains(substr string) bool {
	for _, a := range m.advisories {
		if strings.Contains(a, substr) {
			return true
		}
	}
	return false
}

// manualScheduler collects scheduled callbacks so tests fire or skip them
// deterministically.
type manualScheduler struct {
	timers []*manualTimer
}

type manualTimer struct {
	fn        func()
	cancelled bool
}

func (t *manualTimer) Cancel() { t.cancelled = true }

func (s *manualScheduler) schedule(d time.Duration, fn func()) selector.Canceller {
	t := &manualTimer{fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) fireAll() {
	pending := s.timers
	s.timers = nil
	for _, t := range pending {
		if !t.cancelled {
			t.fn()
		}
	}
}

type fixture struct {
	coord     *Coordinator
	perm      *projection.State
	backend   *fakeBackend
	surface   *fakeSurface
	widget    *fakeWidget
	sink      *fakeSink
	publisher *fakePublisher
	pool      *fakePool
	msg       *fakeMessenger
	sched     *manualScheduler
}

func newFixture() *fixture {
	f := &fixture{
		perm:      projection.NewState(projection.WithoutTimeLimit()),
		backend:   &fakeBackend{},
		surface:   &fakeSurface{},
		widget:    &fakeWidget{},
		sink:      &fakeSink{},
		publisher: &fakePublisher{},
		pool:      &fakePool{},
		msg:       &fakeMessenger{},
		sched:     &manualScheduler{},
	}
	f.coord = NewCoordinator(Deps{
		Perm:      f.perm,
		Backend:   f.backend,
		Surface:   f.surface,
		Widget:    f.widget,
		Clipboard: f.sink,
		Publisher: f.publisher,
		Pool:      f.pool,
		Messenger: f.msg,
		Post:      func(fn func()) { fn() },
		Schedule:  f.sched.schedule,
	})
	return f
}

func (f *fixture) grant() {
	f.perm.Grant(&fakeHandle{}, nil)
}

// dragSelect drives the presented selector through a full drag and the
// auto-capture timeout.
func (f *fixture) dragSelect(t *testing.T, x0, y0, x1, y1 int) {
	t.Helper()
	if f.surface.sel == nil {
		t.Fatal("Expected a selection surface to be presented")
	}
	f.surface.sel.TouchDown(x0, y0)
	f.surface.sel.TouchMove(x1, y1)
	f.surface.sel.TouchUp(x1, y1)
	f.sched.fireAll()
}

func TestScreenshotCaptureHappyPath(t *testing.T) {
	f := newFixture()
	f.grant()
	f.backend.path = "/tmp/Region-Capture-20260828-120000.png"

	f.coord.RequestCapture(events.ModeScreenshot)
	if f.widget.hides != 1 {
		t.Fatalf("Expected widget hidden once, got %d", f.widget.hides)
	}
	if !f.coord.Busy() {
		t.Fatal("Expected coordinator busy during selection")
	}

	f.dragSelect(t, 10, 10, 200, 200)

	if f.backend.calls != 1 {
		t.Fatalf("Expected 1 backend call, got %d", f.backend.calls)
	}
	want := selector.Rect{Left: 10, Top: 10, Right: 200, Bottom: 200}
	if f.backend.gotRect != want {
		t.Fatalf("Expected rect %+v, got %+v", want, f.backend.gotRect)
	}
	if f.surface.dismissed != 1 {
		t.Fatalf("Expected surface dismissed once, got %d", f.surface.dismissed)
	}
	if f.widget.shows != 1 {
		t.Fatalf("Expected widget re-shown once, got %d", f.widget.shows)
	}
	if f.coord.Busy() {
		t.Fatal("Expected coordinator idle after completion")
	}

	if len(f.publisher.published) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(f.publisher.published))
	}
	cc, ok := f.publisher.published[0].(events.CaptureComplete)
	if !ok {
		t.Fatalf("Expected CaptureComplete, got %T", f.publisher.published[0])
	}
	if cc.Path != f.backend.path {
		t.Fatalf("Expected path %q, got %q", f.backend.path, cc.Path)
	}
}

func TestOCRResultCopiedAndRefreshed(t *testing.T) {
	f := newFixture()
	f.grant()
	f.backend.text = "extracted text"

	f.coord.RequestCapture(events.ModeOCR)
	f.dragSelect(t, 0, 0, 100, 100)

	if len(f.sink.copied) != 1 || f.sink.copied[0] != "extracted text" {
		t.Fatalf("Expected text copied to clipboard, got %v", f.sink.copied)
	}
	if f.sink.checks != 1 {
		t.Fatalf("Expected 1 forced clipboard check, got %d", f.sink.checks)
	}
	oc, ok := f.publisher.published[0].(events.OCRComplete)
	if !ok {
		t.Fatalf("Expected OCRComplete, got %T", f.publisher.published[0])
	}
	if oc.Text != "extracted text" {
		t.Fatalf("Expected event text %q, got %q", "extracted text", oc.Text)
	}
	if f.widget.shows != 1 {
		t.Fatal("Expected widget re-shown after OCR")
	}
}

func TestOCREmptyTextAdvisory(t *testing.T) {
	f := newFixture()
	f.grant()
	f.backend.text = ""

	f.coord.RequestCapture(events.ModeOCR)
	f.dragSelect(t, 0, 0, 100, 100)

	if !f.msg.contains("No text found") {
		t.Fatalf("Expected no-text advisory, got %v", f.msg.advisories)
	}
	if len(f.sink.copied) != 0 {
		t.Fatalf("Expected no clipboard write, got %v", f.sink.copied)
	}
	if f.widget.shows != 1 {
		t.Fatal("Expected widget re-shown after empty OCR")
	}
}

func TestScreenshotFailureStillRestoresWidget(t *testing.T) {
	f := newFixture()
	f.grant()
	f.backend.err = errors.New("display gone")

	f.coord.RequestCapture(events.ModeScreenshot)
	f.dragSelect(t, 0, 0, 100, 100)

	if !f.msg.contains("Screenshot failed") {
		t.Fatalf("Expected failure advisory, got %v", f.msg.advisories)
	}
	if f.widget.shows != 1 {
		t.Fatal("Expected widget re-shown after failure")
	}
	cc, ok := f.publisher.published[0].(events.CaptureComplete)
	if !ok || cc.Path != "" {
		t.Fatalf("Expected empty CaptureComplete, got %+v", f.publisher.published[0])
	}
}

func TestPermissionRequestedWhenMissing(t *testing.T) {
	f := newFixture()

	f.coord.RequestCapture(events.ModeOCR)

	if f.widget.hides != 0 {
		t.Fatal("Expected widget untouched while waiting for permission")
	}
	if !f.coord.WaitingForPermission() {
		t.Fatal("Expected coordinator waiting for permission")
	}
	if len(f.publisher.published) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(f.publisher.published))
	}
	req, ok := f.publisher.published[0].(events.RequestNewProjection)
	if !ok {
		t.Fatalf("Expected RequestNewProjection, got %T", f.publisher.published[0])
	}
	if req.Retry != 1 {
		t.Fatalf("Expected first attempt Retry=1, got %d", req.Retry)
	}
	if req.Mode != events.ModeOCR {
		t.Fatalf("Expected OCR mode carried, got %v", req.Mode)
	}
}

func TestPermissionTimeoutResetsWaiting(t *testing.T) {
	f := newFixture()

	f.coord.RequestCapture(events.ModeScreenshot)
	f.sched.fireAll()

	if f.coord.WaitingForPermission() {
		t.Fatal("Expected waiting state cleared after timeout")
	}
	if !f.msg.contains("timed out") {
		t.Fatalf("Expected timeout advisory, got %v", f.msg.advisories)
	}
	if f.widget.hides != 0 || f.surface.presents != 0 {
		t.Fatal("Expected no selection started after timeout")
	}
	// A later ready signal must not start a stale capture.
	f.coord.OnProjectionReady()
	if f.surface.presents != 0 {
		t.Fatal("Expected unsolicited ready signal ignored")
	}
}

func TestPermissionGrantResumesPendingCapture(t *testing.T) {
	f := newFixture()

	f.coord.RequestCapture(events.ModeOCR)
	f.grant()
	f.coord.OnProjectionReady()

	if f.coord.WaitingForPermission() {
		t.Fatal("Expected waiting cleared after grant")
	}
	if f.surface.presents != 1 {
		t.Fatalf("Expected selection started after grant, presents=%d", f.surface.presents)
	}
	if f.widget.hides != 1 {
		t.Fatal("Expected widget hidden for resumed capture")
	}
}

func TestPermissionRetriesExhausted(t *testing.T) {
	f := newFixture()

	for i := 1; i <= MaxPermissionRetries; i++ {
		f.coord.RequestCapture(events.ModeScreenshot)
		req := f.publisher.published[len(f.publisher.published)-1].(events.RequestNewProjection)
		if req.Retry != i {
			t.Fatalf("Expected attempt %d, got Retry=%d", i, req.Retry)
		}
		f.sched.fireAll()
	}

	f.coord.RequestCapture(events.ModeScreenshot)
	if len(f.publisher.published) != MaxPermissionRetries {
		t.Fatalf("Expected no request beyond the retry cap, got %d events", len(f.publisher.published))
	}
	if !f.msg.contains("permission failed") {
		t.Fatalf("Expected fatal advisory, got %v", f.msg.advisories)
	}
	// The counter resets, so the next attempt starts over at 1.
	f.coord.RequestCapture(events.ModeScreenshot)
	req := f.publisher.published[len(f.publisher.published)-1].(events.RequestNewProjection)
	if req.Retry != 1 {
		t.Fatalf("Expected counter reset to 1, got %d", req.Retry)
	}
}

func TestPermissionDeniedAdvisory(t *testing.T) {
	f := newFixture()

	f.coord.RequestCapture(events.ModeOCR)
	f.coord.OnPermissionDenied()

	if f.coord.WaitingForPermission() {
		t.Fatal("Expected waiting cleared after denial")
	}
	if !f.msg.contains("denied") {
		t.Fatalf("Expected denial advisory, got %v", f.msg.advisories)
	}
	if f.surface.presents != 0 {
		t.Fatal("Expected no selection after denial")
	}
}

func TestTooSmallSelectionAdvisoryKeepsSurface(t *testing.T) {
	f := newFixture()
	f.grant()

	f.coord.RequestCapture(events.ModeScreenshot)
	f.surface.sel.TouchDown(0, 0)
	f.surface.sel.TouchUp(40, 40)

	if !f.msg.contains("too small") {
		t.Fatalf("Expected too-small advisory, got %v", f.msg.advisories)
	}
	if f.surface.dismissed != 0 {
		t.Fatal("Expected surface kept for a redraw")
	}
	if !f.coord.Busy() {
		t.Fatal("Expected capture still in progress")
	}

	// A valid redraw completes normally.
	f.backend.path = "/tmp/shot.png"
	f.dragSelect(t, 0, 0, 100, 100)
	if f.widget.shows != 1 {
		t.Fatal("Expected widget re-shown after redraw completion")
	}
}

func TestBusyCoordinatorRejectsSecondRequest(t *testing.T) {
	f := newFixture()
	f.grant()

	f.coord.RequestCapture(events.ModeScreenshot)
	f.coord.RequestCapture(events.ModeOCR)

	if f.surface.presents != 1 {
		t.Fatalf("Expected one selection surface, got %d", f.surface.presents)
	}
	if !f.msg.contains("in progress") {
		t.Fatalf("Expected busy advisory, got %v", f.msg.advisories)
	}
}

func TestExpiredHandleAtCaptureTime(t *testing.T) {
	f := newFixture()
	// Granted but the live handle is gone and resynthesis fails.
	f.perm.Grant(nil, func() (projection.Handle, error) {
		return nil, errors.New("display detached")
	})

	f.coord.RequestCapture(events.ModeScreenshot)
	f.dragSelect(t, 0, 0, 100, 100)

	if f.backend.calls != 0 {
		t.Fatalf("Expected no backend call without a handle, got %d", f.backend.calls)
	}
	if !f.msg.contains("expired") {
		t.Fatalf("Expected expiry advisory, got %v", f.msg.advisories)
	}
	found := false
	for _, ev := range f.publisher.published {
		if _, ok := ev.(events.ProjectionExpired); ok {
			found = true
		}
	}
	if !found {
		t.Fatal("Expected ProjectionExpired published")
	}
	if f.widget.shows != 1 {
		t.Fatal("Expected widget re-shown after expiry")
	}
}

func TestFullWorkerPoolRestoresWidget(t *testing.T) {
	f := newFixture()
	f.grant()
	f.pool.full = true

	f.coord.RequestCapture(events.ModeScreenshot)
	f.dragSelect(t, 0, 0, 100, 100)

	if !f.msg.contains("busy") {
		t.Fatalf("Expected worker-busy advisory, got %v", f.msg.advisories)
	}
	if f.widget.shows != 1 {
		t.Fatal("Expected widget re-shown when the pool is saturated")
	}
	if f.coord.Busy() {
		t.Fatal("Expected coordinator idle after drop")
	}
}

func TestSurfacePresentFailure(t *testing.T) {
	f := newFixture()
	f.grant()
	f.surface.presentErr = errors.New("overlay unavailable")

	f.coord.RequestCapture(events.ModeScreenshot)

	if f.coord.Busy() {
		t.Fatal("Expected coordinator idle after present failure")
	}
	if f.widget.hides != 1 || f.widget.shows != 1 {
		t.Fatalf("Expected hide then show, got hides=%d shows=%d", f.widget.hides, f.widget.shows)
	}
}
