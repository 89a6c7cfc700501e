package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"overlaybox/src/bus"
	"overlaybox/src/capture"
	"overlaybox/src/clipboard"
	"overlaybox/src/config"
	"overlaybox/src/events"
	"overlaybox/src/focus"
	"overlaybox/src/history"
	"overlaybox/src/histview"
	"overlaybox/src/hotkey"
	"overlaybox/src/llm"
	"overlaybox/src/logutil"
	"overlaybox/src/notify"
	"overlaybox/src/ocr"
	"overlaybox/src/paste"
	"overlaybox/src/projection"
	"overlaybox/src/screenshot"
	"overlaybox/src/selector"
	"overlaybox/src/settings"
	"overlaybox/src/singleinstance"
	"overlaybox/src/surface"
	"overlaybox/src/tray"
	"overlaybox/src/uiloop"
	"overlaybox/src/watcher"
	"overlaybox/src/widget"
	"overlaybox/src/worker"
)

const settingsAppName = "overlaybox"

// runResident starts the long-lived process: single-instance server, UI
// loop, tray, hotkeys, and the capture pipeline.
func runResident() error {
	enableDPIAwareness()

	// The UI loop runs on the main goroutine; keep it on one OS thread so
	// it never shares a message queue with the overlay window thread.
	runtime.LockOSThread()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logutil.Setup(cfg.EnableFileLogging, logutil.ParseLevel(os.Getenv("LOG_LEVEL")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := singleinstance.NewServer()
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("another instance is already running: %w", err)
	}
	defer srv.Close()
	slog.Info("single-instance server bound", "port", srv.Port())

	if err := clipboard.Init(); err != nil {
		return fmt.Errorf("failed to initialize clipboard: %w", err)
	}

	a := newApp(cfg)
	return a.run(ctx, cancel, srv)
}

// app owns the wired object graph. Everything that touches coordinator,
// widget, or history state goes through the UI loop.
type app struct {
	cfg *config.Config

	loop  *uiloop.Loop
	bus   *bus.Bus
	store *history.Store
	watch *watcher.Watcher
	perm  *projection.State
	coord *capture.Coordinator
	ctrl  *widget.Controller
	panel *histview.Controller
	keys  *hotkey.Listener
	pool  *worker.Pool
	clip  *clipboard.System
}

// textSink delivers extracted text: inject into the focused app when an
// injector exists, otherwise copy to the clipboard.
type textSink struct {
	fw *paste.Forwarder
	w  *watcher.Watcher
}

func (s textSink) CopyText(text string) error { return s.fw.Forward(text) }
func (s textSink) ForceCheck() bool           { return s.w.ForceCheck() }

// displayHandle is the capture authorization for local displays. There is
// nothing to release; probing display availability is the whole grant.
type displayHandle struct{}

func (displayHandle) Close() {}

func newApp(cfg *config.Config) *app {
	a := &app{
		cfg:  cfg,
		loop: uiloop.New(),
		bus:  bus.New(),
		clip: clipboard.NewSystem(),
	}

	msg := notify.NewBox()

	a.store = history.New(cfg.HistoryCapacity)
	a.store.SetChangeListener(func() { a.bus.Publish(events.HistoryChanged{}) })

	a.watch = watcher.New(a.clip, a.store, focus.New(), func(d time.Duration, fn func()) {
		a.loop.PostDelayed(d, fn)
	})

	fw := paste.NewForwarder(nil, a.watch, msg)

	a.panel = histview.NewController(histview.Config{
		View:  logPanel{},
		Store: a.store,
		Paste: fw,
	})

	a.perm = projection.NewState()

	var rec screenshot.Recognizer
	if cfg.APIKey != "" && cfg.Model != "" {
		client := llm.NewClient(llm.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Providers: cfg.Providers,
		})
		rec = ocr.NewEngine(client)
		slog.Info("OCR configured", "model", cfg.Model, "api_key", logutil.RedactKey(cfg.APIKey))
	} else {
		slog.Warn("OCR disabled: OPENROUTER_API_KEY or MODEL not set, screenshots still work")
	}
	backend := screenshot.NewBackend(cfg.CaptureDir, rec)

	st, initial := loadSettings()

	a.ctrl = widget.NewController(widget.Config{
		View:      newLogView(),
		Publisher: a.bus,
		Schedule: func(d time.Duration, fn func()) widget.Canceller {
			return a.loop.PostDelayed(d, fn)
		},
		OnCapture: func(mode events.CaptureMode) { a.coord.RequestCapture(mode) },
		OnStop:    func() { slog.Info("widget removed by user") },
		OnPositionChanged: func(x, y int) {
			if st == nil {
				return
			}
			if err := st.Save(settings.Settings{WidgetX: x, WidgetY: y}); err != nil {
				slog.Warn("failed to persist widget position", "error", err)
			}
		},
		InitialX: initial.WidgetX,
		InitialY: initial.WidgetY,
	})

	a.pool = worker.New(1)

	a.coord = capture.NewCoordinator(capture.Deps{
		Perm:      a.perm,
		Backend:   backend,
		Surface:   surface.New(a.loop),
		Widget:    a.ctrl,
		Clipboard: textSink{fw: fw, w: a.watch},
		Publisher: a.bus,
		Pool:      a.pool,
		Messenger: msg,
		Post:      func(fn func()) { a.loop.Post(fn) },
		Schedule: func(d time.Duration, fn func()) selector.Canceller {
			return a.loop.PostDelayed(d, fn)
		},
		CaptureDeadline: time.Duration(cfg.OCRDeadlineSec) * time.Second,
	})

	a.keys = hotkey.NewListener()
	if err := a.keys.Bind(cfg.ScreenshotHotkey, func() { a.requestCapture(events.ModeScreenshot) }); err != nil {
		slog.Warn("screenshot hotkey not bound", "combo", cfg.ScreenshotHotkey, "error", err)
	}
	if err := a.keys.Bind(cfg.OCRHotkey, func() { a.requestCapture(events.ModeOCR) }); err != nil {
		slog.Warn("ocr hotkey not bound", "combo", cfg.OCRHotkey, "error", err)
	}

	return a
}

func loadSettings() (*settings.Store, settings.Settings) {
	st, err := settings.NewStore(settingsAppName, "")
	if err != nil {
		slog.Warn("settings unavailable, widget position will not persist", "error", err)
		return nil, settings.Default()
	}
	loaded, err := st.Load()
	if err != nil {
		slog.Warn("settings file unreadable, using defaults", "path", st.Path(), "error", err)
	}
	return st, loaded
}

func (a *app) run(ctx context.Context, cancel context.CancelFunc, srv singleinstance.Server) error {
	slog.Info("overlaybox starting",
		"capture_dir", a.cfg.CaptureDir,
		"history_capacity", a.cfg.HistoryCapacity,
		"screenshot_hotkey", a.cfg.ScreenshotHotkey,
		"ocr_hotkey", a.cfg.OCRHotkey,
		"ocr_deadline_sec", a.cfg.OCRDeadlineSec)

	defer a.pool.Close()
	defer a.bus.Close()

	a.keys.Start()
	defer a.keys.Stop()

	go a.routeEvents(a.bus.Subscribe(32,
		events.TopicRequestNewProjection,
		events.TopicProjectionReady,
		events.TopicProjectionExpired,
		events.TopicPermissionDenied,
		events.TopicClipboardMayChange,
		events.TopicShowWidget,
		events.TopicWidgetStopped,
		events.TopicCaptureComplete,
		events.TopicOCRComplete,
		events.TopicHistoryChanged,
	))

	go a.watchClipboard(ctx)
	go a.serveCommands(ctx, srv)

	go tray.Run(tray.Actions{
		ShowWidget:        func() { a.bus.Publish(events.ShowWidget{}) },
		CaptureScreenshot: func() { a.requestCapture(events.ModeScreenshot) },
		CaptureOCR:        func() { a.requestCapture(events.ModeOCR) },
		ShowHistory:       func() { a.loop.Post(a.panel.Toggle) },
		ClearHistory:      func() { a.loop.Post(a.store.Clear) },
		Quit:              cancel,
	}, nil)
	defer tray.Quit()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := a.loop.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("ui loop stopped: %w", err)
	}
	slog.Info("overlaybox stopped")
	return nil
}

// requestCapture is safe from any goroutine.
func (a *app) requestCapture(mode events.CaptureMode) {
	a.loop.Post(func() {
		a.coord.RequestCapture(mode)
		a.refreshTrayBusy()
	})
}

func (a *app) refreshTrayBusy() {
	tray.SetBusy(a.coord.Busy() || a.coord.WaitingForPermission())
}

// routeEvents bridges bus events onto the UI loop.
func (a *app) routeEvents(sub <-chan events.Event) {
	for ev := range sub {
		switch ev := ev.(type) {
		case events.RequestNewProjection:
			a.loop.Post(a.grantProjection)
		case events.ProjectionReady:
			a.loop.Post(func() {
				a.coord.OnProjectionReady()
				a.refreshTrayBusy()
			})
		case events.PermissionDenied:
			a.loop.Post(func() {
				a.coord.OnPermissionDenied()
				a.refreshTrayBusy()
			})
		case events.ProjectionExpired:
			a.loop.Post(a.refreshTrayBusy)
		case events.ClipboardMayHaveChanged:
			a.loop.Post(func() { a.watch.OnClipboardChanged() })
		case events.ShowWidget:
			a.loop.Post(a.ctrl.Show)
		case events.WidgetStopped:
			slog.Info("widget stopped, capture remains available from tray and hotkeys")
		case events.CaptureComplete:
			a.loop.Post(a.refreshTrayBusy)
		case events.OCRComplete:
			a.loop.Post(a.refreshTrayBusy)
		case events.HistoryChanged:
			a.loop.Post(a.panel.Refresh)
		default:
			_ = ev
		}
	}
}

// grantProjection answers a permission request by probing for displays.
// Runs on the UI loop.
func (a *app) grantProjection() {
	if screenshot.DisplayCount() == 0 {
		slog.Warn("no displays available, denying capture permission")
		a.bus.Publish(events.PermissionDenied{})
		return
	}
	a.perm.Grant(displayHandle{}, func() (projection.Handle, error) {
		if screenshot.DisplayCount() == 0 {
			return nil, errors.New("no displays available")
		}
		return displayHandle{}, nil
	})
	a.bus.Publish(events.ProjectionReady{})
}

func (a *app) watchClipboard(ctx context.Context) {
	for range a.clip.Watch(ctx) {
		a.bus.Publish(events.ClipboardMayHaveChanged{})
	}
}

// serveCommands answers delegated requests from later invocations.
func (a *app) serveCommands(ctx context.Context, srv singleinstance.Server) {
	for {
		conn, err := srv.Next(ctx)
		if err != nil {
			return
		}
		req := conn.Request()
		slog.Info("delegated command received", "command", string(req.Command))
		switch req.Command {
		case singleinstance.CmdShowWidget:
			a.bus.Publish(events.ShowWidget{})
			_ = conn.RespondSuccess()
		case singleinstance.CmdScreenshot:
			a.requestCapture(events.ModeScreenshot)
			_ = conn.RespondSuccess()
		case singleinstance.CmdOCR:
			a.requestCapture(events.ModeOCR)
			_ = conn.RespondSuccess()
		default:
			_ = conn.RespondError("unknown command")
		}
		_ = conn.Close()
	}
}
