// Package tray runs the system tray icon and menu.
package tray

import (
	"log/slog"

	"github.com/getlantern/systray"
)

// Actions are the menu handlers. They run on the tray's menu goroutine;
// post to the UI loop inside each handler when needed.
type Actions struct {
	ShowWidget        func()
	CaptureScreenshot func()
	CaptureOCR        func()
	ShowHistory       func()
	ClearHistory      func()
	Quit              func()
}

const defaultTooltip = "OverlayBox"

// Run starts the tray and blocks until Quit. Call from the main goroutine.
func Run(actions Actions, onReadyExtra func()) {
	systray.Run(func() {
		onReady(actions)
		if onReadyExtra != nil {
			onReadyExtra()
		}
	}, onExit)
}

// Quit tears the tray down and unblocks Run.
func Quit() {
	systray.Quit()
}

// SetBusy updates the tooltip to reflect an in-flight capture.
func SetBusy(busy bool) {
	if busy {
		systray.SetTooltip(defaultTooltip + " - capturing...")
	} else {
		systray.SetTooltip(defaultTooltip)
	}
}

func onReady(actions Actions) {
	systray.SetIcon(iconPNG())
	systray.SetTitle(defaultTooltip)
	systray.SetTooltip(defaultTooltip)

	mShow := systray.AddMenuItem("Show Widget", "Show the floating widget")
	mScreenshot := systray.AddMenuItem("Capture Screenshot", "Select a region and save it")
	mOCR := systray.AddMenuItem("Extract Text", "Select a region and copy its text")
	systray.AddSeparator()
	mHistory := systray.AddMenuItem("Clipboard History", "Show the clipboard history panel")
	mClear := systray.AddMenuItem("Clear History", "Remove all clipboard history entries")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit the application")

	go func() {
		for {
			select {
			case <-mShow.ClickedCh:
				call(actions.ShowWidget)
			case <-mScreenshot.ClickedCh:
				call(actions.CaptureScreenshot)
			case <-mOCR.ClickedCh:
				call(actions.CaptureOCR)
			case <-mHistory.ClickedCh:
				call(actions.ShowHistory)
			case <-mClear.ClickedCh:
				call(actions.ClearHistory)
			case <-mQuit.ClickedCh:
				call(actions.Quit)
				systray.Quit()
				return
			}
		}
	}()
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

func onExit() {
	slog.Debug("tray: exited")
}
