//go:build windows

package main

import (
	"log/slog"
	"syscall"
)

// enableDPIAwareness opts into per-monitor DPI awareness so overlay
// coordinates match physical pixels on scaled displays. Must run before
// any window is created.
func enableDPIAwareness() {
	shcore := syscall.NewLazyDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	const processPerMonitorDPIAware = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret != 0 {
			slog.Warn("per-monitor DPI awareness rejected", "code", ret)
		}
		return
	}

	// Vista fallback.
	user32 := syscall.NewLazyDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err == nil {
		if ret, _, _ := setProcessDPIAware.Call(); ret == 0 {
			slog.Warn("system DPI awareness fallback failed")
		}
	}
}
