//go:build windows

package focus

import (
	"fmt"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")

	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetConsoleWindow = kernel32.NewProc("GetConsoleWindow")
)

type winController struct {
	prev uintptr
}

// New returns the Windows controller. It remembers the foreground window
// on Acquire and restores it on Release.
func New() Controller { return &winController{} }

func (c *winController) Acquire() error {
	prev, _, _ := procGetForegroundWindow.Call()
	c.prev = prev

	hwnd, _, _ := procGetConsoleWindow.Call()
	if hwnd == 0 {
		return fmt.Errorf("no window available to take focus")
	}
	ok, _, _ := procSetForegroundWindow.Call(hwnd)
	if ok == 0 {
		return fmt.Errorf("failed to take foreground focus")
	}
	return nil
}

func (c *winController) Release() {
	if c.prev != 0 {
		_, _, _ = procSetForegroundWindow.Call(c.prev)
		c.prev = 0
	}
}
