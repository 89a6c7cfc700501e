//go:build windows

package surface

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"log/slog"

	"github.com/lxn/win"

	"overlaybox/src/events"
	"overlaybox/src/selector"
	"overlaybox/src/uiloop"
)

const overlayAlpha = 64 // out of 255, dims the screen behind the overlay

var (
	user32DLL                      = syscall.NewLazyDLL("user32.dll")
	procAllowSetForegroundWindow   = user32DLL.NewProc("AllowSetForegroundWindow")
	procSetLayeredWindowAttributes = user32DLL.NewProc("SetLayeredWindowAttributes")

	gdi32DLL      = syscall.NewLazyDLL("gdi32.dll")
	procCreatePen = gdi32DLL.NewProc("CreatePen")
	procRectangle = gdi32DLL.NewProc("Rectangle")
)

// wndProcCallback is created once; syscall callbacks cannot be released.
var wndProcCallback = syscall.NewCallback(surfaceWndProc)

// active is the surface owning the overlay window. The window procedure
// has no closure, so it reaches the surface through this pointer.
var (
	activeMu sync.Mutex
	active   *winSurface
)

type winSurface struct {
	loop *uiloop.Loop

	mu        sync.Mutex
	hwnd      win.HWND
	sel       *selector.Selector
	shown     bool
	mouseDown bool

	virtualX, virtualY int32

	// local rectangle for rubber-band painting; gesture semantics live in
	// the selector on the UI loop
	startX, startY int32
	curX, curY     int32
	haveRect       bool
}

func newPlatformSurface(loop *uiloop.Loop) Surface {
	return &winSurface{loop: loop}
}

func (s *winSurface) Present(mode events.CaptureMode, sel *selector.Selector) error {
	s.mu.Lock()
	if s.shown {
		s.mu.Unlock()
		return fmt.Errorf("selection surface already shown")
	}
	s.shown = true
	s.sel = sel
	s.haveRect = false
	s.mouseDown = false
	s.mu.Unlock()

	activeMu.Lock()
	active = s
	activeMu.Unlock()

	errCh := make(chan error, 1)
	go s.runWindow(mode, errCh)
	return <-errCh
}

func (s *winSurface) Dismiss() {
	s.mu.Lock()
	hwnd := s.hwnd
	s.mu.Unlock()
	if hwnd != 0 {
		win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
	}
}

// runWindow owns the overlay window and its message loop. One OS thread
// per presentation; the thread exits when the window is destroyed.
func (s *winSurface) runWindow(mode events.CaptureMode, errCh chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	vx := win.GetSystemMetrics(win.SM_XVIRTUALSCREEN)
	vy := win.GetSystemMetrics(win.SM_YVIRTUALSCREEN)
	vw := win.GetSystemMetrics(win.SM_CXVIRTUALSCREEN)
	vh := win.GetSystemMetrics(win.SM_CYVIRTUALSCREEN)

	s.mu.Lock()
	s.virtualX, s.virtualY = vx, vy
	s.mu.Unlock()

	classNameStr := fmt.Sprintf("OverlayBoxSelection_%d", time.Now().UnixNano())
	className := syscall.StringToUTF16Ptr(classNameStr)
	wndClass := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		Style:         win.CS_HREDRAW | win.CS_VREDRAW,
		LpfnWndProc:   wndProcCallback,
		HInstance:     win.GetModuleHandle(nil),
		HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS)),
		HbrBackground: win.HBRUSH(win.GetStockObject(win.BLACK_BRUSH)),
		LpszClassName: className,
	}
	if win.RegisterClassEx(&wndClass) == 0 {
		errCh <- fmt.Errorf("failed to register overlay window class")
		s.finish()
		return
	}
	defer win.UnregisterClass(className)

	title := "Select region to capture"
	if mode == events.ModeOCR {
		title = "Select region to extract text"
	}
	hwnd := win.CreateWindowEx(
		win.WS_EX_TOPMOST|win.WS_EX_LAYERED,
		className,
		syscall.StringToUTF16Ptr(title),
		win.WS_POPUP|win.WS_VISIBLE,
		vx, vy, vw, vh,
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		errCh <- fmt.Errorf("failed to create overlay window")
		s.finish()
		return
	}

	s.mu.Lock()
	s.hwnd = hwnd
	s.mu.Unlock()

	const lwaAlpha = 0x02
	procSetLayeredWindowAttributes.Call(uintptr(hwnd), 0, overlayAlpha, lwaAlpha)

	win.ShowWindow(hwnd, win.SW_SHOW)
	procAllowSetForegroundWindow.Call(uintptr(os.Getpid()))
	win.SetForegroundWindow(hwnd)
	win.BringWindowToTop(hwnd)
	win.SetFocus(hwnd)
	win.UpdateWindow(hwnd)

	errCh <- nil
	slog.Debug("surface: overlay shown", "mode", mode.String())

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 || ret == -1 {
			break
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}

	s.finish()
	slog.Debug("surface: overlay closed")
}

func (s *winSurface) finish() {
	s.mu.Lock()
	s.hwnd = 0
	s.sel = nil
	s.shown = false
	s.mu.Unlock()

	activeMu.Lock()
	if active == s {
		active = nil
	}
	activeMu.Unlock()
}

// post forwards one touch event to the selector on the UI loop.
func (s *winSurface) post(fn func(sel *selector.Selector)) {
	s.mu.Lock()
	sel := s.sel
	s.mu.Unlock()
	if sel == nil {
		return
	}
	s.loop.Post(func() { fn(sel) })
}

func surfaceWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	activeMu.Lock()
	s := active
	activeMu.Unlock()
	if s == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case win.WM_LBUTTONDOWN:
		x := int32(int16(win.LOWORD(uint32(lParam))))
		y := int32(int16(win.HIWORD(uint32(lParam))))
		win.SetCapture(hwnd)
		s.mu.Lock()
		s.mouseDown = true
		s.startX, s.startY = x, y
		s.curX, s.curY = x, y
		s.haveRect = true
		vx, vy := s.virtualX, s.virtualY
		s.mu.Unlock()
		s.post(func(sel *selector.Selector) { sel.TouchDown(int(vx+x), int(vy+y)) })
		win.InvalidateRect(hwnd, nil, false)
		return 0

	case win.WM_MOUSEMOVE:
		s.mu.Lock()
		down := s.mouseDown
		s.mu.Unlock()
		if !down {
			return 0
		}
		x := int32(int16(win.LOWORD(uint32(lParam))))
		y := int32(int16(win.HIWORD(uint32(lParam))))
		s.mu.Lock()
		s.curX, s.curY = x, y
		vx, vy := s.virtualX, s.virtualY
		s.mu.Unlock()
		s.post(func(sel *selector.Selector) { sel.TouchMove(int(vx+x), int(vy+y)) })
		win.InvalidateRect(hwnd, nil, false)
		return 0

	case win.WM_LBUTTONUP:
		win.ReleaseCapture()
		x := int32(int16(win.LOWORD(uint32(lParam))))
		y := int32(int16(win.HIWORD(uint32(lParam))))
		s.mu.Lock()
		s.mouseDown = false
		s.curX, s.curY = x, y
		vx, vy := s.virtualX, s.virtualY
		s.mu.Unlock()
		s.post(func(sel *selector.Selector) { sel.TouchUp(int(vx+x), int(vy+y)) })
		win.InvalidateRect(hwnd, nil, false)
		return 0

	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		s.mu.Lock()
		have := s.haveRect
		x0, y0, x1, y1 := s.startX, s.startY, s.curX, s.curY
		s.mu.Unlock()
		if have {
			drawSelectionFrame(hdc, x0, y0, x1, y1)
		}
		win.EndPaint(hwnd, &ps)
		return 0

	case win.WM_SETCURSOR:
		win.SetCursor(win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS)))
		return 1

	case win.WM_NCHITTEST:
		// Every point is client area so the window sees all mouse events.
		return uintptr(win.HTCLIENT)

	case win.WM_CLOSE:
		win.DestroyWindow(hwnd)
		return 0

	case win.WM_DESTROY:
		win.PostQuitMessage(0)
		return 0
	}

	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

// drawSelectionFrame paints the rubber-band rectangle.
func drawSelectionFrame(hdc win.HDC, x0, y0, x1, y1 int32) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}

	const psSolid = 0
	const frameColor = 0x00D47800 // COLORREF is 0x00BBGGRR
	pen, _, _ := procCreatePen.Call(psSolid, 2, frameColor)
	if pen == 0 {
		return
	}
	oldPen := win.SelectObject(hdc, win.HGDIOBJ(pen))
	oldBrush := win.SelectObject(hdc, win.GetStockObject(win.NULL_BRUSH))

	procRectangle.Call(uintptr(hdc), uintptr(x0), uintptr(y0), uintptr(x1), uintptr(y1))

	win.SelectObject(hdc, oldBrush)
	win.SelectObject(hdc, oldPen)
	win.DeleteObject(win.HGDIOBJ(pen))
}
