//go:build windows

package notify

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	mbOK              = 0x00000000
	mbIconInformation = 0x00000040
	mbSetForeground   = 0x00010000
)

var (
	user32          = windows.NewLazySystemDLL("user32.dll")
	procMessageBoxW = user32.NewProc("MessageBoxW")
)

// BoxMessenger shows each advisory in a message box. The box is spawned on
// its own goroutine so a slow user never stalls the capture flow.
type BoxMessenger struct {
	Title string
}

func NewBox() BoxMessenger { return BoxMessenger{Title: "OverlayBox"} }

func (b BoxMessenger) Advise(text string) {
	title := b.Title
	if title == "" {
		title = "OverlayBox"
	}
	go func() {
		titlePtr, err := syscall.UTF16PtrFromString(title)
		if err != nil {
			return
		}
		textPtr, err := syscall.UTF16PtrFromString(Truncate(text))
		if err != nil {
			return
		}
		procMessageBoxW.Call(
			0,
			uintptr(unsafe.Pointer(textPtr)),
			uintptr(unsafe.Pointer(titlePtr)),
			uintptr(mbOK|mbIconInformation|mbSetForeground),
		)
	}()
}
