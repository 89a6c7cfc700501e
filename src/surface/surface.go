// Package surface presents the full-screen region selection overlay. The
// overlay owns its own window and message loop; the gesture semantics live
// in the selector, which receives every touch event on the UI loop.
package surface

import (
	"overlaybox/src/events"
	"overlaybox/src/selector"
	"overlaybox/src/uiloop"
)

// Surface matches the capture coordinator's selection surface dependency.
type Surface interface {
	Present(mode events.CaptureMode, sel *selector.Selector) error
	Dismiss()
}

// New returns the platform selection surface. Touch events are posted to
// loop so the selector always runs on the UI goroutine.
func New(loop *uiloop.Loop) Surface {
	return newPlatformSurface(loop)
}
