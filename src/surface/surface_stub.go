//go:build !windows

package surface

import (
	"fmt"

	"overlaybox/src/events"
	"overlaybox/src/selector"
	"overlaybox/src/uiloop"
)

// stubSurface reports that no interactive overlay exists on this platform.
// Captures are still reachable through the resident delegation commands on
// platforms that grow an overlay later.
type stubSurface struct{}

func newPlatformSurface(loop *uiloop.Loop) Surface { return stubSurface{} }

func (stubSurface) Present(mode events.CaptureMode, sel *selector.Selector) error {
	return fmt.Errorf("interactive region selection is not supported on this platform")
}

func (stubSurface) Dismiss() {}
