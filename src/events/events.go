package events

// Event is the base interface for all in-process bus events.
type Event interface {
	Topic() string
}

// Topic constants for subscription filtering.
const (
	TopicCaptureComplete      = "CaptureComplete"
	TopicOCRComplete          = "OCRComplete"
	TopicShowWidget           = "ShowWidget"
	TopicWidgetStopped        = "WidgetStopped"
	TopicClipboardMayChange   = "ClipboardMayHaveChanged"
	TopicProjectionReady      = "ProjectionReady"
	TopicProjectionExpired    = "ProjectionExpired"
	TopicPermissionDenied     = "PermissionDenied"
	TopicRequestNewProjection = "RequestNewProjection"
	TopicHistoryChanged       = "HistoryChanged"
)

// CaptureMode selects what a region capture produces.
type CaptureMode int

const (
	ModeScreenshot CaptureMode = iota
	ModeOCR
)

func (m CaptureMode) String() string {
	switch m {
	case ModeScreenshot:
		return "screenshot"
	case ModeOCR:
		return "ocr"
	default:
		return "unknown"
	}
}

// CaptureComplete - published after a screenshot capture finishes.
// Path is empty when the capture failed.
type CaptureComplete struct {
	Path string
}

func (CaptureComplete) Topic() string { return TopicCaptureComplete }

// OCRComplete - published after an OCR capture finishes.
// Text is empty when no text was found or the capture failed.
type OCRComplete struct {
	Text string
}

func (OCRComplete) Topic() string { return TopicOCRComplete }

// ShowWidget - asks the widget controller to become visible again.
type ShowWidget struct{}

func (ShowWidget) Topic() string { return TopicShowWidget }

// WidgetStopped - published when the user drag-dismisses the widget.
type WidgetStopped struct{}

func (WidgetStopped) Topic() string { return TopicWidgetStopped }

// ClipboardMayHaveChanged - a heuristic hint that the clipboard should be
// re-read. Consumers must tolerate spurious or duplicate hints.
type ClipboardMayHaveChanged struct{}

func (ClipboardMayHaveChanged) Topic() string { return TopicClipboardMayChange }

// ProjectionReady - the capture authority granted a new handle.
type ProjectionReady struct{}

func (ProjectionReady) Topic() string { return TopicProjectionReady }

// ProjectionExpired - the current capture grant is no longer usable.
type ProjectionExpired struct{}

func (ProjectionExpired) Topic() string { return TopicProjectionExpired }

// PermissionDenied - the capture authority refused a grant request.
type PermissionDenied struct{}

func (PermissionDenied) Topic() string { return TopicPermissionDenied }

// RequestNewProjection - asks the capture authority for a fresh grant.
// Retry counts attempts for the current user action, starting at 1.
type RequestNewProjection struct {
	Mode  CaptureMode
	Retry int
}

func (RequestNewProjection) Topic() string { return TopicRequestNewProjection }

// HistoryChanged - the clipboard history store mutated; list views re-render.
type HistoryChanged struct{}

func (HistoryChanged) Topic() string { return TopicHistoryChanged }
