package main

import (
	"log/slog"

	"overlaybox/src/histview"
	"overlaybox/src/screenshot"
)

const (
	deleteZoneWidth        = 90
	deleteZoneBottomMargin = 96
)

// logView is a headless widget view. It keeps the geometry the gesture
// logic needs and reports state transitions to the log; the visual shell
// is platform work that lives outside this process for now.
type logView struct {
	zoneX, zoneY int
}

func newLogView() *logView {
	v := &logView{}
	bounds, err := screenshot.VirtualBounds()
	if err != nil || bounds.Empty() {
		// Sane geometry when no display is reachable, for example over SSH.
		v.zoneX, v.zoneY = 960, 984
		return v
	}
	v.zoneX = bounds.Min.X + bounds.Dx()/2
	v.zoneY = bounds.Max.Y - deleteZoneBottomMargin
	return v
}

func (v *logView) SetAlpha(alpha float64) {
	slog.Debug("widget view: alpha", "alpha", alpha)
}

func (v *logView) SetExpanded(expanded bool) {
	slog.Debug("widget view: expanded", "expanded", expanded)
}

func (v *logView) SetVisible(visible bool) {
	slog.Debug("widget view: visible", "visible", visible)
}

func (v *logView) MoveTo(x, y int) {
	slog.Debug("widget view: moved", "x", x, "y", y)
}

func (v *logView) ShowDeleteZone() {
	slog.Debug("widget view: delete zone shown", "x", v.zoneX, "y", v.zoneY)
}

func (v *logView) HideDeleteZone() {
	slog.Debug("widget view: delete zone hidden")
}

func (v *logView) DeleteZoneCenter() (x, y int) { return v.zoneX, v.zoneY }

func (v *logView) DeleteZoneWidth() int { return deleteZoneWidth }

// logPanel is the headless history panel view, the panel counterpart of
// logView.
type logPanel struct{}

func (logPanel) SetVisible(visible bool) {
	slog.Debug("history panel: visible", "visible", visible)
}

func (logPanel) Render(rows []histview.Row) {
	slog.Debug("history panel: rendered", "rows", len(rows))
	for _, r := range rows {
		slog.Debug("history panel: row", "id", r.ID, "preview", r.Preview, "age", r.Age)
	}
}
