// Package histview drives the clipboard history panel: it lists stored
// entries, pastes one on select, and removes one on delete. Rendering
// stays behind the View interface, like the widget's.
package histview

import (
	"log/slog"
	"time"

	"overlaybox/src/history"
)

// Row is one rendered history entry.
type Row struct {
	ID      string
	Preview string
	Age     string
}

// View renders the panel. All calls arrive on the UI loop.
type View interface {
	SetVisible(visible bool)
	Render(rows []Row)
}

// Store is the history surface the panel reads and mutates.
type Store interface {
	List() []history.Entry
	Delete(id string) bool
}

// Paster delivers a selected entry's text to the focused application.
type Paster interface {
	Forward(text string) error
}

// Config wires a Controller.
type Config struct {
	View  View
	Store Store
	Paste Paster

	// Now is a clock override for tests.
	Now func() time.Time
}

// Controller is the history panel state machine. Call it from the UI
// loop only.
type Controller struct {
	cfg     Config
	now     func() time.Time
	visible bool
}

func NewController(cfg Config) *Controller {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{cfg: cfg, now: now}
}

// Visible reports whether the panel is shown.
func (c *Controller) Visible() bool { return c.visible }

// Toggle shows the panel with fresh rows, or hides it.
func (c *Controller) Toggle() {
	if c.visible {
		c.Hide()
		return
	}
	c.Show()
}

// Show opens the panel and renders the current entries.
func (c *Controller) Show() {
	c.visible = true
	c.cfg.View.SetVisible(true)
	c.render()
}

// Hide closes the panel.
func (c *Controller) Hide() {
	if !c.visible {
		return
	}
	c.visible = false
	c.cfg.View.SetVisible(false)
}

// Refresh re-renders after a history change. A hidden panel stays
// hidden and picks the change up on the next Show.
func (c *Controller) Refresh() {
	if !c.visible {
		return
	}
	c.render()
}

// Select pastes the entry's full text and closes the panel, the
// tap-to-paste behavior of the history list.
func (c *Controller) Select(id string) {
	for _, e := range c.cfg.Store.List() {
		if e.ID != id {
			continue
		}
		if err := c.cfg.Paste.Forward(e.Text); err != nil {
			slog.Warn("history panel: paste failed", "error", err)
		}
		c.Hide()
		return
	}
	slog.Debug("history panel: selected entry no longer exists", "id", id)
}

// Delete removes one entry. The panel re-renders through the store's
// change notification, which also covers deletes made elsewhere.
func (c *Controller) Delete(id string) {
	if !c.cfg.Store.Delete(id) {
		slog.Debug("history panel: delete of missing entry ignored", "id", id)
	}
}

func (c *Controller) render() {
	entries := c.cfg.Store.List()
	now := c.now()
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{ID: e.ID, Preview: e.Preview(), Age: e.Age(now)}
	}
	c.cfg.View.Render(rows)
}
