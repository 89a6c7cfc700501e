// Package hotkey binds global key combinations to actions using a single
// gohook event stream. Combos are written "Ctrl+Alt+S"; modifiers match
// both their left and right variants.
package hotkey

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

type binding struct {
	combo string
	// one rawcode group per key; the key counts as held when any code in
	// its group is down
	groups    [][]uint16
	action    func()
	satisfied bool
}

// Listener dispatches global hotkey combos. Bind everything before Start.
type Listener struct {
	mu       sync.Mutex
	bindings []*binding
	started  bool
}

func NewListener() *Listener {
	return &Listener{}
}

// Bind registers a combo. Actions run on the hook goroutine; post to the
// UI loop inside the action when needed.
func (l *Listener) Bind(combo string, action func()) error {
	var groups [][]uint16
	for _, name := range parseHotkey(combo) {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return fmt.Errorf("unknown key %q in combo %q", name, combo)
		}
		groups = append(groups, codes)
	}
	if len(groups) == 0 {
		return fmt.Errorf("empty hotkey combo %q", combo)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.bindings = append(l.bindings, &binding{combo: combo, groups: groups, action: action})
	slog.Info("hotkey bound", "combo", combo)
	return nil
}

// Start begins listening. It spawns the hook goroutine and returns.
func (l *Listener) Start() {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	go l.run()
}

// Stop shuts the hook event stream down.
func (l *Listener) Stop() {
	gohook.End()
}

func (l *Listener) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("hotkey: panic in hook goroutine", "panic", r)
		}
	}()

	evChan := gohook.Start()
	if evChan == nil {
		slog.Error("hotkey: hook start returned nil channel")
		return
	}
	slog.Debug("hotkey: hook event stream started")

	pressed := make(map[uint16]bool)
	for ev := range evChan {
		switch ev.Kind {
		case gohook.KeyDown, gohook.KeyHold:
			if pressed[ev.Rawcode] {
				continue
			}
			pressed[ev.Rawcode] = true
			l.dispatch(pressed)
		case gohook.KeyUp:
			delete(pressed, ev.Rawcode)
			l.relax(pressed)
		}
	}
	slog.Debug("hotkey: hook event stream closed")
}

// dispatch fires bindings that just became fully held. A binding stays
// latched until one of its keys is released, so holding the combo does not
// refire it.
func (l *Listener) dispatch(pressed map[uint16]bool) {
	l.mu.Lock()
	var fired []*binding
	for _, b := range l.bindings {
		if b.satisfied || !comboHeld(b.groups, pressed) {
			continue
		}
		b.satisfied = true
		fired = append(fired, b)
	}
	l.mu.Unlock()

	for _, b := range fired {
		slog.Info("hotkey activated", "combo", b.combo)
		if b.action != nil {
			b.action()
		}
	}
}

func (l *Listener) relax(pressed map[uint16]bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.bindings {
		if b.satisfied && !comboHeld(b.groups, pressed) {
			b.satisfied = false
		}
	}
}

func comboHeld(groups [][]uint16, pressed map[uint16]bool) bool {
	for _, group := range groups {
		held := false
		for _, code := range group {
			if pressed[code] {
				held = true
				break
			}
		}
		if !held {
			return false
		}
	}
	return true
}

// parseHotkey converts a combo like "Ctrl+Alt+q" to normalized key names.
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch part {
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}

	return keys
}

var specialRawcodes = map[string][]uint16{
	// Modifiers map to both left and right variants.
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},
	"left":      {37},
	"up":        {38},
	"right":     {39},
	"down":      {40},
}

// keyNameToRawcodes maps a key name to its virtual key codes. Modifiers
// return both left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	if codes, ok := specialRawcodes[keyName]; ok {
		return codes
	}

	// Letters A-Z: VK 0x41-0x5A. Digits 0-9: VK 0x30-0x39.
	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48}
		}
	}

	// Function keys F1-F24: VK 112-135.
	if strings.HasPrefix(keyName, "f") {
		var n int
		if _, err := fmt.Sscanf(keyName, "f%d", &n); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(112 + n - 1)}
		}
	}

	slog.Warn("hotkey: unknown key name", "key", keyName)
	return nil
}
