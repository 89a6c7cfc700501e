package hotkey

import (
	"reflect"
	"testing"
)

func TestKeyNameToRawcodes(t *testing.T) {
	tests := []struct {
		keyName string
		want    []uint16
	}{
		// Modifiers map to both left and right variants.
		{"ctrl", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"cmd", []uint16{91, 92}},

		// Letters and digits.
		{"s", []uint16{83}},
		{"q", []uint16{81}},
		{"z", []uint16{90}},
		{"0", []uint16{48}},
		{"9", []uint16{57}},

		// Function keys span the extended range.
		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f24", []uint16{135}},

		// Named keys.
		{"space", []uint16{32}},
		{"enter", []uint16{13}},
		{"esc", []uint16{27}},

		{"unknown", nil},
		{"f25", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.keyName, func(t *testing.T) {
			got := keyNameToRawcodes(tt.keyName)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Expected rawcodes %v for %q, got %v", tt.want, tt.keyName, got)
			}
		})
	}
}

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Ctrl+Alt+S", []string{"ctrl", "alt", "s"}},
		{"Ctrl+Alt+Q", []string{"ctrl", "alt", "q"}},
		{"ctrl+ALT+q", []string{"ctrl", "alt", "q"}},
		{" Ctrl + Shift + O ", []string{"ctrl", "shift", "o"}},
		{"Alt+F4", []string{"alt", "f4"}},
		{"Ctrl+Shift+F13", []string{"ctrl", "shift", "f13"}},

		// win, cmd, and super all normalize to cmd.
		{"Win+Shift+S", []string{"cmd", "shift", "s"}},
		{"Super+Alt+T", []string{"cmd", "alt", "t"}},
		{"Cmd+E", []string{"cmd", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseHotkey(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Expected keys %v for %q, got %v", tt.want, tt.input, got)
			}
		})
	}
}
