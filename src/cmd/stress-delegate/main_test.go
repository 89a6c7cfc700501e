package main

import (
	"testing"
	"time"

	"overlaybox/src/singleinstance"
)

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 50 {
		t.Fatalf("Expected default n=50, got %d", opts.n)
	}
	if opts.command != "show" {
		t.Fatalf("Expected default command=show, got %q", opts.command)
	}
	if opts.deadline != 5*time.Second {
		t.Fatalf("Expected default deadline=5s, got %v", opts.deadline)
	}
}

func TestNewRootCmdCustomFlags(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--n", "3", "--command", "ocr", "--deadline", "7s"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 3 {
		t.Fatalf("Expected n=3, got %d", opts.n)
	}
	if opts.command != "ocr" {
		t.Fatalf("Expected command=ocr, got %q", opts.command)
	}
	if opts.deadline != 7*time.Second {
		t.Fatalf("Expected deadline=7s, got %v", opts.deadline)
	}
}

func TestCommandForName(t *testing.T) {
	tests := []struct {
		name    string
		want    singleinstance.Command
		wantErr bool
	}{
		{name: "show", want: singleinstance.CmdShowWidget},
		{name: "screenshot", want: singleinstance.CmdScreenshot},
		{name: "ocr", want: singleinstance.CmdOCR},
		{name: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := commandForName(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error for unknown command")
				}
				return
			}
			if err != nil {
				t.Fatalf("commandForName failed: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
