// Package singleinstance keeps one resident process per machine and lets
// later invocations delegate a command to it over TCP loopback.
package singleinstance

import (
	"context"
)

// Command is what a second invocation asks the resident to do.
type Command string

const (
	// CmdShowWidget makes the resident show the floating widget.
	CmdShowWidget Command = "SHOW"
	// CmdScreenshot starts a region screenshot on the resident.
	CmdScreenshot Command = "SCREENSHOT"
	// CmdOCR starts a region text extraction on the resident.
	CmdOCR Command = "OCR"
)

// Request is one parsed client request.
type Request struct {
	Command Command
}

// Server owns the TCP endpoint and answers delegation requests.
type Server interface {
	// Start binds the first port of the configured range. A bind failure
	// means another resident already owns it.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn is one client connection.
type Conn interface {
	Request() Request
	RespondSuccess() error
	RespondError(msg string) error
	Close() error
}

// Client delegates a command to a resident server, if one exists.
type Client interface {
	// TryDelegate scans the port range for a resident and forwards cmd.
	// With no resident found it returns delegated=false, err=nil.
	TryDelegate(ctx context.Context, cmd Command) (delegated bool, err error)
}

// NewServer returns the TCP implementation.
func NewServer() Server { return newTCPServer() }

// NewClient returns the TCP implementation.
func NewClient() Client { return newTCPClient() }
