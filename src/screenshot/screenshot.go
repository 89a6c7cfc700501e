// Package screenshot grabs screen pixels and implements the blocking
// capture backend: rectangle grab through the display driver, PNG file
// saving for screenshot mode, and the recognition engine call for OCR
// mode.
package screenshot

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kbinani/screenshot"

	"overlaybox/src/projection"
	"overlaybox/src/selector"
)

// DefaultSettleDelay is how long the backend waits before grabbing pixels
// so the dismissed selection surface is no longer on screen.
const DefaultSettleDelay = 500 * time.Millisecond

const fileNamePrefix = "Region-Capture-"

// Grabber captures the given rectangle in virtual-screen coordinates.
type Grabber func(bounds image.Rectangle) (*image.RGBA, error)

// Recognizer extracts text from a PNG image.
type Recognizer interface {
	Recognize(ctx context.Context, pngData []byte) (string, error)
}

// DisplayCount reports the number of active displays. Zero means captures
// cannot work right now.
func DisplayCount() int {
	return screenshot.NumActiveDisplays()
}

// VirtualBounds returns the union of all active display bounds.
func VirtualBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

// Backend performs blocking region captures. It is safe for use from
// worker goroutines.
type Backend struct {
	dir       string
	settle    time.Duration
	grab      Grabber
	recognize Recognizer
	now       func() time.Time
}

// Option adjusts a Backend, mainly for tests.
type Option func(*Backend)

func WithGrabber(g Grabber) Option {
	return func(b *Backend) { b.grab = g }
}

func WithSettleDelay(d time.Duration) Option {
	return func(b *Backend) { b.settle = d }
}

func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// NewBackend saves screenshots under dir and sends OCR grabs through rec.
func NewBackend(dir string, rec Recognizer, opts ...Option) *Backend {
	b := &Backend{
		dir:       dir,
		settle:    DefaultSettleDelay,
		grab:      screenshot.CaptureRect,
		recognize: rec,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CaptureRegion grabs the rectangle and saves it as a timestamped PNG,
// returning the file path.
func (b *Backend) CaptureRegion(ctx context.Context, handle projection.Handle, rect selector.Rect) (string, error) {
	data, err := b.grabPNG(ctx, rect)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("create capture directory: %w", err)
	}
	path := filepath.Join(b.dir, fileNamePrefix+b.now().Format("20060102-150405")+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	slog.Info("screenshot saved", "path", path, "bytes", len(data))
	return path, nil
}

// CaptureRegionForOCR grabs the rectangle and returns the extracted text,
// empty when the engine found none.
func (b *Backend) CaptureRegionForOCR(ctx context.Context, handle projection.Handle, rect selector.Rect) (string, error) {
	if b.recognize == nil {
		return "", fmt.Errorf("no recognition engine configured")
	}
	data, err := b.grabPNG(ctx, rect)
	if err != nil {
		return "", err
	}
	return b.recognize.Recognize(ctx, data)
}

func (b *Backend) grabPNG(ctx context.Context, rect selector.Rect) ([]byte, error) {
	if rect.Width() <= 0 || rect.Height() <= 0 {
		return nil, fmt.Errorf("invalid region dimensions: width=%d, height=%d", rect.Width(), rect.Height())
	}

	// Let the dismissed selection surface disappear before grabbing.
	if b.settle > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(b.settle):
		}
	}

	bounds := image.Rect(rect.Left, rect.Top, rect.Right, rect.Bottom)
	img, err := b.grab(bounds)
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
