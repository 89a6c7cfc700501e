package screenshot

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"overlaybox/src/selector"
)

func solidGrabber(t *testing.T) Grabber {
	t.Helper()
	return func(bounds image.Rectangle) (*image.RGBA, error) {
		img := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		return img, nil
	}
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 8, 28, 15, 4, 5, 0, time.UTC)
	return func() time.Time { return at }
}

func TestCaptureRegionSavesTimestampedPNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	b := NewBackend(dir, nil,
		WithGrabber(solidGrabber(t)),
		WithSettleDelay(0),
		WithClock(fixedClock()))

	path, err := b.CaptureRegion(context.Background(), nil, selector.Rect{Left: 0, Top: 0, Right: 120, Bottom: 80})
	if err != nil {
		t.Fatalf("CaptureRegion failed: %v", err)
	}

	wantName := "Region-Capture-20260828-150405.png"
	if filepath.Base(path) != wantName {
		t.Fatalf("Expected file name %q, got %q", wantName, filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected saved file, read failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Expected valid PNG, decode failed: %v", err)
	}
	if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 80 {
		t.Fatalf("Expected 120x80 image, got %v", img.Bounds())
	}
}

func TestCaptureRegionRejectsEmptyRect(t *testing.T) {
	b := NewBackend(t.TempDir(), nil, WithGrabber(solidGrabber(t)), WithSettleDelay(0))

	_, err := b.CaptureRegion(context.Background(), nil, selector.Rect{Left: 10, Top: 10, Right: 10, Bottom: 50})
	if err == nil {
		t.Fatal("Expected error for zero-width region")
	}
}

func TestSettleDelayHonorsContext(t *testing.T) {
	b := NewBackend(t.TempDir(), nil,
		WithGrabber(solidGrabber(t)),
		WithSettleDelay(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.CaptureRegion(ctx, nil, selector.Rect{Right: 100, Bottom: 100})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

type stubRecognizer struct {
	text    string
	err     error
	gotPNG  []byte
	gotCall int
}

func (r *stubRecognizer) Recognize(ctx context.Context, pngData []byte) (string, error) {
	r.gotCall++
	r.gotPNG = pngData
	return r.text, r.err
}

func TestCaptureRegionForOCR(t *testing.T) {
	rec := &stubRecognizer{text: "found text"}
	b := NewBackend(t.TempDir(), rec, WithGrabber(solidGrabber(t)), WithSettleDelay(0))

	text, err := b.CaptureRegionForOCR(context.Background(), nil, selector.Rect{Right: 60, Bottom: 60})
	if err != nil {
		t.Fatalf("CaptureRegionForOCR failed: %v", err)
	}
	if text != "found text" {
		t.Fatalf("Expected %q, got %q", "found text", text)
	}
	if rec.gotCall != 1 {
		t.Fatalf("Expected 1 engine call, got %d", rec.gotCall)
	}
	if _, err := png.Decode(bytes.NewReader(rec.gotPNG)); err != nil {
		t.Fatalf("Expected engine to receive valid PNG: %v", err)
	}
}

func TestCaptureRegionForOCRWithoutEngine(t *testing.T) {
	b := NewBackend(t.TempDir(), nil, WithGrabber(solidGrabber(t)), WithSettleDelay(0))

	_, err := b.CaptureRegionForOCR(context.Background(), nil, selector.Rect{Right: 60, Bottom: 60})
	if err == nil {
		t.Fatal("Expected error without a recognition engine")
	}
}
