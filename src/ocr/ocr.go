// Package ocr adapts the vision client into the recognition engine the
// capture backend and the CLI use.
package ocr

import (
	"context"
	"fmt"
	"os"
)

// VisionClient is the LLM surface the engine needs.
type VisionClient interface {
	QueryVision(ctx context.Context, imageData []byte) (string, error)
}

// Engine extracts text from images.
type Engine struct {
	client VisionClient
}

func NewEngine(client VisionClient) *Engine {
	return &Engine{client: client}
}

// Recognize extracts text from PNG data. An image without readable text
// yields an empty string and no error.
func (e *Engine) Recognize(ctx context.Context, pngData []byte) (string, error) {
	return e.client.QueryVision(ctx, pngData)
}

// RecognizeFile extracts text from an image file on disk.
func (e *Engine) RecognizeFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image file: %w", err)
	}
	return e.Recognize(ctx, data)
}
