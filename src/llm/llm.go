// Package llm talks to OpenRouter vision models. The client sends a PNG
// with a fixed OCR prompt and returns the raw extracted text.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the OpenRouter chat completions endpoint.
	DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

	maxRetries   = 3
	initialDelay = 1 * time.Second

	// noTextSentinel is what the prompt tells the model to answer when
	// the image contains no readable text.
	noTextSentinel = "NO_TEXT_FOUND"
)

const ocrPrompt = "Perform OCR on this image. Return ONLY the raw extracted text with:\n" +
	"- No formatting\n" +
	"- No XML/HTML tags\n" +
	"- No markdown\n" +
	"- No explanations\n" +
	"- Preserve line breaks accurately from the visual layout.\n" +
	"If no text found, return 'NO_TEXT_FOUND'"

// Config selects the model and routing for vision queries.
type Config struct {
	APIKey string
	Model  string
	// Providers pins OpenRouter to specific upstream providers, in
	// order, with fallbacks disabled. Empty uses default routing.
	Providers []string
	// BaseURL overrides the endpoint, mainly for tests.
	BaseURL string
	// HTTPClient overrides the default 45s-timeout client.
	HTTPClient *http.Client
}

// Client is a reusable OpenRouter vision client. Safe for concurrent use.
type Client struct {
	cfg        Config
	http       *http.Client
	retryDelay time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 45 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient, retryDelay: initialDelay}
}

// OpenRouter API structures.
type message struct {
	Role    string    `json:"role"`
	Content []content `json:"content"`
}

type content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type providerPreferences struct {
	Order          []string `json:"order,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
}

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []message            `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Provider    *providerPreferences `json:"provider,omitempty"`
}

type chatResponse struct {
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Message responseMessage `json:"message"`
}

type responseMessage struct {
	Content string `json:"content"`
}

type apiError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"` // string or number depending on the error
}

func (c *Client) providerPrefs() *providerPreferences {
	if len(c.cfg.Providers) == 0 {
		return nil
	}
	allowFallbacks := false
	return &providerPreferences{
		Order:          c.cfg.Providers,
		AllowFallbacks: &allowFallbacks,
	}
}

// QueryVision sends a PNG for OCR and returns the extracted text. An image
// with no readable text yields an empty string and no error.
func (c *Client) QueryVision(ctx context.Context, imageData []byte) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("API key is required")
	}
	if c.cfg.Model == "" {
		return "", fmt.Errorf("model is required")
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageData)
	request := chatRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{
				Role: "user",
				Content: []content{
					{Type: "text", Text: ocrPrompt},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				},
			},
		},
		Temperature: 0.1,
		MaxTokens:   2000,
		Provider:    c.providerPrefs(),
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(c.retryDelay) * (1.5 * float64(attempt)))
			slog.Debug("llm: retrying vision query", "attempt", attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		response, err := c.doRequest(ctx, request)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			continue
		}

		if len(response.Choices) == 0 {
			lastErr = fmt.Errorf("no choices in API response")
			continue
		}

		text := cleanExtractedText(response.Choices[0].Message.Content)
		if text == "" || text == noTextSentinel {
			return "", nil
		}
		return text, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) doRequest(ctx context.Context, request chatRequest) (*chatResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("X-Title", "OverlayBox")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s (type: %s, code: %v)", response.Error.Message, response.Error.Type, response.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return &response, nil
}

// cleanExtractedText strips stray image-tag artifacts some models emit.
func cleanExtractedText(text string) string {
	text = strings.TrimSuffix(text, "</image>")
	return strings.TrimSpace(text)
}
