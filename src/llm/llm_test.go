package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestQueryVisionRejectsMissingConfig(t *testing.T) {
	img := []byte{0xFF, 0xFF, 0xFF, 0xFF}

	c := NewClient(Config{APIKey: "", Model: "test_model"})
	if _, err := c.QueryVision(context.Background(), img); err == nil {
		t.Error("Expected error with missing API key")
	}

	c = NewClient(Config{APIKey: "test_api_key", Model: ""})
	if _, err := c.QueryVision(context.Background(), img); err == nil {
		t.Error("Expected error with missing model")
	}
}

func visionResponse(text string) string {
	return `{"choices":[{"message":{"content":` + mustJSON(text) + `}}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestQueryVisionExtractsText(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test_key" {
			t.Errorf("Expected bearer auth header, got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(visionResponse("hello from image")))
	}))
	defer server.Close()

	c := NewClient(Config{
		APIKey:    "test_key",
		Model:     "test_model",
		Providers: []string{"deepinfra"},
		BaseURL:   server.URL,
	})

	text, err := c.QueryVision(context.Background(), []byte{0x89, 0x50, 0x4E, 0x47})
	if err != nil {
		t.Fatalf("QueryVision failed: %v", err)
	}
	if text != "hello from image" {
		t.Fatalf("Expected extracted text, got %q", text)
	}

	if gotReq.Model != "test_model" {
		t.Errorf("Expected model in request, got %q", gotReq.Model)
	}
	if gotReq.Provider == nil || len(gotReq.Provider.Order) != 1 || gotReq.Provider.Order[0] != "deepinfra" {
		t.Errorf("Expected pinned provider, got %+v", gotReq.Provider)
	}
	if gotReq.Provider.AllowFallbacks == nil || *gotReq.Provider.AllowFallbacks {
		t.Error("Expected fallbacks disabled when providers are pinned")
	}
	if len(gotReq.Messages) != 1 || len(gotReq.Messages[0].Content) != 2 {
		t.Fatalf("Expected one message with prompt and image, got %+v", gotReq.Messages)
	}
	if url := gotReq.Messages[0].Content[1].ImageURL; url == nil || !strings.HasPrefix(url.URL, "data:image/png;base64,") {
		t.Error("Expected base64 PNG data URL in request")
	}
}

func TestQueryVisionNoTextSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(visionResponse("NO_TEXT_FOUND")))
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "k", Model: "m", BaseURL: server.URL})
	text, err := c.QueryVision(context.Background(), []byte{0x01})
	if err != nil {
		t.Fatalf("Expected no error for empty result, got %v", err)
	}
	if text != "" {
		t.Fatalf("Expected empty text, got %q", text)
	}
}

func TestQueryVisionStripsImageTagArtifact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(visionResponse("some text</image>")))
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "k", Model: "m", BaseURL: server.URL})
	text, err := c.QueryVision(context.Background(), []byte{0x01})
	if err != nil {
		t.Fatalf("QueryVision failed: %v", err)
	}
	if text != "some text" {
		t.Fatalf("Expected artifact stripped, got %q", text)
	}
}

func TestQueryVisionRetriesThenFails(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit","code":429}}`))
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "k", Model: "m", BaseURL: server.URL})
	c.retryDelay = time.Millisecond
	_, err := c.QueryVision(context.Background(), []byte{0x01})
	if err == nil {
		t.Fatal("Expected error after exhausted retries")
	}
	if calls != maxRetries {
		t.Fatalf("Expected %d attempts, got %d", maxRetries, calls)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("Expected underlying API error preserved, got %v", err)
	}
}

func TestQueryVisionHonorsCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error","code":500}}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(Config{APIKey: "k", Model: "m", BaseURL: server.URL})
	_, err := c.QueryVision(ctx, []byte{0x01})
	if err == nil {
		t.Fatal("Expected error with cancelled context")
	}
}
