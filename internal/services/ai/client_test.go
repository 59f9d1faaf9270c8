package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/boijuny/chorizoventures/internal/config"
	"github.com/boijuny/chorizoventures/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestClient(baseURL string, maxAttempts int) *MistralClient {
	return NewClient(&config.UpstreamConfig{
		BaseURL:           baseURL,
		APIKey:            "test-key",
		Model:             "mistral-small-latest",
		Timeout:           5 * time.Second,
		MaxAttempts:       maxAttempts,
		RequestsPerSecond: 1000,
		Burst:             1000,
	}, testLogger())
}

func sampling() models.SamplingParams {
	return models.SamplingParams{Temperature: 0.6, MaxTokens: 200, TopP: 0.95}
}

func TestComplete_Success(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Uber for cats? Bold."}},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	content, err := client.Complete(context.Background(), []models.Message{
		{Role: "system", Content: "prompt"},
		{Role: "user", Content: "Uber for cats"},
	}, sampling())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "Uber for cats? Bold." {
		t.Errorf("unexpected content: %q", content)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody["model"] != "mistral-small-latest" {
		t.Errorf("expected model in request, got %v", gotBody["model"])
	}
	if gotBody["temperature"] != 0.6 {
		t.Errorf("expected temperature 0.6, got %v", gotBody["temperature"])
	}
}

func TestComplete_MissingAPIKey(t *testing.T) {
	client := NewClient(&config.UpstreamConfig{
		BaseURL:     "http://unreachable.invalid",
		Model:       "mistral-small-latest",
		Timeout:     time.Second,
		MaxAttempts: 1,
	}, testLogger())

	_, err := client.Complete(context.Background(), nil, sampling())
	if err == nil {
		t.Fatal("expected error when API key is missing")
	}
}

func TestComplete_UpstreamErrorCarriesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid api key"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	_, err := client.Complete(context.Background(), nil, sampling())

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.Status != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", upErr.Status)
	}
	if upErr.Message != "invalid api key" {
		t.Errorf("expected upstream message, got %q", upErr.Message)
	}
}

func TestComplete_MalformedErrorBodyTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>nope</html>"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	_, err := client.Complete(context.Background(), nil, sampling())

	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.Status != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", upErr.Status)
	}
	if upErr.Message == "" {
		t.Error("expected a best-effort message")
	}
}

func TestComplete_EmptyChoicesIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	content, err := client.Complete(context.Background(), nil, sampling())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "" {
		t.Errorf("expected empty content, got %q", content)
	}
}

func TestComplete_NoRetryOnClientError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	_, err := client.Complete(context.Background(), nil, sampling())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("4xx should not be retried, got %d calls", calls)
	}
}

func TestComplete_SingleAttemptByDefault(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 1)
	_, err := client.Complete(context.Background(), nil, sampling())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("max_attempts=1 means no retry, got %d calls", calls)
	}
}
