package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newChatServer(t *testing.T, reply string) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("server got invalid body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response":        reply,
			"mode":            req.Mode,
			"conversation_id": req.ConversationID,
			"tokens_used":     len(reply),
		})
	}))
	return server, &calls
}

func TestSend_SuccessAppendsTwoOrderedEntries(t *testing.T) {
	server, calls := newChatServer(t, "Disruptive.")
	defer server.Close()

	c := New(server.URL+"/api/chat", WithMode("roast"))
	if err := c.Send(context.Background(), "Uber for cats"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transcript := c.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(transcript))
	}
	if transcript[0].Role != "user" || transcript[0].Content != "Uber for cats" {
		t.Errorf("first entry should be the user turn: %+v", transcript[0])
	}
	if transcript[1].Role != "assistant" || transcript[1].Content != "Disruptive." {
		t.Errorf("second entry should be the reply: %+v", transcript[1])
	}
	if transcript[0].ID == transcript[1].ID || transcript[0].ID == "" {
		t.Error("messages need distinct identifiers")
	}
	if transcript[0].Mode != "roast" || transcript[1].Mode != "roast" {
		t.Error("messages should carry the active mode")
	}
	if *calls != 1 {
		t.Errorf("expected one request, got %d", *calls)
	}
	if c.LastError() != nil {
		t.Errorf("no error expected, got %v", c.LastError())
	}
}

func TestSend_BlankInputIsNoOp(t *testing.T) {
	server, calls := newChatServer(t, "unused")
	defer server.Close()

	c := New(server.URL + "/api/chat")
	for _, input := range []string{"", "   ", "\n\t"} {
		if err := c.Send(context.Background(), input); err != nil {
			t.Fatalf("blank send returned error: %v", err)
		}
	}

	if len(c.Transcript()) != 0 {
		t.Error("blank sends must not append messages")
	}
	if *calls != 0 {
		t.Errorf("blank sends must not hit the network, got %d calls", *calls)
	}
}

func TestSend_InFlightGuard(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(map[string]interface{}{"response": "done", "mode": "normal"})
	}))
	defer server.Close()

	c := New(server.URL + "/api/chat")

	firstDone := make(chan error, 1)
	go func() { firstDone <- c.Send(context.Background(), "first") }()

	// Wait for the first send to take the in-flight slot.
	for i := 0; i < 1000 && !c.Sending(); i++ {
		time.Sleep(time.Millisecond)
	}
	if !c.Sending() {
		t.Fatal("first send never started")
	}

	if err := c.Send(context.Background(), "second"); err != nil {
		t.Fatalf("guarded send returned error: %v", err)
	}
	if got := len(c.Transcript()); got != 1 {
		t.Errorf("guarded send appended messages: transcript has %d entries", got)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	if got := len(c.Transcript()); got != 2 {
		t.Errorf("expected 2 entries after first send completed, got %d", got)
	}
}

func TestSend_FailureAppendsFallbackAndSetsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "Rate limit exceeded",
			"code":  429,
		})
	}))
	defer server.Close()

	c := New(server.URL+"/api/chat", WithMode("roast"))
	err := c.Send(context.Background(), "Uber for cats")
	if err == nil {
		t.Fatal("expected an error from a 429")
	}
	if !strings.Contains(err.Error(), "Rate limit exceeded") {
		t.Errorf("error should surface the API message, got %v", err)
	}
	if c.LastError() == nil {
		t.Error("error should be recorded for diagnostic display")
	}

	transcript := c.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("failed turn should still append 2 entries, got %d", len(transcript))
	}
	if transcript[1].Role != "assistant" || transcript[1].Content != localFallbacks["roast"] {
		t.Errorf("second entry should be the roast fallback: %+v", transcript[1])
	}
	if c.Sending() {
		t.Error("loading flag must be cleared after a failure")
	}
}

func TestSend_NetworkFailureUsesModeFallback(t *testing.T) {
	// Point at a closed server.
	server, _ := newChatServer(t, "unused")
	endpoint := server.URL + "/api/chat"
	server.Close()

	c := New(endpoint) // default mode "normal"
	if err := c.Send(context.Background(), "hello"); err == nil {
		t.Fatal("expected a network error")
	}

	transcript := c.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(transcript))
	}
	if transcript[1].Content != defaultFallback {
		t.Errorf("normal mode should use the default fallback, got %q", transcript[1].Content)
	}
}

func TestSend_HistoryCarriesPriorTurns(t *testing.T) {
	var lastReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&lastReq)
		json.NewEncoder(w).Encode(map[string]interface{}{"response": "ok", "mode": lastReq.Mode})
	}))
	defer server.Close()

	c := New(server.URL + "/api/chat")
	c.Send(context.Background(), "first")
	c.Send(context.Background(), "second")

	if len(lastReq.History) != 2 {
		t.Fatalf("second send should carry 2 history turns, got %d", len(lastReq.History))
	}
	if lastReq.History[0].Role != "user" || lastReq.History[1].Role != "assistant" {
		t.Errorf("history roles out of order: %+v", lastReq.History)
	}
	if lastReq.Message != "second" {
		t.Errorf("new turn should not be in history, message is %q", lastReq.Message)
	}
}

func TestReset(t *testing.T) {
	server, _ := newChatServer(t, "reply")
	defer server.Close()

	c := New(server.URL + "/api/chat")
	c.Send(context.Background(), "hello")
	if len(c.Transcript()) == 0 {
		t.Fatal("expected transcript entries before reset")
	}

	c.Reset()

	if len(c.Transcript()) != 0 {
		t.Error("reset should discard the transcript")
	}
	if c.LastError() != nil {
		t.Error("reset should clear the recorded error")
	}
	if c.conversationID == "" {
		t.Error("reset should start a fresh conversation identifier")
	}
}

func TestSetMode(t *testing.T) {
	c := New("http://localhost/api/chat")
	if c.Mode() != "normal" {
		t.Errorf("default mode should be normal, got %q", c.Mode())
	}
	c.SetMode("stonks")
	if c.Mode() != "stonks" {
		t.Errorf("mode not switched, got %q", c.Mode())
	}
}
