// Package chatclient implements the chat widget's send/receive state
// machine as a Go client: it owns the transcript, guards against blank
// and overlapping sends, and keeps the conversation moving with a local
// fallback reply when the API is unreachable.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one turn of the transcript.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"` // "user" or "assistant"
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

type chatRequest struct {
	Message        string        `json:"message"`
	Mode           string        `json:"mode"`
	ConversationID string        `json:"conversation_id,omitempty"`
	History        []historyTurn `json:"history,omitempty"`
}

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Response       string `json:"response"`
	Mode           string `json:"mode"`
	ConversationID string `json:"conversation_id"`
	TokensUsed     int    `json:"tokens_used"`
}

type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Code    int    `json:"code"`
}

// localFallbacks are the replies appended when a send fails, so the
// transcript always advances even when the backend is down.
var localFallbacks = map[string]string{
	"roast": "I'd roast your idea, but our servers are already on fire. " +
		"Try again when we've disrupted our infrastructure issues.",
	"stonks": "Error 404: Profitability not found. Our calculation engine is " +
		"currently calculating how to calculate calculations.",
	"calculator": "Error 404: Profitability not found. Our calculation engine is " +
		"currently calculating how to calculate calculations.",
}

const defaultFallback = "Our AI is experiencing a paradigm shift. Please stand by " +
	"while we pivot our neural networks to a more synergistic approach."

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for sends.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMode sets the initial personality mode.
func WithMode(mode string) Option {
	return func(c *Client) { c.mode = mode }
}

// Client is a session-scoped chat controller. One send may be in flight
// at a time; the transcript lives only in memory and is discarded by Reset.
type Client struct {
	endpoint       string
	httpClient     *http.Client
	conversationID string

	mu       sync.Mutex
	mode     string
	messages []Message
	sending  bool
	lastErr  error
}

// New creates a chat client for the given /api/chat endpoint URL.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:       endpoint,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		conversationID: fmt.Sprintf("chat-%d", time.Now().UnixMilli()),
		mode:           "normal",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send submits one user turn. Blank input or a send already in flight is
// a silent no-op: no message is appended and no request is made.
//
// On success the assistant reply is appended after the user's message. On
// failure the error is recorded (see LastError) and returned, and a
// mode-flavored fallback reply is appended instead, so the transcript
// never stalls silently. The in-flight guard is always released.
func (c *Client) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if text == "" || c.sending {
		c.mu.Unlock()
		return nil
	}

	mode := c.mode
	history := make([]historyTurn, 0, len(c.messages))
	for _, m := range c.messages {
		history = append(history, historyTurn{Role: m.Role, Content: m.Content})
	}

	c.messages = append(c.messages, Message{
		ID:        uuid.NewString(),
		Content:   text,
		Role:      "user",
		Mode:      mode,
		Timestamp: time.Now(),
	})
	c.sending = true
	c.lastErr = nil
	c.mu.Unlock()

	reply, err := c.post(ctx, chatRequest{
		Message:        text,
		Mode:           mode,
		ConversationID: c.conversationID,
		History:        history,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false

	if err != nil {
		c.lastErr = err
		reply = fallbackFor(mode)
	}

	c.messages = append(c.messages, Message{
		ID:        uuid.NewString(),
		Content:   reply,
		Role:      "assistant",
		Mode:      mode,
		Timestamp: time.Now(),
	})

	return err
}

func (c *Client) post(ctx context.Context, body chatRequest) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	return result.Response, nil
}

// SetMode switches the personality used for subsequent sends.
func (c *Client) SetMode(mode string) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}

// Mode returns the active personality mode.
func (c *Client) Mode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Transcript returns a copy of the message list in creation order.
func (c *Client) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Sending reports whether a send is in flight.
func (c *Client) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// LastError returns the error from the most recent send, or nil. It is
// cleared at the start of each send.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Reset discards the transcript and any recorded error, and starts a new
// conversation identifier.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.lastErr = nil
	c.conversationID = fmt.Sprintf("chat-%d", time.Now().UnixMilli())
}

func fallbackFor(mode string) string {
	if msg, ok := localFallbacks[mode]; ok {
		return msg
	}
	return defaultFallback
}
