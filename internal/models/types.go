package models

import (
	"time"
)

// Message is one entry in an upstream chat-completion message list.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatMessage is one turn of a transcript. Immutable once created.
type ChatMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"` // "user" or "assistant"
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message        string    `json:"message"`
	Mode           string    `json:"mode"`
	ConversationID string    `json:"conversation_id,omitempty"`
	History        []Message `json:"history,omitempty"`
	Format         string    `json:"format,omitempty"` // "text" (default) or "html"
}

// ChatResponse is the success envelope of POST /api/chat.
// TokensUsed is a rough estimate (rune count of the reply), not a tokenizer count.
type ChatResponse struct {
	Response       string `json:"response"`
	ResponseHTML   string `json:"response_html,omitempty"`
	Mode           string `json:"mode"`
	ConversationID string `json:"conversation_id,omitempty"`
	TokensUsed     int    `json:"tokens_used"`
}

// APIError is the error envelope shared by all non-2xx responses.
type APIError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}

// ModeInfo describes a selectable personality for the chat widget.
type ModeInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// SamplingParams are the per-mode generation parameters sent upstream.
type SamplingParams struct {
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"max_tokens"`
	TopP             float64 `json:"top_p"`
	PresencePenalty  float64 `json:"presence_penalty"`
	FrequencyPenalty float64 `json:"frequency_penalty"`
}

// CacheEntry represents a cached completion.
type CacheEntry struct {
	Question  string
	Answer    string
	Mode      string
	CreatedAt time.Time
}
