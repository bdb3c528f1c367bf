package providers

import (
	"context"
)

// Provider is the completion-service boundary. A provider accepts a prompt
// plus optional attached documents or images scoped to one session and
// returns a response, either whole or as an incremental chunk sequence.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete performs a non-streaming completion
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// StreamComplete performs a streaming completion. The returned channel
	// is a lazy, finite, non-restartable sequence of text fragments.
	StreamComplete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// ValidateConfig validates the provider configuration
	ValidateConfig() error
}

// CompletionRequest represents one completion call.
type CompletionRequest struct {
	Messages    []Message    `json:"messages"`
	Model       string       `json:"model"`
	Temperature *float32     `json:"temperature,omitempty"`
	MaxTokens   *int         `json:"max_tokens,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// UserID and SessionID scope the call for provider-side bookkeeping.
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AttachmentKind distinguishes visual inputs from documents.
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
)

// Attachment is one file handed to the completion service alongside the prompt.
type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	Name     string         `json:"name"`
	MimeType string         `json:"mime_type"`
	Data     []byte         `json:"-"`
}

// CompletionResponse represents a non-streaming response
type CompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk represents a chunk in a streaming response
type StreamChunk struct {
	ID           string `json:"id,omitempty"`
	Model        string `json:"model,omitempty"`
	Delta        string `json:"delta,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Error        string `json:"error,omitempty"`
}
