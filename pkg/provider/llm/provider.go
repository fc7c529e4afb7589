// Package llm defines the Provider interface for the language-model backends
// used by the content evaluator.
//
// A provider wraps a remote or local model API (OpenAI, Gemini, a local
// Ollama instance) behind a single blocking Complete call. The evaluator
// sends one short grading prompt per attempt and never needs tool calling or
// incremental output.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
package llm

import "context"

// Message is a single message in a conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting returned by the backend. Counts are in the
// model's native token unit.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a
// response. Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last message drives the
	// response.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation. Providers without a dedicated system field prepend
	// it as a "system"-role message.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. Zero requests
	// the provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the full model reply.
type CompletionResponse struct {
	// Content is the text of the reply.
	Content string

	// FinishReason reports why generation stopped. "stop" is a natural end;
	// "length" means MaxTokens was reached and Content is likely truncated.
	FinishReason string

	// Usage contains token accounting for this request.
	Usage Usage
}

// Provider is the abstraction over any language-model backend.
type Provider interface {
	// Complete sends req and waits for the full response. Returns an error
	// if the request fails or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
