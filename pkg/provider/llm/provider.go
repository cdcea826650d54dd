// Package llm defines the Provider interface for Large Language Model backends.
//
// A provider wraps a remote or local model API (OpenAI, Gemini, Anthropic, a
// local Ollama instance, ...) and exposes a single blocking completion call.
// Interview question generation only ever needs the full response text, so no
// streaming surface is offered.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry of the conversation sent to the model.
type Message struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting information returned by the backend. Counts are
// in the model's native token unit.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The last message is typically
	// from the user role and drives the response.
	Messages []Message

	// SystemPrompt is an optional instruction injected before Messages.
	// Providers without a dedicated system field prepend it as a system message.
	SystemPrompt string

	// Temperature controls randomness. Zero means provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage contains token accounting for this request.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
//
// Complete must propagate context cancellation promptly.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Model returns the model identifier requests are sent to.
	Model() string
}

// UserPrompt is a convenience that builds a single-message request.
func UserPrompt(prompt string) CompletionRequest {
	return CompletionRequest{Messages: []Message{{Role: RoleUser, Content: prompt}}}
}
