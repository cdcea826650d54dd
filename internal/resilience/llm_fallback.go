package resilience

import (
	"context"

	"github.com/MrWong99/prepwise/pkg/provider/llm"
)

// LLMFallback is an [llm.Provider] that fails over across several backends.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] that prefers primary.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another backend behind the ones already added.
func (f *LLMFallback) AddFallback(name string, p llm.Provider) {
	f.group.AddFallback(name, p)
}

// Complete sends req to the first healthy backend.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(ctx, f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// Model reports the primary backend's model.
func (f *LLMFallback) Model() string {
	return f.group.entries[0].value.Model()
}

// Available reports whether any backend currently accepts calls.
func (f *LLMFallback) Available() bool {
	return f.group.Available()
}

// Status returns the breaker state per backend.
func (f *LLMFallback) Status() []EntryStatus {
	return f.group.Status()
}
