package interview

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/prepwise/pkg/provider/llm"
)

// TextGenerator produces raw model output for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to [TextGenerator].
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// LLMGenerator is a [TextGenerator] backed by an [llm.Provider].
type LLMGenerator struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
}

// LLMOption configures an [LLMGenerator].
type LLMOption func(*LLMGenerator)

// WithTemperature sets the sampling temperature. Zero keeps the backend
// default.
func WithTemperature(t float64) LLMOption {
	return func(g *LLMGenerator) { g.temperature = t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) LLMOption {
	return func(g *LLMGenerator) { g.maxTokens = n }
}

// NewLLMGenerator wraps p.
func NewLLMGenerator(p llm.Provider, opts ...LLMOption) *LLMGenerator {
	g := &LLMGenerator{provider: p}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate sends prompt as a single user message.
func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := llm.UserPrompt(prompt)
	req.Temperature = g.temperature
	req.MaxTokens = g.maxTokens

	resp, err := g.provider.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", g.provider.Model(), err)
	}
	if resp == nil {
		return "", errors.New("model " + g.provider.Model() + " returned no response")
	}
	return resp.Content, nil
}
