// Package gemini provides an LLM provider backed by the Google Gen AI SDK
// (google.golang.org/genai) talking to the Gemini Developer API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/MrWong99/prepwise/pkg/provider/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash-001"

// Provider implements llm.Provider using genai.Client.
type Provider struct {
	client *genai.Client
	model  string
}

type config struct {
	model   string
	baseURL string
}

// Option is a functional option for Provider.
type Option func(*config)

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// New creates a Gemini provider authenticated with apiKey.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: apiKey must not be empty")
	}
	cfg := config{model: DefaultModel}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.model == "" {
		cfg.model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{client: client, model: cfg.model}, nil
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	contents, gc := buildContents(req)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, gc)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: empty response")
	}

	out := &llm.CompletionResponse{Content: text}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

// Model implements llm.Provider.
func (p *Provider) Model() string { return p.model }

// buildContents maps a request onto genai contents. System messages are folded
// into the system instruction; assistant turns use the "model" role.
func buildContents(req llm.CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	gc := &genai.GenerateContentConfig{}
	system := req.SystemPrompt

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += m.Content
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.Temperature != 0 {
		gc.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}
	return contents, gc
}

var _ llm.Provider = (*Provider)(nil)
