package ai

import (
	"context"
	"fmt"
	"strings"
)

const (
	RoleUser  = "user"
	RoleModel = "model"

	TaskTypeQuery    = "RETRIEVAL_QUERY"
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
)

type Message struct {
	Role string
	Text string
}

// ChatRequest describes one completion call: system instructions (the
// grounding document rides in as an extra system entry), the prior turns of
// the conversation in chronological order, and the new user prompt.
type ChatRequest struct {
	System      []string
	History     []Message
	Prompt      string
	Temperature float32
}

type IProvider interface {
	Name() string
	Chat(ctx context.Context, model string, req *ChatRequest) (string, error)
	Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error)
}

type IChatter interface {
	Chat(ctx context.Context, req *ChatRequest) (string, error)
}

type IGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

type chatter struct {
	provider IProvider
	model    string
}

func NewChatter(p IProvider, model string) IChatter {
	return &chatter{provider: p, model: model}
}

func (c *chatter) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	return c.provider.Chat(ctx, c.model, req)
}

type generator struct {
	provider IProvider
	model    string
}

func NewGenerator(p IProvider, model string) IGenerator {
	return &generator{provider: p, model: model}
}

func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.provider.Chat(ctx, g.model, &ChatRequest{Prompt: prompt})
}

type embedder struct {
	provider IProvider
	model    string
}

func NewEmbedder(p IProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return e.provider.Embed(ctx, e.model, text, taskType)
}

func (e *embedder) ModelName() string {
	return e.model
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}
