// Package langchain adapts a langchaingo llms.Model to llms.Client.
package langchain

import (
	"context"
	"errors"
	"fmt"

	lc "github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/reviewgraph/llms"
)

// Client wraps a langchaingo model.
type Client struct {
	model       lc.Model
	temperature float64
}

var _ llms.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTemperature sets the sampling temperature (default 0).
func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

// New wraps model.
func New(model lc.Model, opts ...Option) *Client {
	c := &Client{model: model}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewOpenAI builds a langchaingo OpenAI model and wraps it.
func NewOpenAI(apiKey, model, baseURL string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	lcOpts := []lcopenai.Option{lcopenai.WithToken(apiKey)}
	if model != "" {
		lcOpts = append(lcOpts, lcopenai.WithModel(model))
	}
	if baseURL != "" {
		lcOpts = append(lcOpts, lcopenai.WithBaseURL(baseURL))
	}
	m, err := lcopenai.New(lcOpts...)
	if err != nil {
		return nil, fmt.Errorf("create langchaingo openai model: %w", err)
	}
	return New(m, opts...), nil
}

// Generate implements llms.Client.
func (c *Client) Generate(ctx context.Context, messages []llms.Message) (string, error) {
	return c.generate(ctx, toContent(messages), lc.WithTemperature(c.temperature))
}

// GenerateStructured implements llms.Client. The schema is appended to the
// system instructions and the model is put in JSON mode.
func (c *Client) GenerateStructured(ctx context.Context, messages []llms.Message, schema *llms.Schema) (string, error) {
	content := toContent(messages)
	instruction := "Respond only with a JSON object that conforms to this JSON schema:\n" + schema.JSON()
	content = append([]lc.MessageContent{lc.TextParts(lc.ChatMessageTypeSystem, instruction)}, content...)

	return c.generate(ctx, content, lc.WithTemperature(c.temperature), lc.WithJSONMode())
}

func (c *Client) generate(ctx context.Context, content []lc.MessageContent, opts ...lc.CallOption) (string, error) {
	resp, err := c.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", &llms.APIError{Message: err.Error(), Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", llms.ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}

func toContent(messages []llms.Message) []lc.MessageContent {
	out := make([]lc.MessageContent, 0, len(messages))
	for _, m := range messages {
		out = append(out, lc.TextParts(messageType(m.Role), m.Content))
	}
	return out
}

func messageType(r llms.Role) lc.ChatMessageType {
	switch r {
	case llms.RoleSystem:
		return lc.ChatMessageTypeSystem
	case llms.RoleAssistant:
		return lc.ChatMessageTypeAI
	default:
		return lc.ChatMessageTypeHuman
	}
}
