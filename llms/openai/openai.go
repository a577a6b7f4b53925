// Package openai implements llms.Client on the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"math"

	"github.com/sashabaranov/go-openai"
	"github.com/smallnest/reviewgraph/llms"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.GPT4oMini

// Client is an llms.Client backed by go-openai.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
}

var _ llms.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*options)

type options struct {
	model       string
	baseURL     string
	temperature float32
	orgID       string
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *options) {
		if model != "" {
			o.model = model
		}
	}
}

// WithBaseURL points the client at an OpenAI compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithTemperature sets the sampling temperature (default 0).
func WithTemperature(t float32) Option {
	return func(o *options) { o.temperature = t }
}

// WithOrganization sets the OpenAI organization header.
func WithOrganization(org string) Option {
	return func(o *options) { o.orgID = org }
}

// New creates a client using apiKey.
func New(apiKey string, opts ...Option) *Client {
	o := &options{model: DefaultModel}
	for _, opt := range opts {
		opt(o)
	}

	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.orgID != "" {
		cfg.OrgID = o.orgID
	}

	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		model:       o.model,
		temperature: o.temperature,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Generate implements llms.Client.
func (c *Client) Generate(ctx context.Context, messages []llms.Message) (string, error) {
	return c.complete(ctx, c.request(messages))
}

// GenerateStructured implements llms.Client using the json_schema response format.
func (c *Client) GenerateStructured(ctx context.Context, messages []llms.Message, schema *llms.Schema) (string, error) {
	req := c.request(messages)
	if schema != nil && schema.Definition != nil {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        schema.Name,
				Description: schema.Description,
				Schema:      schema.Definition,
				Strict:      true,
			},
		}
	} else {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return c.complete(ctx, req)
}

func (c *Client) request(messages []llms.Message) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    roleOf(m.Role),
			Content: m.Content,
		})
	}

	// temperature is omitempty on the wire, so an exact zero would fall back to the server default of 1
	temperature := c.temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temperature,
	}
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", mapError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", llms.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func roleOf(r llms.Role) string {
	switch r {
	case llms.RoleSystem:
		return openai.ChatMessageRoleSystem
	case llms.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &llms.APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &llms.APIError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &llms.APIError{Message: err.Error(), Err: err}
}
