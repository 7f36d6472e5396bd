package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	oai "github.com/sashabaranov/go-openai"

	"github.com/parley-ai/parley/client"
)

// Client encapsulates the API client for the OpenAI chat completions
// API, using github.com/sashabaranov/go-openai for the wire protocol.
// It implements the ChatClient interface (as defined in the client
// package).
type Client struct {
	APIKey  string
	BaseURL string
}

// NewClient creates a new OpenAI chat client.  endpoint is the chat
// completions URL; the library wants the /v1 base, so we trim the
// method path off.
func NewClient(apiKey, endpoint string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: strings.TrimSuffix(endpoint, "/chat/completions"),
	}
}

// CompleteChat sends a chat completion request to the OpenAI API and
// returns the generated text.  This method conforms to the ChatClient
// interface.  The normalized roles pass through unchanged.
func (c *Client) CompleteChat(model string, messages []client.ChatMsg) (string, error) {
	cfg := oai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	cc := oai.NewClientWithConfig(cfg)

	omsgs := make([]oai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := oai.ChatMessageRoleUser
		if m.Role == client.RoleAI {
			role = oai.ChatMessageRoleAssistant
		}
		omsgs = append(omsgs, oai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	resp, err := cc.CreateChatCompletion(
		context.Background(),
		oai.ChatCompletionRequest{
			Model:       model,
			Messages:    omsgs,
			Temperature: 0.7,
			MaxTokens:   2048,
		},
	)
	if err != nil {
		return "", normalizeErr(err)
	}

	if len(resp.Choices) == 0 {
		return "", &client.MalformedResponseError{Provider: "openai", Detail: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

// normalizeErr maps the library's error types onto the normalized
// kinds.  An APIError carries the provider's own message, which we
// surface verbatim; anything without an HTTP status is a transport
// failure.
func normalizeErr(err error) error {
	var apiErr *oai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("OpenAI API returned status %d", apiErr.HTTPStatusCode)
		}
		return &client.ProviderError{Provider: "openai", Status: apiErr.HTTPStatusCode, Message: msg}
	}
	var reqErr *oai.RequestError
	if errors.As(err, &reqErr) {
		return &client.ProviderError{
			Provider: "openai",
			Status:   reqErr.HTTPStatusCode,
			Message:  fmt.Sprintf("OpenAI API returned status %d", reqErr.HTTPStatusCode),
		}
	}
	return &client.TransportError{Provider: "openai", Err: err}
}
