package anthropic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/parley-ai/parley/client"
)

// apiVersion is the fixed version header Anthropic requires on every
// request.
const apiVersion = "2023-06-01"

// Client encapsulates the API client for the Anthropic Messages API.
// It implements the ChatClient interface (as defined in the client
// package) for generating chat completions.
type Client struct {
	APIKey   string
	Endpoint string
}

// NewClient creates a new Anthropic chat client.
func NewClient(apiKey, endpoint string) *Client {
	return &Client{
		APIKey:   apiKey,
		Endpoint: endpoint,
	}
}

// Request defines the payload sent to the Messages API.
type Request struct {
	Model       string           `json:"model"`
	Messages    []client.ChatMsg `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
}

// Response defines the Messages API's response structure.
type Response struct {
	Content []ContentBlock `json:"content"`
	Error   *APIError      `json:"error,omitempty"`
}

// ContentBlock holds one block of generated output.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// APIError is the error object Anthropic returns in non-2xx bodies.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// CompleteChat sends a chat completion request to the Messages API and
// returns the generated text.  This method conforms to the ChatClient
// interface.  The normalized roles pass through unchanged.
func (c *Client) CompleteChat(model string, messages []client.ChatMsg) (string, error) {
	reqPayload := Request{
		Model:       model,
		Messages:    messages,
		MaxTokens:   2048,
		Temperature: 0.7,
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", c.Endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	httpClient := &http.Client{}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", &client.TransportError{Provider: "anthropic", Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &client.TransportError{Provider: "anthropic", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var response Response
		msg := fmt.Sprintf("Anthropic API returned status %d", resp.StatusCode)
		if err := json.Unmarshal(respBytes, &response); err == nil && response.Error != nil && response.Error.Message != "" {
			msg = response.Error.Message
		}
		return "", &client.ProviderError{Provider: "anthropic", Status: resp.StatusCode, Message: msg}
	}

	var response Response
	if err := json.Unmarshal(respBytes, &response); err != nil {
		return "", &client.MalformedResponseError{Provider: "anthropic", Detail: err.Error()}
	}

	if len(response.Content) == 0 {
		return "", &client.MalformedResponseError{Provider: "anthropic", Detail: "no content blocks in response"}
	}
	return response.Content[0].Text, nil
}
