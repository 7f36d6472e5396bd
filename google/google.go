package google

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/parley-ai/parley/client"
)

// Client encapsulates the API client for the Google Gemini API.  It
// implements the ChatClient interface (as defined in the client
// package) for generating chat completions.
type Client struct {
	APIKey   string
	Endpoint string
}

// NewClient creates a new Gemini chat client for the given key and
// generateContent endpoint.  The model is part of the endpoint path,
// so the model argument to CompleteChat is ignored.
func NewClient(apiKey, endpoint string) *Client {
	return &Client{
		APIKey:   apiKey,
		Endpoint: endpoint,
	}
}

// Request defines the payload sent to the Gemini API.
type Request struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// Content is one conversation turn.  Gemini wants the assistant role
// spelled "model", and each turn carries its text in a parts list.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part holds the text of a turn.
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig holds the sampling parameters.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// Response defines the Gemini API's response structure.
type Response struct {
	Candidates []Candidate `json:"candidates"`
	Error      *APIError   `json:"error,omitempty"`
}

// Candidate holds one generated reply.
type Candidate struct {
	Content *Content `json:"content"`
}

// APIError is the error object Gemini returns in non-2xx bodies.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CompleteChat sends a chat completion request to the Gemini API and
// returns the generated text.  This method conforms to the ChatClient
// interface.  The key travels as a URL query parameter, not a header.
func (c *Client) CompleteChat(model string, messages []client.ChatMsg) (string, error) {
	_ = model // baked into the endpoint path

	reqPayload := Request{
		GenerationConfig: GenerationConfig{
			Temperature:     0.7,
			TopK:            1,
			TopP:            1,
			MaxOutputTokens: 2048,
		},
	}

	// Convert normalized messages to Gemini turns.  Gemini uses
	// "model" where everyone else says "assistant".
	for _, m := range messages {
		role := m.Role
		if role == client.RoleAI {
			role = "model"
		}
		reqPayload.Contents = append(reqPayload.Contents, Content{
			Role:  role,
			Parts: []Part{{Text: m.Content}},
		})
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", err
	}

	endpoint := c.Endpoint + "?key=" + url.QueryEscape(c.APIKey)
	req, err := http.NewRequest("POST", endpoint, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", &client.TransportError{Provider: "google", Err: err}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &client.TransportError{Provider: "google", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		// surface the provider's own message verbatim if the body
		// parses, otherwise fall back to a generic message
		var response Response
		msg := fmt.Sprintf("Gemini API returned status %d", resp.StatusCode)
		if err := json.Unmarshal(respBytes, &response); err == nil && response.Error != nil && response.Error.Message != "" {
			msg = response.Error.Message
		}
		return "", &client.ProviderError{Provider: "google", Status: resp.StatusCode, Message: msg}
	}

	var response Response
	if err := json.Unmarshal(respBytes, &response); err != nil {
		return "", &client.MalformedResponseError{Provider: "google", Detail: err.Error()}
	}

	// the documented shape is candidates[0].content.parts[0].text --
	// plural parts; anything missing on that path is a malformed
	// response, not a fault
	if len(response.Candidates) == 0 {
		return "", &client.MalformedResponseError{Provider: "google", Detail: "no candidates in response"}
	}
	content := response.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", &client.MalformedResponseError{Provider: "google", Detail: "candidate has no content parts"}
	}
	return content.Parts[0].Text, nil
}
