package mock

import (
	"github.com/parley-ai/parley/client"
)

// Client is a mock LLM provider for testing.
// It implements the ChatClient interface and returns pre-configured
// responses or errors based on the model name.  It also records every
// call so tests can assert on network traffic that did (or did not)
// happen.
type Client struct {
	Responses map[string]string // model name -> response
	Errs      map[string]error  // model name -> error
	Calls     int
	LastModel string
	LastMsgs  []client.ChatMsg
}

// NewClient creates a new mock client.
func NewClient() *Client {
	return &Client{
		Responses: make(map[string]string),
		Errs:      make(map[string]error),
	}
}

// SetResponse sets the response for a given model name.
func (c *Client) SetResponse(model, response string) {
	c.Responses[model] = response
}

// SetError sets the error for a given model name.
func (c *Client) SetError(model string, err error) {
	c.Errs[model] = err
}

// CompleteChat returns a pre-configured response or error based on the
// model name.  If nothing has been configured for the given model, it
// returns a default response.  This method implements the ChatClient
// interface.
func (c *Client) CompleteChat(model string, msgs []client.ChatMsg) (string, error) {
	c.Calls++
	c.LastModel = model
	c.LastMsgs = msgs
	if err, ok := c.Errs[model]; ok {
		return "", err
	}
	response, ok := c.Responses[model]
	if !ok {
		response = "default mock response"
	}
	return response, nil
}
