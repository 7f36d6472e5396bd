package client

// Role values for ChatMsg.  These are the normalized roles; each
// provider package maps them to whatever its API expects.
const (
	RoleUser = "user"
	RoleAI   = "assistant"
)

// ChatClient defines the interface for chat operations.
// Implementations of ChatClient (such as the google, openai, and
// anthropic packages) must implement this method to generate a
// complete chat response.
type ChatClient interface {
	// CompleteChat sends the normalized message history to the
	// provider in a single round trip and returns the assistant's
	// reply text.  model is the provider's upstream model name.
	CompleteChat(model string, msgs []ChatMsg) (string, error)
}

// ChatMsg represents a single chat message.
type ChatMsg struct {
	Role    string
	Content string
}
