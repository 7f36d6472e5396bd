package core

import (
	"os"
	"sync"

	. "github.com/stevegt/goadapt"
	"github.com/tiktoken-go/tokenizer"
	"go.etcd.io/bbolt"

	"github.com/parley-ai/parley/client"
)

// version is the version of the parley db schema.
const version = "1.0.0"

// Message is one chat bubble.  Messages are append-only; IsError marks
// an assistant-role message that holds a failed turn's error text.
// Error messages are never included in the history sent to providers.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	IsError bool   `json:"isError,omitempty"`
}

// Chat is one conversation thread.  Titled records whether the title
// has been set explicitly (rename or title generation), as opposed to
// the default "Chat N" assigned at creation.
type Chat struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Titled   bool      `json:"titled,omitempty"`
	Messages []Message `json:"messages"`
}

// Parley is the entire persisted state of the client plus its runtime
// collaborators.  The exported fields are the JSON blob stored in the
// db; everything else is rebuilt by setup() after load.
type Parley struct {
	// Version is the db schema version.
	Version string `json:"version"`
	// Chats holds all sessions, newest first.
	Chats []*Chat `json:"chats"`
	// ActiveChatID, if set, references an existing chat in Chats.
	ActiveChatID string `json:"activeChatId,omitempty"`
	// APIKeys maps credential slot name to secret.
	APIKeys map[string]string `json:"apiKeys"`
	// APIKey is the legacy single-key field; migration folds it into
	// APIKeys and clears it.
	APIKey string `json:"apiKey,omitempty"`
	// Model is the selected model name.
	Model string `json:"model"`
	// Theme is the display theme, "light" or "dark".
	Theme string `json:"theme"`
	// Sending is true while one send is in flight.  It gates new
	// sends; there is never more than one outstanding request.
	Sending bool `json:"isSending"`

	models    *Models
	modelObj  *Model
	tokenizer tokenizer.Codec
	dbpath    string
	db        *bbolt.DB
	mu        sync.Mutex
	titles    sync.WaitGroup
	// newClient builds the provider client for a model; tests replace
	// it with a factory returning a mock.
	newClient func(m *Model, key string) client.ChatClient
}

// envSlots maps credential slot names to the environment variables
// that seed them when the stored slot is empty.
var envSlots = map[string]string{
	"geminiApiKey":    "GEMINI_API_KEY",
	"openaiApiKey":    "OPENAI_API_KEY",
	"anthropicApiKey": "ANTHROPIC_API_KEY",
}

// CodeVersion returns the version of the parley code.
func CodeVersion() string {
	return version
}

// DBVersion returns the version of the parley database.
func (g *Parley) DBVersion() string {
	return g.Version
}

// setup initializes the model registry, tokenizer, and provider client
// factory.  This function needs to be idempotent because it might be
// called multiple times during the lifetime of a Parley object.
func (g *Parley) setup(model string) (err error) {
	defer Return(&err)
	g.models = NewModels()
	model, m, err := g.models.FindModel(model)
	Ck(err)
	m.active = true
	g.Model = model
	g.modelObj = m
	if g.APIKeys == nil {
		g.APIKeys = make(map[string]string)
	}
	if g.Theme == "" {
		g.Theme = "light"
	}
	if g.tokenizer == nil {
		g.tokenizer, err = tokenizer.Get(tokenizer.Cl100kBase)
		Ck(err)
	}
	if g.newClient == nil {
		g.newClient = defaultClient
	}
	return
}

// GetModel returns the current model name and Model object.
func (g *Parley) GetModel() (model string, m *Model, err error) {
	defer Return(&err)
	model, m, err = g.models.FindModel(g.Model)
	Ck(err)
	return
}

// SetModel sets the chat completion model for subsequent sends.  It
// returns the previous model name and whether the new model's
// credential slot is still empty, so the view can prompt for a key.
// The prompt is a notification only; the switch always takes effect.
func (g *Parley) SetModel(model string) (oldModel string, needKey bool, err error) {
	defer Return(&err)
	model, m, err := g.models.FindModel(model)
	Ck(err)
	oldModel, old, err := g.GetModel()
	Ck(err)
	old.active = false
	m.active = true
	g.Model = model
	g.modelObj = m
	needKey = g.keyFor(m) == ""
	return
}

// SetKey stores a secret in the credential slot of the currently
// selected model's provider.
func (g *Parley) SetKey(secret string) (slot string, err error) {
	defer Return(&err)
	_, m, err := g.GetModel()
	Ck(err)
	slot = m.keySlot
	g.mu.Lock()
	g.APIKeys[slot] = secret
	g.mu.Unlock()
	return
}

// SetTheme switches the display theme.
func (g *Parley) SetTheme(theme string) {
	g.Theme = theme
}

// keyFor returns the secret for a model's credential slot, falling
// back to the provider's environment variable when the slot is empty.
func (g *Parley) keyFor(m *Model) string {
	g.mu.Lock()
	key := g.APIKeys[m.keySlot]
	g.mu.Unlock()
	if key == "" {
		key = os.Getenv(envSlots[m.keySlot])
	}
	return key
}

// HasKey reports whether the model's credential slot is configured,
// either in the stored state or the environment.
func (g *Parley) HasKey(m *Model) bool {
	return g.keyFor(m) != ""
}

// ListModels lists the available models.
func (g *Parley) ListModels() (models []*Model, err error) {
	defer Return(&err)
	models = g.models.ListModels()
	return
}

// TokenCount returns the number of tokens in a string.
func (g *Parley) TokenCount(text string) (count int, err error) {
	defer Return(&err)
	_, toks, err := g.tokenizer.Encode(text)
	Ck(err)
	count = len(toks)
	return
}
