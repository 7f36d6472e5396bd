package core

import (
	"fmt"
	"sort"

	"github.com/parley-ai/parley/client"
)

var DefaultModel = "gemini-pro"

// Model is a type for model name and characteristics
type Model struct {
	Name         string
	DisplayName  string
	TokenLimit   int
	providerName string
	upstreamName string
	endpoint     string
	keySlot      string
	keyURL       string
	active       bool
}

func (m *Model) String() string {
	status := ""
	if m.active {
		status = "*"
	}
	return fmt.Sprintf("%1s %-25s %-10s %-15s tokens: %d", status, m.Name, m.providerName, m.DisplayName, m.TokenLimit)
}

// Provider returns the provider name for the model.
func (m *Model) Provider() string {
	return m.providerName
}

// KeySlot returns the name of the credential slot the model's provider
// reads its key from.  Models of one provider share a slot.
func (m *Model) KeySlot() string {
	return m.keySlot
}

// KeyURL returns the URL where the user can obtain an API key for the
// model's provider.
func (m *Model) KeyURL() string {
	return m.keyURL
}

// Models is a type that manages the set of available models.
type Models struct {
	// The list of available models.
	Available map[string]*Model
}

// NewModels creates a new Models object.
func NewModels() (models *Models) {
	models = &Models{}
	models.Available = make(map[string]*Model)
	add := func(name, displayName string, tokenLimit int, providerName, upstreamName, endpoint, keySlot, keyURL string) {
		m := &Model{
			Name:         name,
			DisplayName:  displayName,
			TokenLimit:   tokenLimit,
			providerName: providerName,
			upstreamName: upstreamName,
			endpoint:     endpoint,
			keySlot:      keySlot,
			keyURL:       keyURL,
		}
		models.Available[name] = m
	}

	add("gemini-pro", "Gemini Pro", 30720, "google", "gemini-1.5-flash",
		"https://generativelanguage.googleapis.com/v1/models/gemini-1.5-flash:generateContent",
		"geminiApiKey", "https://makersuite.google.com/app/apikey")
	add("gpt-3.5-turbo", "GPT-3.5 Turbo", 4096, "openai", "gpt-3.5-turbo",
		"https://api.openai.com/v1/chat/completions",
		"openaiApiKey", "https://platform.openai.com/account/api-keys")
	add("gpt-4", "GPT-4", 8192, "openai", "gpt-4",
		"https://api.openai.com/v1/chat/completions",
		"openaiApiKey", "https://platform.openai.com/account/api-keys")
	add("claude-2.1", "Claude 2.1", 100000, "anthropic", "claude-2.1",
		"https://api.anthropic.com/v1/messages",
		"anthropicApiKey", "https://console.anthropic.com/settings/keys")
	add("claude-3-opus-20240229", "Claude 3 Opus", 200000, "anthropic", "claude-3-opus-20240229",
		"https://api.anthropic.com/v1/messages",
		"anthropicApiKey", "https://console.anthropic.com/settings/keys")

	return
}

// FindModel returns the model name and object given a model name.
// if the given model name is empty, then use DefaultModel.
func (models *Models) FindModel(model string) (name string, m *Model, err error) {
	if model == "" {
		model = DefaultModel
	}
	m, ok := models.Available[model]
	if !ok {
		err = &client.UnknownModelError{Model: model}
		return
	}
	name = model
	return
}

// ListModels returns a list of available models sorted by provider
// name and model name.
func (models *Models) ListModels() (list []*Model) {
	for _, m := range models.Available {
		list = append(list, m)
	}
	// sort by provider name and model name
	sort.Slice(list, func(i, j int) bool {
		if list[i].providerName == list[j].providerName {
			return list[i].Name < list[j].Name
		}
		return list[i].providerName < list[j].providerName
	})
	return
}
