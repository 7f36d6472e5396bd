package core

import (
	"strings"
	"testing"

	. "github.com/stevegt/goadapt"

	"github.com/parley-ai/parley/client"
	"github.com/parley-ai/parley/mock"
)

// mockClients wires a mock provider into the state object's client
// factory and returns it.
func mockClients(g *Parley) *mock.Client {
	mc := mock.NewClient()
	g.newClient = func(m *Model, key string) client.ChatClient { return mc }
	return mc
}

// clearKeyEnv keeps ambient provider keys from leaking into tests.
func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, env := range envSlots {
		t.Setenv(env, "")
	}
}

func TestSendMissingKey(t *testing.T) {
	g := mkParley(t)
	clearKeyEnv(t)
	mc := mockClients(g)

	_, _, err := g.SetModel("gpt-4")
	Tassert(t, err == nil, "SetModel: %v", err)

	reply, ok := g.SendMessage("hello world")
	Tassert(t, ok, "send was rejected")
	Tassert(t, reply.IsError, "expected error-flagged reply, got %q", reply.Content)
	Tassert(t, strings.Contains(reply.Content, "no API key"), "unexpected error text: %q", reply.Content)
	// no network traffic for an unconfigured provider
	Tassert(t, mc.Calls == 0, "network call issued without a key: %d", mc.Calls)

	chat := g.ActiveChat()
	Tassert(t, len(chat.Messages) == 2, "expected 2 messages, got %d", len(chat.Messages))
	Tassert(t, chat.Messages[1].IsError, "reply not error-flagged in chat")
}

func TestSendValidation(t *testing.T) {
	g := mkParley(t)
	clearKeyEnv(t)
	mc := mockClients(g)
	g.APIKeys["geminiApiKey"] = "g-key"
	chat := g.ActiveChat()

	// blank input is a no-op
	_, ok := g.SendMessage("   ")
	Tassert(t, !ok, "blank send was accepted")
	Tassert(t, len(chat.Messages) == 0, "blank send appended a message")

	// a send in flight gates new sends
	g.Sending = true
	_, ok = g.SendMessage("hello")
	Tassert(t, !ok, "send accepted while one is in flight")
	Tassert(t, len(chat.Messages) == 0, "gated send appended a message")
	Tassert(t, mc.Calls == 0, "gated send hit the network")
	g.Sending = false
}

func TestSendSuccess(t *testing.T) {
	g := mkParley(t)
	clearKeyEnv(t)
	mc := mockClients(g)
	g.APIKeys["geminiApiKey"] = "g-key"
	mc.SetResponse("gemini-1.5-flash", "hello back")
	// pre-title the chat so no detached title task races the
	// assertions below
	g.RenameChat(g.ActiveChatID, "Named")

	reply, ok := g.SendMessage("hi there")
	Tassert(t, ok, "send was rejected")
	Tassert(t, !reply.IsError, "unexpected error reply: %q", reply.Content)
	Tassert(t, reply.Content == "hello back", "unexpected reply: %q", reply.Content)
	Tassert(t, !g.Sending, "Sending not reset after success")

	chat := g.ActiveChat()
	Tassert(t, len(chat.Messages) == 2, "expected 2 messages, got %d", len(chat.Messages))
	Tassert(t, chat.Messages[0].Role == client.RoleUser, "message 0 role: %q", chat.Messages[0].Role)
	Tassert(t, chat.Messages[1].Role == client.RoleAI, "message 1 role: %q", chat.Messages[1].Role)

	// the adapter saw the new text as the final user turn
	last := mc.LastMsgs[len(mc.LastMsgs)-1]
	Tassert(t, last.Role == client.RoleUser && last.Content == "hi there", "last turn: %+v", last)
}

func TestSendProviderError(t *testing.T) {
	g := mkParley(t)
	clearKeyEnv(t)
	mc := mockClients(g)
	g.APIKeys["openaiApiKey"] = "sk-test"
	_, _, err := g.SetModel("gpt-4")
	Tassert(t, err == nil, "SetModel: %v", err)
	mc.SetError("gpt-4", &client.ProviderError{Provider: "openai", Status: 401, Message: "invalid_api_key"})

	reply, ok := g.SendMessage("hello")
	Tassert(t, ok, "send was rejected")
	Tassert(t, reply.IsError, "reply not error-flagged")
	// the provider's message verbatim, nothing else
	Tassert(t, reply.Content == "invalid_api_key", "unexpected error text: %q", reply.Content)
	Tassert(t, !g.Sending, "Sending not reset after failure")

	chat := g.ActiveChat()
	Tassert(t, len(chat.Messages) == 2, "expected 2 messages, got %d", len(chat.Messages))

	// the failed turn is visible but never becomes provider context
	delete(mc.Errs, "gpt-4")
	mc.SetResponse("gpt-4", "ok now")
	_, ok = g.SendMessage("try again")
	Tassert(t, ok, "second send was rejected")
	for _, m := range mc.LastMsgs {
		Tassert(t, m.Content != "invalid_api_key", "error message leaked into history")
		Tassert(t, m.Role == client.RoleUser, "unexpected role in history: %q", m.Role)
	}
	Tassert(t, len(mc.LastMsgs) == 2, "expected 2 history turns, got %d", len(mc.LastMsgs))
}

func TestTitleGenerated(t *testing.T) {
	g := mkParley(t)
	clearKeyEnv(t)
	mc := mockClients(g)
	g.APIKeys["geminiApiKey"] = "g-key"
	mc.SetResponse("gemini-1.5-flash", "A Fine Greeting")

	_, ok := g.SendMessage("hello there friend of mine today")
	Tassert(t, ok, "send was rejected")
	g.WaitTitles()

	chat := g.ActiveChat()
	Tassert(t, chat.Titled, "title not set after first exchange")
	Tassert(t, chat.Title == "A Fine Greeting", "title: %q", chat.Title)
	// one chat call plus exactly one title attempt
	Tassert(t, mc.Calls == 2, "expected 2 calls, got %d", mc.Calls)

	// later turns never retry the title
	_, ok = g.SendMessage("second turn")
	Tassert(t, ok, "second send was rejected")
	g.WaitTitles()
	Tassert(t, mc.Calls == 3, "title regenerated: %d calls", mc.Calls)
	Tassert(t, chat.Title == "A Fine Greeting", "title changed: %q", chat.Title)
}

func TestTitleFallback(t *testing.T) {
	g := mkParley(t)
	clearKeyEnv(t)
	mc := mockClients(g)
	// chat model credentialed, title path (google) is not, so the
	// title attempt fails without a network call
	g.APIKeys["openaiApiKey"] = "sk-test"
	_, _, err := g.SetModel("gpt-4")
	Tassert(t, err == nil, "SetModel: %v", err)
	mc.SetResponse("gpt-4", "doing fine")

	_, ok := g.SendMessage("how are you today my dear friend")
	Tassert(t, ok, "send was rejected")
	g.WaitTitles()

	chat := g.ActiveChat()
	Tassert(t, chat.Titled, "fallback title not set")
	// first five words of the user's message
	Tassert(t, chat.Title == "how are you today my", "fallback title: %q", chat.Title)
	Tassert(t, mc.Calls == 1, "expected 1 call, got %d", mc.Calls)
}

func TestTitleUsesDefaultProvider(t *testing.T) {
	g := mkParley(t)
	clearKeyEnv(t)
	mc := mockClients(g)
	g.APIKeys["openaiApiKey"] = "sk-test"
	g.APIKeys["geminiApiKey"] = "g-key"
	_, _, err := g.SetModel("gpt-4")
	Tassert(t, err == nil, "SetModel: %v", err)
	mc.SetResponse("gpt-4", "fine")
	mc.SetResponse("gemini-1.5-flash", "Checking In")

	_, ok := g.SendMessage("how are you")
	Tassert(t, ok, "send was rejected")
	g.WaitTitles()

	// title generation went to the google path even though the chat
	// ran on gpt-4
	Tassert(t, mc.LastModel == "gemini-1.5-flash", "title model: %q", mc.LastModel)
	Tassert(t, g.ActiveChat().Title == "Checking In", "title: %q", g.ActiveChat().Title)
}

// hookClient runs a callback inside the provider round trip, letting
// tests mutate state mid-flight.
type hookClient struct {
	fn  func()
	out string
}

func (c *hookClient) CompleteChat(model string, msgs []client.ChatMsg) (string, error) {
	if c.fn != nil {
		c.fn()
	}
	return c.out, nil
}

func TestSendBoundToChat(t *testing.T) {
	g := mkParley(t)
	clearKeyEnv(t)
	g.APIKeys["geminiApiKey"] = "g-key"
	orig := g.ActiveChat()
	// pre-title the chat so no detached title task re-runs the hook
	g.RenameChat(orig.ID, "Pinned")

	// the user switches chats while the request is in flight; the
	// reply lands in the chat captured at send time
	hc := &hookClient{out: "late reply"}
	hc.fn = func() { g.NewChat() }
	g.newClient = func(m *Model, key string) client.ChatClient { return hc }

	reply, ok := g.SendMessage("hello")
	Tassert(t, ok, "send was rejected")
	Tassert(t, reply.Content == "late reply", "reply: %q", reply.Content)
	Tassert(t, g.ActiveChatID != orig.ID, "active chat did not change")
	Tassert(t, len(orig.Messages) == 2, "reply not applied to original chat: %d messages", len(orig.Messages))
	Tassert(t, len(g.ActiveChat().Messages) == 0, "reply leaked into new active chat")
	g.WaitTitles()
}

func TestSendChatDeletedMidFlight(t *testing.T) {
	g := mkParley(t)
	clearKeyEnv(t)
	g.APIKeys["geminiApiKey"] = "g-key"
	orig := g.ActiveChat()

	hc := &hookClient{out: "late reply"}
	hc.fn = func() { g.DeleteChat(orig.ID) }
	g.newClient = func(m *Model, key string) client.ChatClient { return hc }

	_, ok := g.SendMessage("hello")
	Tassert(t, ok, "send was rejected")
	// the reply has nowhere to land and is dropped
	Tassert(t, g.FindChat(orig.ID) == nil, "chat not deleted")
	Tassert(t, len(g.ActiveChat().Messages) == 0, "reply leaked into replacement chat")
	Tassert(t, !g.Sending, "Sending not reset")
}

func TestFitContext(t *testing.T) {
	g := mkParley(t)
	_, m, err := g.models.FindModel("gpt-3.5-turbo")
	Tassert(t, err == nil, "FindModel: %v", err)

	big := strings.Repeat("lorem ipsum dolor sit amet ", 400)
	msgs := []client.ChatMsg{
		{Role: client.RoleUser, Content: big},
		{Role: client.RoleAI, Content: big},
		{Role: client.RoleUser, Content: "the question"},
	}
	out, err := g.fitContext(m, msgs)
	Tassert(t, err == nil, "fitContext: %v", err)
	// oldest turns drop, the newest survives
	Tassert(t, len(out) < len(msgs), "nothing trimmed: %d", len(out))
	Tassert(t, out[len(out)-1].Content == "the question", "newest message lost")

	small := []client.ChatMsg{{Role: client.RoleUser, Content: "hi"}}
	out, err = g.fitContext(m, small)
	Tassert(t, err == nil, "fitContext: %v", err)
	Tassert(t, len(out) == 1, "small history trimmed")
}
