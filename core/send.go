package core

import (
	"strings"

	. "github.com/stevegt/goadapt"

	"github.com/parley-ai/parley/anthropic"
	"github.com/parley-ai/parley/client"
	"github.com/parley-ai/parley/google"
	"github.com/parley-ai/parley/openai"
)

// SendMessage runs one full turn against the selected model: append
// the user's message, make a single round trip to the provider, and
// append the assistant's reply.  Validation failures (blank text, no
// active chat, a send already in flight) return ok=false with no side
// effects.  Adapter failures never propagate: they become an
// error-flagged assistant message in the chat.  The turn is bound to
// the chat id captured here, so the result lands in that chat even if
// the user switches sessions while the request is in flight.
func (g *Parley) SendMessage(text string) (reply Message, ok bool) {
	text = strings.TrimSpace(text)

	g.mu.Lock()
	chat := g.ActiveChat()
	if text == "" || chat == nil || g.Sending {
		g.mu.Unlock()
		return
	}
	// the gate and the user message must become visible together,
	// before the network call begins
	g.Sending = true
	chatID := chat.ID
	history := chat.history()
	chat.Messages = append(chat.Messages, Message{Role: client.RoleUser, Content: text})
	firstTurn := !chat.Titled && len(chat.Messages) == 1
	model := g.Model
	g.mu.Unlock()

	// guaranteed cleanup regardless of outcome
	defer func() {
		g.mu.Lock()
		g.Sending = false
		g.mu.Unlock()
	}()

	out, err := g.complete(model, append(history, client.ChatMsg{Role: client.RoleUser, Content: text}))

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		Debug("send failed: %v", err)
		reply = Message{Role: client.RoleAI, Content: err.Error(), IsError: true}
	} else {
		reply = Message{Role: client.RoleAI, Content: out}
	}
	aerr := g.appendMessage(chatID, reply)
	if aerr != nil {
		// chat deleted mid-flight; nothing to apply the result to
		Debug("dropping reply: %v", aerr)
		ok = true
		return
	}
	if err == nil && firstTurn {
		// best-effort, detached; its failure never aborts the turn
		g.titles.Add(1)
		go g.generateTitle(chatID, text)
	}
	ok = true
	return
}

// complete acts as a router to the appropriate provider based on the
// model.  It resolves the credential slot first and refuses to issue
// any network traffic for an unconfigured provider.
func (g *Parley) complete(modelName string, inmsgs []client.ChatMsg) (out string, err error) {
	defer Return(&err)
	_, modelObj, err := g.models.FindModel(modelName)
	Ck(err)

	key := g.keyFor(modelObj)
	if key == "" {
		err = &client.MissingKeyError{Provider: modelObj.providerName, Slot: modelObj.keySlot}
		return
	}

	inmsgs, err = g.fitContext(modelObj, inmsgs)
	Ck(err)

	cc := g.newClient(modelObj, key)
	out, err = cc.CompleteChat(modelObj.upstreamName, inmsgs)
	return
}

// defaultClient builds the real provider client for a model.
func defaultClient(m *Model, key string) client.ChatClient {
	switch m.providerName {
	case "google":
		return google.NewClient(key, m.endpoint)
	case "openai":
		return openai.NewClient(key, m.endpoint)
	case "anthropic":
		return anthropic.NewClient(key, m.endpoint)
	default:
		Assert(false, "unknown provider: %s", m.providerName)
	}
	return nil
}

// fitContext drops the oldest turns while the history would exceed the
// model's token limit.  The newest message always survives.
func (g *Parley) fitContext(m *Model, msgs []client.ChatMsg) (out []client.ChatMsg, err error) {
	defer Return(&err)
	out = msgs
	for len(out) > 1 {
		total := 0
		for _, msg := range out {
			var tc int
			tc, err = g.TokenCount(msg.Content)
			Ck(err)
			total += tc
		}
		if total <= m.TokenLimit {
			break
		}
		Debug("dropping oldest turn: %d tokens > limit %d", total, m.TokenLimit)
		out = out[1:]
	}
	return
}
