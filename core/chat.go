package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	. "github.com/stevegt/goadapt"

	"github.com/parley-ai/parley/client"
)

// ChatNotFoundError is returned when a chat id is stale -- e.g. the
// chat was deleted between a caller capturing the id and writing to
// it.  Callers must re-check existence, not assume it.
type ChatNotFoundError struct {
	ID string
}

func (e *ChatNotFoundError) Error() string {
	return fmt.Sprintf("chat %q not found", e.ID)
}

// NewChat creates a chat with a fresh id and a default title derived
// from the session count, inserts it at the front, and makes it
// active.
func (g *Parley) NewChat() (chat *Chat) {
	chat = &Chat{
		ID:       uuid.NewString(),
		Title:    Spf("Chat %d", len(g.Chats)+1),
		Messages: []Message{},
	}
	// newest first
	g.Chats = append([]*Chat{chat}, g.Chats...)
	g.ActiveChatID = chat.ID
	return
}

// FindChat returns the chat with the given id, or nil.
func (g *Parley) FindChat(id string) *Chat {
	for _, chat := range g.Chats {
		if chat.ID == id {
			return chat
		}
	}
	return nil
}

// ActiveChat returns the active chat, or nil if there is none.
func (g *Parley) ActiveChat() *Chat {
	return g.FindChat(g.ActiveChatID)
}

// SetActiveChat makes the given chat active.  Unknown ids are a silent
// no-op.
func (g *Parley) SetActiveChat(id string) {
	if g.FindChat(id) == nil {
		return
	}
	g.ActiveChatID = id
}

// DeleteChat removes a chat.  If it was active, the first remaining
// chat becomes active; if the store would become empty, a replacement
// chat is created immediately so the view never sees zero sessions.
func (g *Parley) DeleteChat(id string) {
	for i, chat := range g.Chats {
		if chat.ID == id {
			g.Chats = append(g.Chats[:i], g.Chats[i+1:]...)
			break
		}
	}
	if len(g.Chats) == 0 {
		g.NewChat()
		return
	}
	if g.FindChat(g.ActiveChatID) == nil {
		g.ActiveChatID = g.Chats[0].ID
	}
}

// RenameChat sets a chat's title.  Blank titles are a no-op.
func (g *Parley) RenameChat(id, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	chat := g.FindChat(id)
	if chat == nil {
		return
	}
	chat.Title = title
	chat.Titled = true
}

// appendMessage appends a message to the chat with the given id.
func (g *Parley) appendMessage(chatID string, msg Message) (err error) {
	chat := g.FindChat(chatID)
	if chat == nil {
		return &ChatNotFoundError{ID: chatID}
	}
	chat.Messages = append(chat.Messages, msg)
	return
}

// history returns the chat's messages as normalized ChatMsgs, skipping
// error-flagged messages -- a failed turn is visible in the UI but
// never becomes provider context.
func (chat *Chat) history() (msgs []client.ChatMsg) {
	for _, m := range chat.Messages {
		if m.IsError {
			continue
		}
		msgs = append(msgs, client.ChatMsg{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return
}
