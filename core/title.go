package core

import (
	"strings"

	. "github.com/stevegt/goadapt"

	"github.com/parley-ai/parley/client"
)

var titlePrompt = `Suggest a short title (5 words max) for a conversation that starts with:

%s

Reply with the title only.`

// generateTitle runs as a detached task after a chat's first completed
// exchange.  It always uses the default (Google) model regardless of
// the selected one, and any failure is absorbed here: the title falls
// back to the first five words of the user's message.  Nothing in this
// path touches Sending or the outer turn.
func (g *Parley) generateTitle(chatID, seed string) {
	defer g.titles.Done()

	title, err := g.complete(DefaultModel, []client.ChatMsg{
		{Role: client.RoleUser, Content: Spf(titlePrompt, seed)},
	})
	if err != nil {
		Debug("title generation failed: %v", err)
		title = ""
	}
	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"`))
	if title == "" {
		title = fallbackTitle(seed)
	}

	g.mu.Lock()
	chat := g.FindChat(chatID)
	// the chat may have been deleted or renamed while we were away
	if chat == nil || chat.Titled {
		g.mu.Unlock()
		return
	}
	chat.Title = title
	chat.Titled = true
	g.mu.Unlock()

	err = g.Save()
	if err != nil {
		Debug("saving generated title failed: %v", err)
	}
}

// WaitTitles blocks until any detached title generation has settled.
func (g *Parley) WaitTitles() {
	g.titles.Wait()
}

// fallbackTitle returns the first five words of the seed text.
func fallbackTitle(seed string) string {
	words := strings.Fields(seed)
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ")
}
