package cli

import (
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	. "github.com/stevegt/goadapt"

	"github.com/parley-ai/parley/core"
)

var (
	activeStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// renderReply prints one assistant bubble.  Assistant text goes
// through the markdown renderer; error bubbles are plain text, never
// interpreted as markup.
func renderReply(w io.Writer, grok *core.Parley, msg core.Message) {
	if msg.IsError {
		Fpf(w, "%s\n", errStyle.Render("error: "+msg.Content))
		return
	}
	style := "light"
	if grok.Theme == "dark" {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		var out string
		out, err = r.Render(msg.Content)
		if err == nil {
			Fpf(w, "%s", out)
			return
		}
	}
	// markdown rendering is cosmetic; fall back to plain text
	Fpf(w, "%s\n", msg.Content)
}

// renderChats prints the session list, newest first, active chat
// marked.
func renderChats(w io.Writer, grok *core.Parley) {
	for _, chat := range grok.Chats {
		marker := " "
		title := chat.Title
		if chat.ID == grok.ActiveChatID {
			marker = "*"
			title = activeStyle.Render(title)
		}
		Fpf(w, "%s %s  %s %s\n", marker, chat.ID, title, dimStyle.Render(Spf("(%d messages)", len(chat.Messages))))
	}
}

// renderStatus prints the model and credential status line, like the
// original titlebar.
func renderStatus(w io.Writer, grok *core.Parley) {
	model, m, err := grok.GetModel()
	if err != nil {
		return
	}
	status := "API key configured"
	if !grok.HasKey(m) {
		status = "API key required"
	}
	Fpf(w, "%s  %s\n", model, dimStyle.Render(status))
}

// renderKeyPrompt tells the user how to credential the selected model.
func renderKeyPrompt(w io.Writer, grok *core.Parley) {
	_, m, err := grok.GetModel()
	if err != nil {
		return
	}
	Fpf(w, "No API key set for %s -- run `parley key <key>` (get one at %s)\n", m.Provider(), m.KeyURL())
}
