package cli

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	. "github.com/stevegt/goadapt"

	"github.com/parley-ai/parley/core"
)

// parse args using kong package
var cli struct {
	Chat struct{} `cmd:"" help:"Converse with the selected model, reading lines from stdin."`
	Init struct{} `cmd:"" help:"Initialize a new .parley db in the current directory."`
	Key  struct {
		Secret string `arg:"" help:"API key to store for the selected model's provider."`
	} `cmd:"" help:"Save an API key for the selected model's provider."`
	Ls    struct{} `cmd:"" help:"List chat sessions."`
	Model struct {
		Model string `arg:"" help:"Model to switch to."`
	} `cmd:"" help:"Switch the model used for new sends."`
	Models struct{} `cmd:"" help:"List all available models."`
	New    struct{} `cmd:"" help:"Start a new chat session and make it active."`
	Rename struct {
		ID    string   `arg:"" help:"Chat id to rename."`
		Title []string `arg:"" help:"New title."`
	} `cmd:"" help:"Rename a chat session."`
	Rm struct {
		ID string `arg:"" help:"Chat id to delete."`
	} `cmd:"" help:"Delete a chat session."`
	Send struct {
		Text []string `arg:"" optional:"" help:"Message text; read from stdin if omitted."`
	} `cmd:"" help:"Send one message in the active chat and print the reply."`
	Switch struct {
		ID string `arg:"" help:"Chat id to make active."`
	} `cmd:"" help:"Switch the active chat session."`
	Tc    struct{} `cmd:"" help:"Calculate the token count of stdin."`
	Theme struct {
		Theme string `arg:"" enum:"light,dark" help:"Theme to use: light or dark."`
	} `cmd:"" help:"Switch the display theme."`
	Verbose bool     `short:"v" help:"Show debug information on stderr."`
	Version struct{} `cmd:"" help:"Show version of parley and its database."`
}

// Config contains the configuration for parley
type Config struct {
	// Name is the name of the program
	Name string
	// Description is a short description of the program
	Description string
	// Version is the version of the program
	Version string
	// Exit is the function to call to exit the program
	Exit   func(int)
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewConfig returns a new Config struct with default values populated
func NewConfig() *Config {
	return &Config{
		Name:        "parley",
		Description: "A command-line chat client for Google, OpenAI, and Anthropic language models.",
		Version:     core.CodeVersion(),
		Exit:        func(i int) { os.Exit(i) },
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

// Cli parses the given arguments and then executes the appropriate
// subcommand.
//
// We use this function instead of kong.Parse() so that we can pass in
// the arguments to parse.  This allows us to more easily test the
// cli subcommands.
func Cli(args []string, config *Config) (rc int, err error) {
	defer Return(&err)

	options := []kong.Option{
		kong.Name(config.Name),
		kong.Description(config.Description),
		kong.Exit(config.Exit),
		kong.Writers(config.Stdout, config.Stderr),
		kong.Vars{
			"version": config.Version,
		},
	}

	var parser *kong.Kong
	parser, err = kong.New(&cli, options...)
	Ck(err)
	ctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	if cli.Verbose {
		os.Setenv("DEBUG", "1")
	}

	cmd := ctx.Command()

	// list of commands that don't require an existing database
	noDbCmds := []string{"init"}
	needsDb := true
	for _, c := range noDbCmds {
		if cmd == c {
			needsDb = false
			break
		}
	}

	var grok *core.Parley
	var migrated, save bool
	var was, now string
	if needsDb {
		grok, migrated, was, now, err = core.Load()
		Ck(err)
		defer grok.Close()
		if migrated {
			Fpf(config.Stderr, "migrated parley db from version %s to %s\n", was, now)
		}
	}

	switch cmd {
	case "init":
		// initialize a new .parley db in the current directory
		_, err = core.Init(".")
		Ck(err)
		Fpf(config.Stdout, "Initialized a new .parley db in the current directory.\n")
		// Init calls Save() for us
		return
	case "new":
		chat := grok.NewChat()
		Fpf(config.Stdout, "%s  %s\n", chat.ID, chat.Title)
		save = true
	case "ls":
		renderChats(config.Stdout, grok)
	case "switch <id>":
		grok.SetActiveChat(cli.Switch.ID)
		renderChats(config.Stdout, grok)
		save = true
	case "rm <id>":
		grok.DeleteChat(cli.Rm.ID)
		renderChats(config.Stdout, grok)
		save = true
	case "rename <id> <title>":
		grok.RenameChat(cli.Rename.ID, strings.Join(cli.Rename.Title, " "))
		renderChats(config.Stdout, grok)
		save = true
	case "send <text>", "send":
		text := strings.Join(cli.Send.Text, " ")
		if strings.TrimSpace(text) == "" {
			// fall back to stdin
			buf, err := io.ReadAll(config.Stdin)
			Ck(err)
			text = string(buf)
		}
		rc = sendOne(config, grok, text)
		save = true
	case "chat":
		repl(config, grok)
		save = true
	case "models":
		models, err := grok.ListModels()
		Ck(err)
		for _, model := range models {
			Fpf(config.Stdout, "%s\n", model)
		}
	case "model <model>":
		oldModel, needKey, err := grok.SetModel(cli.Model.Model)
		Ck(err)
		Fpf(config.Stdout, "Switched model from %s to %s\n", oldModel, cli.Model.Model)
		if needKey {
			renderKeyPrompt(config.Stdout, grok)
		}
		save = true
	case "key <secret>":
		slot, err := grok.SetKey(cli.Key.Secret)
		Ck(err)
		Fpf(config.Stdout, "Saved API key in slot %s\n", slot)
		save = true
	case "theme <theme>":
		grok.SetTheme(cli.Theme.Theme)
		save = true
	case "tc":
		buf, err := io.ReadAll(config.Stdin)
		Ck(err)
		count, err := grok.TokenCount(strings.TrimSpace(string(buf)))
		Ck(err)
		Fpf(config.Stdout, "%d\n", count)
	case "version":
		Fpf(config.Stdout, "parley version %s\n", core.CodeVersion())
		Fpf(config.Stdout, "db version %s\n", grok.DBVersion())
	default:
		Fpf(config.Stderr, "Error: unrecognized command: %s\n", cmd)
		rc = 1
	}

	if save {
		// a detached title task may still be settling; let it land
		// before the final snapshot
		grok.WaitTitles()
		err = grok.Save()
		Ck(err)
	}

	return
}

// sendOne runs a single turn and renders the reply.
func sendOne(config *Config, grok *core.Parley, text string) (rc int) {
	reply, ok := grok.SendMessage(text)
	if !ok {
		Fpf(config.Stderr, "Error: nothing to send\n")
		return 1
	}
	renderReply(config.Stdout, grok, reply)
	return 0
}

// repl reads lines from stdin and sends each as one turn, until EOF.
func repl(config *Config, grok *core.Parley) {
	renderStatus(config.Stdout, grok)
	scanner := bufio.NewScanner(config.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		Fpf(config.Stdout, "> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		reply, ok := grok.SendMessage(text)
		if !ok {
			continue
		}
		renderReply(config.Stdout, grok, reply)
		// snapshot after every completed turn
		err := grok.Save()
		if err != nil {
			Fpf(config.Stderr, "Error: %v\n", err)
		}
	}
	Fpf(config.Stdout, "\n")
}
