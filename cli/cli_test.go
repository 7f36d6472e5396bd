package cli

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"
	"testing"

	. "github.com/stevegt/goadapt"
)

// cd changes the current working directory to the given directory.
func cd(t *testing.T, dir string) {
	err := os.Chdir(dir)
	Tassert(t, err == nil, "error changing to directory %s: %v", dir, err)
}

// parley runs the cli with the given arguments and returns stdout,
// stderr, rc, and err
func parley(stdin bytes.Buffer, args ...string) (stdout, stderr bytes.Buffer, err error) {
	defer Return(&err)
	// capture goadapt stdio
	SetStdio(&stdin, &stdout, &stderr)
	defer SetStdio(nil, nil, nil)

	// also pass stdio to the CLI
	config := NewConfig()
	config.Stdin = &stdin
	config.Stdout = &stdout
	config.Stderr = &stderr

	// get the caller's filename and line number
	_, fn, line, _ := runtime.Caller(1)

	var exitRc int
	// replace the kong exit function with one that doesn't exit
	config.Exit = func(rc int) {
		if rc != 0 {
			msg := Spf("%s:%d rc: %v\nstderr:\n%s", fn, line, rc, stderr.String())
			fmt.Println(msg)
			exitRc = rc
		}
	}

	// run the CLI
	rc, err := Cli(args, config)
	if err == nil && (exitRc != 0 || rc != 0) {
		err = fmt.Errorf("rc: %v exitRc: %v", rc, exitRc)
	}
	return
}

func TestCli(t *testing.T) {
	// get current working directory
	cwd, err := os.Getwd()
	Tassert(t, err == nil, "error getting current working directory: %v", err)
	// create a temporary directory
	dir, err := os.MkdirTemp("", "parley")
	Ck(err)
	defer os.RemoveAll(dir)
	// cd into the temporary directory
	cd(t, dir)
	defer cd(t, cwd)
	// keep ambient provider keys out of the credential status
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	// create a stdin buffer
	var stdin bytes.Buffer

	// initialize a parley db
	stdout, stderr, err := parley(stdin, "init")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)

	// pass in a command line that should work
	stdout, stderr, err = parley(stdin, "models")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	// check that the stdout buffer contains the expected output
	match := strings.Contains(stdout.String(), "gpt-4")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())
	match = strings.Contains(stdout.String(), "claude-2.1")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())
	// check that the stderr buffer is empty
	Tassert(t, stderr.String() == "", "CLI returned unexpected error: %s", stderr.String())

	// start a second chat and list both
	stdout, stderr, err = parley(stdin, "new")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	fields := strings.Fields(stdout.String())
	Tassert(t, len(fields) > 1, "new did not print the chat id: %s", stdout.String())
	chatID := fields[0]

	stdout, stderr, err = parley(stdin, "ls")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	Tassert(t, len(lines) == 2, "expected 2 chats, got: %s", stdout.String())
	// newest first and active
	Tassert(t, strings.HasPrefix(lines[0], "*"), "new chat not active: %s", stdout.String())

	// rename it
	stdout, stderr, err = parley(stdin, "rename", chatID, "My", "Topic")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "My Topic")
	Tassert(t, match, "rename did not take: %s", stdout.String())

	// delete it; the first chat becomes active again
	stdout, stderr, err = parley(stdin, "rm", chatID)
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	lines = strings.Split(strings.TrimSpace(stdout.String()), "\n")
	Tassert(t, len(lines) == 1, "expected 1 chat, got: %s", stdout.String())
	Tassert(t, strings.HasPrefix(lines[0], "*"), "remaining chat not active: %s", stdout.String())

	// switching models prompts for a key when the slot is empty
	stdout, stderr, err = parley(stdin, "model", "gpt-4")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "Switched model from gemini-pro to gpt-4")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())
	match = strings.Contains(stdout.String(), "No API key set for openai")
	Tassert(t, match, "missing key prompt: %s", stdout.String())

	// save a key into the selected model's slot
	stdout, stderr, err = parley(stdin, "key", "sk-test-123")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "Saved API key in slot openaiApiKey")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())

	// once the slot is populated there is no prompt
	stdout, stderr, err = parley(stdin, "model", "gpt-3.5-turbo")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "No API key set")
	Tassert(t, !match, "unexpected key prompt: %s", stdout.String())

	// theme round trip
	stdout, stderr, err = parley(stdin, "theme", "dark")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)

	// token count on stdin
	stdin.WriteString("hello world")
	stdout, stderr, err = parley(stdin, "tc")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	Tassert(t, strings.TrimSpace(stdout.String()) != "0", "token count zero: %s", stdout.String())
	stdin.Reset()

	// version
	stdout, stderr, err = parley(stdin, "version")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)
	match = strings.Contains(stdout.String(), "parley version")
	Tassert(t, match, "CLI did not return expected output: %s", stdout.String())
	_ = stderr
}

func TestCliSendEmpty(t *testing.T) {
	cwd, err := os.Getwd()
	Tassert(t, err == nil, "error getting current working directory: %v", err)
	dir, err := os.MkdirTemp("", "parley")
	Ck(err)
	defer os.RemoveAll(dir)
	cd(t, dir)
	defer cd(t, cwd)

	var stdin bytes.Buffer
	_, _, err = parley(stdin, "init")
	Tassert(t, err == nil, "CLI returned unexpected error: %v", err)

	// nothing on the command line and nothing on stdin is a no-op
	// with a nonzero rc, and the chat gains no messages
	_, stderr, err := parley(stdin, "send")
	Tassert(t, err != nil, "empty send did not fail")
	match := strings.Contains(stderr.String(), "nothing to send")
	Tassert(t, match, "unexpected stderr: %s", stderr.String())
}
