package main

import (
	"os"

	"github.com/joho/godotenv"
	. "github.com/stevegt/goadapt"

	"github.com/parley-ai/parley/cli"
)

func main() {
	// seed provider keys from a .env file if one exists
	_ = godotenv.Load()
	config := cli.NewConfig()
	rc, err := cli.Cli(os.Args[1:], config)
	if err != nil {
		Fpf(os.Stderr, "Error: %v\n", err)
		if rc == 0 {
			rc = 1
		}
	}
	os.Exit(rc)
}
