package main

import (
	"os"

	"github.com/vovakirdan/dmwire-server/cmd/server/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
