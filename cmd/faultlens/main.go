package main

import (
	"os"

	"github.com/moolen/faultlens/cmd/faultlens/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
