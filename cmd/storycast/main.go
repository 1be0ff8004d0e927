package main

import (
	"os"

	"github.com/jwhsu/storycast/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
