package main

import (
	"fmt"
	"os"

	"github.com/handiism/bookfetch/internal/config"
	"github.com/handiism/bookfetch/internal/tui"
)

func main() {
	settings, _, err := config.Load(config.DefaultPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := tui.Run(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
