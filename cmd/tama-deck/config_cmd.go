package main

import (
	"fmt"
	"os"

	"github.com/asheshgoplani/tama-deck/internal/config"
)

func handleConfig(args []string) int {
	if len(args) == 0 {
		fmt.Println("Usage: tama-deck config <init|path>")
		return 2
	}
	switch args[0] {
	case "init":
		path, written, err := config.CreateExample()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if !written {
			fmt.Printf("%s already exists, left unchanged\n", path)
			return 0
		}
		fmt.Printf("%s wrote %s\n", successSymbol, path)
		return 0
	case "path":
		path, err := config.Path()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println(path)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown config command %q\n", args[0])
		return 2
	}
}
