package main

import (
	"fmt"
	"os"

	"github.com/tjfontaine/polyglot-image-studio/internal/persistence"
)

func main() {
	key, err := persistence.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sealing key: %s\n", key)
	fmt.Println("\nAdd this to your config.yaml:")
	fmt.Printf("  persistence:\n")
	fmt.Printf("    sealing_key: \"%s\"\n", key)
	fmt.Println("\nor export it:")
	fmt.Printf("  STUDIO_PERSISTENCE__SEALING_KEY=%s\n", key)
}
