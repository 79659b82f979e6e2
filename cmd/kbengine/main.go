package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/complyline/kbengine/internal/adapters/driving/cli"
)

func main() {
	// Secrets may live in a local .env during development; absence is fine.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
