package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spherical/book-translator/cmd/book-translator/commands"
)

func main() {
	// A local .env is the usual place for OPENROUTER_API_KEY; missing is fine.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
