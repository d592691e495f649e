package main

import (
	"os"

	"github.com/wonny/investor-coach/cmd/coach/commands"
)

// main is the entry point for the coach CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/coach [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
