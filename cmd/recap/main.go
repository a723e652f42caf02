package main

import (
	"os"

	"github.com/wonny/recap/backend/cmd/recap/commands"
)

// main is the entry point for the market recap CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/recap [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
