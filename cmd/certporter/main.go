// Package main provides the entry point for the certporter CLI application.
package main

import (
	"os"

	"certporter/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
