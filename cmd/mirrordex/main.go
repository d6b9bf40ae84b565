// Package main provides the entry point for the mirrordex CLI.
package main

import (
	"os"

	"github.com/mirrordex/mirrordex/cmd/mirrordex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
