/*
Package main provides the CLI entry point for apkreleaser.
*/
package main

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/oarkflow/apkreleaser/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Error("Release aborted", "error", err)
		os.Exit(1)
	}
}
