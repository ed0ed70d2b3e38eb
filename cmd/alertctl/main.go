// Package main is the entry point for the alertd command line client.
package main

import (
	"os"

	"github.com/good-yellow-bee/alertd/cmd/alertctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
