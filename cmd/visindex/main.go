// Package main provides the entry point for the visindex CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/visindex/cmd/visindex/cmd"
	verrors "github.com/Aman-CERP/visindex/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, verrors.FormatForCLI(err))
		if verrors.IsFatal(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
