package main

import (
	"fmt"
	"os"

	"github.com/alantheprice/consolepane/cmd"
)

func main() {
	err := cmd.Execute()
	if closeErr := cmd.CloseLogger(); closeErr != nil {
		// The logger itself failed, so report on stderr.
		fmt.Fprintf(os.Stderr, "Error closing logger: %v\n", closeErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
