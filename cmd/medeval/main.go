package main

import (
	"fmt"
	"os"

	"github.com/ppiankov/medeval/internal/cli"
	"github.com/ppiankov/medeval/internal/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer log.Sync()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
