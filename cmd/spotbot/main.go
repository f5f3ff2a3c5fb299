package main

import (
	"os"

	"github.com/rustyeddy/spotbot/cmd/spotbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
