package main

import (
	"os"

	"github.com/lucasgrd/shopsched/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
