package main

import (
	"os"

	"github.com/spigell/profile-search/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
