package main

import (
	"os"

	"github.com/techmentor/gateway/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
