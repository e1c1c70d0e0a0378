package main

import (
	"os"

	"github.com/stillframe/gallery-agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
