package main

import (
	"os"

	"github.com/jacklau/oppradar/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
