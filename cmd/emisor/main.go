package main

import (
	"os"

	"github.com/facturape/emisor-cpe/cmd/emisor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
