package main

import (
	"os"

	"github.com/chatgate/obo-identity/cmd/obo-gateway/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
