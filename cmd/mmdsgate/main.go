package main

import (
	"os"

	"github.com/solatis/mmdsgate/cmd/mmdsgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
