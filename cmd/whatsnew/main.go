package main

import (
	"os"

	"github.com/samvad-hq/whatsnew-harvester/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
