package main

import (
	"os"

	"github.com/codextasks/taskrunner/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
