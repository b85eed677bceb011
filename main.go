package main

import (
	"os"

	"github.com/feedbreak/feedbreak/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
