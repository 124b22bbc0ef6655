package main

import (
	"os"

	"github.com/veeo/driver-dispatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
