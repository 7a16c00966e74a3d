package main

import (
	"os"

	"github.com/CarloNicolini/omikuji/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
