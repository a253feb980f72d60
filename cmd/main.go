package main

import (
	"os"

	"github.com/paperqa/paperqa/cmd/paperqa"
)

func main() {
	if err := paperqa.Execute(); err != nil {
		os.Exit(1)
	}
}
