package main

import (
	"os"

	"github.com/soundprediction/synthmem/cmd/synthmem"
)

func main() {
	if err := synthmem.Execute(); err != nil {
		os.Exit(1)
	}
}
