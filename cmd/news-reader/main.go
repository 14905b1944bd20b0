package main

import (
	"os"

	"news-reader/cmd/news-reader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
