package main

import (
	"os"

	"github.com/Tarasyah/TriviaQuiz/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
