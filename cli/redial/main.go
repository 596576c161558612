package main

import (
	"os"

	redialcmder "github.com/redialhq/redial/cmd/redial"
)

func main() {
	cmd := redialcmder.NewRedialCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
