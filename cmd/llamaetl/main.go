package main

import (
	"os"

	"defillama-etl/cmd/llamaetl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
