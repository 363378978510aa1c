package main

import (
	"os"

	"planilla/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	os.Exit(cli.Execute(os.Stderr))
}
