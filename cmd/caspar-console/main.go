package main

import (
	"os"

	"github.com/baaaaaaaka/caspar-console/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
