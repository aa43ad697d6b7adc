package main

import (
	"os"

	"github.com/hydai/mcplug/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
