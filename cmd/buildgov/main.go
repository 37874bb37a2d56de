// Command buildgov governs a construction project from the command line.
package main

import (
	"os"

	"github.com/roach88/buildgov/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
