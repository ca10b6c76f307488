// Command worm runs and validates WORM scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/worm/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
