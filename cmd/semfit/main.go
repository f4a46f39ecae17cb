// Package main is the semfit binary entry point.
package main

import (
	"fmt"
	"os"

	"github.com/calder-stats/semfit/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
