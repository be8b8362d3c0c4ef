// Command clicheck runs a command-line tool against a catalogue of scenarios
// and compares its output with checked-in baselines.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/clicheck/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil && !cli.IsReported(err) {
		fmt.Fprintf(os.Stderr, "clicheck: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
