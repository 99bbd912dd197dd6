// Command reconciler renders CUE component trees with the cooperative
// scheduler and inspects the commit journal.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/reconciler/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		// Commands that print through the formatter have already reported
		// the error; flag and argument errors have not.
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
