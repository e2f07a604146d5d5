// Command keyrelay intercepts global keyboard and mouse events and lets the
// process on the other end of stdin and stdout decide whether each one is
// suppressed.
package main

import (
	"fmt"
	"os"

	"github.com/launchmenu/keyrelay/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "keyrelay:", err)
		os.Exit(cli.ExitCode(err))
	}
}
