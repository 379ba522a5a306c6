// Command agrovihan calculates farm carbon credits and syncs them to the ledger.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/agrovihan/agrovihan/internal/cli"
	"github.com/agrovihan/agrovihan/pkg/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run() error {
	root := cli.NewRootCmd(version.GetVersion())
	root.SilenceErrors = true
	return root.Execute()
}

// exitCode maps an error to the process exit code. Incomplete syncs use
// their own code so scripts can retry.
func exitCode(err error) int {
	var syncErr *cli.SyncIncompleteError
	if errors.As(err, &syncErr) {
		return syncErr.ExitCode()
	}
	return 1
}
