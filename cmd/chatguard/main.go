// Command chatguard runs the guard layer as a decision service and exposes
// its components for one-off checks from the shell.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
