// nbhealth scores the quality of Jupyter notebooks.
//
// Usage:
//
//	nbhealth analyze <notebook-or-dir> [--format json|html|markdown] [-o <file>] [--output-dir <dir>]
//	nbhealth history [notebook] [--limit N]
//	nbhealth serve
//	nbhealth config
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
