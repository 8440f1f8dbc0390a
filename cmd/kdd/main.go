// Package main provides the kdd binary entry point: a thin CLI over the
// KDD index engine.
package main

import (
	"fmt"
	"os"
)

// Exit codes: 0 ok, 1 recoverable (partial failure), 2 fatal, 3 user error.
const (
	exitOK      = 0
	exitPartial = 1
	exitFatal   = 2
	exitUser    = 3
)

var Version = "1.0.0"

func main() {
	code := run(os.Args[1:])
	os.Exit(code)
}

func run(args []string) int {
	app, root, err := newApp(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kdd:", err)
		return exitFatal
	}

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kdd:", err)
		return exitCodeFor(err)
	}
	_ = app
	return exitOK
}
