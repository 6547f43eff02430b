package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cachekeep/cachekeep/cmd"
	errUtils "github.com/cachekeep/cachekeep/errors"
)

func main() {
	// Set up signal handling so open files and counters are flushed.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		cmd.Cleanup()
		// Exit with the POSIX exit code (128 + signal number).
		if s, ok := sig.(syscall.Signal); ok {
			errUtils.OsExit(128 + int(s))
		}
		errUtils.OsExit(130)
	}()

	// Use errUtils.OsExit to allow test interception.
	errUtils.OsExit(run())
}

// run executes the application and returns an exit code. The separation
// lets deferred cleanup run before os.Exit in main().
func run() int {
	defer cmd.Cleanup()

	err := cmd.Execute()
	if err != nil {
		formatted := errUtils.Format(err, errUtils.DefaultFormatterConfig())
		os.Stderr.WriteString(formatted + "\n")
		return errUtils.GetExitCode(err)
	}
	return 0
}
