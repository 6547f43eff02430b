package cmd

import (
	"errors"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	errUtils "github.com/cachekeep/cachekeep/errors"
	"github.com/cachekeep/cachekeep/pkg/dircache"
)

var (
	runExclusiveFlag bool
	runNoScanFlag    bool
)

var runCmd = &cobra.Command{
	Use:   "run <version> -- <command> [args...]",
	Short: "Run a command with a cached version locked",
	Long: `This command locks the given version directory, records the access, and runs
the command with CACHEKEEP_DIR set to the directory path. The lock is shared
by default so concurrent readers can run together; pass --exclusive when the
command mutates the directory. The command's exit code is propagated.`,
	Example: "cachekeep run 1.2.3 -- make build\ncachekeep run 1.2.3 --exclusive -- ./populate.sh",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := resolveBase()
		if err != nil {
			return err
		}

		m, err := newManager()
		if err != nil {
			return err
		}

		var opts []dircache.ReleaseOption
		if runNoScanFlag {
			opts = append(opts, dircache.WithoutScan())
		}

		version := args[0]
		command := args[1]
		commandArgs := args[2:]

		body := func(dir string) error {
			c := exec.Command(command, commandArgs...)
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			c.Env = append(os.Environ(), "CACHEKEEP_DIR="+dir)

			if err := c.Run(); err != nil {
				wrapped := errUtils.Build(errUtils.ErrCommandRun).
					WithCause(err).
					WithContext("command", command).
					Err()

				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					return errUtils.WithExitCode(wrapped, exitErr.ExitCode())
				}
				return wrapped
			}
			return nil
		}

		return m.WithVersion(base, version, runExclusiveFlag, body, opts...)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runExclusiveFlag, "exclusive", false, "Hold the version lock exclusively instead of shared")
	runCmd.Flags().BoolVar(&runNoScanFlag, "no-scan", false, "Skip the expiry scan that normally runs after release")
	RootCmd.AddCommand(runCmd)
}
