package cmd

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	errUtils "github.com/cachekeep/cachekeep/errors"
	"github.com/cachekeep/cachekeep/pkg/dircache"
)

var (
	touchDateFlag  string
	touchForceFlag bool
)

var touchCmd = &cobra.Command{
	Use:     "touch <version>",
	Short:   "Record an access to a cached version",
	Long:    `This command stamps the access stub of the given version with today's date, deferring its expiry. The version directory is created if it does not exist yet.`,
	Example: "cachekeep touch 1.2.3\ncachekeep touch 1.2.3 --date 2024-03-15",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := resolveBase()
		if err != nil {
			return err
		}

		m, err := newManager()
		if err != nil {
			return err
		}

		var opts []dircache.TouchOption
		if touchDateFlag != "" {
			date, err := time.Parse(time.DateOnly, touchDateFlag)
			if err != nil {
				return errUtils.Build(errUtils.ErrInvalidDate).
					WithCause(err).
					WithContext("date", touchDateFlag).
					WithHint("dates use the YYYY-MM-DD format").
					Err()
			}
			opts = append(opts, dircache.WithDate(date))
		}
		if touchForceFlag {
			opts = append(opts, dircache.WithForce())
		}

		return m.Touch(filepath.Join(base, args[0]), opts...)
	},
}

func init() {
	touchCmd.Flags().StringVar(&touchDateFlag, "date", "", "Stamp the stub with this date (YYYY-MM-DD) instead of today")
	touchCmd.Flags().BoolVar(&touchForceFlag, "force", false, "Write the stub even if today's access is already recorded")
	RootCmd.AddCommand(touchCmd)
}
