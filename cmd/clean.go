package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cachekeep/cachekeep/pkg/dircache"
)

var (
	cleanLimitDaysFlag int
	cleanReferenceFlag string
	cleanDryRunFlag    bool
)

var cleanCmd = &cobra.Command{
	Use:     "clean",
	Short:   "Remove versions unused longer than the expiry limit",
	Long:    `This command scans the cache base directory and removes every version whose last recorded access is older than the expiry limit, together with its access stub and lock files. Versions locked by other processes are skipped.`,
	Example: "cachekeep clean\ncachekeep clean --dry-run\ncachekeep clean --limit-days 7 --reference 2.1.0",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := resolveBase()
		if err != nil {
			return err
		}

		m, err := newManager()
		if err != nil {
			return err
		}

		var opts []dircache.ClearOption
		if cmd.Flags().Changed("limit-days") {
			opts = append(opts, dircache.WithLimitDays(cleanLimitDaysFlag))
		}
		if cleanReferenceFlag != "" {
			ref, err := dircache.ParseVersion(cleanReferenceFlag)
			if err != nil {
				return err
			}
			opts = append(opts, dircache.WithReference(ref))
		}
		if cleanDryRunFlag {
			opts = append(opts, dircache.WithDryRun())
		}

		removed, err := m.ClearExpired(base, opts...)
		if err != nil {
			return err
		}

		if len(removed) == 0 {
			fmt.Println("Nothing to remove")
			return nil
		}

		for _, version := range removed {
			if cleanDryRunFlag {
				fmt.Printf("Would remove %s\n", version)
			} else {
				fmt.Printf("Removed %s\n", version)
			}
		}
		return nil
	},
}

func init() {
	cleanCmd.Flags().IntVar(&cleanLimitDaysFlag, "limit-days", 0, "Expiry limit in days for this scan, overriding the configured limit")
	cleanCmd.Flags().StringVar(&cleanReferenceFlag, "reference", "", "Protect this version and everything newer from removal")
	cleanCmd.Flags().BoolVar(&cleanDryRunFlag, "dry-run", false, "Report what would be removed without deleting anything")
	RootCmd.AddCommand(cleanCmd)
}
