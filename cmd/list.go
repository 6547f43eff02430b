package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List the versions recorded in the cache",
	Long:    `This command lists every version with an access stub under the cache base directory, oldest access first, with its age and whether the version directory is still present.`,
	Example: "cachekeep list",
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

		entries, err := m.List(base)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Printf("No versions recorded in %s\n", base)
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			status := "ok"
			if !e.DirExists {
				status = "missing"
			}
			rows = append(rows, []string{
				e.Version.String(),
				e.LastAccess.Format(time.DateOnly),
				fmt.Sprintf("%dd", e.AgeDays),
				status,
			})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("VERSION", "LAST ACCESS", "AGE", "STATUS").
			Rows(rows...)

		fmt.Println(t)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(listCmd)
}
