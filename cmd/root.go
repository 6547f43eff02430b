package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	errUtils "github.com/cachekeep/cachekeep/errors"
	"github.com/cachekeep/cachekeep/pkg/config"
	"github.com/cachekeep/cachekeep/pkg/dircache"
	log "github.com/cachekeep/cachekeep/pkg/logger"
	"github.com/cachekeep/cachekeep/pkg/perf"
	"github.com/cachekeep/cachekeep/pkg/schema"
)

// appConfig is the resolved configuration, populated before any subcommand
// runs.
var appConfig *schema.Configuration

// logFile holds the open log destination when logs go to a regular file,
// so Cleanup can close it.
var logFile *os.File

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "cachekeep",
	Short: "Coordinate shared versioned cache directories",
	Long: `Cachekeep coordinates concurrent use of a directory of versioned caches:
it locks version directories across cooperating processes, records when each
version was last used, and removes versions that have gone unused longer
than the expiry limit.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.InitConfig()
		if err != nil {
			return err
		}

		if err := applyFlagOverrides(cmd, cfg); err != nil {
			return err
		}

		if err := setupLogger(cfg); err != nil {
			return err
		}

		perf.EnableTracking(cfg.Perf.Enabled)
		appConfig = cfg
		return nil
	},
}

// Execute adds all child commands to the root command and runs it. This is
// called by main.main() exactly once.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().String("base-dir", "", "Cache base directory holding the version directories (default: config file, CACHEKEEP_BASE_DIR, or the XDG cache directory)")
	RootCmd.PersistentFlags().String("logs-level", "", "Logs level. Supported log levels are Trace, Debug, Info, Warning, Off")
	RootCmd.PersistentFlags().String("logs-file", "", "The file to write logs to. Logs can be written to any file or any standard file descriptor, including '/dev/stdout', '/dev/stderr' and '/dev/null'")
	RootCmd.PersistentFlags().Bool("perf", false, "Collect performance counters and print a summary on exit")
}

// applyFlagOverrides folds changed persistent flags into the configuration.
// Flags take precedence over both the config file and the environment.
func applyFlagOverrides(cmd *cobra.Command, cfg *schema.Configuration) error {
	flags := cmd.Flags()

	if flags.Changed("base-dir") {
		v, err := flags.GetString("base-dir")
		if err != nil {
			return err
		}
		cfg.BaseDir = v
	}

	if flags.Changed("logs-level") {
		v, err := flags.GetString("logs-level")
		if err != nil {
			return err
		}
		cfg.Logs.Level = v
	}

	if flags.Changed("logs-file") {
		v, err := flags.GetString("logs-file")
		if err != nil {
			return err
		}
		cfg.Logs.File = v
	}

	if flags.Changed("perf") {
		v, err := flags.GetBool("perf")
		if err != nil {
			return err
		}
		cfg.Perf.Enabled = v
	}

	return nil
}

// setupLogger configures the default logger from the configuration.
func setupLogger(cfg *schema.Configuration) error {
	level, err := log.ParseLogLevel(cfg.Logs.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level.CharmLevel())
	log.Default().SetStyles(log.Styles())

	output, err := logOutput(cfg.Logs.File)
	if err != nil {
		return err
	}
	log.SetOutput(output)

	return nil
}

// logOutput resolves the configured log file into a writer, recognizing the
// standard file descriptor names.
func logOutput(file string) (io.Writer, error) {
	switch file {
	case "", "/dev/stderr":
		return os.Stderr, nil
	case "/dev/stdout":
		return os.Stdout, nil
	case "/dev/null":
		return io.Discard, nil
	default:
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errUtils.Build(errUtils.ErrLogFileOpen).
				WithCause(err).
				WithContext("file", file).
				Err()
		}
		logFile = f
		return f, nil
	}
}

// newManager builds the Manager every subcommand operates through.
func newManager() (*dircache.Manager, error) {
	return dircache.New(
		dircache.WithExpiryDays(appConfig.ExpiryDays),
		dircache.WithLockTimeout(time.Duration(appConfig.LockTimeout)*time.Second),
	)
}

// resolveBase returns the cache base directory commands operate on.
func resolveBase() (string, error) {
	return config.ResolveBaseDir(appConfig, "")
}

// Cleanup releases process-wide resources before exit.
func Cleanup() {
	printPerfSummary()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// printPerfSummary writes the collected performance counters to stderr.
func printPerfSummary() {
	if !perf.Enabled() {
		return
	}

	stats := perf.Snapshot()
	if len(stats) == 0 {
		return
	}

	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Name,
			strconv.FormatInt(s.Count, 10),
			s.Total.String(),
			s.Avg.String(),
			s.Max.String(),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FUNCTION", "CALLS", "TOTAL", "AVG", "MAX").
		Rows(rows...)

	fmt.Fprintln(os.Stderr, t)
}
