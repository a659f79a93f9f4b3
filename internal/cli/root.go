package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// options holds the global flags shared by every subcommand
type options struct {
	configPath      string
	backend         string
	dbPath          string
	architecture    string
	rolling         bool
	metricsTextfile string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "provenance",
		Short: "Tell distribution packages from third-party ones on RPM systems",
		Long: `Provenance answers questions crash triage tooling asks about the
packages installed on an RPM based system:

  - which package owns a file
  - whether a package was built and signed by the distribution
  - how two package versions compare
  - which version of a package is installed

Packages are read from the live rpm database, from a directory of .rpm
files, or from a snapshot written by the snapshot command.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to YAML configuration file")
	flags.StringVar(&opts.backend, "backend", "", "Package database backend (rpm, headers, snapshot)")
	flags.StringVar(&opts.dbPath, "db-path", "", "rpm root, package directory or snapshot file, depending on the backend")
	flags.StringVar(&opts.architecture, "arch", "", "Override the system architecture")
	flags.BoolVar(&opts.rolling, "rolling", false, "Treat the system as the rolling release instead of reading the release file")
	flags.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write prometheus metrics to this file on exit")

	// Add subcommands
	rootCmd.AddCommand(NewOwnerCmd(opts))
	rootCmd.AddCommand(NewGenuineCmd(opts))
	rootCmd.AddCommand(NewCompareCmd(opts))
	rootCmd.AddCommand(NewVersionCmd(opts))
	rootCmd.AddCommand(NewSourceCmd(opts))
	rootCmd.AddCommand(NewSnapshotCmd(opts))

	return rootCmd
}
