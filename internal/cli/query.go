package cli

import (
	"fmt"

	"github.com/ralt/provenance/internal/evr"
	"github.com/ralt/provenance/internal/models"
	"github.com/ralt/provenance/internal/resolver"
	"github.com/spf13/cobra"
)

// NewOwnerCmd creates the owner command
func NewOwnerCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "owner <path>",
		Short: "Print the package that owns a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session) error {
				rec, err := s.resolver.ResolveOwningPackage(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.NEVRA())
				return nil
			})
		},
	}
}

// NewGenuineCmd creates the genuine command
func NewGenuineCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "genuine <package>",
		Short: "Tell whether a package was built by the distribution",
		Long: `Prints "genuine" when the package is signed with an official key, or is
an unsigned rolling-release build from the distribution vendor, and
"third-party" otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session) error {
				genuine, err := s.resolver.IsGenuinePackage(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if genuine {
					fmt.Fprintln(cmd.OutOrStdout(), "genuine")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "third-party")
				}
				return nil
			})
		},
	}
}

// NewCompareCmd creates the compare command
func NewCompareCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <version1> <version2>",
		Short: "Compare two [epoch:]version-release strings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer writeMetrics(opts)

			// comparing needs no package database
			r := resolver.New(nil, nil, nil)
			fmt.Fprintln(cmd.OutOrStdout(), orderingSymbol(r.CompareVersions(args[0], args[1])))
			return nil
		},
	}
}

func orderingSymbol(o evr.Ordering) string {
	switch o {
	case evr.Less:
		return "<"
	case evr.Greater:
		return ">"
	default:
		return "="
	}
}

// NewVersionCmd creates the version command
func NewVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version <package>",
		Short: "Print the installed version of a package",
		Long: `Prints the installed [epoch:]version-release of a package. No
repository is consulted, so this is not the newest version available.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session) error {
				v, err := s.resolver.GetAvailableVersion(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
}

// NewSourceCmd creates the source command
func NewSourceCmd(opts *options) *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "source <package> <dir>",
		Short: "Unpack the source of a package",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session) error {
				dir, err := s.resolver.FetchSourceTree(cmd.Context(), args[0], args[1], version)
				if models.IsNotAvailable(err) {
					fmt.Fprintf(cmd.OutOrStdout(), "source not available for %s\n", args[0])
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), dir)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Source version to fetch (defaults to the installed one)")

	return cmd
}
