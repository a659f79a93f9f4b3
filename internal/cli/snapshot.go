package cli

import (
	"fmt"

	"github.com/ralt/provenance/internal/models"
	"github.com/ralt/provenance/internal/rpmdb"
	"github.com/ralt/provenance/internal/trust"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewSnapshotCmd creates the snapshot command
func NewSnapshotCmd(opts *options) *cobra.Command {
	var fromDir, outPath string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save the package set of a directory of .rpm files",
		Long: `Reads every .rpm file below --from and writes their headers, signing
keys and file lists to --out. The snapshot can later be queried with
--backend snapshot. Output ending in .gz or .xz is compressed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer writeMetrics(opts)

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			keyring, err := trust.LoadKeyrings(cfg.OfficialKeyrings)
			if err != nil {
				return &models.ProvenanceError{
					Type: models.ErrSignature,
					Err:  fmt.Errorf("failed to load official keyrings: %w", err),
				}
			}

			logrus.Infof("Scanning directory: %s", fromDir)
			store, err := rpmdb.NewHeaderStore(cmd.Context(), fromDir, keyring, cfg.Architecture)
			if err != nil {
				return err
			}

			arch, err := store.Architecture(cmd.Context())
			if err != nil {
				return &models.ProvenanceError{
					Type: models.ErrInvalidConfig,
					Err:  fmt.Errorf("cannot determine the snapshot architecture, use --arch: %w", err),
				}
			}

			return rpmdb.WriteSnapshot(outPath, arch, store.Entries())
		},
	}

	cmd.Flags().StringVar(&fromDir, "from", "", "Directory of .rpm files")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Snapshot file to write")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}
