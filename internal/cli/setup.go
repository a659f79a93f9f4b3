package cli

import (
	"context"
	"fmt"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ralt/provenance/internal/distro"
	"github.com/ralt/provenance/internal/metrics"
	"github.com/ralt/provenance/internal/models"
	"github.com/ralt/provenance/internal/resolver"
	"github.com/ralt/provenance/internal/rpmdb"
	"github.com/ralt/provenance/internal/trust"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// session bundles what a subcommand needs to answer queries
type session struct {
	config   models.Config
	keyring  openpgp.EntityList
	db       rpmdb.Database
	resolver *resolver.Resolver
	closers  []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// loadConfig reads the configuration file, if any, and applies flag overrides
func loadConfig(cmd *cobra.Command, opts *options) (models.Config, error) {
	cfg := models.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = models.LoadConfig(opts.configPath)
		if err != nil {
			return cfg, err
		}
		logrus.Debugf("Loaded configuration from %s", opts.configPath)
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Database.Backend = opts.backend
	}
	if flags.Changed("db-path") {
		cfg.Database.Path = opts.dbPath
	}
	if flags.Changed("arch") {
		cfg.Architecture = opts.architecture
	}

	if err := validateConfig(&cfg); err != nil {
		return cfg, err
	}

	logrus.Debugf("Configuration: %+v", cfg)
	return cfg, nil
}

func validateConfig(cfg *models.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if len(cfg.OfficialKeyIDs) == 0 && len(cfg.OfficialKeyrings) == 0 {
		logrus.Warn("No official signing keys configured, only the rolling-release fallback can accept packages")
	}

	return nil
}

// openSession builds the database, trust policy and resolver described by
// the flags and configuration.
func openSession(cmd *cobra.Command, opts *options) (*session, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	keyring, err := trust.LoadKeyrings(cfg.OfficialKeyrings)
	if err != nil {
		return nil, &models.ProvenanceError{
			Type: models.ErrSignature,
			Err:  fmt.Errorf("failed to load official keyrings: %w", err),
		}
	}
	if len(keyring) > 0 {
		logrus.Infof("Loaded %d official keys", len(keyring))
	}

	s := &session{
		config:  cfg,
		keyring: keyring,
	}

	s.db, err = openDatabase(cmd.Context(), s)
	if err != nil {
		return nil, err
	}

	policy := trust.NewPolicyFromConfig(cfg, trust.KeyIDs(keyring))

	var detector distro.Detector = distro.NewReleaseFile(cfg.ReleaseFile, cfg.ReleaseMarker)
	if cmd.Flags().Changed("rolling") {
		detector = distro.Static(opts.rolling)
	}

	s.resolver = resolver.New(s.db, policy, detector)
	return s, nil
}

func openDatabase(ctx context.Context, s *session) (rpmdb.Database, error) {
	cfg := s.config.Database

	var db rpmdb.Database
	switch cfg.Backend {
	case models.BackendRPM:
		db = rpmdb.NewCLI(rpmdb.CLIConfig{
			Root:         cfg.Path,
			Architecture: s.config.Architecture,
		})
	case models.BackendHeaders:
		store, err := rpmdb.NewHeaderStore(ctx, cfg.Path, s.keyring, s.config.Architecture)
		if err != nil {
			return nil, err
		}
		db = store
	case models.BackendSnapshot:
		snap, err := rpmdb.LoadSnapshot(cfg.Path)
		if err != nil {
			return nil, err
		}
		db = rpmdb.WithArchitecture(snap, s.config.Architecture)
	default:
		return nil, &models.ProvenanceError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("unknown database backend %q", cfg.Backend),
		}
	}
	logrus.Debugf("Using %s package database", cfg.Backend)

	if cfg.CacheSize > 0 {
		cached, err := rpmdb.NewCached(db, cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create lookup cache: %w", err)
		}
		s.closers = append(s.closers, cached.Close)
		db = cached
	}

	return db, nil
}

// withSession runs fn against a fresh session and writes the metrics
// textfile afterwards, whether fn failed or not.
func withSession(cmd *cobra.Command, opts *options, fn func(*session) error) error {
	defer writeMetrics(opts)

	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

func writeMetrics(opts *options) {
	if opts.metricsTextfile == "" {
		return
	}
	if err := metrics.WriteTextfile(opts.metricsTextfile); err != nil {
		logrus.Warnf("Failed to write metrics: %v", err)
		return
	}
	logrus.Debugf("Wrote metrics to %s", opts.metricsTextfile)
}
