package rpmdb

import (
	"context"
	"fmt"
	"os"

	"github.com/ralt/provenance/internal/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// snapshotFile is the on-disk layout of a snapshot
type snapshotFile struct {
	Architecture string  `yaml:"architecture"`
	Packages     []Entry `yaml:"packages"`
}

// Snapshot is a package set loaded from a file written by WriteSnapshot
type Snapshot struct {
	*index
	arch string
}

// WriteSnapshot serializes entries to path. Files ending in .gz or .xz are
// compressed accordingly.
func WriteSnapshot(path, arch string, entries []Entry) error {
	data, err := yaml.Marshal(&snapshotFile{
		Architecture: arch,
		Packages:     entries,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	data, err = compressForPath(path, data)
	if err != nil {
		return fmt.Errorf("failed to compress snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	logrus.Infof("Wrote %d packages to %s", len(entries), path)
	return nil
}

// LoadSnapshot reads a snapshot written by WriteSnapshot
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.ProvenanceError{
			Type: models.ErrDatabase,
			Err:  fmt.Errorf("failed to read snapshot: %w", err),
		}
	}

	data, err = decompressForPath(path, data)
	if err != nil {
		return nil, &models.ProvenanceError{
			Type: models.ErrDatabase,
			Err:  fmt.Errorf("failed to decompress snapshot %s: %w", path, err),
		}
	}

	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &models.ProvenanceError{
			Type: models.ErrDatabase,
			Err:  fmt.Errorf("failed to parse snapshot %s: %w", path, err),
		}
	}

	logrus.Debugf("Loaded %d packages from %s", len(file.Packages), path)

	return &Snapshot{
		index: newIndex(file.Packages),
		arch:  file.Architecture,
	}, nil
}

// Architecture implements Database. It reports the architecture of the
// system the snapshot was taken on.
func (s *Snapshot) Architecture(_ context.Context) (string, error) {
	if s.arch == "" {
		return "", &models.ProvenanceError{
			Type: models.ErrDatabase,
			Err:  fmt.Errorf("snapshot does not record an architecture"),
		}
	}
	return s.arch, nil
}
