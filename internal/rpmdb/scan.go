package rpmdb

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// RPM packages start with 0xED 0xAB 0xEE 0xDB
var rpmMagic = []byte{0xED, 0xAB, 0xEE, 0xDB}

// isPackageFile reports whether path starts with the RPM lead magic
func isPackageFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header := make([]byte, len(rpmMagic))
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return false, nil
	}

	return bytes.Equal(header[:n], rpmMagic), nil
}

// findPackageFiles recursively collects RPM files under dir in lexical order
func findPackageFiles(ctx context.Context, dir string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		ok, err := isPackageFile(path)
		if err != nil {
			logrus.Warnf("Failed to read %s: %v", path, err)
			return nil
		}
		if !ok {
			return nil
		}

		logrus.Debugf("Found rpm package: %s", path)
		paths = append(paths, path)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	return paths, nil
}
