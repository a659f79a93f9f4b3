// Package distro detects which variant of the distribution is running.
package distro

import (
	"bufio"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Detector reports whether the running system is the rolling development
// branch of the distribution, where packages are commonly left unsigned.
type Detector interface {
	IsRolling() bool
}

// ReleaseFile detects the rolling release by looking for Marker in the first
// line of the release descriptor at Path.
type ReleaseFile struct {
	Path   string
	Marker string
}

// NewReleaseFile creates a release file detector
func NewReleaseFile(path, marker string) *ReleaseFile {
	return &ReleaseFile{Path: path, Marker: marker}
}

// IsRolling reads the descriptor on every call. A missing or unreadable
// descriptor means "not rolling".
func (r *ReleaseFile) IsRolling() bool {
	if r.Marker == "" {
		return false
	}

	line, err := readFirstLine(r.Path)
	if err != nil {
		logrus.Debugf("Cannot read release descriptor %s: %v", r.Path, err)
		return false
	}

	rolling := strings.Contains(line, r.Marker)
	logrus.Debugf("Release descriptor %s: %q (rolling=%v)", r.Path, line, rolling)
	return rolling
}

func readFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	if s.Scan() {
		return s.Text(), nil
	}
	return "", s.Err()
}

// Static is a Detector with a fixed answer. It is used when the variant is
// known up front, for example when triaging a snapshot taken on another
// machine.
type Static bool

// IsRolling returns the fixed answer
func (s Static) IsRolling() bool {
	return bool(s)
}
