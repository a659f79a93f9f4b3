package rpmdb

import (
	"context"
	"fmt"
	"runtime"
)

// DetectArchitecture maps the Go runtime architecture to the rpm one
func DetectArchitecture() (string, error) {
	goos := runtime.GOOS
	goarch := runtime.GOARCH

	if goos != "linux" {
		return "", fmt.Errorf("rpm databases only exist on Linux, got: %s", goos)
	}

	switch goarch {
	case "amd64":
		return "x86_64", nil
	case "386":
		return "i686", nil
	case "arm64":
		return "aarch64", nil
	case "arm":
		return "armv7hl", nil
	case "ppc64le":
		return "ppc64le", nil
	case "ppc64":
		return "ppc64", nil
	case "s390x":
		return "s390x", nil
	case "riscv64":
		return "riscv64", nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", goarch)
	}
}

// WithArchitecture returns db reporting arch as the system architecture. An
// empty arch returns db unchanged.
func WithArchitecture(db Database, arch string) Database {
	if arch == "" {
		return db
	}
	return &fixedArch{Database: db, arch: arch}
}

type fixedArch struct {
	Database
	arch string
}

func (f *fixedArch) Architecture(_ context.Context) (string, error) {
	return f.arch, nil
}
