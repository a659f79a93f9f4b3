package models

import (
	"fmt"

	"github.com/ralt/provenance/internal/evr"
)

// PackageRecord is a read-only snapshot of one installed package's header.
// Records are built per query and never modified afterwards.
type PackageRecord struct {
	Name    string `yaml:"name"`
	Epoch   string `yaml:"epoch,omitempty"` // empty when the header has no epoch
	Version string `yaml:"version"`
	Release string `yaml:"release"`
	Arch    string `yaml:"arch"`

	Vendor       string `yaml:"vendor,omitempty"`
	Distribution string `yaml:"distribution,omitempty"`

	// SigningKeyIDs holds the lowercase hex ids of the keys that signed the
	// package header or payload.
	SigningKeyIDs []string `yaml:"signing_key_ids,omitempty"`
}

// EVR returns the canonical [epoch:]version-release string
func (p PackageRecord) EVR() string {
	return evr.Format(p.Epoch, p.Version, p.Release)
}

// NEVRA returns name-[epoch:]version-release.arch, which is unique even on
// multilib systems.
func (p PackageRecord) NEVRA() string {
	if p.Arch == "" {
		return fmt.Sprintf("%s-%s", p.Name, p.EVR())
	}
	return fmt.Sprintf("%s-%s.%s", p.Name, p.EVR(), p.Arch)
}

// HasSigningKey reports whether any signature was recorded for the package
func (p PackageRecord) HasSigningKey() bool {
	return len(p.SigningKeyIDs) > 0
}
