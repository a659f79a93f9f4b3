// Package trust decides whether a package was built and signed by the
// distribution.
package trust

import (
	"slices"
	"strings"

	"github.com/ralt/provenance/internal/models"
)

// VendorMatch is the vendor/distribution pattern accepted for unsigned
// packages on rolling-release systems.
type VendorMatch struct {
	Vendor             string
	DistributionPrefix string
}

// Policy is the set of official signing keys plus the rolling-release vendor
// pattern. It is immutable once built.
type Policy struct {
	keyIDs []string
	vendor VendorMatch
}

// NewPolicy builds a policy. Key ids that are not hex are dropped.
func NewPolicy(keyIDs []string, vendor VendorMatch) *Policy {
	p := &Policy{vendor: vendor}
	for _, id := range keyIDs {
		if n := NormalizeKeyID(id); n != "" && !slices.Contains(p.keyIDs, n) {
			p.keyIDs = append(p.keyIDs, n)
		}
	}
	return p
}

// NewPolicyFromConfig builds a policy from configured key ids and the ids of
// every key in keyring.
func NewPolicyFromConfig(cfg models.Config, keyring []string) *Policy {
	ids := append(slices.Clone(cfg.OfficialKeyIDs), keyring...)
	return NewPolicy(ids, VendorMatch{
		Vendor:             cfg.RollingVendor.Vendor,
		DistributionPrefix: cfg.RollingVendor.DistributionPrefix,
	})
}

// KeyIDs returns a copy of the official key ids
func (p *Policy) KeyIDs() []string {
	return slices.Clone(p.keyIDs)
}

// Vendor returns the rolling-release vendor pattern
func (p *Policy) Vendor() VendorMatch {
	return p.vendor
}

// IsOfficialKey reports whether id belongs to an official signing key
func (p *Policy) IsOfficialKey(id string) bool {
	n := NormalizeKeyID(id)
	for _, k := range p.keyIDs {
		if KeyIDsMatch(n, k) {
			return true
		}
	}
	return false
}

// HasOfficialKey reports whether any of the record's signatures was made with
// an official key.
func (p *Policy) HasOfficialKey(rec models.PackageRecord) bool {
	for _, id := range rec.SigningKeyIDs {
		if p.IsOfficialKey(id) {
			return true
		}
	}
	return false
}

// MatchesRollingVendor reports whether rec carries the vendor and
// distribution of the rolling-release pattern. An empty pattern vendor never
// matches.
func (p *Policy) MatchesRollingVendor(rec models.PackageRecord) bool {
	if p.vendor.Vendor == "" {
		return false
	}
	return rec.Vendor == p.vendor.Vendor &&
		strings.HasPrefix(rec.Distribution, p.vendor.DistributionPrefix)
}
