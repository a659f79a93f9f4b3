// Package resolver classifies installed RPM packages as distribution built or
// third party, and maps files back to the package that owns them.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/ralt/provenance/internal/distro"
	"github.com/ralt/provenance/internal/evr"
	"github.com/ralt/provenance/internal/metrics"
	"github.com/ralt/provenance/internal/models"
	"github.com/ralt/provenance/internal/rpmdb"
	"github.com/ralt/provenance/internal/trust"
	"github.com/sirupsen/logrus"
)

// Operation labels
const (
	OpIsGenuine       = "is_genuine"
	OpResolveOwner    = "resolve_owner"
	OpCompareVersions = "compare_versions"
	OpAvailable       = "available_version"
	OpFetchSource     = "fetch_source"
)

// Resolver answers provenance questions against a package database. It keeps
// no mutable state and is safe for concurrent use when the database is.
type Resolver struct {
	db       rpmdb.Database
	policy   *trust.Policy
	detector distro.Detector
}

// New creates a new resolver
func New(db rpmdb.Database, policy *trust.Policy, detector distro.Detector) *Resolver {
	return &Resolver{
		db:       db,
		policy:   policy,
		detector: detector,
	}
}

// IsGenuinePackage reports whether the package was built by the distribution.
// A signature by an official key is decisive. Otherwise the package is only
// accepted on a rolling-release system when its vendor and distribution match
// the policy; the release descriptor is not read when the signature check
// succeeds.
func (r *Resolver) IsGenuinePackage(ctx context.Context, id string) (bool, error) {
	rec, err := r.lookupPackage(ctx, id)
	if err != nil {
		record(OpIsGenuine, err)
		return false, err
	}

	genuine := r.isGenuine(rec)
	result := metrics.ResultThirdParty
	if genuine {
		result = metrics.ResultGenuine
	}
	metrics.OperationsTotal.WithLabelValues(OpIsGenuine, result).Inc()

	return genuine, nil
}

func (r *Resolver) isGenuine(rec models.PackageRecord) bool {
	if r.policy.HasOfficialKey(rec) {
		logrus.Debugf("%s is signed with an official key", rec.NEVRA())
		return true
	}

	if rec.HasSigningKey() {
		logrus.Debugf("%s is signed by %v, none of them official", rec.NEVRA(), rec.SigningKeyIDs)
	} else {
		logrus.Debugf("%s is unsigned", rec.NEVRA())
	}

	if !r.detector.IsRolling() {
		return false
	}

	if r.policy.MatchesRollingVendor(rec) {
		logrus.Debugf("%s is unsigned but matches the rolling-release vendor", rec.NEVRA())
		return true
	}

	logrus.Debugf("%s has vendor %q and distribution %q, not the rolling-release ones",
		rec.NEVRA(), rec.Vendor, rec.Distribution)
	return false
}

// ResolveOwningPackage returns the package that owns path. When several
// packages own it, the one built for the running architecture wins; the
// crash's own architecture is not known here.
func (r *Resolver) ResolveOwningPackage(ctx context.Context, path string) (*models.PackageRecord, error) {
	recs, err := r.db.LookupFile(ctx, path)
	if err != nil {
		err = fmt.Errorf("failed to look up owner of %s: %w", path, err)
		record(OpResolveOwner, err)
		return nil, err
	}

	if len(recs) == 0 {
		err := models.NewNotFound(path, "no package owns %s", path)
		record(OpResolveOwner, err)
		return nil, err
	}

	rec, err := r.pick(ctx, recs)
	if err != nil {
		record(OpResolveOwner, err)
		return nil, err
	}

	logrus.Debugf("%s is owned by %s", path, rec.NEVRA())
	record(OpResolveOwner, nil)
	return &rec, nil
}

// CompareVersions orders two [epoch:]version-release strings
func (r *Resolver) CompareVersions(v1, v2 string) evr.Ordering {
	o := evr.CompareStrings(v1, v2)
	metrics.OperationsTotal.WithLabelValues(OpCompareVersions, metrics.ResultSuccess).Inc()
	return o
}

// GetAvailableVersion returns the installed [epoch:]version-release of the
// package. No repository is consulted, so this is not the newest available
// version and must not be used to decide whether an update exists.
func (r *Resolver) GetAvailableVersion(ctx context.Context, id string) (string, error) {
	rec, err := r.lookupPackage(ctx, id)
	if err != nil {
		record(OpAvailable, err)
		return "", err
	}

	record(OpAvailable, nil)
	return rec.EVR(), nil
}

// FetchSourceTree would unpack the package source into dir. Source retrieval
// is not supported and a NotAvailable error is always returned.
func (r *Resolver) FetchSourceTree(_ context.Context, id, dir, version string) (string, error) {
	logrus.Debugf("Source tree of %s %s requested in %s", id, version, dir)

	err := &models.ProvenanceError{
		Type:    models.ErrNotAvailable,
		Package: id,
		Err:     fmt.Errorf("source retrieval is not supported"),
	}
	record(OpFetchSource, err)
	return "", err
}

// lookupPackage resolves a package name or full identifier to one record
func (r *Resolver) lookupPackage(ctx context.Context, id string) (models.PackageRecord, error) {
	recs, err := r.db.LookupName(ctx, id)
	if err != nil {
		return models.PackageRecord{}, fmt.Errorf("failed to look up %s: %w", id, err)
	}

	if len(recs) == 0 {
		if n, ok := evr.ParseNEVRA(id); ok {
			recs, err = r.lookupNEVRA(ctx, n)
			if err != nil {
				return models.PackageRecord{}, fmt.Errorf("failed to look up %s: %w", id, err)
			}
		}
	}

	if len(recs) == 0 {
		return models.PackageRecord{}, models.NewNotFound(id, "package %s is not installed", id)
	}

	return r.pick(ctx, recs)
}

func (r *Resolver) lookupNEVRA(ctx context.Context, n evr.NEVRA) ([]models.PackageRecord, error) {
	recs, err := r.db.LookupName(ctx, n.Name)
	if err != nil {
		return nil, err
	}

	var matches []models.PackageRecord
	for _, rec := range recs {
		if n.Matches(rec.Name, rec.Epoch, rec.Version, rec.Release, rec.Arch) {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}

// pick chooses one record among candidates. Candidates are ordered by
// architecture, then newest version, then name; the first one built for the
// running architecture wins, otherwise the first in that order.
func (r *Resolver) pick(ctx context.Context, recs []models.PackageRecord) (models.PackageRecord, error) {
	if len(recs) == 1 {
		return recs[0], nil
	}

	sorted := sortCandidates(recs)

	arch, err := r.db.Architecture(ctx)
	if err != nil {
		return models.PackageRecord{}, fmt.Errorf("failed to determine system architecture: %w", err)
	}

	for _, rec := range sorted {
		if rec.Arch == arch {
			return rec, nil
		}
	}

	logrus.Debugf("No candidate matches architecture %s, using %s", arch, sorted[0].NEVRA())
	return sorted[0], nil
}

func sortCandidates(recs []models.PackageRecord) []models.PackageRecord {
	sorted := make([]models.PackageRecord, len(recs))
	copy(sorted, recs)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Arch != b.Arch {
			return a.Arch < b.Arch
		}
		ka := evr.VersionKey{Epoch: a.Epoch, Version: a.Version, Release: a.Release}
		kb := evr.VersionKey{Epoch: b.Epoch, Version: b.Version, Release: b.Release}
		if o := evr.Compare(ka, kb); o != evr.Equal {
			return o == evr.Greater
		}
		return a.Name < b.Name
	})

	return sorted
}

func record(op string, err error) {
	result := metrics.ResultSuccess
	switch {
	case err == nil:
	case models.IsNotFound(err):
		result = metrics.ResultNotFound
	case models.IsNotAvailable(err):
		result = metrics.ResultNotAvailable
	default:
		result = metrics.ResultError
	}
	metrics.OperationsTotal.WithLabelValues(op, result).Inc()
}
