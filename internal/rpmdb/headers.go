package rpmdb

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ralt/provenance/internal/models"
	"github.com/ralt/provenance/internal/trust"
	"github.com/sassoftware/go-rpmutils"
	"github.com/sirupsen/logrus"
)

// HeaderStore indexes the headers of a directory of .rpm files, typically
// the package set of the machine a crash was reported from.
type HeaderStore struct {
	*index
	arch string
}

// NewHeaderStore reads every RPM under dir. Signatures are verified against
// keyring; packages signed by keys outside the keyring are indexed without
// signing keys. When keyring is empty only the digests are checked and the raw
// signing key ids are recorded. Unreadable or corrupt packages are skipped.
func NewHeaderStore(ctx context.Context, dir string, keyring openpgp.EntityList, arch string) (*HeaderStore, error) {
	paths, err := findPackageFiles(ctx, dir)
	if err != nil {
		return nil, &models.ProvenanceError{
			Type: models.ErrDatabase,
			Err:  err,
		}
	}

	var entries []Entry
	for _, path := range paths {
		entry, err := ReadPackageFile(path, keyring)
		if err != nil {
			logrus.Warnf("Failed to parse %s: %v", path, err)
			continue
		}
		if entry.Arch == "src" {
			logrus.Debugf("Skipping source package %s", path)
			continue
		}
		entries = append(entries, entry)
	}

	logrus.Infof("Indexed %d packages in %s", len(entries), dir)

	return &HeaderStore{
		index: newIndex(entries),
		arch:  arch,
	}, nil
}

// Architecture implements Database
func (s *HeaderStore) Architecture(_ context.Context) (string, error) {
	if s.arch != "" {
		return s.arch, nil
	}
	return DetectArchitecture()
}

// ReadPackageFile reads the header, file manifest and signing key ids of one
// RPM file.
func ReadPackageFile(path string, keyring openpgp.EntityList) (Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	if len(keyring) == 0 {
		keyring = nil
	}

	hdr, sigs, err := rpmutils.Verify(f, keyring)
	if err != nil {
		var missing rpmutils.KeyNotFoundError
		switch {
		case keyring != nil && errors.As(err, &missing):
			logrus.Debugf("%s is signed by unknown key %016x", path, missing.KeyID)
		case errors.Is(err, rpmutils.ErrNoPGPSignature):
			logrus.Debugf("%s carries an unsupported signature", path)
		default:
			return Entry{}, fmt.Errorf("failed to verify RPM: %w", err)
		}

		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return Entry{}, err
		}
		hdr, err = rpmutils.ReadHeader(f)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to read RPM: %w", err)
		}
		sigs = nil
	}

	rec := models.PackageRecord{
		Name:          getStringTag(hdr, rpmutils.NAME),
		Epoch:         getEpoch(hdr),
		Version:       getStringTag(hdr, rpmutils.VERSION),
		Release:       getStringTag(hdr, rpmutils.RELEASE),
		Arch:          getStringTag(hdr, rpmutils.ARCH),
		Vendor:        getStringTag(hdr, rpmutils.VENDOR),
		Distribution:  getStringTag(hdr, rpmutils.DISTRIBUTION),
		SigningKeyIDs: signatureKeyIDs(sigs),
	}
	if rec.Name == "" {
		return Entry{}, fmt.Errorf("package has no name")
	}
	if !hdr.HasTag(rpmutils.SOURCERPM) {
		rec.Arch = "src"
	}

	files, err := hdr.GetFiles()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read file list: %w", err)
	}
	entry := Entry{PackageRecord: rec}
	for _, fi := range files {
		entry.Files = append(entry.Files, fi.Name())
	}

	return entry, nil
}

// getStringTag safely gets a string tag from the header
func getStringTag(hdr *rpmutils.RpmHeader, tag int) string {
	val, err := hdr.Get(tag)
	if err != nil {
		return ""
	}

	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}

	return ""
}

// getEpoch returns the epoch, or "" when the header has none
func getEpoch(hdr *rpmutils.RpmHeader) string {
	if !hdr.HasTag(rpmutils.EPOCH) {
		return ""
	}
	vals, err := hdr.GetUint64s(rpmutils.EPOCH)
	if err != nil || len(vals) == 0 {
		return ""
	}
	return strconv.FormatUint(vals[0], 10)
}

// signatureKeyIDs collects the issuer of every signature. Fingerprints are
// recorded when the signature carries no key id; the key id is their tail.
func signatureKeyIDs(sigs []*rpmutils.Signature) []string {
	var ids []string
	for _, sig := range sigs {
		var id string
		switch {
		case sig.KeyId != 0:
			id = trust.FormatKeyID(sig.KeyId)
		case len(sig.KeyFingerprint) > 0:
			id = hex.EncodeToString(sig.KeyFingerprint)
		default:
			continue
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}
