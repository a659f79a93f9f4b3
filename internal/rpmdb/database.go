// Package rpmdb provides read-only access to installed RPM package headers.
package rpmdb

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/ralt/provenance/internal/models"
)

// Database looks up installed package headers
type Database interface {
	// LookupName returns the installed packages called name. Backends may
	// also accept full package identifiers such as "foo-1:2.0-3.x86_64".
	LookupName(ctx context.Context, name string) ([]models.PackageRecord, error)

	// LookupFile returns every package whose manifest lists path, in
	// database order. An unowned path yields an empty slice and no error.
	LookupFile(ctx context.Context, path string) ([]models.PackageRecord, error)

	// Architecture returns the rpm architecture of the system the packages
	// are installed on.
	Architecture(ctx context.Context) (string, error)
}

// Entry is a package header together with its file manifest
type Entry struct {
	models.PackageRecord `yaml:",inline"`
	Files                []string `yaml:"files,omitempty"`
}

// index is an in-memory name and file index over a fixed package set
type index struct {
	entries []Entry
	byName  map[string][]int
	byFile  map[string][]int
}

func newIndex(entries []Entry) *index {
	ix := &index{
		entries: entries,
		byName:  make(map[string][]int),
		byFile:  make(map[string][]int),
	}
	for i, e := range entries {
		ix.byName[e.Name] = append(ix.byName[e.Name], i)
		for _, f := range e.Files {
			f = filepath.Clean(f)
			if !slices.Contains(ix.byFile[f], i) {
				ix.byFile[f] = append(ix.byFile[f], i)
			}
		}
	}
	return ix
}

func (ix *index) records(positions []int) []models.PackageRecord {
	recs := make([]models.PackageRecord, 0, len(positions))
	for _, i := range positions {
		recs = append(recs, ix.entries[i].PackageRecord)
	}
	return recs
}

// LookupName implements Database
func (ix *index) LookupName(_ context.Context, name string) ([]models.PackageRecord, error) {
	return ix.records(ix.byName[name]), nil
}

// LookupFile implements Database
func (ix *index) LookupFile(_ context.Context, path string) ([]models.PackageRecord, error) {
	return ix.records(ix.byFile[filepath.Clean(path)]), nil
}

// Entries returns every indexed package
func (ix *index) Entries() []Entry {
	return slices.Clone(ix.entries)
}
