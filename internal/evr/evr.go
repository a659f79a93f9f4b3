// Package evr parses and orders rpm epoch:version-release strings.
package evr

import (
	"strings"

	"github.com/sassoftware/go-rpmutils"
)

// Ordering is the result of comparing two versions
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// String returns the string representation of Ordering
func (o Ordering) String() string {
	switch o {
	case Less:
		return "LESS"
	case Equal:
		return "EQUAL"
	case Greater:
		return "GREATER"
	default:
		return "UNKNOWN"
	}
}

// VersionKey is a parsed epoch:version-release triple
type VersionKey struct {
	Epoch   string // empty when the version string carried no epoch
	Version string
	Release string
}

// Parse splits s into epoch, version and release. It accepts any input: the
// epoch ends at the first colon and the release starts after the last hyphen.
func Parse(s string) VersionKey {
	var k VersionKey
	s = strings.TrimSpace(s)

	if i := strings.Index(s, ":"); i >= 0 {
		k.Epoch = normalizeEpoch(s[:i])
		s = s[i+1:]
	}

	if i := strings.LastIndex(s, "-"); i >= 0 {
		k.Version, k.Release = s[:i], s[i+1:]
	} else {
		k.Version = s
	}

	return k
}

// String returns the canonical [epoch:]version[-release] form
func (k VersionKey) String() string {
	s := k.Version
	if k.Release != "" {
		s += "-" + k.Release
	}
	if k.Epoch != "" {
		s = k.Epoch + ":" + s
	}
	return s
}

// Format renders [epoch:]version-release
func Format(epoch, version, release string) string {
	return VersionKey{Epoch: epoch, Version: version, Release: release}.String()
}

// effectiveEpoch treats a missing epoch as 0, the lowest epoch rpm allows.
func (k VersionKey) effectiveEpoch() string {
	if k.Epoch == "" {
		return "0"
	}
	return k.Epoch
}

// Compare orders a and b. Each component is compared with rpm's segment
// algorithm; when all components are rpm-equal the raw components are compared
// lexically, so distinct spellings such as "1.0" and "1.00" still get a stable
// order.
func Compare(a, b VersionKey) Ordering {
	pairs := [3][2]string{
		{a.effectiveEpoch(), b.effectiveEpoch()},
		{a.Version, b.Version},
		{a.Release, b.Release},
	}

	for _, p := range pairs {
		if c := rpmutils.Vercmp(p[0], p[1]); c != 0 {
			return Ordering(c)
		}
	}

	for _, p := range pairs {
		if c := strings.Compare(p[0], p[1]); c != 0 {
			return Ordering(c)
		}
	}

	return Equal
}

// CompareStrings parses and compares two version strings
func CompareStrings(v1, v2 string) Ordering {
	return Compare(Parse(v1), Parse(v2))
}

// normalizeEpoch trims leading zeros from numeric epochs. Anything else is
// kept verbatim and ordered by the segment and lexical rules.
func normalizeEpoch(e string) string {
	e = strings.TrimSpace(e)
	if e == "" || !isDigits(e) {
		return e
	}
	e = strings.TrimLeft(e, "0")
	if e == "" {
		return "0"
	}
	return e
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
