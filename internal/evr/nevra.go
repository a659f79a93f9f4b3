package evr

import "strings"

// knownArches are the architecture suffixes recognized in package identifiers
var knownArches = map[string]bool{
	"noarch": true, "src": true, "nosrc": true,
	"x86_64": true, "i386": true, "i486": true, "i586": true, "i686": true, "athlon": true,
	"aarch64": true, "armv7hl": true, "armv7l": true, "armhfp": true,
	"ppc": true, "ppc64": true, "ppc64le": true, "ppc64p7": true,
	"s390": true, "s390x": true, "riscv64": true, "loongarch64": true,
}

// IsKnownArch reports whether arch is an rpm architecture name
func IsKnownArch(arch string) bool {
	return knownArches[arch]
}

// NEVRA holds the parts of a package identifier
type NEVRA struct {
	Name string
	VersionKey
	Arch string
}

// ParseNEVRA splits identifiers such as "foo-1:2.0-3.x86_64" or "foo-2.0-3".
// It returns false when id has no version-release part.
func ParseNEVRA(id string) (NEVRA, bool) {
	var n NEVRA
	rest := strings.TrimSpace(id)

	if i := strings.LastIndex(rest, "."); i >= 0 && IsKnownArch(rest[i+1:]) {
		n.Arch = rest[i+1:]
		rest = rest[:i]
	}

	i := strings.LastIndex(rest, "-")
	if i <= 0 {
		return NEVRA{}, false
	}
	n.Release = rest[i+1:]
	rest = rest[:i]

	i = strings.LastIndex(rest, "-")
	if i <= 0 {
		return NEVRA{}, false
	}
	n.Name = rest[:i]
	version := rest[i+1:]

	if j := strings.Index(version, ":"); j >= 0 {
		n.Epoch = normalizeEpoch(version[:j])
		version = version[j+1:]
	}
	n.Version = version

	if n.Version == "" || n.Release == "" {
		return NEVRA{}, false
	}
	return n, true
}

// Matches reports whether a package with the given fields satisfies n. Empty
// arch and epoch in n match anything; epoch 0 matches a package without one.
func (n NEVRA) Matches(name, epoch, version, release, arch string) bool {
	if n.Name != name || n.Version != version || n.Release != release {
		return false
	}
	if n.Arch != "" && n.Arch != arch {
		return false
	}
	if n.Epoch != "" {
		want := VersionKey{Epoch: n.Epoch}
		got := VersionKey{Epoch: normalizeEpoch(epoch)}
		if want.effectiveEpoch() != got.effectiveEpoch() {
			return false
		}
	}
	return true
}
