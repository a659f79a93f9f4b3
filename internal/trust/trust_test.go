package trust

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/google/go-cmp/cmp"
	"github.com/ralt/provenance/internal/models"
)

func fedoraPolicy() *Policy {
	return NewPolicy(models.DefaultOfficialKeyIDs, VendorMatch{
		Vendor:             models.DefaultVendor,
		DistributionPrefix: models.DefaultDistributionPrefix,
	})
}

func TestNormalizeKeyID(t *testing.T) {
	tests := map[string]string{
		"30C9ECF8":         "30c9ecf8",
		"0x1AC70CE6":       "1ac70ce6",
		" 897da07a ":       "897da07a",
		"":                 "",
		"not-hex":          "",
		"199e2f91fd431d51": "199e2f91fd431d51",
		"0xZZ":             "",
	}
	for in, want := range tests {
		if got := NormalizeKeyID(in); got != want {
			t.Errorf("NormalizeKeyID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeyIDsMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"30c9ecf8", "30c9ecf8", true},
		{"30c9ecf8", "b44269d04f2a6fd2", false},
		{"4f2a6fd2", "b44269d04f2a6fd2", true},
		{"b44269d04f2a6fd2", "4f2a6fd2", true},
		{"6fd2", "b44269d04f2a6fd2", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := KeyIDsMatch(tt.a, tt.b); got != tt.want {
			t.Errorf("KeyIDsMatch(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFormatKeyID(t *testing.T) {
	if got := FormatKeyID(0x1ac70ce6); got != "000000001ac70ce6" {
		t.Errorf("FormatKeyID = %q", got)
	}
}

func TestPolicyOfficialKeys(t *testing.T) {
	p := fedoraPolicy()

	if diff := cmp.Diff(models.DefaultOfficialKeyIDs, p.KeyIDs()); diff != "" {
		t.Errorf("KeyIDs mismatch (-want +got):\n%s", diff)
	}

	signed := models.PackageRecord{Name: "foo", SigningKeyIDs: []string{"deadbeef", "30C9ECF8"}}
	if !p.HasOfficialKey(signed) {
		t.Error("package signed with an official key should be accepted")
	}

	longID := models.PackageRecord{Name: "foo", SigningKeyIDs: []string{"0123456789abcdef1ac70ce6"}}
	if !p.HasOfficialKey(longID) {
		t.Error("long key ids ending in an official short id should be accepted")
	}

	thirdParty := models.PackageRecord{Name: "foo", SigningKeyIDs: []string{"deadbeef"}}
	if p.HasOfficialKey(thirdParty) {
		t.Error("package signed with an unknown key must not be accepted")
	}

	if p.HasOfficialKey(models.PackageRecord{Name: "unsigned"}) {
		t.Error("unsigned package must not be accepted")
	}
}

func TestPolicyDeduplicatesAndDropsInvalidIDs(t *testing.T) {
	p := NewPolicy([]string{"30C9ECF8", "30c9ecf8", "bogus", ""}, VendorMatch{})
	if diff := cmp.Diff([]string{"30c9ecf8"}, p.KeyIDs()); diff != "" {
		t.Errorf("KeyIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestPolicyMatchesRollingVendor(t *testing.T) {
	p := fedoraPolicy()

	tests := []struct {
		name         string
		vendor       string
		distribution string
		want         bool
	}{
		{"exact", "Red Hat, Inc.", "Red Hat", true},
		{"prefix", "Red Hat, Inc.", "Red Hat Enterprise Linux", true},
		{"wrong vendor", "Fedora Project", "Red Hat Enterprise Linux", false},
		{"wrong distribution", "Red Hat, Inc.", "Fedora Project", false},
		{"case matters", "red hat, inc.", "Red Hat", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := models.PackageRecord{Vendor: tt.vendor, Distribution: tt.distribution}
			if got := p.MatchesRollingVendor(rec); got != tt.want {
				t.Errorf("MatchesRollingVendor = %v, want %v", got, tt.want)
			}
		})
	}

	if NewPolicy(nil, VendorMatch{}).MatchesRollingVendor(models.PackageRecord{}) {
		t.Error("an empty vendor pattern must never match")
	}
}

func TestNewPolicyFromConfig(t *testing.T) {
	cfg := models.DefaultConfig()
	p := NewPolicyFromConfig(cfg, []string{"0000000012345678"})

	if !p.IsOfficialKey("12345678") {
		t.Error("keyring ids should extend the official key set")
	}
	if !p.IsOfficialKey("30c9ecf8") {
		t.Error("configured ids should stay official")
	}
	if p.Vendor().Vendor != models.DefaultVendor {
		t.Errorf("Vendor() = %+v", p.Vendor())
	}
	if len(cfg.OfficialKeyIDs) != len(models.DefaultOfficialKeyIDs) {
		t.Error("NewPolicyFromConfig must not modify the config")
	}
}

func writeTestKeyring(t *testing.T, armored bool) (string, *openpgp.Entity) {
	t.Helper()

	entity, err := openpgp.NewEntity("Provenance Test", "", "test@example.org", &packet.Config{
		Algorithm: packet.PubKeyAlgoEdDSA,
	})
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}

	var buf bytes.Buffer
	if armored {
		w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
		if err != nil {
			t.Fatalf("Failed to create armor writer: %v", err)
		}
		if err := entity.Serialize(w); err != nil {
			t.Fatalf("Failed to serialize key: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Failed to close armor writer: %v", err)
		}
	} else if err := entity.Serialize(&buf); err != nil {
		t.Fatalf("Failed to serialize key: %v", err)
	}

	path := filepath.Join(t.TempDir(), "RPM-GPG-KEY-test")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write keyring: %v", err)
	}
	return path, entity
}

func TestLoadKeyring(t *testing.T) {
	for _, armored := range []bool{true, false} {
		name := "binary"
		if armored {
			name = "armored"
		}
		t.Run(name, func(t *testing.T) {
			path, entity := writeTestKeyring(t, armored)

			entities, err := LoadKeyring(path)
			if err != nil {
				t.Fatalf("LoadKeyring failed: %v", err)
			}

			ids := KeyIDs(entities)
			want := FormatKeyID(entity.PrimaryKey.KeyId)
			if len(ids) == 0 || ids[0] != want {
				t.Fatalf("KeyIDs() = %v, want primary key %s first", ids, want)
			}
			if len(ids) != 1+len(entity.Subkeys) {
				t.Errorf("KeyIDs() returned %d ids, want %d", len(ids), 1+len(entity.Subkeys))
			}
		})
	}
}

func TestLoadKeyringErrors(t *testing.T) {
	if _, err := LoadKeyring(""); err == nil {
		t.Error("expected error for empty path")
	}

	_, err := LoadKeyring("/nonexistent/RPM-GPG-KEY")
	if err == nil || !strings.Contains(err.Error(), "failed to open key file") {
		t.Errorf("expected open error, got %v", err)
	}

	garbage := filepath.Join(t.TempDir(), "garbage")
	if err := os.WriteFile(garbage, []byte("not a key"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := LoadKeyring(garbage); err == nil {
		t.Error("expected error for garbage keyring")
	}

	if _, err := LoadKeyrings([]string{garbage}); err == nil || !strings.Contains(err.Error(), garbage) {
		t.Errorf("LoadKeyrings should name the failing file, got %v", err)
	}
}
