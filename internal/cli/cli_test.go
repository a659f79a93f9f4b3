package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ralt/provenance/internal/models"
	"github.com/ralt/provenance/internal/rpmdb"
)

func writeTestSnapshot(t *testing.T) string {
	t.Helper()

	entries := []rpmdb.Entry{
		{
			PackageRecord: models.PackageRecord{
				Name:          "bash",
				Version:       "5.2.26",
				Release:       "3.fc40",
				Arch:          "x86_64",
				Vendor:        "Fedora Project",
				Distribution:  "Fedora Project",
				SigningKeyIDs: []string{"0727707ea15b79cc"},
			},
			Files: []string{"/usr/bin/bash"},
		},
		{
			PackageRecord: models.PackageRecord{
				Name:         "rawhide-tool",
				Epoch:        "2",
				Version:      "1.0",
				Release:      "1.fc41",
				Arch:         "x86_64",
				Vendor:       "Red Hat, Inc.",
				Distribution: "Red Hat (Rawhide)",
			},
			Files: []string{"/usr/bin/rawhide-tool"},
		},
		{
			PackageRecord: models.PackageRecord{
				Name:    "custom",
				Version: "0.1",
				Release: "1",
				Arch:    "x86_64",
				Vendor:  "ACME",
			},
			Files: []string{"/opt/custom/bin/custom"},
		},
	}

	path := filepath.Join(t.TempDir(), "packages.yaml.gz")
	if err := rpmdb.WriteSnapshot(path, "x86_64", entries); err != nil {
		t.Fatalf("Failed to write snapshot: %v", err)
	}
	return path
}

func writeTestConfig(t *testing.T, snapshot string) string {
	t.Helper()

	config := `official_key_ids:
  - a15b79cc
database:
  backend: snapshot
  path: ` + snapshot + `
  cache_size: 16
release_file: /nonexistent/fedora-release
`
	path := filepath.Join(t.TempDir(), "provenance.yaml")
	if err := os.WriteFile(path, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	config := writeTestConfig(t, writeTestSnapshot(t))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"owner", []string{"owner", "/usr/bin/bash"}, "bash-5.2.26-3.fc40.x86_64"},
		{"genuine signed", []string{"genuine", "bash"}, "genuine"},
		{"genuine unsigned stable", []string{"genuine", "rawhide-tool"}, "third-party"},
		{"genuine unsigned rolling", []string{"--rolling", "genuine", "rawhide-tool"}, "genuine"},
		{"genuine third party rolling", []string{"--rolling", "genuine", "custom"}, "third-party"},
		{"genuine by nevra", []string{"genuine", "bash-5.2.26-3.fc40.x86_64"}, "genuine"},
		{"version", []string{"version", "rawhide-tool"}, "2:1.0-1.fc41"},
		{"source", []string{"source", "bash", t.TempDir()}, "source not available for bash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-c", config}, tt.args...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("command failed: %v\n%s", err, out)
			}
			if got := strings.TrimSpace(out); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompareCommand(t *testing.T) {
	tests := []struct {
		v1, v2 string
		want   string
	}{
		{"1.2-3", "1.2-3.1", "<"},
		{"2:1.0-1", "1.0-99", ">"},
		{"0:1.0-1", "1.0-1", "="},
	}

	for _, tt := range tests {
		out, err := execute(t, "compare", tt.v1, tt.v2)
		if err != nil {
			t.Fatalf("compare failed: %v", err)
		}
		if got := strings.TrimSpace(out); got != tt.want {
			t.Errorf("compare %s %s = %q, want %q", tt.v1, tt.v2, got, tt.want)
		}
	}
}

func TestOwnerNotFound(t *testing.T) {
	config := writeTestConfig(t, writeTestSnapshot(t))

	_, err := execute(t, "-c", config, "owner", "/usr/local/bin/unknown")
	if !models.IsNotFound(err) {
		t.Errorf("expected NotFound error, got %v", err)
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	snapshot := writeTestSnapshot(t)
	config := writeTestConfig(t, filepath.Join(t.TempDir(), "missing.yaml"))

	out, err := execute(t, "-c", config, "--db-path", snapshot, "owner", "/usr/bin/rawhide-tool")
	if err != nil {
		t.Fatalf("owner failed: %v\n%s", err, out)
	}
	if got := strings.TrimSpace(out); got != "rawhide-tool-2:1.0-1.fc41.x86_64" {
		t.Errorf("output = %q", got)
	}
}

func TestInvalidBackend(t *testing.T) {
	_, err := execute(t, "--backend", "dpkg", "version", "bash")
	if !models.IsType(err, models.ErrInvalidConfig) {
		t.Errorf("expected invalid config error, got %v", err)
	}
}

func TestMissingKeyring(t *testing.T) {
	config := filepath.Join(t.TempDir(), "provenance.yaml")
	content := "official_keyrings:\n  - /nonexistent/RPM-GPG-KEY\n"
	if err := os.WriteFile(config, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "-c", config, "genuine", "bash")
	if !models.IsType(err, models.ErrSignature) {
		t.Errorf("expected signature error, got %v", err)
	}
}

func TestMetricsTextfile(t *testing.T) {
	config := writeTestConfig(t, writeTestSnapshot(t))
	metricsPath := filepath.Join(t.TempDir(), "provenance.prom")

	if _, err := execute(t, "-c", config, "--metrics-textfile", metricsPath, "owner", "/nonexistent"); err == nil {
		t.Fatal("expected NotFound error")
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
	if !strings.Contains(string(data), `provenance_operations_total{operation="resolve_owner",result="not_found"}`) {
		t.Errorf("metrics textfile lacks the owner counter:\n%s", data)
	}
}

func TestSnapshotCommand(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("no packages"), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "empty.yaml.xz")

	if _, err := execute(t, "--arch", "aarch64", "snapshot", "--from", dir, "--out", out); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	snap, err := rpmdb.LoadSnapshot(out)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if n := len(snap.Entries()); n != 0 {
		t.Errorf("expected empty snapshot, got %d packages", n)
	}
}

func TestSnapshotCommandRequiresFlags(t *testing.T) {
	if _, err := execute(t, "snapshot"); err == nil {
		t.Error("expected error without --from and --out")
	}
}
