package rpmdb

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"github.com/ralt/provenance/internal/models"
	"github.com/sirupsen/logrus"
)

// Runner executes a command and returns its combined output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

const (
	fieldSeparator = "\t"
	noneValue      = "(none)"

	// signature tags in order of preference, header-only signatures first
	signatureFormat = "%|DSAHEADER?{%{DSAHEADER:pgpsig}}:{%|RSAHEADER?{%{RSAHEADER:pgpsig}}:{%|SIGGPG?{%{SIGGPG:pgpsig}}:{%|SIGPGP?{%{SIGPGP:pgpsig}}:{(none)}|}|}|}|"

	queryFormat = "%{NAME}\t%|EPOCH?{%{EPOCH}}:{(none)}|\t%{VERSION}\t%{RELEASE}\t%{ARCH}\t%{VENDOR}\t%{DISTRIBUTION}\t" + signatureFormat + "\n"

	queryFields = 8
)

var keyIDPattern = regexp.MustCompile(`Key ID ([0-9a-fA-F]+)`)


// CLIConfig configures the rpm command line backend
type CLIConfig struct {
	// Binary is the rpm executable, "rpm" when empty
	Binary string
	// Root is passed as --root when set
	Root string
	// Architecture overrides the architecture reported by rpm
	Architecture string
	// Runner executes rpm, ExecRunner when nil
	Runner Runner
}

// CLI queries the system package database through the rpm binary
type CLI struct {
	binary string
	root   string
	run    Runner

	archMu sync.Mutex
	arch   string
}

// NewCLI creates a new rpm command line backend
func NewCLI(cfg CLIConfig) *CLI {
	c := &CLI{
		binary: cfg.Binary,
		root:   cfg.Root,
		run:    cfg.Runner,
		arch:   cfg.Architecture,
	}
	if c.binary == "" {
		c.binary = "rpm"
	}
	if c.run == nil {
		c.run = ExecRunner
	}
	return c
}

// LookupName implements Database. rpm -q accepts plain names as well as full
// package identifiers.
func (c *CLI) LookupName(ctx context.Context, name string) ([]models.PackageRecord, error) {
	return c.query(ctx, name, "-q", name)
}

// LookupFile implements Database
func (c *CLI) LookupFile(ctx context.Context, path string) ([]models.PackageRecord, error) {
	return c.query(ctx, path, "-qf", path)
}

// Architecture implements Database. The answer of rpm is kept for the
// lifetime of c; the host fallback is only kept when rpm itself failed.
func (c *CLI) Architecture(ctx context.Context) (string, error) {
	c.archMu.Lock()
	defer c.archMu.Unlock()

	if c.arch != "" {
		return c.arch, nil
	}

	out, err := c.run(ctx, c.binary, c.args("--eval", "%{_arch}")...)
	arch := strings.TrimSpace(string(out))
	if err == nil && arch != "" && !strings.HasPrefix(arch, "%") {
		c.arch = arch
		return c.arch, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", &models.ProvenanceError{
			Type: models.ErrDatabase,
			Err:  fmt.Errorf("failed to query rpm architecture: %w", ctxErr),
		}
	}

	logrus.Debugf("rpm did not report an architecture (%v), using the host", err)
	arch, err = DetectArchitecture()
	if err != nil {
		return "", err
	}
	c.arch = arch
	return c.arch, nil
}

func (c *CLI) args(args ...string) []string {
	if c.root == "" {
		return args
	}
	return append([]string{"--root", c.root}, args...)
}

func (c *CLI) query(ctx context.Context, subject, mode, arg string) ([]models.PackageRecord, error) {
	args := c.args(mode, "--queryformat", queryFormat, "--", arg)
	logrus.Debugf("Running %s %s", c.binary, strings.Join(args, " "))

	out, err := c.run(ctx, c.binary, args...)
	if err != nil {
		if isEmptyResult(out, mode, arg) {
			return []models.PackageRecord{}, nil
		}
		return nil, &models.ProvenanceError{
			Type:    models.ErrDatabase,
			Package: subject,
			Err:     fmt.Errorf("%s %s: %w: %s", c.binary, mode, err, strings.TrimSpace(string(out))),
		}
	}

	return parseQueryOutput(out), nil
}

// isEmptyResult reports whether rpm failed only because nothing matched arg.
// Any other error line, such as an unreadable database, is a real failure even
// when rpm goes on to print "is not installed".
func isEmptyResult(out []byte, mode, arg string) bool {
	notInstalled := fmt.Sprintf("package %s is not installed", arg)
	notOwned := fmt.Sprintf("file %s is not owned by any package", arg)
	missingFile := fmt.Sprintf("error: file %s: No such file or directory", arg)

	empty := false
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case mode == "-q" && line == notInstalled:
			empty = true
		case mode == "-qf" && (line == notOwned || line == missingFile):
			empty = true
		case strings.HasPrefix(line, "warning:"):
		default:
			return false
		}
	}
	return empty
}

// parseQueryOutput parses one record per line of queryFormat output
func parseQueryOutput(out []byte) []models.PackageRecord {
	recs := []models.PackageRecord{}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, fieldSeparator)
		if len(fields) != queryFields {
			logrus.Debugf("Skipping rpm output line: %q", line)
			continue
		}

		rec := models.PackageRecord{
			Name:         fields[0],
			Epoch:        noneToEmpty(fields[1]),
			Version:      fields[2],
			Release:      fields[3],
			Arch:         noneToEmpty(fields[4]),
			Vendor:       noneToEmpty(fields[5]),
			Distribution: noneToEmpty(fields[6]),
		}
		if m := keyIDPattern.FindStringSubmatch(fields[7]); m != nil {
			rec.SigningKeyIDs = []string{strings.ToLower(m[1])}
		}
		recs = append(recs, rec)
	}
	return recs
}

func noneToEmpty(s string) string {
	if s == noneValue {
		return ""
	}
	return s
}
