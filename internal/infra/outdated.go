package infra

import (
	"encoding/json"
	"fmt"

	"github.com/eliteGoblin/brewkeeper/internal/domain"
)

// outdatedDocument represents the structure of `brew outdated --json` output.
type outdatedDocument struct {
	Formulae []outdatedEntry `json:"formulae"`
	Casks    []outdatedEntry `json:"casks"`
}

// outdatedEntry represents one outdated package in JSON output.
type outdatedEntry struct {
	Name              string   `json:"name"`
	InstalledVersions []string `json:"installed_versions"`
	CurrentVersion    string   `json:"current_version"`
	Pinned            bool     `json:"pinned"`
	PinnedVersion     string   `json:"pinned_version"`
}

// JSONOutdatedDecoder implements domain.OutdatedDecoder for brew's JSON
// report. It is faithful: ordering and duplicates are preserved, unknown
// fields are ignored.
type JSONOutdatedDecoder struct{}

// NewOutdatedDecoder creates a decoder for `brew outdated --json` output.
func NewOutdatedDecoder() domain.OutdatedDecoder {
	return &JSONOutdatedDecoder{}
}

// Decode parses the report. A document that is not valid JSON, names a
// package with an empty name, or pins a package without a pinned version
// is rejected as malformed.
func (d *JSONOutdatedDecoder) Decode(text string) (*domain.OutdatedReport, error) {
	var doc outdatedDocument
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse brew outdated output: %w", err)
	}

	formulae, err := convertEntries(doc.Formulae, "formulae")
	if err != nil {
		return nil, err
	}
	casks, err := convertEntries(doc.Casks, "casks")
	if err != nil {
		return nil, err
	}

	return &domain.OutdatedReport{Formulae: formulae, Casks: casks}, nil
}

func convertEntries(entries []outdatedEntry, list string) ([]domain.Package, error) {
	pkgs := make([]domain.Package, 0, len(entries))
	for i, entry := range entries {
		if entry.Name == "" {
			return nil, fmt.Errorf("malformed outdated report: %s[%d] has no name", list, i)
		}
		if entry.Pinned && entry.PinnedVersion == "" {
			return nil, fmt.Errorf("malformed outdated report: pinned package %q has no pinned version", entry.Name)
		}
		pkgs = append(pkgs, domain.Package{
			Name:              entry.Name,
			InstalledVersions: entry.InstalledVersions,
			CurrentVersion:    entry.CurrentVersion,
			Pinned:            entry.Pinned,
			PinnedVersion:     entry.PinnedVersion,
		})
	}
	return pkgs, nil
}

// Ensure JSONOutdatedDecoder implements domain.OutdatedDecoder.
var _ domain.OutdatedDecoder = (*JSONOutdatedDecoder)(nil)
