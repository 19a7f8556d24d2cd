// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Package represents one outdated Homebrew package (formula or cask) as
// reported by `brew outdated --json`.
type Package struct {
	Name              string   `json:"name"`
	InstalledVersions []string `json:"installed_versions"`
	CurrentVersion    string   `json:"current_version"`
	Pinned            bool     `json:"pinned"`
	// PinnedVersion is present only when Pinned is true.
	PinnedVersion string `json:"pinned_version,omitempty"`
}

func (p Package) String() string {
	return fmt.Sprintf("%s(available:%s): |installed: %s|pinned: %t|pinned-version: %s|",
		p.Name, p.CurrentVersion, strings.Join(p.InstalledVersions, ", "), p.Pinned, p.PinnedVersion)
}

// OutdatedReport is the decoded `brew outdated --json` document. Ordering
// is preserved from brew's output and duplicates are not collapsed.
type OutdatedReport struct {
	Formulae []Package `json:"formulae"`
	Casks    []Package `json:"casks"`
}

// All returns every outdated package, formulae first, in original order.
func (r *OutdatedReport) All() []Package {
	all := make([]Package, 0, len(r.Formulae)+len(r.Casks))
	all = append(all, r.Formulae...)
	all = append(all, r.Casks...)
	return all
}

// Empty reports whether there is nothing to upgrade.
func (r *OutdatedReport) Empty() bool {
	return len(r.Formulae) == 0 && len(r.Casks) == 0
}

func (r *OutdatedReport) String() string {
	var b strings.Builder
	for _, p := range r.All() {
		b.WriteString(p.String())
		b.WriteString("\n")
	}
	return b.String()
}

// MaintenanceReport summarizes one full maintenance pass.
type MaintenanceReport struct {
	StartedAt      time.Time
	Duration       time.Duration
	Outdated       *OutdatedReport
	FailedUpgrades []Package
}
