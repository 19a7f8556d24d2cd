// Package fixtures provides test doubles for integration tests.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
)

// FakeBrew is a scripted stand-in for the brew binary. Behaviour per
// subcommand:
//
//	update    prints "Already up-to-date."
//	outdated  prints the configured JSON report
//	upgrade   keyed off the package name:
//	            prompting-*  prompts on stderr, then sleeps
//	            hanging-*    sleeps without output
//	            broken-*     exits 1
//	            anything else succeeds
//	cleanup   prints a removal line
//
// Every subcommand drops a marker file so tests can assert what ran.
type FakeBrew struct {
	dir string
}

// NewFakeBrew creates a fake brew rooted in dir.
func NewFakeBrew(dir string) *FakeBrew {
	return &FakeBrew{dir: dir}
}

// Create writes the brew script and the outdated report it will serve.
func (f *FakeBrew) Create(outdatedJSON string) error {
	if err := os.WriteFile(f.reportPath(), []byte(outdatedJSON), 0644); err != nil {
		return err
	}

	script := fmt.Sprintf(`#!/bin/sh
dir=%q
cmd="$1"
case "$cmd" in
update)
    touch "$dir/update.ran"
    echo "Already up-to-date."
    ;;
outdated)
    touch "$dir/outdated.ran"
    cat "$dir/outdated.json"
    ;;
upgrade)
    pkg="$2"
    touch "$dir/upgrade-$pkg.ran"
    case "$pkg" in
    prompting-*)
        echo "Do you want to proceed? (y/N)" >&2
        sleep 30
        ;;
    hanging-*)
        sleep 30
        ;;
    broken-*)
        echo "upgrade failed" >&2
        exit 1
        ;;
    *)
        echo "==> Upgraded $pkg"
        ;;
    esac
    ;;
cleanup)
    touch "$dir/cleanup.ran"
    echo "Removing: stale downloads..."
    ;;
*)
    echo "unknown command: $cmd" >&2
    exit 64
    ;;
esac
`, f.dir)

	return os.WriteFile(f.Path(), []byte(script), 0755)
}

// Path returns the fake brew binary path.
func (f *FakeBrew) Path() string {
	return filepath.Join(f.dir, "brew")
}

// Ran reports whether the given subcommand marker was dropped.
// Use "upgrade-<pkg>" for individual upgrades.
func (f *FakeBrew) Ran(marker string) bool {
	_, err := os.Stat(filepath.Join(f.dir, marker+".ran"))
	return err == nil
}

func (f *FakeBrew) reportPath() string {
	return filepath.Join(f.dir, "outdated.json")
}
