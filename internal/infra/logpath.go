package infra

import "path/filepath"

// Homebrew log directories per install prefix (Apple Silicon vs Intel).
const (
	appleSiliconLogDir = "/opt/homebrew/var/log"
	intelLogDir        = "/usr/local/var/log"
)

// LogFileName is the maintenance log written next to brew's own logs.
const LogFileName = "brewkeeper.log"

// ResolveLogDir picks the Homebrew log directory for this machine:
// the Apple Silicon prefix when it exists, the Intel prefix otherwise.
func ResolveLogDir(fc FileChecker) string {
	if fc.Exists(appleSiliconLogDir) {
		return appleSiliconLogDir
	}
	return intelLogDir
}

// DefaultLogFilePath returns the maintenance log path on this machine.
func DefaultLogFilePath() string {
	return filepath.Join(ResolveLogDir(&RealFileChecker{}), LogFileName)
}
