// Package infra implements infrastructure concerns (process execution,
// report decoding, launchd scheduling).
package infra

import "strings"

// promptPatterns is the authoritative list of substrings that mark a line
// as a request for human input. Coarse on purpose: a false positive aborts
// an upgrade, a false negative hangs the whole run.
var promptPatterns = []string{
	"y/n",
	"(y/n)",
	"[y/n]",
	"yes/no",
	"(yes/no)",
	"[yes/no]",
	"press enter",
	"continue?",
	"proceed?",
	"password:",
	"passphrase:",
	"are you sure",
	"do you want",
	"would you like",
}

// IsInteractivePrompt reports whether a line emitted by the child looks
// like an interactive prompt. Matching is a case-insensitive substring
// check anywhere in the line.
func IsInteractivePrompt(line string) bool {
	lower := strings.ToLower(line)
	for _, pattern := range promptPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
