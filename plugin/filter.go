package plugin

import (
	"fmt"

	"github.com/gobwas/glob"
)

// AccountFilter selects which account updates are logged at info level,
// by owner program or account address (base58)
// Empty patterns match everything
type AccountFilter struct {
	ownerGlobs  []glob.Glob
	pubkeyGlobs []glob.Glob
}

// NewAccountFilter compiles owner and pubkey glob patterns
func NewAccountFilter(ownerPatterns, pubkeyPatterns []string) (*AccountFilter, error) {
	filter := &AccountFilter{
		ownerGlobs:  make([]glob.Glob, 0, len(ownerPatterns)),
		pubkeyGlobs: make([]glob.Glob, 0, len(pubkeyPatterns)),
	}

	for _, pattern := range ownerPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid owner pattern %q: %w", pattern, err)
		}
		filter.ownerGlobs = append(filter.ownerGlobs, g)
	}

	for _, pattern := range pubkeyPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pubkey pattern %q: %w", pattern, err)
		}
		filter.pubkeyGlobs = append(filter.pubkeyGlobs, g)
	}

	return filter, nil
}

// Match returns true if the owner and pubkey match the configured patterns
// If no patterns are configured, all accounts match
func (f *AccountFilter) Match(owner, pubkey string) bool {
	if !matchAny(f.ownerGlobs, owner) {
		return false
	}
	return matchAny(f.pubkeyGlobs, pubkey)
}

func matchAny(globs []glob.Glob, s string) bool {
	if len(globs) == 0 {
		return true
	}
	for _, g := range globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}
