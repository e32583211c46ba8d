// Package policy defines the declarative approval requirements a pull
// request must satisfy before it may be merged, and how they are loaded
// from a repository's .merge-warden.yml file.
package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/merge-warden/internal/core"
)

// ErrPolicyNotFound is returned by Load when no policy file exists at the
// given path. Callers may fall back to Default in that case.
var ErrPolicyNotFound = errors.New("policy file not found")

// Policy is the declarative approval requirement set for a repository.
//
// RequiredApprovers and RequiredTeams name identities that must appear in
// the approved set: every listed individual, and at least one member of
// every listed team. RestrictToListed declares whether the named set is
// exhaustive: when true, only approvals from listed individuals or team
// members count toward MinApprovals; when false (the default), any
// reviewer's approval counts toward the minimum.
//
// The three exclusion knobs are tri-state so that an absent key means
// "enabled" rather than "disabled".
type Policy struct {
	MinApprovals      int      `yaml:"min_approvals"`
	RequiredApprovers []string `yaml:"required_approvers"`
	RequiredTeams     []string `yaml:"required_teams"`
	RestrictToListed  bool     `yaml:"restrict_to_listed"`

	// DismissStale invalidates approvals submitted against a commit that is
	// no longer the PR head.
	DismissStale *bool `yaml:"dismiss_stale"`
	// ExcludeAuthor discards an approval by the PR author.
	ExcludeAuthor *bool `yaml:"exclude_author"`
	// ExcludeCommitters discards approvals by users who committed to the PR.
	ExcludeCommitters *bool `yaml:"exclude_committers"`
}

// Default returns the policy applied when a repository ships no policy
// file: a single approval, with every exclusion enabled.
func Default() *Policy {
	return &Policy{MinApprovals: 1}
}

// DismissesStale reports whether stale approvals are invalidated. Enabled
// unless the policy explicitly opts out.
func (p *Policy) DismissesStale() bool {
	return p.DismissStale == nil || *p.DismissStale
}

// ExcludesAuthor reports whether the PR author's own approval is discarded.
func (p *Policy) ExcludesAuthor() bool {
	return p.ExcludeAuthor == nil || *p.ExcludeAuthor
}

// ExcludesCommitters reports whether approvals from PR committers are
// discarded.
func (p *Policy) ExcludesCommitters() bool {
	return p.ExcludeCommitters == nil || *p.ExcludeCommitters
}

// Load reads and validates a policy file from disk.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, path)
		}
		return nil, fmt.Errorf("%w: failed to read policy file %s: %w", core.ErrConfig, path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a policy document from raw YAML.
func Parse(data []byte) (*Policy, error) {
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidPolicy, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the policy for internal consistency.
func (p *Policy) Validate() error {
	if p.MinApprovals < 0 {
		return fmt.Errorf("%w: min_approvals must not be negative, got %d", core.ErrInvalidPolicy, p.MinApprovals)
	}
	for _, login := range p.RequiredApprovers {
		if strings.TrimSpace(login) == "" {
			return fmt.Errorf("%w: required_approvers contains an empty entry", core.ErrInvalidPolicy)
		}
	}
	for _, team := range p.RequiredTeams {
		if strings.TrimSpace(team) == "" {
			return fmt.Errorf("%w: required_teams contains an empty entry", core.ErrInvalidPolicy)
		}
	}

	// With an exhaustive set and no teams to draw members from, the listed
	// individuals must be able to satisfy the minimum at all.
	if p.RestrictToListed && len(p.RequiredTeams) == 0 && p.MinApprovals > len(p.RequiredApprovers) {
		return fmt.Errorf("%w: min_approvals %d cannot be met by %d listed approvers with restrict_to_listed",
			core.ErrInvalidPolicy, p.MinApprovals, len(p.RequiredApprovers))
	}
	return nil
}
