// SPDX-License-Identifier: MPL-2.0

package capability

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/podenv/podenv/internal/environment"
	"github.com/podenv/podenv/internal/issue"
	"github.com/podenv/podenv/internal/plan"
)

// ErrConflict is the sentinel for ConflictError.
var ErrConflict = errors.New("capability conflict")

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

type (
	// ApplyFunc applies a capability in the given state to the builder.
	ApplyFunc func(b *plan.Builder, enabled bool) error

	// Capability is one entry of the table.
	Capability struct {
		Name        string
		Description string
		// Implied, when set, decides the state of a capability the
		// environment does not mention explicitly.
		Implied func(env environment.Environment) bool
		Apply   ApplyFunc
	}

	// Table is an immutable, insertion-ordered set of capabilities.
	Table struct {
		entries *orderedmap.OrderedMap[string, Capability]
	}

	// ConflictError reports capability states that cannot be combined.
	ConflictError struct {
		Capability string
		Reason     string
	}
)

// NewTable builds a table, rejecting duplicate or malformed names.
func NewTable(caps ...Capability) (*Table, error) {
	entries := orderedmap.New[string, Capability](len(caps))
	for _, c := range caps {
		if !namePattern.MatchString(c.Name) {
			return nil, fmt.Errorf("capability name %q is not kebab-case", c.Name)
		}
		if c.Apply == nil {
			return nil, fmt.Errorf("capability %q has no apply function", c.Name)
		}
		if _, exists := entries.Get(c.Name); exists {
			return nil, fmt.Errorf("duplicate capability %q", c.Name)
		}
		entries.Set(c.Name, c)
	}
	return &Table{entries: entries}, nil
}

// MustTable is NewTable that panics on error, for package-level tables.
func MustTable(caps ...Capability) *Table {
	t, err := NewTable(caps...)
	if err != nil {
		panic(err)
	}
	return t
}

// All returns the capabilities in table order.
func (t *Table) All() []Capability {
	out := make([]Capability, 0, t.entries.Len())
	for pair := t.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Names returns the capability names in table order.
func (t *Table) Names() []string {
	out := make([]string, 0, t.entries.Len())
	for pair := t.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Lookup returns the named capability.
func (t *Table) Lookup(name string) (Capability, bool) {
	return t.entries.Get(name)
}

// Len returns the number of capabilities.
func (t *Table) Len() int { return t.entries.Len() }

// Resolve returns the state of every capability for env: the explicit value
// when present, otherwise the implied value, otherwise false.
func (t *Table) Resolve(env environment.Environment) map[string]bool {
	state := make(map[string]bool, t.entries.Len())
	for _, c := range t.All() {
		enabled, explicit := env.Capability(c.Name)
		if !explicit && c.Implied != nil {
			enabled = c.Implied(env)
		}
		state[c.Name] = enabled
	}
	return state
}

// Unknown returns the capability names set in env that the table does not know.
func (t *Table) Unknown(env environment.Environment) []string {
	var out []string
	for name := range env.Capabilities {
		if _, ok := t.entries.Get(name); !ok {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("capability %s: %s", e.Capability, e.Reason)
}

// Is makes ConflictError match ErrConflict and the configuration error family.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict || target == issue.ErrConfig || target == issue.ErrRuntime
}

// IssueID links conflicts to the catalog entry.
func (e *ConflictError) IssueID() issue.Id { return issue.CapabilityConflictId }
