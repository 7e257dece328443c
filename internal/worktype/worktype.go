// Package worktype defines the controlled vocabulary of work types and the
// canonical work key used to decide whether work is already queued.
package worktype

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/cases"
)

// ErrInvalidIdentity indicates a malformed dataset location or an unknown
// work type. Identities failing validation are rejected at enqueue time and
// never persisted.
var ErrInvalidIdentity = errors.New("invalid work identity")

// Type is the canonical (case-folded) name of a kind of work.
type Type string

const (
	// ARTICNextflow runs the ARTIC Nextflow pipeline against sequencing run data.
	ARTICNextflow Type = "articnextflow"
	// ONTRunMetadataUpdate refreshes archive metadata on raw ONT run data.
	ONTRunMetadataUpdate Type = "ontrunmetadataupdate"
	// Empty is the null pipeline; it does nothing and exists for smoke testing.
	Empty Type = "empty"
)

// policy captures the per-type behavior the queue needs to know about.
type policy struct {
	display    string
	repeatable bool
}

// Repeatable types may be queued again for a key after a prior instance
// completed; non-repeatable types are one-shot per dataset.
var policies = map[Type]policy{
	ARTICNextflow:        {display: "ARTICNextflow", repeatable: false},
	ONTRunMetadataUpdate: {display: "ONTRunMetadataUpdate", repeatable: true},
	Empty:                {display: "Empty", repeatable: false},
}

var folder = cases.Fold()

// Parse converts a name into a known Type. Matching is case-insensitive.
func Parse(name string) (Type, bool) {
	folded := Type(folder.String(strings.TrimSpace(name)))
	_, ok := policies[folded]
	return folded, ok
}

// All returns the known types in display order.
func All() []Type {
	return []Type{ARTICNextflow, ONTRunMetadataUpdate, Empty}
}

// Display returns the conventional mixed-case spelling of a type.
func (t Type) Display() string {
	if p, ok := policies[t]; ok {
		return p.display
	}
	return string(t)
}

// Repeatable reports whether new work may be queued for a key after a prior
// instance of this type completed.
func (t Type) Repeatable() bool {
	return policies[t].repeatable
}

// Key identifies a logical unit of work: everything at or below a dataset
// location, processed by one type of work. It is the uniqueness key for
// "is this work already queued."
type Key struct {
	Location string
	Type     Type
}

func (k Key) String() string {
	return fmt.Sprintf("%s[%s]", k.Location, k.Type.Display())
}

// Normalize canonicalizes a (location, work type name) pair into a Key.
// The location must be an absolute archive path; trailing separators are
// stripped. The work type name is matched case-insensitively against the
// controlled vocabulary.
func Normalize(location, name string) (Key, error) {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return Key{}, fmt.Errorf("%w: empty dataset location", ErrInvalidIdentity)
	}
	if !strings.HasPrefix(trimmed, "/") {
		return Key{}, fmt.Errorf("%w: dataset location %q is not absolute", ErrInvalidIdentity, location)
	}
	cleaned := path.Clean(trimmed)

	workType, ok := Parse(name)
	if !ok {
		return Key{}, fmt.Errorf("%w: unknown work type %q", ErrInvalidIdentity, name)
	}
	return Key{Location: cleaned, Type: workType}, nil
}
