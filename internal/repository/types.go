// Package repository defines the values exchanged between the listing, scheduling, and ledger stages.
package repository

import (
	"cmp"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	identifierSeparatorConstant         = "/"
	currentDirectorySegmentConstant     = "."
	parentDirectorySegmentConstant      = ".."
	invalidSegmentCharactersConstant    = "\\:"
	invalidIdentifierMessageConstant    = "invalid repository identifier"
	invalidIdentifierTemplateConstant   = "%w %q: expected owner/name"
	actionNoneStringConstant            = "none"
	actionUpdateStringConstant          = "update"
	actionCreateStringConstant          = "create"
	outcomeSucceededDescriptionConstant = "succeeded"
	outcomeFailedDescriptionConstant    = "failed"
)

// ErrInvalidIdentifier indicates a repository identifier that is not of the form owner/name.
var ErrInvalidIdentifier = errors.New(invalidIdentifierMessageConstant)

// Identifier is the "owner/name" key of a remote repository.
type Identifier string

// String returns the identifier text.
func (identifier Identifier) String() string {
	return string(identifier)
}

// Split returns the owner and name segments after validating the identifier.
func (identifier Identifier) Split() (string, string, error) {
	segments := strings.Split(string(identifier), identifierSeparatorConstant)
	if len(segments) != 2 || !isSafeSegment(segments[0]) || !isSafeSegment(segments[1]) {
		return "", "", fmt.Errorf(invalidIdentifierTemplateConstant, ErrInvalidIdentifier, string(identifier))
	}
	return segments[0], segments[1], nil
}

// WorkingCopyPath returns <root>/<owner>/<name>. Distinct identifiers always map to distinct paths.
func (identifier Identifier) WorkingCopyPath(root string) (string, error) {
	owner, name, splitError := identifier.Split()
	if splitError != nil {
		return "", splitError
	}
	return filepath.Join(root, owner, name), nil
}

func isSafeSegment(segment string) bool {
	if len(segment) == 0 || segment != strings.TrimSpace(segment) {
		return false
	}
	if segment == currentDirectorySegmentConstant || segment == parentDirectorySegmentConstant {
		return false
	}
	return !strings.ContainsAny(segment, invalidSegmentCharactersConstant)
}

// Candidate is a remote repository whose last remote update is newer than the ledger watermark.
type Candidate struct {
	Repository      Identifier
	RemoteUpdatedAt time.Time
}

// Action names the sync primitive that settled an outcome.
type Action string

// Supported actions.
const (
	ActionNone   Action = Action(actionNoneStringConstant)
	ActionUpdate Action = Action(actionUpdateStringConstant)
	ActionCreate Action = Action(actionCreateStringConstant)
)

// Outcome records a single synchronization attempt. AttemptedAt is captured before any I/O and becomes the
// ledger watermark when Succeeded is true.
type Outcome struct {
	Repository  Identifier
	AttemptedAt time.Time
	Succeeded   bool
	Action      Action
	Failure     error
}

// Describe returns "succeeded" or "failed".
func (outcome Outcome) Describe() string {
	if outcome.Succeeded {
		return outcomeSucceededDescriptionConstant
	}
	return outcomeFailedDescriptionConstant
}

// SortCandidates orders candidates by repository identifier, keeping the relative order of equal identifiers.
func SortCandidates(candidates []Candidate) {
	slices.SortStableFunc(candidates, func(first Candidate, second Candidate) int {
		return cmp.Compare(first.Repository, second.Repository)
	})
}
