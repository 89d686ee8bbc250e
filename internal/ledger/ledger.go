package ledger

import (
	"cmp"
	"slices"
	"time"

	"github.com/temirov/repomirror/internal/repository"
)

// Entry pairs a repository with the time of its last successful synchronization attempt.
type Entry struct {
	Repository repository.Identifier
	LastUpdate time.Time
}

// Ledger maps repositories to the attempt time of their last successful synchronization.
// Entries are only inserted or overwritten, never removed.
type Ledger struct {
	entries map[repository.Identifier]time.Time
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[repository.Identifier]time.Time)}
}

// IsOutdated reports whether the candidate has no entry or its entry is strictly older than the remote update.
// An entry equal to the remote update time is current.
func (ledger *Ledger) IsOutdated(candidate repository.Candidate) bool {
	lastUpdate, exists := ledger.entries[candidate.Repository]
	if !exists {
		return true
	}
	return lastUpdate.Before(candidate.RemoteUpdatedAt)
}

// Record inserts or overwrites the entry for repositoryIdentifier. The stored time is replaced unconditionally.
func (ledger *Ledger) Record(repositoryIdentifier repository.Identifier, at time.Time) {
	ledger.entries[repositoryIdentifier] = at
}

// Lookup returns the recorded time for repositoryIdentifier.
func (ledger *Ledger) Lookup(repositoryIdentifier repository.Identifier) (time.Time, bool) {
	lastUpdate, exists := ledger.entries[repositoryIdentifier]
	return lastUpdate, exists
}

// Len returns the number of recorded repositories.
func (ledger *Ledger) Len() int {
	return len(ledger.entries)
}

// Entries returns every entry ordered by repository identifier.
func (ledger *Ledger) Entries() []Entry {
	entries := make([]Entry, 0, len(ledger.entries))
	for repositoryIdentifier, lastUpdate := range ledger.entries {
		entries = append(entries, Entry{Repository: repositoryIdentifier, LastUpdate: lastUpdate})
	}
	slices.SortFunc(entries, func(first Entry, second Entry) int {
		return cmp.Compare(first.Repository, second.Repository)
	})
	return entries
}

// Apply records the attempt time of every succeeded outcome and returns how many entries were written.
// Failed outcomes leave their entries untouched.
func (ledger *Ledger) Apply(outcomes []repository.Outcome) int {
	recorded := 0
	for _, outcome := range outcomes {
		if !outcome.Succeeded {
			continue
		}
		ledger.Record(outcome.Repository, outcome.AttemptedAt)
		recorded++
	}
	return recorded
}
