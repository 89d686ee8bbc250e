package mirror_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repomirror/internal/ledger"
	"github.com/temirov/repomirror/internal/listing"
	"github.com/temirov/repomirror/internal/mirror"
	"github.com/temirov/repomirror/internal/repository"
)

func TestWriteReport(testInstance *testing.T) {
	attemptedAt := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	testCases := []struct {
		name           string
		report         mirror.Report
		expectedOutput string
	}{
		{
			name: "mixed_outcomes",
			report: mirror.Report{
				Candidates: []repository.Candidate{{Repository: "alice/a"}, {Repository: "alice/b"}, {Repository: "alice/c"}},
				Outcomes: []repository.Outcome{
					{Repository: "alice/a", AttemptedAt: attemptedAt, Succeeded: true, Action: repository.ActionUpdate},
					{Repository: "alice/b", AttemptedAt: attemptedAt, Action: repository.ActionCreate, Failure: errors.New("create reported unsuccessful")},
				},
				SkippedAccounts: []listing.ListingError{{Account: "bob"}},
			},
			expectedOutput: "alice/a\tupdate\tsucceeded\nalice/b\tcreate\tfailed\nsynchronized 1 of 2 repositories (1 failed, 3 outdated, 1 accounts skipped)\n",
		},
		{
			name: "dry_run",
			report: mirror.Report{
				DryRun:     true,
				Candidates: []repository.Candidate{{Repository: "alice/a", RemoteUpdatedAt: attemptedAt}},
			},
			expectedOutput: "alice/a\t2024-06-01T00:00:00Z\n1 outdated repositories (0 accounts skipped)\n",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			outputBuffer := &strings.Builder{}
			require.NoError(testInstance, mirror.WriteReport(outputBuffer, testCase.report))
			require.Equal(testInstance, testCase.expectedOutput, outputBuffer.String())
		})
	}
}

func TestWriteLedgerEntries(testInstance *testing.T) {
	outputBuffer := &strings.Builder{}
	entries := []ledger.Entry{
		{Repository: "alice/a", LastUpdate: time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)},
		{Repository: "bob/b", LastUpdate: time.Date(2024, time.March, 4, 5, 6, 7, 0, time.FixedZone("", 2*60*60))},
	}
	require.NoError(testInstance, mirror.WriteLedgerEntries(outputBuffer, entries))
	require.Equal(testInstance, "alice/a\t2024-01-02T03:04:05Z\nbob/b\t2024-03-04T05:06:07+02:00\n", outputBuffer.String())
}
