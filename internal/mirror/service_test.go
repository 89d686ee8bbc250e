package mirror_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/repomirror/internal/ledger"
	"github.com/temirov/repomirror/internal/listing"
	"github.com/temirov/repomirror/internal/mirror"
	"github.com/temirov/repomirror/internal/repository"
)

const (
	testLedgerPathConstant = "/data/repomirror/last_updated.json"
	testRunIdentifier      = "run-0001"
)

var testAttemptTime = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

type stubCollector struct {
	collection      listing.Collection
	collectError    error
	receivedOracle  listing.StalenessOracle
	receivedCap     int
	receivedAccount []string
}

func (collector *stubCollector) Collect(_ context.Context, accounts []string, oracle listing.StalenessOracle, capPerAccount int) (listing.Collection, error) {
	collector.receivedAccount = accounts
	collector.receivedOracle = oracle
	collector.receivedCap = capPerAccount
	return collector.collection, collector.collectError
}

type stubRunner struct {
	succeeded     map[repository.Identifier]bool
	invocations   int
	receivedLimit int
}

func (runner *stubRunner) Run(_ context.Context, candidates []repository.Candidate, limit int) []repository.Outcome {
	runner.invocations++
	runner.receivedLimit = limit
	outcomes := make([]repository.Outcome, 0, len(candidates))
	for _, candidate := range candidates {
		outcomes = append(outcomes, repository.Outcome{
			Repository:  candidate.Repository,
			AttemptedAt: testAttemptTime,
			Succeeded:   runner.succeeded[candidate.Repository],
			Action:      repository.ActionUpdate,
		})
	}
	return outcomes
}

type countingStore struct {
	delegate  *ledger.Store
	saveError error
	saves     int
}

func (store *countingStore) Load(path string) (*ledger.Ledger, error) {
	return store.delegate.Load(path)
}

func (store *countingStore) Save(path string, updateLedger *ledger.Ledger) error {
	store.saves++
	if store.saveError != nil {
		return store.saveError
	}
	return store.delegate.Save(path, updateLedger)
}

func newCountingStore(fileSystem afero.Fs) *countingStore {
	return &countingStore{delegate: ledger.NewStore(fileSystem)}
}

func TestNewServiceValidation(testInstance *testing.T) {
	store := newCountingStore(afero.NewMemMapFs())
	testCases := []struct {
		name          string
		dependencies  mirror.Dependencies
		expectedError error
	}{
		{name: "missing_store", dependencies: mirror.Dependencies{Collector: &stubCollector{}, Runner: &stubRunner{}, Logger: zap.NewNop()}, expectedError: mirror.ErrStoreNotConfigured},
		{name: "missing_collector", dependencies: mirror.Dependencies{Store: store, Runner: &stubRunner{}, Logger: zap.NewNop()}, expectedError: mirror.ErrCollectorNotConfigured},
		{name: "missing_runner", dependencies: mirror.Dependencies{Store: store, Collector: &stubCollector{}, Logger: zap.NewNop()}, expectedError: mirror.ErrRunnerNotConfigured},
		{name: "missing_logger", dependencies: mirror.Dependencies{Store: store, Collector: &stubCollector{}, Runner: &stubRunner{}}, expectedError: mirror.ErrLoggerNotConfigured},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service, creationError := mirror.NewService(testCase.dependencies)
			require.ErrorIs(testInstance, creationError, testCase.expectedError)
			require.Nil(testInstance, service)
		})
	}
}

func TestServiceRunRecordsOnlySuccesses(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	previousWatermark := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	seeded := ledger.New()
	seeded.Record("alice/repoB", previousWatermark)
	require.NoError(testInstance, ledger.NewStore(fileSystem).Save(testLedgerPathConstant, seeded))

	store := newCountingStore(fileSystem)
	collector := &stubCollector{collection: listing.Collection{Candidates: []repository.Candidate{
		{Repository: "alice/repoA", RemoteUpdatedAt: testAttemptTime.Add(-time.Hour)},
		{Repository: "alice/repoB", RemoteUpdatedAt: testAttemptTime.Add(-time.Hour)},
	}}}
	runner := &stubRunner{succeeded: map[repository.Identifier]bool{"alice/repoA": true}}

	service, creationError := mirror.NewService(mirror.Dependencies{Store: store, Collector: collector, Runner: runner, Logger: zap.NewNop()})
	require.NoError(testInstance, creationError)

	report, runError := service.Run(context.Background(), mirror.Options{
		RunIdentifier:   testRunIdentifier,
		Accounts:        []string{"alice"},
		PerAccountLimit: 1000,
		RunLimit:        20,
		LedgerPath:      testLedgerPathConstant,
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, 1, report.Recorded)
	require.Equal(testInstance, 1, report.Failed())
	require.Equal(testInstance, testRunIdentifier, report.RunIdentifier)
	require.Equal(testInstance, 1, store.saves)
	require.Equal(testInstance, 1000, collector.receivedCap)
	require.Equal(testInstance, 20, runner.receivedLimit)
	require.NotNil(testInstance, collector.receivedOracle)

	persisted, loadError := ledger.NewStore(fileSystem).Load(testLedgerPathConstant)
	require.NoError(testInstance, loadError)

	recordedA, foundA := persisted.Lookup("alice/repoA")
	require.True(testInstance, foundA)
	require.True(testInstance, recordedA.Equal(testAttemptTime))

	recordedB, foundB := persisted.Lookup("alice/repoB")
	require.True(testInstance, foundB)
	require.True(testInstance, recordedB.Equal(previousWatermark))
}

func TestServiceRunStageFailures(testInstance *testing.T) {
	listingFailure := listing.ListingError{Account: "alice", Cause: errors.New("gh: not logged in")}
	diskFull := errors.New("no space left on device")

	testCases := []struct {
		name             string
		prepare          func(fileSystem afero.Fs)
		collectError     error
		saveError        error
		expectedStage    mirror.Stage
		expectedMessage  string
		expectedRunCalls int
	}{
		{
			name: "corrupt_ledger",
			prepare: func(fileSystem afero.Fs) {
				require.NoError(testInstance, afero.WriteFile(fileSystem, testLedgerPathConstant, []byte("{not json"), 0o644))
			},
			expectedStage:   mirror.StageLedgerLoad,
			expectedMessage: "ledger load failed: ",
		},
		{
			name:            "listing_failure",
			collectError:    listingFailure,
			expectedStage:   mirror.StageListing,
			expectedMessage: "repository listing failed: ",
		},
		{
			name:             "persist_failure",
			saveError:        diskFull,
			expectedStage:    mirror.StageLedgerPersist,
			expectedMessage:  "ledger persist failed: no space left on device",
			expectedRunCalls: 1,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fileSystem := afero.NewMemMapFs()
			if testCase.prepare != nil {
				testCase.prepare(fileSystem)
			}
			store := newCountingStore(fileSystem)
			store.saveError = testCase.saveError
			collector := &stubCollector{
				collection:   listing.Collection{Candidates: []repository.Candidate{{Repository: "alice/repoA", RemoteUpdatedAt: testAttemptTime}}},
				collectError: testCase.collectError,
			}
			runner := &stubRunner{succeeded: map[repository.Identifier]bool{"alice/repoA": true}}

			service, creationError := mirror.NewService(mirror.Dependencies{Store: store, Collector: collector, Runner: runner, Logger: zap.NewNop()})
			require.NoError(testInstance, creationError)

			_, runError := service.Run(context.Background(), mirror.Options{Accounts: []string{"alice"}, PerAccountLimit: 10, RunLimit: 10, LedgerPath: testLedgerPathConstant})

			var stageError mirror.StageError
			require.ErrorAs(testInstance, runError, &stageError)
			require.Equal(testInstance, testCase.expectedStage, stageError.Stage)
			require.Contains(testInstance, runError.Error(), testCase.expectedMessage)
			require.Equal(testInstance, testCase.expectedRunCalls, runner.invocations)
		})
	}
}

func TestServiceRunListingFailureKeepsLedgerUntouched(testInstance *testing.T) {
	fileSystem := afero.NewMemMapFs()
	store := newCountingStore(fileSystem)
	collector := &stubCollector{collectError: listing.ListingError{Account: "alice", Cause: errors.New("boom")}}

	service, creationError := mirror.NewService(mirror.Dependencies{Store: store, Collector: collector, Runner: &stubRunner{}, Logger: zap.NewNop()})
	require.NoError(testInstance, creationError)

	_, runError := service.Run(context.Background(), mirror.Options{Accounts: []string{"alice"}, PerAccountLimit: 10, RunLimit: 10, LedgerPath: testLedgerPathConstant})
	var listingError listing.ListingError
	require.ErrorAs(testInstance, runError, &listingError)
	require.Equal(testInstance, "alice", listingError.Account)
	require.Zero(testInstance, store.saves)

	exists, existsError := afero.Exists(fileSystem, testLedgerPathConstant)
	require.NoError(testInstance, existsError)
	require.False(testInstance, exists)
}

func TestServiceDryRunSkipsSyncAndSave(testInstance *testing.T) {
	store := newCountingStore(afero.NewMemMapFs())
	collector := &stubCollector{collection: listing.Collection{Candidates: []repository.Candidate{{Repository: "alice/repoA", RemoteUpdatedAt: testAttemptTime}}}}
	runner := &stubRunner{}

	service, creationError := mirror.NewService(mirror.Dependencies{Store: store, Collector: collector, Runner: runner, Logger: zap.NewNop()})
	require.NoError(testInstance, creationError)

	report, runError := service.Run(context.Background(), mirror.Options{Accounts: []string{"alice"}, PerAccountLimit: 10, RunLimit: 10, LedgerPath: testLedgerPathConstant, DryRun: true})
	require.NoError(testInstance, runError)
	require.True(testInstance, report.DryRun)
	require.Len(testInstance, report.Candidates, 1)
	require.Zero(testInstance, runner.invocations)
	require.Zero(testInstance, store.saves)
}

func TestServiceRunRequiresLedgerPath(testInstance *testing.T) {
	service, creationError := mirror.NewService(mirror.Dependencies{Store: newCountingStore(afero.NewMemMapFs()), Collector: &stubCollector{}, Runner: &stubRunner{}, Logger: zap.NewNop()})
	require.NoError(testInstance, creationError)

	_, runError := service.Run(context.Background(), mirror.Options{Accounts: []string{"alice"}, LedgerPath: "  "})
	require.ErrorIs(testInstance, runError, mirror.ErrMissingLedgerPath)
}
