package mirror

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/repomirror/internal/ledger"
	"github.com/temirov/repomirror/internal/listing"
	"github.com/temirov/repomirror/internal/repository"
)

const (
	stageErrorTemplateConstant            = "%s failed: %v"
	storeNotConfiguredMessageConstant     = "mirror ledger store not configured"
	collectorNotConfiguredMessageConstant = "mirror candidate collector not configured"
	runnerNotConfiguredMessageConstant    = "mirror sync runner not configured"
	loggerNotConfiguredMessageConstant    = "mirror logger not configured"
	missingLedgerPathMessageConstant      = "ledger path not configured"
	runStartedLogMessageConstant          = "mirror run started"
	candidatesCollectedLogMessageConstant = "outdated repositories collected"
	accountSkippedLogMessageConstant      = "account listing skipped"
	dryRunLogMessageConstant              = "dry run, nothing synchronized"
	ledgerSavedLogMessageConstant         = "ledger saved"
	logFieldAccountsConstant              = "accounts"
	logFieldAccountConstant               = "account"
	logFieldLedgerPathConstant            = "ledger_path"
	logFieldLedgerEntriesConstant         = "ledger_entries"
	logFieldCandidateCountConstant        = "candidates"
	logFieldSkippedCountConstant          = "skipped_accounts"
	logFieldRecordedCountConstant         = "recorded"
	logFieldOutcomeCountConstant          = "outcomes"
)

// Stage names the part of a run that failed.
type Stage string

// Run stages that can fail a run.
const (
	StageLedgerLoad    Stage = Stage("ledger load")
	StageListing       Stage = Stage("repository listing")
	StageLedgerPersist Stage = Stage("ledger persist")
)

var (
	// ErrStoreNotConfigured indicates the service was constructed without a ledger store.
	ErrStoreNotConfigured = errors.New(storeNotConfiguredMessageConstant)
	// ErrCollectorNotConfigured indicates the service was constructed without a candidate collector.
	ErrCollectorNotConfigured = errors.New(collectorNotConfiguredMessageConstant)
	// ErrRunnerNotConfigured indicates the service was constructed without a sync runner.
	ErrRunnerNotConfigured = errors.New(runnerNotConfiguredMessageConstant)
	// ErrLoggerNotConfigured indicates the service was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrMissingLedgerPath indicates run options without a ledger location.
	ErrMissingLedgerPath = errors.New(missingLedgerPathMessageConstant)
)

// StageError reports the stage that ended a run.
type StageError struct {
	Stage Stage
	Cause error
}

// Error describes the failed stage.
func (stageError StageError) Error() string {
	return fmt.Sprintf(stageErrorTemplateConstant, stageError.Stage, stageError.Cause)
}

// Unwrap exposes the underlying cause.
func (stageError StageError) Unwrap() error {
	return stageError.Cause
}

// LedgerStore loads and persists the update ledger.
type LedgerStore interface {
	Load(path string) (*ledger.Ledger, error)
	Save(path string, updateLedger *ledger.Ledger) error
}

// CandidateCollector lists outdated repositories across accounts.
type CandidateCollector interface {
	Collect(executionContext context.Context, accounts []string, oracle listing.StalenessOracle, capPerAccount int) (listing.Collection, error)
}

// SyncRunner synchronizes candidates and reports one outcome per attempted repository.
type SyncRunner interface {
	Run(executionContext context.Context, candidates []repository.Candidate, limit int) []repository.Outcome
}

// Dependencies enumerates the collaborators of a Service.
type Dependencies struct {
	Store     LedgerStore
	Collector CandidateCollector
	Runner    SyncRunner
	Logger    *zap.Logger
}

// Options describes a single run.
type Options struct {
	RunIdentifier   string
	Accounts        []string
	PerAccountLimit int
	RunLimit        int
	LedgerPath      string
	DryRun          bool
}

// Report summarizes a finished run.
type Report struct {
	RunIdentifier   string
	Candidates      []repository.Candidate
	SkippedAccounts []listing.ListingError
	Outcomes        []repository.Outcome
	Recorded        int
	DryRun          bool
}

// Failed counts outcomes that did not succeed.
func (report Report) Failed() int {
	failed := 0
	for _, outcome := range report.Outcomes {
		if !outcome.Succeeded {
			failed++
		}
	}
	return failed
}

// Service coordinates ledger, listing, and synchronization for one run.
type Service struct {
	store     LedgerStore
	collector CandidateCollector
	runner    SyncRunner
	logger    *zap.Logger
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	if dependencies.Collector == nil {
		return nil, ErrCollectorNotConfigured
	}
	if dependencies.Runner == nil {
		return nil, ErrRunnerNotConfigured
	}
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	return &Service{
		store:     dependencies.Store,
		collector: dependencies.Collector,
		runner:    dependencies.Runner,
		logger:    dependencies.Logger,
	}, nil
}

// Run executes load, collect, synchronize, and commit. The ledger is written once, after every
// outcome is known, and never during a dry run. Individual repository failures do not fail the run.
func (service *Service) Run(executionContext context.Context, options Options) (Report, error) {
	report := Report{RunIdentifier: options.RunIdentifier, DryRun: options.DryRun}
	ledgerPath := strings.TrimSpace(options.LedgerPath)
	if len(ledgerPath) == 0 {
		return report, ErrMissingLedgerPath
	}

	updateLedger, loadError := service.store.Load(ledgerPath)
	if loadError != nil {
		return report, StageError{Stage: StageLedgerLoad, Cause: loadError}
	}
	service.logger.Info(
		runStartedLogMessageConstant,
		zap.Strings(logFieldAccountsConstant, options.Accounts),
		zap.String(logFieldLedgerPathConstant, ledgerPath),
		zap.Int(logFieldLedgerEntriesConstant, updateLedger.Len()),
	)

	collection, collectError := service.collector.Collect(executionContext, options.Accounts, updateLedger, options.PerAccountLimit)
	if collectError != nil {
		return report, StageError{Stage: StageListing, Cause: collectError}
	}
	report.Candidates = collection.Candidates
	report.SkippedAccounts = collection.Skipped
	for _, skipped := range collection.Skipped {
		service.logger.Warn(accountSkippedLogMessageConstant, zap.String(logFieldAccountConstant, skipped.Account), zap.Error(skipped.Cause))
	}
	service.logger.Info(
		candidatesCollectedLogMessageConstant,
		zap.Int(logFieldCandidateCountConstant, len(collection.Candidates)),
		zap.Int(logFieldSkippedCountConstant, len(collection.Skipped)),
	)

	if options.DryRun {
		service.logger.Info(dryRunLogMessageConstant, zap.Int(logFieldCandidateCountConstant, len(collection.Candidates)))
		return report, nil
	}

	report.Outcomes = service.runner.Run(executionContext, collection.Candidates, options.RunLimit)
	report.Recorded = updateLedger.Apply(report.Outcomes)

	if saveError := service.store.Save(ledgerPath, updateLedger); saveError != nil {
		return report, StageError{Stage: StageLedgerPersist, Cause: saveError}
	}
	service.logger.Info(
		ledgerSavedLogMessageConstant,
		zap.String(logFieldLedgerPathConstant, ledgerPath),
		zap.Int(logFieldOutcomeCountConstant, len(report.Outcomes)),
		zap.Int(logFieldRecordedCountConstant, report.Recorded),
	)
	return report, nil
}
