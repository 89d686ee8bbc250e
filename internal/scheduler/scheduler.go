package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repomirror/internal/repository"
)

const (
	primitiveNotConfiguredMessageConstant = "sync primitive not configured"
	loggerNotConfiguredMessageConstant    = "scheduler logger not configured"
	clockNotConfiguredMessageConstant     = "scheduler clock not configured"
	invalidWorkerCountMessageConstant     = "worker count must be positive"
	invalidTimeoutMessageConstant         = "operation timeout must be positive"
	missingBackupRootMessageConstant      = "backup root not configured"
	unsuccessfulActionTemplateConstant    = "%s reported unsuccessful"
	syncStartedLogMessageConstant         = "synchronizing repositories"
	syncTruncatedLogMessageConstant       = "candidate list truncated"
	repositorySyncedLogMessageConstant    = "repository synchronized"
	repositoryFallbackLogMessageConstant  = "update unsuccessful, cloning instead"
	repositoryFailedLogMessageConstant    = "repository synchronization failed"
	syncCompletedLogMessageConstant       = "synchronization finished"
	logFieldRepositoryConstant            = "repository"
	logFieldActionConstant                = "action"
	logFieldPathConstant                  = "path"
	logFieldCandidateCountConstant        = "candidates"
	logFieldRetainedCountConstant         = "retained"
	logFieldWorkerCountConstant           = "workers"
	logFieldSucceededCountConstant        = "succeeded"
	logFieldFailedCountConstant           = "failed"
	logFieldDurationConstant              = "duration"
	// DefaultWorkerCount bounds concurrent sync operations when configuration leaves it unset.
	DefaultWorkerCount = 8
	// DefaultOperationTimeout bounds a single update or create call when configuration leaves it unset.
	DefaultOperationTimeout = 10 * time.Minute
)

var (
	// ErrPrimitiveNotConfigured indicates the scheduler was constructed without a sync primitive.
	ErrPrimitiveNotConfigured = errors.New(primitiveNotConfiguredMessageConstant)
	// ErrLoggerNotConfigured indicates the scheduler was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrClockNotConfigured indicates the scheduler was constructed without a clock.
	ErrClockNotConfigured = errors.New(clockNotConfiguredMessageConstant)
	// ErrInvalidWorkerCount indicates a non-positive worker bound.
	ErrInvalidWorkerCount = errors.New(invalidWorkerCountMessageConstant)
	// ErrInvalidTimeout indicates a non-positive per-operation timeout.
	ErrInvalidTimeout = errors.New(invalidTimeoutMessageConstant)
	// ErrMissingBackupRoot indicates the configuration lacks a backup root directory.
	ErrMissingBackupRoot = errors.New(missingBackupRootMessageConstant)
)

// Status is the completed result of a sync primitive.
type Status int

// Primitive statuses.
const (
	StatusUnsuccessful Status = iota
	StatusSucceeded
)

// SyncPrimitive brings a working copy up to date. A returned error means the operation could not be
// carried out at all (spawn failure, deadline), while StatusUnsuccessful means it ran and failed.
type SyncPrimitive interface {
	// Update refreshes an existing working copy at path.
	Update(executionContext context.Context, repositoryIdentifier repository.Identifier, path string) (Status, error)
	// Create produces a fresh working copy at path.
	Create(executionContext context.Context, repositoryIdentifier repository.Identifier, path string) (Status, error)
}

// Clock supplies attempt timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Configuration carries the immutable settings of a scheduler.
type Configuration struct {
	BackupRoot       string
	Workers          int
	OperationTimeout time.Duration
}

// Dependencies enumerates collaborators required by the scheduler.
type Dependencies struct {
	Primitive SyncPrimitive
	Clock     Clock
	Logger    *zap.Logger
}

// Scheduler synchronizes candidates with bounded parallelism.
type Scheduler struct {
	configuration Configuration
	primitive     SyncPrimitive
	clock         Clock
	logger        *zap.Logger
}

// NewScheduler validates configuration and dependencies.
func NewScheduler(configuration Configuration, dependencies Dependencies) (*Scheduler, error) {
	if dependencies.Primitive == nil {
		return nil, ErrPrimitiveNotConfigured
	}
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Clock == nil {
		return nil, ErrClockNotConfigured
	}
	if len(configuration.BackupRoot) == 0 {
		return nil, ErrMissingBackupRoot
	}
	if configuration.Workers <= 0 {
		return nil, ErrInvalidWorkerCount
	}
	if configuration.OperationTimeout <= 0 {
		return nil, ErrInvalidTimeout
	}

	return &Scheduler{
		configuration: configuration,
		primitive:     dependencies.Primitive,
		clock:         dependencies.Clock,
		logger:        dependencies.Logger,
	}, nil
}

// Run sorts candidates by repository identifier, keeps the first limit of them, and synchronizes each one,
// at most Workers at a time. Candidates sharing an identifier share a working copy and run one after another.
// It returns one outcome per retained candidate in sorted candidate order.
// A limit of zero or less synchronizes nothing. Individual failures never stop the remaining candidates.
func (scheduler *Scheduler) Run(executionContext context.Context, candidates []repository.Candidate, limit int) []repository.Outcome {
	retained := retainCandidates(candidates, limit)
	if len(retained) < len(candidates) {
		scheduler.logger.Info(
			syncTruncatedLogMessageConstant,
			zap.Int(logFieldCandidateCountConstant, len(candidates)),
			zap.Int(logFieldRetainedCountConstant, len(retained)),
		)
	}

	outcomes := make([]repository.Outcome, len(retained))
	if len(retained) == 0 {
		return outcomes
	}

	scheduler.logger.Info(syncStartedLogMessageConstant, zap.Int(logFieldRetainedCountConstant, len(retained)), zap.Int(logFieldWorkerCountConstant, scheduler.configuration.Workers))
	startedAt := scheduler.clock.Now()

	var workerGroup errgroup.Group
	workerGroup.SetLimit(scheduler.configuration.Workers)
	for _, group := range groupByRepository(retained) {
		workerGroup.Go(func() error {
			for candidateIndex := group.start; candidateIndex < group.end; candidateIndex++ {
				outcomes[candidateIndex] = scheduler.synchronize(executionContext, retained[candidateIndex])
			}
			return nil
		})
	}
	_ = workerGroup.Wait()

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Succeeded {
			succeeded++
		}
	}
	scheduler.logger.Info(
		syncCompletedLogMessageConstant,
		zap.Int(logFieldSucceededCountConstant, succeeded),
		zap.Int(logFieldFailedCountConstant, len(outcomes)-succeeded),
		zap.Duration(logFieldDurationConstant, scheduler.clock.Now().Sub(startedAt)),
	)
	return outcomes
}

func (scheduler *Scheduler) synchronize(executionContext context.Context, candidate repository.Candidate) repository.Outcome {
	outcome := repository.Outcome{
		Repository:  candidate.Repository,
		AttemptedAt: scheduler.clock.Now(),
		Action:      repository.ActionNone,
	}

	workingCopyPath, pathError := candidate.Repository.WorkingCopyPath(scheduler.configuration.BackupRoot)
	if pathError != nil {
		outcome.Failure = pathError
		scheduler.logFailure(outcome, workingCopyPath)
		return outcome
	}

	outcome.Action = repository.ActionUpdate
	updateStatus, updateError := scheduler.invoke(executionContext, scheduler.primitive.Update, candidate.Repository, workingCopyPath)
	if updateError != nil {
		outcome.Failure = updateError
		scheduler.logFailure(outcome, workingCopyPath)
		return outcome
	}
	if updateStatus == StatusSucceeded {
		outcome.Succeeded = true
		scheduler.logSuccess(outcome, workingCopyPath)
		return outcome
	}

	scheduler.logger.Debug(repositoryFallbackLogMessageConstant, zap.String(logFieldRepositoryConstant, candidate.Repository.String()), zap.String(logFieldPathConstant, workingCopyPath))

	outcome.Action = repository.ActionCreate
	createStatus, createError := scheduler.invoke(executionContext, scheduler.primitive.Create, candidate.Repository, workingCopyPath)
	switch {
	case createError != nil:
		outcome.Failure = createError
	case createStatus == StatusSucceeded:
		outcome.Succeeded = true
	default:
		outcome.Failure = fmt.Errorf(unsuccessfulActionTemplateConstant, repository.ActionCreate)
	}

	if outcome.Succeeded {
		scheduler.logSuccess(outcome, workingCopyPath)
	} else {
		scheduler.logFailure(outcome, workingCopyPath)
	}
	return outcome
}

type primitiveOperation func(executionContext context.Context, repositoryIdentifier repository.Identifier, path string) (Status, error)

func (scheduler *Scheduler) invoke(executionContext context.Context, operation primitiveOperation, repositoryIdentifier repository.Identifier, path string) (Status, error) {
	operationContext, cancel := context.WithTimeout(executionContext, scheduler.configuration.OperationTimeout)
	defer cancel()

	status, operationError := operation(operationContext, repositoryIdentifier, path)
	if operationError != nil {
		return StatusUnsuccessful, operationError
	}
	if status != StatusSucceeded {
		if contextError := operationContext.Err(); contextError != nil {
			return StatusUnsuccessful, contextError
		}
	}
	return status, nil
}

func (scheduler *Scheduler) logSuccess(outcome repository.Outcome, path string) {
	scheduler.logger.Info(
		repositorySyncedLogMessageConstant,
		zap.String(logFieldRepositoryConstant, outcome.Repository.String()),
		zap.String(logFieldActionConstant, string(outcome.Action)),
		zap.String(logFieldPathConstant, path),
	)
}

func (scheduler *Scheduler) logFailure(outcome repository.Outcome, path string) {
	scheduler.logger.Warn(
		repositoryFailedLogMessageConstant,
		zap.String(logFieldRepositoryConstant, outcome.Repository.String()),
		zap.String(logFieldActionConstant, string(outcome.Action)),
		zap.String(logFieldPathConstant, path),
		zap.Error(outcome.Failure),
	)
}

func retainCandidates(candidates []repository.Candidate, limit int) []repository.Candidate {
	if limit <= 0 {
		return nil
	}
	sorted := append([]repository.Candidate(nil), candidates...)
	repository.SortCandidates(sorted)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

type candidateGroup struct {
	start int
	end   int
}

// groupByRepository splits sorted candidates into runs of equal identifiers.
func groupByRepository(sorted []repository.Candidate) []candidateGroup {
	var groups []candidateGroup
	for candidateIndex := range sorted {
		if candidateIndex > 0 && sorted[candidateIndex].Repository == sorted[candidateIndex-1].Repository {
			groups[len(groups)-1].end = candidateIndex + 1
			continue
		}
		groups = append(groups, candidateGroup{start: candidateIndex, end: candidateIndex + 1})
	}
	return groups
}
