package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repomirror/internal/repository"
)

const (
	noAccountsMessageConstant               = "no accounts to list"
	providerNotConfiguredMessageConstant    = "directory provider not configured"
	loggerNotConfiguredMessageConstant      = "listing logger not configured"
	invalidLimitMessageConstant             = "per-account listing limit must be positive"
	unsupportedPolicyTemplateConstant       = "unsupported listing failure policy %q"
	listingErrorTemplateConstant            = "listing repositories for %s failed: %v"
	listingStartedLogMessageConstant        = "listing repositories"
	listingCompletedLogMessageConstant      = "listed repositories"
	listingSkippedLogMessageConstant        = "skipping account after listing failure"
	collectionCompletedLogMessageConstant   = "collected outdated repositories"
	logFieldAccountConstant                 = "account"
	logFieldLimitConstant                   = "limit"
	logFieldListedCountConstant             = "listed"
	logFieldOutdatedCountConstant           = "outdated"
	logFieldAccountCountConstant            = "accounts"
	logFieldSkippedAccountCountConstant     = "skipped_accounts"
	failurePolicyFailFastStringConstant     = "fail_fast"
	failurePolicySkipAccountStringConstant  = "skip"
	collectionCandidateCapacityHintConstant = 16
)

var (
	// ErrNoAccounts indicates that no non-blank account names were supplied.
	ErrNoAccounts = errors.New(noAccountsMessageConstant)
	// ErrProviderNotConfigured indicates the aggregator was constructed without a directory provider.
	ErrProviderNotConfigured = errors.New(providerNotConfiguredMessageConstant)
	// ErrLoggerNotConfigured indicates the aggregator was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrInvalidLimit indicates a non-positive per-account cap.
	ErrInvalidLimit = errors.New(invalidLimitMessageConstant)
)

// Visitor receives each listed repository. Returning an error stops the listing.
type Visitor func(candidate repository.Candidate) error

// DirectoryProvider enumerates the repositories owned by an account, most recently updated first,
// handing at most limit entries to visit.
type DirectoryProvider interface {
	ListRepositories(executionContext context.Context, account string, limit int, visit Visitor) error
}

// StalenessOracle decides whether a listed repository needs synchronization.
type StalenessOracle interface {
	IsOutdated(candidate repository.Candidate) bool
}

// FailurePolicy selects how a failed account listing affects the collection.
type FailurePolicy string

// Supported failure policies.
const (
	// FailurePolicyFailFast cancels the remaining listings and fails the collection.
	FailurePolicyFailFast FailurePolicy = FailurePolicy(failurePolicyFailFastStringConstant)
	// FailurePolicySkipAccount drops the failed account and keeps the others.
	FailurePolicySkipAccount FailurePolicy = FailurePolicy(failurePolicySkipAccountStringConstant)
)

// ParseFailurePolicy converts a configuration value into a FailurePolicy. Blank selects fail-fast.
func ParseFailurePolicy(value string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", FailurePolicyFailFast:
		return FailurePolicyFailFast, nil
	case FailurePolicySkipAccount:
		return FailurePolicySkipAccount, nil
	default:
		return "", fmt.Errorf(unsupportedPolicyTemplateConstant, value)
	}
}

// ListingError reports the account whose listing failed.
type ListingError struct {
	Account string
	Cause   error
}

// Error describes the listing failure.
func (listingError ListingError) Error() string {
	return fmt.Sprintf(listingErrorTemplateConstant, listingError.Account, listingError.Cause)
}

// Unwrap exposes the underlying cause.
func (listingError ListingError) Unwrap() error {
	return listingError.Cause
}

// Collection holds the outdated repositories of all listed accounts.
type Collection struct {
	// Candidates are sorted by repository identifier. Repositories listed under several accounts appear once per account.
	Candidates []repository.Candidate
	// Skipped lists accounts dropped under FailurePolicySkipAccount.
	Skipped []ListingError
}

// Aggregator lists several accounts concurrently and keeps the outdated repositories.
type Aggregator struct {
	provider DirectoryProvider
	logger   *zap.Logger
	policy   FailurePolicy
}

// NewAggregator constructs an Aggregator.
func NewAggregator(provider DirectoryProvider, logger *zap.Logger, policy FailurePolicy) (*Aggregator, error) {
	if provider == nil {
		return nil, ErrProviderNotConfigured
	}
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	normalizedPolicy, policyError := ParseFailurePolicy(string(policy))
	if policyError != nil {
		return nil, policyError
	}
	return &Aggregator{provider: provider, logger: logger, policy: normalizedPolicy}, nil
}

type accountListing struct {
	candidates []repository.Candidate
	failure    *ListingError
}

// Collect lists every account with one concurrent request per account, capping each listing at
// capPerAccount entries, and returns the entries the oracle reports as outdated. The oracle is only read.
func (aggregator *Aggregator) Collect(executionContext context.Context, accounts []string, oracle StalenessOracle, capPerAccount int) (Collection, error) {
	normalizedAccounts := normalizeAccounts(accounts)
	if len(normalizedAccounts) == 0 {
		return Collection{}, ErrNoAccounts
	}
	if capPerAccount <= 0 {
		return Collection{}, ErrInvalidLimit
	}

	listings := make([]accountListing, len(normalizedAccounts))
	listingGroup, listingContext := errgroup.WithContext(executionContext)

	for accountIndex, account := range normalizedAccounts {
		listingGroup.Go(func() error {
			candidates, listError := aggregator.listAccount(listingContext, account, oracle, capPerAccount)
			if listError == nil {
				listings[accountIndex].candidates = candidates
				return nil
			}

			failure := ListingError{Account: account, Cause: listError}
			if aggregator.policy == FailurePolicyFailFast {
				return failure
			}

			aggregator.logger.Warn(listingSkippedLogMessageConstant, zap.String(logFieldAccountConstant, account), zap.Error(listError))
			listings[accountIndex].failure = &failure
			return nil
		})
	}

	if waitError := listingGroup.Wait(); waitError != nil {
		return Collection{}, waitError
	}

	collection := Collection{Candidates: make([]repository.Candidate, 0, collectionCandidateCapacityHintConstant)}
	for _, listing := range listings {
		collection.Candidates = append(collection.Candidates, listing.candidates...)
		if listing.failure != nil {
			collection.Skipped = append(collection.Skipped, *listing.failure)
		}
	}
	repository.SortCandidates(collection.Candidates)

	aggregator.logger.Info(
		collectionCompletedLogMessageConstant,
		zap.Int(logFieldAccountCountConstant, len(normalizedAccounts)),
		zap.Int(logFieldSkippedAccountCountConstant, len(collection.Skipped)),
		zap.Int(logFieldOutdatedCountConstant, len(collection.Candidates)),
	)

	return collection, nil
}

func (aggregator *Aggregator) listAccount(executionContext context.Context, account string, oracle StalenessOracle, capPerAccount int) ([]repository.Candidate, error) {
	aggregator.logger.Debug(listingStartedLogMessageConstant, zap.String(logFieldAccountConstant, account), zap.Int(logFieldLimitConstant, capPerAccount))

	listedCount := 0
	var outdated []repository.Candidate
	visit := func(candidate repository.Candidate) error {
		if listedCount >= capPerAccount {
			return nil
		}
		listedCount++
		if oracle == nil || oracle.IsOutdated(candidate) {
			outdated = append(outdated, candidate)
		}
		return nil
	}

	if listError := aggregator.provider.ListRepositories(executionContext, account, capPerAccount, visit); listError != nil {
		return nil, listError
	}

	aggregator.logger.Debug(
		listingCompletedLogMessageConstant,
		zap.String(logFieldAccountConstant, account),
		zap.Int(logFieldListedCountConstant, listedCount),
		zap.Int(logFieldOutdatedCountConstant, len(outdated)),
	)
	return outdated, nil
}

func normalizeAccounts(accounts []string) []string {
	normalized := make([]string, 0, len(accounts))
	seen := make(map[string]struct{}, len(accounts))
	for _, account := range accounts {
		trimmedAccount := strings.TrimSpace(account)
		if len(trimmedAccount) == 0 {
			continue
		}
		accountKey := strings.ToLower(trimmedAccount)
		if _, duplicate := seen[accountKey]; duplicate {
			continue
		}
		seen[accountKey] = struct{}{}
		normalized = append(normalized, trimmedAccount)
	}
	return normalized
}
