package mirror

import (
	"strings"
	"time"

	"github.com/temirov/repomirror/internal/listing"
	"github.com/temirov/repomirror/internal/scheduler"
)

// Directory providers.
const (
	ProviderGitHubCLI = "gh"
	ProviderGitHubAPI = "api"
)

// Sync engines.
const (
	EngineCommand = "cli"
	EngineGoGit   = "gogit"
)

const (
	// DefaultPerAccountLimit caps the repositories listed per account.
	DefaultPerAccountLimit = 1000
	// DefaultRunLimit caps the repositories synchronized per run.
	DefaultRunLimit = 20
	// DefaultAPIRequestsPerSecond throttles the REST provider.
	DefaultAPIRequestsPerSecond = 5.0

	accountsKeyConstant             = "accounts"
	perAccountLimitKeyConstant      = "per_account_limit"
	runLimitKeyConstant             = "run_limit"
	workersKeyConstant              = "workers"
	operationTimeoutKeyConstant     = "operation_timeout"
	providerKeyConstant             = "provider"
	engineKeyConstant               = "engine"
	listingFailurePolicyKeyConstant = "listing_failure_policy"
	ledgerPathKeyConstant           = "ledger_path"
	backupRootKeyConstant           = "backup_root"
	apiBaseURLKeyConstant           = "api_base_url"
	apiRequestsPerSecondKeyConstant = "api_requests_per_second"
	configurationKeySeparator       = "."
)

// CommandConfiguration captures persistent settings for the sync and ledger commands.
type CommandConfiguration struct {
	Accounts             []string      `mapstructure:"accounts"`
	PerAccountLimit      int           `mapstructure:"per_account_limit"`
	RunLimit             int           `mapstructure:"run_limit"`
	Workers              int           `mapstructure:"workers"`
	OperationTimeout     time.Duration `mapstructure:"operation_timeout"`
	Provider             string        `mapstructure:"provider"`
	Engine               string        `mapstructure:"engine"`
	ListingFailurePolicy string        `mapstructure:"listing_failure_policy"`
	LedgerPath           string        `mapstructure:"ledger_path"`
	BackupRoot           string        `mapstructure:"backup_root"`
	APIBaseURL           string        `mapstructure:"api_base_url"`
	APIRequestsPerSecond float64       `mapstructure:"api_requests_per_second"`
}

// DefaultCommandConfiguration returns baseline configuration values.
// Empty paths resolve to the XDG data directory at run time.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		PerAccountLimit:      DefaultPerAccountLimit,
		RunLimit:             DefaultRunLimit,
		Workers:              scheduler.DefaultWorkerCount,
		OperationTimeout:     scheduler.DefaultOperationTimeout,
		Provider:             ProviderGitHubCLI,
		Engine:               EngineCommand,
		ListingFailurePolicy: string(listing.FailurePolicyFailFast),
		APIRequestsPerSecond: DefaultAPIRequestsPerSecond,
	}
}

// DefaultConfigurationValues exposes the defaults as configuration keys under prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	qualify := func(key string) string {
		trimmedPrefix := strings.TrimSpace(prefix)
		if len(trimmedPrefix) == 0 {
			return key
		}
		return trimmedPrefix + configurationKeySeparator + key
	}
	return map[string]any{
		qualify(accountsKeyConstant):             []string{},
		qualify(perAccountLimitKeyConstant):      defaults.PerAccountLimit,
		qualify(runLimitKeyConstant):             defaults.RunLimit,
		qualify(workersKeyConstant):              defaults.Workers,
		qualify(operationTimeoutKeyConstant):     defaults.OperationTimeout.String(),
		qualify(providerKeyConstant):             defaults.Provider,
		qualify(engineKeyConstant):               defaults.Engine,
		qualify(listingFailurePolicyKeyConstant): defaults.ListingFailurePolicy,
		qualify(ledgerPathKeyConstant):           defaults.LedgerPath,
		qualify(backupRootKeyConstant):           defaults.BackupRoot,
		qualify(apiBaseURLKeyConstant):           defaults.APIBaseURL,
		qualify(apiRequestsPerSecondKeyConstant): defaults.APIRequestsPerSecond,
	}
}

// sanitize trims textual settings and restores defaults for unset numeric ones.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.Accounts = sanitizeAccounts(configuration.Accounts)
	sanitized.Provider = strings.ToLower(strings.TrimSpace(configuration.Provider))
	sanitized.Engine = strings.ToLower(strings.TrimSpace(configuration.Engine))
	sanitized.ListingFailurePolicy = strings.TrimSpace(configuration.ListingFailurePolicy)
	sanitized.LedgerPath = strings.TrimSpace(configuration.LedgerPath)
	sanitized.BackupRoot = strings.TrimSpace(configuration.BackupRoot)
	sanitized.APIBaseURL = strings.TrimSpace(configuration.APIBaseURL)

	if sanitized.PerAccountLimit <= 0 {
		sanitized.PerAccountLimit = defaults.PerAccountLimit
	}
	if sanitized.Workers <= 0 {
		sanitized.Workers = defaults.Workers
	}
	if sanitized.OperationTimeout <= 0 {
		sanitized.OperationTimeout = defaults.OperationTimeout
	}
	if len(sanitized.Provider) == 0 {
		sanitized.Provider = defaults.Provider
	}
	if len(sanitized.Engine) == 0 {
		sanitized.Engine = defaults.Engine
	}
	if sanitized.APIRequestsPerSecond <= 0 {
		sanitized.APIRequestsPerSecond = defaults.APIRequestsPerSecond
	}
	return sanitized
}

func sanitizeAccounts(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for index := range raw {
		trimmed := strings.TrimSpace(raw[index])
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
