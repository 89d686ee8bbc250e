package mirror

import (
	"errors"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/repomirror/internal/execshell"
	"github.com/temirov/repomirror/internal/listing"
	"github.com/temirov/repomirror/internal/scheduler"
	"github.com/temirov/repomirror/internal/utils"
	"github.com/temirov/repomirror/internal/utils/flags"
	pathutils "github.com/temirov/repomirror/internal/utils/path"
)

const (
	applicationNameConstant             = "repomirror"
	syncCommandUseConstant              = "sync [account...]"
	syncCommandShortDescriptionConstant = "Mirror outdated GitHub repositories onto local disk"
	syncCommandLongDescriptionConstant  = "sync pulls or clones the GitHub repositories updated since their last successful sync and records each success in the update ledger. Positional accounts replace the configured accounts."
	flagPerAccountLimitNameConstant     = "max"
	flagPerAccountLimitUsageConstant    = "Maximum number of repositories listed per account."
	flagRunLimitNameConstant            = "limit"
	flagRunLimitUsageConstant           = "Maximum number of repositories synchronized in this run."
	flagWorkersNameConstant             = "workers"
	flagWorkersUsageConstant            = "Maximum number of concurrent sync operations."
	flagTimeoutNameConstant             = "timeout"
	flagTimeoutUsageConstant            = "Deadline for a single pull or clone."
	flagProviderNameConstant            = "provider"
	flagProviderUsageConstant           = "Repository directory used for listing."
	flagEngineNameConstant              = "engine"
	flagEngineUsageConstant             = "Implementation used to pull and clone."
	flagListingFailureNameConstant      = "on-listing-error"
	flagListingFailureUsageConstant     = "What to do when an account cannot be listed."
	flagLedgerPathNameConstant          = "ledger"
	flagLedgerPathUsageConstant         = "Path of the update ledger file."
	flagBackupRootNameConstant          = "backup-root"
	flagBackupRootUsageConstant         = "Directory holding the working copies."
	flagDryRunNameConstant              = "dry-run"
	flagDryRunUsageConstant             = "List outdated repositories without synchronizing them."
	missingAccountsHelpMessageConstant  = "no accounts provided; pass account names or configure tools.sync.accounts"
	syncCommandErrorLogMessageConstant  = "sync run failed"
	logFieldRunIdentifierConstant       = "run_id"
	logFieldStageConstant               = "stage"
)

// ErrMissingAccounts indicates a sync invocation without any account to list.
var ErrMissingAccounts = errors.New(missingAccountsHelpMessageConstant)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current sync configuration.
type ConfigurationProvider func() CommandConfiguration

// HumanReadableLoggingProvider reports whether console-friendly command events should be emitted.
type HumanReadableLoggingProvider func() bool

// CommandBuilder assembles the sync cobra command. Every collaborator is optional and defaults
// to the production implementation selected by configuration.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	HumanReadableLoggingProvider HumanReadableLoggingProvider
	FileSystem                   afero.Fs
	CommandRunner                execshell.CommandRunner
	ShellExecutor                ShellExecutor
	DirectoryProvider            listing.DirectoryProvider
	SyncPrimitive                scheduler.SyncPrimitive
	Clock                        scheduler.Clock
	Environment                  map[string]string
	HomeExpander                 *pathutils.HomeExpander
}

// Build constructs the sync command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   syncCommandUseConstant,
		Short: syncCommandShortDescriptionConstant,
		Long:  syncCommandLongDescriptionConstant,
		RunE:  builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().Int(flagPerAccountLimitNameConstant, defaults.PerAccountLimit, flagPerAccountLimitUsageConstant)
	command.Flags().Int(flagRunLimitNameConstant, defaults.RunLimit, flagRunLimitUsageConstant)
	command.Flags().Int(flagWorkersNameConstant, defaults.Workers, flagWorkersUsageConstant)
	command.Flags().Duration(flagTimeoutNameConstant, defaults.OperationTimeout, flagTimeoutUsageConstant)
	flags.AddChoiceFlag(command.Flags(), nil, flagProviderNameConstant, defaults.Provider, []string{ProviderGitHubCLI, ProviderGitHubAPI}, flagProviderUsageConstant)
	flags.AddChoiceFlag(command.Flags(), nil, flagEngineNameConstant, defaults.Engine, []string{EngineCommand, EngineGoGit}, flagEngineUsageConstant)
	flags.AddChoiceFlag(
		command.Flags(),
		nil,
		flagListingFailureNameConstant,
		defaults.ListingFailurePolicy,
		[]string{string(listing.FailurePolicyFailFast), string(listing.FailurePolicySkipAccount)},
		flagListingFailureUsageConstant,
	)
	command.Flags().String(flagLedgerPathNameConstant, "", flagLedgerPathUsageConstant)
	command.Flags().String(flagBackupRootNameConstant, "", flagBackupRootUsageConstant)
	command.Flags().Bool(flagDryRunNameConstant, false, flagDryRunUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	settings := builder.resolveSettings(command, arguments)
	if len(settings.configuration.Accounts) == 0 {
		if helpError := command.Help(); helpError != nil {
			return helpError
		}
		return ErrMissingAccounts
	}

	executionContext := command.Context()
	runIdentifier := resolveRunIdentifier(command)
	logger := resolveLogger(builder.LoggerProvider).With(zap.String(logFieldRunIdentifierConstant, runIdentifier))

	service, serviceError := builder.buildService(executionContext, settings, logger)
	if serviceError != nil {
		return serviceError
	}

	report, runError := service.Run(executionContext, Options{
		RunIdentifier:   runIdentifier,
		Accounts:        settings.configuration.Accounts,
		PerAccountLimit: settings.configuration.PerAccountLimit,
		RunLimit:        settings.configuration.RunLimit,
		LedgerPath:      settings.ledgerPath,
		DryRun:          settings.dryRun,
	})
	if runError != nil {
		var stageError StageError
		if errors.As(runError, &stageError) {
			logger.Error(syncCommandErrorLogMessageConstant, zap.String(logFieldStageConstant, string(stageError.Stage)), zap.Error(stageError.Cause))
		}
		return runError
	}

	return WriteReport(command.OutOrStdout(), report)
}

// resolveSettings layers positional accounts and explicitly set flags over the configuration.
func (builder *CommandBuilder) resolveSettings(command *cobra.Command, arguments []string) runSettings {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	if len(arguments) > 0 {
		configuration.Accounts = append([]string(nil), arguments...)
	}

	flagSet := command.Flags()
	if flagSet.Changed(flagPerAccountLimitNameConstant) {
		configuration.PerAccountLimit, _ = flagSet.GetInt(flagPerAccountLimitNameConstant)
	}
	if flagSet.Changed(flagRunLimitNameConstant) {
		configuration.RunLimit, _ = flagSet.GetInt(flagRunLimitNameConstant)
	}
	if flagSet.Changed(flagWorkersNameConstant) {
		configuration.Workers, _ = flagSet.GetInt(flagWorkersNameConstant)
	}
	if flagSet.Changed(flagTimeoutNameConstant) {
		configuration.OperationTimeout, _ = flagSet.GetDuration(flagTimeoutNameConstant)
	}
	if flagSet.Changed(flagProviderNameConstant) {
		configuration.Provider, _ = flagSet.GetString(flagProviderNameConstant)
	}
	if flagSet.Changed(flagEngineNameConstant) {
		configuration.Engine, _ = flagSet.GetString(flagEngineNameConstant)
	}
	if flagSet.Changed(flagListingFailureNameConstant) {
		configuration.ListingFailurePolicy, _ = flagSet.GetString(flagListingFailureNameConstant)
	}
	if flagSet.Changed(flagLedgerPathNameConstant) {
		configuration.LedgerPath, _ = flagSet.GetString(flagLedgerPathNameConstant)
	}
	if flagSet.Changed(flagBackupRootNameConstant) {
		configuration.BackupRoot, _ = flagSet.GetString(flagBackupRootNameConstant)
	}
	dryRun, _ := flagSet.GetBool(flagDryRunNameConstant)

	sanitized := configuration.sanitize()
	homeExpander := builder.resolveHomeExpander()
	return runSettings{
		configuration: sanitized,
		ledgerPath:    homeExpander.ExpandOrDefault(sanitized.LedgerPath, pathutils.DefaultLedgerPath(applicationNameConstant)),
		backupRoot:    homeExpander.ExpandOrDefault(sanitized.BackupRoot, pathutils.DefaultBackupRoot(applicationNameConstant)),
		dryRun:        dryRun,
	}
}

func (builder *CommandBuilder) resolveHomeExpander() *pathutils.HomeExpander {
	if builder.HomeExpander != nil {
		return builder.HomeExpander
	}
	return pathutils.NewHomeExpander()
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// resolveRunIdentifier reuses the identifier assigned by the root command, generating one for standalone use.
func resolveRunIdentifier(command *cobra.Command) string {
	if runIdentifier, found := utils.NewCommandContextAccessor().RunIdentifier(command.Context()); found {
		return runIdentifier
	}
	return uuid.NewString()
}
