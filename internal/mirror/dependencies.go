package mirror

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/repomirror/internal/execshell"
	"github.com/temirov/repomirror/internal/githubapi"
	"github.com/temirov/repomirror/internal/githubauth"
	"github.com/temirov/repomirror/internal/githubcli"
	"github.com/temirov/repomirror/internal/ledger"
	"github.com/temirov/repomirror/internal/listing"
	"github.com/temirov/repomirror/internal/scheduler"
	"github.com/temirov/repomirror/internal/ui"
	"github.com/temirov/repomirror/internal/workcopy"
)

const (
	unsupportedProviderTemplateConstant = "unsupported directory provider %q (expected gh or api)"
	unsupportedEngineTemplateConstant   = "unsupported sync engine %q (expected cli or gogit)"
)

// ShellExecutor runs both git and gh commands.
type ShellExecutor interface {
	workcopy.GitExecutor
	githubcli.GitHubCommandExecutor
}

// runSettings is the fully resolved configuration of one sync invocation.
type runSettings struct {
	configuration CommandConfiguration
	ledgerPath    string
	backupRoot    string
	dryRun        bool
}

func (builder *CommandBuilder) resolveFileSystem() afero.Fs {
	if builder.FileSystem != nil {
		return builder.FileSystem
	}
	return afero.NewOsFs()
}

func (builder *CommandBuilder) resolveShellExecutor(logger *zap.Logger) (ShellExecutor, error) {
	if builder.ShellExecutor != nil {
		return builder.ShellExecutor, nil
	}

	var eventObserver execshell.CommandEventObserver
	if builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider() {
		eventObserver = ui.NewConsoleCommandEventLogger(logger)
	}

	commandRunner := builder.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewOSCommandRunner()
	}
	return execshell.NewShellExecutor(logger, commandRunner, eventObserver)
}

func (builder *CommandBuilder) resolveDirectoryProvider(executionContext context.Context, settings runSettings, shellExecutor ShellExecutor) (listing.DirectoryProvider, error) {
	if builder.DirectoryProvider != nil {
		return builder.DirectoryProvider, nil
	}

	switch settings.configuration.Provider {
	case ProviderGitHubCLI:
		return githubcli.NewClient(shellExecutor)
	case ProviderGitHubAPI:
		httpClient := githubapi.NewHTTPClient(executionContext, githubauth.TokenSource(builder.Environment))
		return githubapi.NewClient(httpClient, githubapi.Configuration{
			BaseURL:           settings.configuration.APIBaseURL,
			RequestsPerSecond: settings.configuration.APIRequestsPerSecond,
		})
	default:
		return nil, fmt.Errorf(unsupportedProviderTemplateConstant, settings.configuration.Provider)
	}
}

func (builder *CommandBuilder) resolveSyncPrimitive(settings runSettings, shellExecutor ShellExecutor, logger *zap.Logger) (scheduler.SyncPrimitive, error) {
	if builder.SyncPrimitive != nil {
		return builder.SyncPrimitive, nil
	}

	switch settings.configuration.Engine {
	case EngineCommand:
		githubClient, clientError := githubcli.NewClient(shellExecutor)
		if clientError != nil {
			return nil, clientError
		}
		return workcopy.NewCommandEngine(shellExecutor, githubClient)
	case EngineGoGit:
		token, _ := githubauth.ResolveToken(builder.Environment)
		return workcopy.NewGoGitEngine(workcopy.GoGitConfiguration{Token: token}, logger)
	default:
		return nil, fmt.Errorf(unsupportedEngineTemplateConstant, settings.configuration.Engine)
	}
}

func (builder *CommandBuilder) resolveClock() scheduler.Clock {
	if builder.Clock != nil {
		return builder.Clock
	}
	return scheduler.SystemClock{}
}

// buildService wires the ledger store, aggregator, and scheduler for one run.
func (builder *CommandBuilder) buildService(executionContext context.Context, settings runSettings, logger *zap.Logger) (*Service, error) {
	policy, policyError := listing.ParseFailurePolicy(settings.configuration.ListingFailurePolicy)
	if policyError != nil {
		return nil, policyError
	}

	shellExecutor, executorError := builder.resolveShellExecutor(logger)
	if executorError != nil {
		return nil, executorError
	}

	provider, providerError := builder.resolveDirectoryProvider(executionContext, settings, shellExecutor)
	if providerError != nil {
		return nil, providerError
	}

	aggregator, aggregatorError := listing.NewAggregator(provider, logger, policy)
	if aggregatorError != nil {
		return nil, aggregatorError
	}

	primitive, primitiveError := builder.resolveSyncPrimitive(settings, shellExecutor, logger)
	if primitiveError != nil {
		return nil, primitiveError
	}

	syncScheduler, schedulerError := scheduler.NewScheduler(
		scheduler.Configuration{
			BackupRoot:       settings.backupRoot,
			Workers:          settings.configuration.Workers,
			OperationTimeout: settings.configuration.OperationTimeout,
		},
		scheduler.Dependencies{
			Primitive: primitive,
			Clock:     builder.resolveClock(),
			Logger:    logger,
		},
	)
	if schedulerError != nil {
		return nil, schedulerError
	}

	return NewService(Dependencies{
		Store:     ledger.NewStore(builder.resolveFileSystem()),
		Collector: aggregator,
		Runner:    syncScheduler,
		Logger:    logger,
	})
}
