package workcopy

import (
	"context"
	"errors"

	"github.com/temirov/repomirror/internal/execshell"
	"github.com/temirov/repomirror/internal/repository"
	"github.com/temirov/repomirror/internal/scheduler"
)

const (
	gitDirectoryFlagConstant             = "-C"
	gitPullSubcommandConstant            = "pull"
	terminalPromptEnvironmentKeyConstant = "GIT_TERMINAL_PROMPT"
	terminalPromptDisabledValueConstant  = "0"
	gitExecutorNotConfiguredMessage      = "workcopy git executor not configured"
	clonerNotConfiguredMessageConstant   = "workcopy repository cloner not configured"
)

var (
	// ErrGitExecutorNotConfigured indicates a CommandEngine without a git executor.
	ErrGitExecutorNotConfigured = errors.New(gitExecutorNotConfiguredMessage)
	// ErrClonerNotConfigured indicates a CommandEngine without a cloner.
	ErrClonerNotConfigured = errors.New(clonerNotConfiguredMessageConstant)
)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryCloner creates a working copy of a repository at destination.
type RepositoryCloner interface {
	CloneRepository(executionContext context.Context, repositoryIdentifier repository.Identifier, destination string) error
}

// CommandEngine synchronizes working copies with git and gh processes.
type CommandEngine struct {
	gitExecutor GitExecutor
	cloner      RepositoryCloner
}

// NewCommandEngine constructs a CommandEngine.
func NewCommandEngine(gitExecutor GitExecutor, cloner RepositoryCloner) (*CommandEngine, error) {
	if gitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if cloner == nil {
		return nil, ErrClonerNotConfigured
	}
	return &CommandEngine{gitExecutor: gitExecutor, cloner: cloner}, nil
}

// Update runs git pull inside the working copy at path.
func (engine *CommandEngine) Update(executionContext context.Context, _ repository.Identifier, path string) (scheduler.Status, error) {
	commandDetails := execshell.CommandDetails{
		Arguments: []string{gitDirectoryFlagConstant, path, gitPullSubcommandConstant},
		EnvironmentVariables: map[string]string{
			terminalPromptEnvironmentKeyConstant: terminalPromptDisabledValueConstant,
		},
	}
	_, executionError := engine.gitExecutor.ExecuteGit(executionContext, commandDetails)
	return classifyCommandError(executionError)
}

// Create clones the repository into path.
func (engine *CommandEngine) Create(executionContext context.Context, repositoryIdentifier repository.Identifier, path string) (scheduler.Status, error) {
	return classifyCommandError(engine.cloner.CloneRepository(executionContext, repositoryIdentifier, path))
}

// classifyCommandError maps a non-zero exit to StatusUnsuccessful and keeps every other failure as an invocation error.
func classifyCommandError(executionError error) (scheduler.Status, error) {
	if executionError == nil {
		return scheduler.StatusSucceeded, nil
	}
	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) {
		return scheduler.StatusUnsuccessful, nil
	}
	return scheduler.StatusUnsuccessful, executionError
}
