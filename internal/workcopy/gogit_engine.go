package workcopy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"

	"github.com/temirov/repomirror/internal/repository"
	"github.com/temirov/repomirror/internal/scheduler"
)

const (
	// DefaultRemoteBaseURL is the host repositories are cloned from.
	DefaultRemoteBaseURL = "https://github.com"
	// DefaultRemoteName is the remote pulled from when updating.
	DefaultRemoteName = "origin"

	tokenUsernameConstant              = "x-access-token"
	remoteURLTemplateConstant          = "%s/%s.git"
	gitSuffixConstant                  = ".git"
	loggerNotConfiguredMessageConstant = "workcopy logger not configured"
	updateUnsuccessfulLogMessage       = "working copy update unsuccessful"
	createUnsuccessfulLogMessage       = "working copy creation unsuccessful"
	logFieldRepositoryConstant         = "repository"
	logFieldPathConstant               = "path"
)

// ErrLoggerNotConfigured indicates a GoGitEngine without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// GoGitConfiguration tunes the in-process engine.
type GoGitConfiguration struct {
	RemoteBaseURL string
	// Token authenticates HTTPS transfers when non-empty.
	Token string
}

// GoGitEngine synchronizes working copies in process with go-git.
type GoGitEngine struct {
	remoteBaseURL  string
	authentication transport.AuthMethod
	logger         *zap.Logger
}

// NewGoGitEngine constructs a GoGitEngine.
func NewGoGitEngine(configuration GoGitConfiguration, logger *zap.Logger) (*GoGitEngine, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}

	remoteBaseURL := strings.TrimRight(strings.TrimSpace(configuration.RemoteBaseURL), "/")
	if len(remoteBaseURL) == 0 {
		remoteBaseURL = DefaultRemoteBaseURL
	}

	engine := &GoGitEngine{remoteBaseURL: remoteBaseURL, logger: logger}
	if token := strings.TrimSpace(configuration.Token); len(token) > 0 {
		engine.authentication = &http.BasicAuth{Username: tokenUsernameConstant, Password: token}
	}
	return engine, nil
}

// RemoteURL returns the clone URL for repositoryIdentifier.
func (engine *GoGitEngine) RemoteURL(repositoryIdentifier repository.Identifier) string {
	return fmt.Sprintf(remoteURLTemplateConstant, engine.remoteBaseURL, strings.TrimSuffix(repositoryIdentifier.String(), gitSuffixConstant))
}

// Update fast-forwards the working copy at path from its origin remote. An up-to-date working
// copy counts as success. A missing or bare repository is unsuccessful so the caller can clone.
func (engine *GoGitEngine) Update(executionContext context.Context, repositoryIdentifier repository.Identifier, path string) (scheduler.Status, error) {
	openedRepository, openError := git.PlainOpen(path)
	if openError != nil {
		return engine.unsuccessful(executionContext, updateUnsuccessfulLogMessage, repositoryIdentifier, path, openError)
	}

	worktree, worktreeError := openedRepository.Worktree()
	if worktreeError != nil {
		return engine.unsuccessful(executionContext, updateUnsuccessfulLogMessage, repositoryIdentifier, path, worktreeError)
	}

	pullError := worktree.PullContext(executionContext, &git.PullOptions{
		RemoteName: DefaultRemoteName,
		Auth:       engine.authentication,
	})
	if pullError == nil || errors.Is(pullError, git.NoErrAlreadyUpToDate) {
		return scheduler.StatusSucceeded, nil
	}
	return engine.unsuccessful(executionContext, updateUnsuccessfulLogMessage, repositoryIdentifier, path, pullError)
}

// Create clones the repository into path.
func (engine *GoGitEngine) Create(executionContext context.Context, repositoryIdentifier repository.Identifier, path string) (scheduler.Status, error) {
	_, cloneError := git.PlainCloneContext(executionContext, path, false, &git.CloneOptions{
		URL:        engine.RemoteURL(repositoryIdentifier),
		RemoteName: DefaultRemoteName,
		Auth:       engine.authentication,
	})
	if cloneError != nil {
		return engine.unsuccessful(executionContext, createUnsuccessfulLogMessage, repositoryIdentifier, path, cloneError)
	}
	return scheduler.StatusSucceeded, nil
}

// unsuccessful reports a finished operation as unsuccessful unless the context ended first.
func (engine *GoGitEngine) unsuccessful(executionContext context.Context, message string, repositoryIdentifier repository.Identifier, path string, cause error) (scheduler.Status, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return scheduler.StatusUnsuccessful, contextError
	}
	engine.logger.Debug(
		message,
		zap.String(logFieldRepositoryConstant, repositoryIdentifier.String()),
		zap.String(logFieldPathConstant, path),
		zap.Error(cause),
	)
	return scheduler.StatusUnsuccessful, nil
}
