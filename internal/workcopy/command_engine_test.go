package workcopy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repomirror/internal/execshell"
	"github.com/temirov/repomirror/internal/repository"
	"github.com/temirov/repomirror/internal/scheduler"
	"github.com/temirov/repomirror/internal/workcopy"
)

const (
	testRepositoryConstant  = repository.Identifier("alice/repoA")
	testWorkingCopyConstant = "/backup/alice/repoA"
)

type stubGitExecutor struct {
	executionError  error
	recordedDetails []execshell.CommandDetails
}

func (executor *stubGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	return execshell.ExecutionResult{}, executor.executionError
}

type stubCloner struct {
	cloneError   error
	repositories []repository.Identifier
	destinations []string
}

func (cloner *stubCloner) CloneRepository(_ context.Context, repositoryIdentifier repository.Identifier, destination string) error {
	cloner.repositories = append(cloner.repositories, repositoryIdentifier)
	cloner.destinations = append(cloner.destinations, destination)
	return cloner.cloneError
}

type wrappedCommandError struct {
	cause error
}

func (wrapped wrappedCommandError) Error() string { return "wrapped: " + wrapped.cause.Error() }

func (wrapped wrappedCommandError) Unwrap() error { return wrapped.cause }

func TestNewCommandEngineValidation(testInstance *testing.T) {
	engine, creationError := workcopy.NewCommandEngine(nil, &stubCloner{})
	require.ErrorIs(testInstance, creationError, workcopy.ErrGitExecutorNotConfigured)
	require.Nil(testInstance, engine)

	engine, creationError = workcopy.NewCommandEngine(&stubGitExecutor{}, nil)
	require.ErrorIs(testInstance, creationError, workcopy.ErrClonerNotConfigured)
	require.Nil(testInstance, engine)
}

func TestCommandEngineStatusClassification(testInstance *testing.T) {
	commandFailure := execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit},
		Result:  execshell.ExecutionResult{ExitCode: 1},
	}
	executionFailure := execshell.CommandExecutionError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit},
		Cause:   context.DeadlineExceeded,
	}

	testCases := []struct {
		name           string
		commandError   error
		expectedStatus scheduler.Status
		expectedError  error
	}{
		{name: "success", expectedStatus: scheduler.StatusSucceeded},
		{name: "non_zero_exit", commandError: commandFailure, expectedStatus: scheduler.StatusUnsuccessful},
		{name: "wrapped_non_zero_exit", commandError: wrappedCommandError{cause: commandFailure}, expectedStatus: scheduler.StatusUnsuccessful},
		{name: "execution_failure", commandError: executionFailure, expectedStatus: scheduler.StatusUnsuccessful, expectedError: context.DeadlineExceeded},
		{name: "wrapped_execution_failure", commandError: wrappedCommandError{cause: executionFailure}, expectedStatus: scheduler.StatusUnsuccessful, expectedError: context.DeadlineExceeded},
	}

	for _, testCase := range testCases {
		testInstance.Run("update_"+testCase.name, func(testInstance *testing.T) {
			engine, creationError := workcopy.NewCommandEngine(&stubGitExecutor{executionError: testCase.commandError}, &stubCloner{})
			require.NoError(testInstance, creationError)

			status, updateError := engine.Update(context.Background(), testRepositoryConstant, testWorkingCopyConstant)
			require.Equal(testInstance, testCase.expectedStatus, status)
			if testCase.expectedError == nil {
				require.NoError(testInstance, updateError)
			} else {
				require.ErrorIs(testInstance, updateError, testCase.expectedError)
			}
		})

		testInstance.Run("create_"+testCase.name, func(testInstance *testing.T) {
			engine, creationError := workcopy.NewCommandEngine(&stubGitExecutor{}, &stubCloner{cloneError: testCase.commandError})
			require.NoError(testInstance, creationError)

			status, createError := engine.Create(context.Background(), testRepositoryConstant, testWorkingCopyConstant)
			require.Equal(testInstance, testCase.expectedStatus, status)
			if testCase.expectedError == nil {
				require.NoError(testInstance, createError)
			} else {
				require.ErrorIs(testInstance, createError, testCase.expectedError)
			}
		})
	}
}

func TestCommandEngineUpdateArguments(testInstance *testing.T) {
	executor := &stubGitExecutor{}
	engine, creationError := workcopy.NewCommandEngine(executor, &stubCloner{})
	require.NoError(testInstance, creationError)

	_, updateError := engine.Update(context.Background(), testRepositoryConstant, testWorkingCopyConstant)
	require.NoError(testInstance, updateError)

	require.Len(testInstance, executor.recordedDetails, 1)
	require.Equal(testInstance, []string{"-C", testWorkingCopyConstant, "pull"}, executor.recordedDetails[0].Arguments)
	require.Equal(testInstance, "0", executor.recordedDetails[0].EnvironmentVariables["GIT_TERMINAL_PROMPT"])
}

func TestCommandEngineCreateDelegatesToCloner(testInstance *testing.T) {
	cloner := &stubCloner{}
	engine, creationError := workcopy.NewCommandEngine(&stubGitExecutor{}, cloner)
	require.NoError(testInstance, creationError)

	status, createError := engine.Create(context.Background(), testRepositoryConstant, testWorkingCopyConstant)
	require.NoError(testInstance, createError)
	require.Equal(testInstance, scheduler.StatusSucceeded, status)
	require.Equal(testInstance, []repository.Identifier{testRepositoryConstant}, cloner.repositories)
	require.Equal(testInstance, []string{testWorkingCopyConstant}, cloner.destinations)
}

func TestCommandEngineKeepsUnknownErrors(testInstance *testing.T) {
	spawnError := errors.New("exec: \"git\": executable file not found in $PATH")
	engine, creationError := workcopy.NewCommandEngine(&stubGitExecutor{executionError: spawnError}, &stubCloner{})
	require.NoError(testInstance, creationError)

	status, updateError := engine.Update(context.Background(), testRepositoryConstant, testWorkingCopyConstant)
	require.Equal(testInstance, scheduler.StatusUnsuccessful, status)
	require.ErrorIs(testInstance, updateError, spawnError)
}
