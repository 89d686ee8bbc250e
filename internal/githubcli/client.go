package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/temirov/repomirror/internal/execshell"
	"github.com/temirov/repomirror/internal/listing"
	"github.com/temirov/repomirror/internal/repository"
)

const (
	repoSubcommandConstant                  = "repo"
	listSubcommandConstant                  = "list"
	cloneSubcommandConstant                 = "clone"
	jsonFlagConstant                        = "--json"
	limitFlagConstant                       = "--limit"
	repositoryListJSONFieldsConstant        = "nameWithOwner,updatedAt"
	terminalPromptEnvironmentKeyConstant    = "GIT_TERMINAL_PROMPT"
	terminalPromptDisabledValueConstant     = "0"
	accountFieldNameConstant                = "account"
	limitFieldNameConstant                  = "limit"
	repositoryFieldNameConstant             = "repository"
	destinationFieldNameConstant            = "destination"
	requiredValueMessageConstant            = "value required"
	positiveValueMessageConstant            = "value must be positive"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	missingRepositoryNameMessageConstant    = "entry without nameWithOwner"
	unexpectedTokenTemplateConstant         = "unexpected token %v, expected %q"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	listRepositoriesOperationNameConstant   = OperationName("ListRepositories")
	cloneRepositoryOperationNameConstant    = OperationName("CloneRepository")
)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor GitHubCommandExecutor
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

	errMissingRepositoryName = errors.New(missingRepositoryNameMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// NewClient constructs a GitHub CLI client.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

type repositoryListEntry struct {
	NameWithOwner string    `json:"nameWithOwner"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ListRepositories runs gh repo list for account and streams each entry of the JSON array to visit.
// gh reports repositories most recently updated first.
func (client *Client) ListRepositories(executionContext context.Context, account string, limit int, visit listing.Visitor) error {
	trimmedAccount := strings.TrimSpace(account)
	if len(trimmedAccount) == 0 {
		return InvalidInputError{FieldName: accountFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if limit <= 0 {
		return InvalidInputError{FieldName: limitFieldNameConstant, Message: positiveValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			repoSubcommandConstant,
			listSubcommandConstant,
			trimmedAccount,
			limitFlagConstant,
			strconv.Itoa(limit),
			jsonFlagConstant,
			repositoryListJSONFieldsConstant,
		},
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return OperationError{Operation: listRepositoriesOperationNameConstant, Cause: executionError}
	}

	return streamRepositoryList(strings.NewReader(executionResult.StandardOutput), visit)
}

func streamRepositoryList(reader io.Reader, visit listing.Visitor) error {
	decoder := json.NewDecoder(reader)

	openingToken, tokenError := decoder.Token()
	if tokenError != nil {
		return ResponseDecodingError{Operation: listRepositoriesOperationNameConstant, Cause: tokenError}
	}
	if delimiter, isDelimiter := openingToken.(json.Delim); !isDelimiter || delimiter != '[' {
		return ResponseDecodingError{Operation: listRepositoriesOperationNameConstant, Cause: fmt.Errorf(unexpectedTokenTemplateConstant, openingToken, "[")}
	}

	for decoder.More() {
		var entry repositoryListEntry
		if decodeError := decoder.Decode(&entry); decodeError != nil {
			return ResponseDecodingError{Operation: listRepositoriesOperationNameConstant, Cause: decodeError}
		}
		if len(strings.TrimSpace(entry.NameWithOwner)) == 0 {
			return ResponseDecodingError{Operation: listRepositoriesOperationNameConstant, Cause: errMissingRepositoryName}
		}
		if visitError := visit(repository.Candidate{Repository: repository.Identifier(entry.NameWithOwner), RemoteUpdatedAt: entry.UpdatedAt}); visitError != nil {
			return visitError
		}
	}

	if _, closingError := decoder.Token(); closingError != nil {
		return ResponseDecodingError{Operation: listRepositoriesOperationNameConstant, Cause: closingError}
	}
	return nil
}

// CloneRepository runs gh repo clone to create a working copy of repositoryIdentifier at destination.
// A non-zero exit surfaces as an OperationError wrapping execshell.CommandFailedError.
func (client *Client) CloneRepository(executionContext context.Context, repositoryIdentifier repository.Identifier, destination string) error {
	trimmedRepository := strings.TrimSpace(repositoryIdentifier.String())
	if len(trimmedRepository) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(destination)) == 0 {
		return InvalidInputError{FieldName: destinationFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			repoSubcommandConstant,
			cloneSubcommandConstant,
			trimmedRepository,
			destination,
		},
		EnvironmentVariables: map[string]string{
			terminalPromptEnvironmentKeyConstant: terminalPromptDisabledValueConstant,
		},
	}

	if _, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails); executionError != nil {
		return OperationError{Operation: cloneRepositoryOperationNameConstant, Cause: executionError}
	}
	return nil
}
