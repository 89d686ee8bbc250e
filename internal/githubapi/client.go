package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/temirov/repomirror/internal/listing"
	"github.com/temirov/repomirror/internal/repository"
)

const (
	// DefaultRequestTimeout bounds each HTTP request issued by the client.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultRequestsPerSecond is the proactive throttle applied when no rate is configured.
	DefaultRequestsPerSecond = 5.0

	maximumPageSizeConstant            = 100
	sortByUpdatedConstant              = "updated"
	sortDescendingConstant             = "desc"
	repositoryTypeOwnerConstant        = "owner"
	urlPathSeparatorConstant           = "/"
	invalidBaseURLTemplateConstant     = "invalid github api base url %q: %w"
	apiErrorTemplateConstant           = "github api %s for %s failed: %v"
	apiErrorWithStatusTemplateConstant = "github api %s for %s failed with status %d: %v"
	rateLimitWaitTemplateConstant      = "rate limit wait: %w"
	invalidAccountMessageConstant      = "github api account required"
	invalidLimitMessageConstant        = "github api listing limit must be positive"
	missingFullNameMessageConstant     = "repository without full_name"
	listRepositoriesOperationConstant  = "list repositories"
)

var (
	// ErrInvalidAccount indicates a blank account name.
	ErrInvalidAccount = errors.New(invalidAccountMessageConstant)
	// ErrInvalidLimit indicates a non-positive listing limit.
	ErrInvalidLimit = errors.New(invalidLimitMessageConstant)

	errMissingFullName = errors.New(missingFullNameMessageConstant)
)

// APIError reports a failed GitHub REST call.
type APIError struct {
	Operation  string
	Account    string
	StatusCode int
	Cause      error
}

// Error describes the failed call.
func (apiError APIError) Error() string {
	if apiError.StatusCode == 0 {
		return fmt.Sprintf(apiErrorTemplateConstant, apiError.Operation, apiError.Account, apiError.Cause)
	}
	return fmt.Sprintf(apiErrorWithStatusTemplateConstant, apiError.Operation, apiError.Account, apiError.StatusCode, apiError.Cause)
}

// Unwrap exposes the underlying cause.
func (apiError APIError) Unwrap() error {
	return apiError.Cause
}

// Configuration tunes the REST client.
type Configuration struct {
	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise. Empty keeps api.github.com.
	BaseURL           string
	RequestsPerSecond float64
}

// Client lists repositories through the GitHub REST API.
type Client struct {
	github  *gh.Client
	limiter *rate.Limiter
}

// NewHTTPClient returns an HTTP client that authenticates with tokenSource. A nil token
// source yields an anonymous client.
func NewHTTPClient(executionContext context.Context, tokenSource oauth2.TokenSource) *http.Client {
	var httpClient *http.Client
	if tokenSource == nil {
		httpClient = &http.Client{}
	} else {
		httpClient = oauth2.NewClient(executionContext, tokenSource)
	}
	httpClient.Timeout = DefaultRequestTimeout
	return httpClient
}

// NewClient constructs a Client on top of httpClient. A nil httpClient uses an anonymous client.
func NewClient(httpClient *http.Client, configuration Configuration) (*Client, error) {
	githubClient := gh.NewClient(httpClient)

	trimmedBaseURL := strings.TrimSpace(configuration.BaseURL)
	if len(trimmedBaseURL) > 0 {
		if !strings.HasSuffix(trimmedBaseURL, urlPathSeparatorConstant) {
			trimmedBaseURL += urlPathSeparatorConstant
		}
		parsedBaseURL, parseError := url.Parse(trimmedBaseURL)
		if parseError != nil {
			return nil, fmt.Errorf(invalidBaseURLTemplateConstant, configuration.BaseURL, parseError)
		}
		githubClient.BaseURL = parsedBaseURL
	}

	requestsPerSecond := configuration.RequestsPerSecond
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}

	return &Client{
		github:  githubClient,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

// ListRepositories pages through the repositories owned by account, most recently updated
// first, and hands at most limit of them to visit.
func (client *Client) ListRepositories(executionContext context.Context, account string, limit int, visit listing.Visitor) error {
	trimmedAccount := strings.TrimSpace(account)
	if len(trimmedAccount) == 0 {
		return ErrInvalidAccount
	}
	if limit <= 0 {
		return ErrInvalidLimit
	}

	listOptions := &gh.RepositoryListByUserOptions{
		Type:        repositoryTypeOwnerConstant,
		Sort:        sortByUpdatedConstant,
		Direction:   sortDescendingConstant,
		ListOptions: gh.ListOptions{PerPage: min(maximumPageSizeConstant, limit)},
	}

	visited := 0
	for {
		if waitError := client.limiter.Wait(executionContext); waitError != nil {
			return fmt.Errorf(rateLimitWaitTemplateConstant, waitError)
		}

		repositories, response, listError := client.github.Repositories.ListByUser(executionContext, trimmedAccount, listOptions)
		if listError != nil {
			return client.wrapError(trimmedAccount, response, listError)
		}

		for _, remoteRepository := range repositories {
			fullName := strings.TrimSpace(remoteRepository.GetFullName())
			if len(fullName) == 0 {
				return APIError{Operation: listRepositoriesOperationConstant, Account: trimmedAccount, Cause: errMissingFullName}
			}
			candidate := repository.Candidate{
				Repository:      repository.Identifier(fullName),
				RemoteUpdatedAt: remoteRepository.GetUpdatedAt().Time,
			}
			if visitError := visit(candidate); visitError != nil {
				return visitError
			}
			visited++
			if visited >= limit {
				return nil
			}
		}

		if response == nil || response.NextPage == 0 {
			return nil
		}
		listOptions.Page = response.NextPage
	}
}

func (client *Client) wrapError(account string, response *gh.Response, cause error) error {
	apiError := APIError{Operation: listRepositoriesOperationConstant, Account: account, Cause: cause}
	if response != nil && response.Response != nil {
		apiError.StatusCode = response.StatusCode
	}
	return apiError
}
