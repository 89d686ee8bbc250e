// Package githubapi lists repositories through the GitHub REST API using go-github.
//
// Requests are authenticated with an OAuth2 token when one is available in the
// environment and throttled by a token bucket so long listings stay under the
// API quota.
package githubapi
