// Package githubauth locates GitHub credentials that are already present in the environment.
package githubauth

import (
	"os"
	"strings"

	"golang.org/x/oauth2"
)

// Environment variable names consulted for a GitHub token, in order of preference.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

var tokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// EnvironmentLookup resolves a single environment variable.
type EnvironmentLookup func(key string) (string, bool)

// ResolveToken returns the first non-empty token observed in the provided environment map,
// then in the process environment.
func ResolveToken(environment map[string]string) (string, bool) {
	if token, found := resolveWith(mapLookup(environment)); found {
		return token, true
	}
	return resolveWith(os.LookupEnv)
}

// TokenSource wraps the resolved token for oauth2 aware HTTP clients. It returns nil when no token is present,
// in which case callers fall back to anonymous access.
func TokenSource(environment map[string]string) oauth2.TokenSource {
	token, found := ResolveToken(environment)
	if !found {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}

func resolveWith(lookup EnvironmentLookup) (string, bool) {
	for _, key := range tokenPreference {
		value, exists := lookup(key)
		if !exists {
			continue
		}
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) > 0 {
			return trimmedValue, true
		}
	}
	return "", false
}

func mapLookup(environment map[string]string) EnvironmentLookup {
	return func(key string) (string, bool) {
		if environment == nil {
			return "", false
		}
		value, exists := environment[key]
		return value, exists
	}
}
