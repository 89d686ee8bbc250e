package githubauth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repomirror/internal/githubauth"
)

func clearTokenEnvironment(testInstance *testing.T) {
	testInstance.Helper()
	testInstance.Setenv(githubauth.EnvGitHubCLIToken, "")
	testInstance.Setenv(githubauth.EnvGitHubToken, "")
	testInstance.Setenv(githubauth.EnvGitHubAPIToken, "")
}

func TestResolveTokenPreference(testInstance *testing.T) {
	testCases := []struct {
		name          string
		environment   map[string]string
		processToken  string
		expectedToken string
		expectedFound bool
	}{
		{
			name:          "cli_token_preferred",
			environment:   map[string]string{githubauth.EnvGitHubToken: "second", githubauth.EnvGitHubCLIToken: "first"},
			expectedToken: "first",
			expectedFound: true,
		},
		{
			name:          "blank_values_skipped",
			environment:   map[string]string{githubauth.EnvGitHubCLIToken: "  ", githubauth.EnvGitHubAPIToken: " third "},
			expectedToken: "third",
			expectedFound: true,
		},
		{
			name:          "process_environment_fallback",
			environment:   nil,
			processToken:  "from-process",
			expectedToken: "from-process",
			expectedFound: true,
		},
		{
			name:          "absent",
			environment:   map[string]string{},
			expectedFound: false,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			clearTokenEnvironment(testInstance)
			if len(testCase.processToken) > 0 {
				testInstance.Setenv(githubauth.EnvGitHubToken, testCase.processToken)
			}

			token, found := githubauth.ResolveToken(testCase.environment)
			require.Equal(testInstance, testCase.expectedFound, found)
			require.Equal(testInstance, testCase.expectedToken, token)
		})
	}
}

func TestTokenSource(testInstance *testing.T) {
	clearTokenEnvironment(testInstance)

	require.Nil(testInstance, githubauth.TokenSource(nil))

	tokenSource := githubauth.TokenSource(map[string]string{githubauth.EnvGitHubToken: "secret"})
	require.NotNil(testInstance, tokenSource)

	token, tokenError := tokenSource.Token()
	require.NoError(testInstance, tokenError)
	require.Equal(testInstance, "secret", token.AccessToken)
}
