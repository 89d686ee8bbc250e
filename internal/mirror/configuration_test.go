package mirror_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/repomirror/internal/mirror"
)

func TestDefaultConfigurationValues(testInstance *testing.T) {
	testCases := []struct {
		name          string
		prefix        string
		expectedKey   string
		expectedValue any
	}{
		{name: "prefixed_run_limit", prefix: "tools.sync", expectedKey: "tools.sync.run_limit", expectedValue: 20},
		{name: "prefixed_timeout", prefix: "tools.sync", expectedKey: "tools.sync.operation_timeout", expectedValue: "10m0s"},
		{name: "prefixed_policy", prefix: "tools.sync", expectedKey: "tools.sync.listing_failure_policy", expectedValue: "fail_fast"},
		{name: "unprefixed_provider", prefix: " ", expectedKey: "provider", expectedValue: "gh"},
		{name: "unprefixed_per_account_limit", expectedKey: "per_account_limit", expectedValue: 1000},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			values := mirror.DefaultConfigurationValues(testCase.prefix)
			require.Contains(testInstance, values, testCase.expectedKey)
			require.Equal(testInstance, testCase.expectedValue, values[testCase.expectedKey])
		})
	}
}

func TestDefaultCommandConfiguration(testInstance *testing.T) {
	configuration := mirror.DefaultCommandConfiguration()
	require.Equal(testInstance, 8, configuration.Workers)
	require.Equal(testInstance, 10*time.Minute, configuration.OperationTimeout)
	require.Equal(testInstance, mirror.EngineCommand, configuration.Engine)
	require.Empty(testInstance, configuration.Accounts)
	require.Empty(testInstance, configuration.LedgerPath)
}
