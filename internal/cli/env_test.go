package cli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alp4ka/gotable/internal/cli"
)

func TestBindEnvVars(t *testing.T) {
	tcs := map[string]struct {
		envVars       map[string]string
		wantLogLevel  string
		wantLogFormat string
		args          []string
	}{
		"environment variables are bound when no args provided": {
			envVars: map[string]string{
				"GOTABLE_LOG_LEVEL":  "debug",
				"GOTABLE_LOG_FORMAT": "json",
			},
			args:          []string{},
			wantLogLevel:  "debug",
			wantLogFormat: "json",
		},
		"command line args take precedence over environment variables": {
			envVars: map[string]string{
				"GOTABLE_LOG_LEVEL":  "debug",
				"GOTABLE_LOG_FORMAT": "json",
			},
			args:          []string{"--log-level", "error", "--log-format", "text"},
			wantLogLevel:  "error",
			wantLogFormat: "text",
		},
		"partial environment variable override": {
			envVars: map[string]string{
				"GOTABLE_LOG_LEVEL": "warn",
			},
			args:          []string{"--log-format", "json"},
			wantLogLevel:  "warn",
			wantLogFormat: "json",
		},
		"no environment variables leaves the config file in charge": {
			envVars:       map[string]string{},
			args:          []string{},
			wantLogLevel:  "",
			wantLogFormat: "",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			for key, val := range tc.envVars {
				t.Setenv(key, val)
			}

			cmd := cli.NewRootCmd()
			cmd.SetArgs(tc.args)

			err := cmd.ParseFlags(tc.args)
			require.NoError(t, err)

			logLevel, err := cmd.Flags().GetString("log-level")
			require.NoError(t, err)
			assert.Equal(t, tc.wantLogLevel, logLevel)

			logFormat, err := cmd.Flags().GetString("log-format")
			require.NoError(t, err)
			assert.Equal(t, tc.wantLogFormat, logFormat)
		})
	}
}

func TestEnvironmentVariableUsageUpdate(t *testing.T) {
	t.Parallel()

	cmd := cli.NewRootCmd()

	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Contains(t, flag.Usage, "$GOTABLE_CONFIG")

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	listen := serve.Flags().Lookup("listen")
	require.NotNil(t, listen)
	assert.Contains(t, listen.Usage, "$GOTABLE_LISTEN")
}
