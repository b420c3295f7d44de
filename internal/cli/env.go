package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// bindEnvVars binds GOTABLE_<FLAG_NAME> environment variables to the flags of
// cmd, e.g. "log-level" is read from GOTABLE_LOG_LEVEL. Arguments take
// precedence over environment variables, which take precedence over
// defaults.
func bindEnvVars(cmd *cobra.Command) {
	cmd.Flags().VisitAll(bindFlagToEnv)
	cmd.PersistentFlags().VisitAll(bindFlagToEnv)
}

func bindFlagToEnv(flag *pflag.Flag) {
	envName := flagToEnvName(flag.Name)

	if !strings.Contains(flag.Usage, envName) {
		flag.Usage = fmt.Sprintf("%s ($%s)", flag.Usage, envName)
	}

	if flag.Changed {
		return
	}

	envValue, ok := os.LookupEnv(envName)
	if !ok {
		return
	}

	if err := flag.Value.Set(envValue); err != nil {
		slog.Error("failed to set flag from environment variable",
			slog.String("flag", flag.Name),
			slog.String("env", envName),
			slog.String("value", envValue),
			slog.Any("error", err),
		)
	}
}

// flagToEnvName converts a flag name to its environment variable name.
// Example: "log-level" -> "GOTABLE_LOG_LEVEL".
func flagToEnvName(flagName string) string {
	envName := strings.ReplaceAll(flagName, "-", "_")

	return strings.ToUpper(cmdName + "_" + envName)
}
