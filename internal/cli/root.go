package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Alp4ka/gotable/internal/config"
	"github.com/Alp4ka/gotable/internal/log"
)

const (
	cmdName = "gotable"
	cmdDesc = `Stateful server-side HTML tables: demo server and maintenance tools.`
)

type RootArgs struct {
	LogLevel   string
	LogFormat  string
	ConfigPath string
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	cmd.PersistentFlags().
		StringVar(&ra.ConfigPath, "config", "", "Path to the TOML configuration file")

	err := cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	if err = cmd.MarkPersistentFlagFilename("config", "toml"); err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}
}

// Config loads the configuration file, or the defaults when none is given,
// and applies the logging flags on top of it.
func (ra *RootArgs) Config() (*config.Config, error) {
	cfg := config.Default()
	if ra.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadFrom(ra.ConfigPath); err != nil {
			return nil, err
		}
	}

	if ra.LogLevel != "" {
		cfg.Log.Level = ra.LogLevel
	}
	if ra.LogFormat != "" {
		cfg.Log.Format = ra.LogFormat
	}

	return cfg, nil
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()

	cmd := &cobra.Command{
		Use:               cmdName,
		Short:             cmdDesc,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging(args),
	}

	args.AddFlags(cmd)
	cmd.AddCommand(
		NewServeCmd(NewServeArgs(args)),
		NewUpdateColumnsCmd(NewUpdateColumnsArgs(args)),
	)

	bindEnvVars(cmd)

	return cmd
}

func setupLogging(ra *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := ra.Config()
		if err != nil {
			return err
		}

		logHandler, err := log.CreateHandlerWithStrings(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("create log handler: %w", err)
		}

		slog.SetDefault(slog.New(logHandler))

		return nil
	}
}
