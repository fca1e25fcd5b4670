package cli

import (
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/llmhelper/internal/app"
	"github.com/YoshitsuguKoike/llmhelper/internal/app/config"
	infraConfig "github.com/YoshitsuguKoike/llmhelper/internal/infra/config"
	"github.com/YoshitsuguKoike/llmhelper/internal/interface/cli/version"
)

// globalConfig holds the loaded configuration for all commands
var globalConfig config.Config

func NewRoot() *cobra.Command {
	var (
		home     string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:           "llmhelper",
		Short:         "Run prompt files against a language model and keep their history",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Priority: ENV > setting.json > defaults
			cfg, err := infraConfig.LoadSettings(app.ResolveHome(home))
			if err != nil {
				return err
			}
			globalConfig = cfg

			level := cfg.StderrLevel()
			if cmd.Flags().Changed("log-level") {
				if _, err := ParseLogLevel(logLevel); err != nil {
					return err
				}
				level = logLevel
			}
			logger := InitGlobalLogger(level)
			logger.Debug("config loaded from %s (home %s)", cfg.ConfigSource(), cfg.Home())
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.PersistentFlags().StringVar(&home, "home", "", "data directory (default $LLMH_HOME or ~/"+app.DefaultHomeName+")")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "stderr log level: debug, info, warn, error")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newTailCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(version.NewCommand())
	return cmd
}
