package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/llmhelper/internal/application/port/output"
	infraConfig "github.com/YoshitsuguKoike/llmhelper/internal/infra/config"
)

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a setting.json with the defaults into the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home := globalConfig.Home()
			path := filepath.Join(home, "setting.json")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := infraConfig.CreateDefaultSettings(home); err != nil {
				return err
			}
			c := newContainer(globalConfig, cmd.OutOrStdout(), false)
			c.console.Println("Wrote "+path, output.ColorGreen)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing setting.json")
	return cmd
}
