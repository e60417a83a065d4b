package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nodech/hsd-tools/internal/config"
	"github.com/nodech/hsd-tools/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View hs-tools configuration",
	Long: `View hs-tools configuration.

Without arguments, displays the effective configuration: defaults, then the
config file, then HS_TOOLS_ environment variables, then flags.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Validate so a broken file is reported rather than printed.
	if _, err := loadConfig(cmd); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "# config file: %s\n", used)
	} else {
		fmt.Fprintln(out, "# config file: (none - using defaults)")
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(config.Effective()); err != nil {
		return errors.Wrap(err, "failed to encode configuration")
	}
	return enc.Close()
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintln(out, used)
		return nil
	}
	fmt.Fprintln(out, config.ConfigFile())
	return nil
}
