package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nodech/hsd-tools/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "hs-tools",
	Short: "Maintenance tooling for Handshake repositories",
	Long: `hs-tools runs maintenance operations against a Handshake project checkout:
auditing npm dependencies, listing history grouped by pull request and
probing the network's DNS seeds. Progress is shown live on a terminal and
as plain lines everywhere else.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// configReadErr holds the error from reading an explicitly named config file.
var configReadErr error

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is <workdir>/.hs-tools/config.yaml or $XDG_CONFIG_HOME/hs-tools/config.yaml)")
	flags.StringP("workdir", "C", "", "directory to operate on (default is the current directory)")
	flags.Bool("force", false, "skip the working directory lock")
	flags.Bool("no-cache", false, "do not read or write the response cache")
	flags.String("ui", "auto", "progress display: auto, live or text")
	flags.Int("max-steps", config.Default().UI.MaxSteps, "step lines shown per task in live mode")
	flags.Bool("debug", false, "write debug level entries to the log")
}

// bindFlags ties the global flags to their config keys.
func bindFlags() {
	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("workdir", flags.Lookup("workdir"))
	_ = viper.BindPFlag("lock.force", flags.Lookup("force"))
	_ = viper.BindPFlag("ui.mode", flags.Lookup("ui"))
	_ = viper.BindPFlag("ui.max_steps", flags.Lookup("max-steps"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()
	bindFlags()

	configReadErr = nil
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(filepath.Join(viper.GetString("workdir"), config.StateDirName))
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("HS_TOOLS")
	// Replace dots with underscores for nested keys in env vars
	// e.g., HS_TOOLS_NPM_REGISTRY for npm.registry
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine unless it was asked for by name.
	if err := viper.ReadInConfig(); err != nil && viper.GetString("config") != "" {
		configReadErr = err
	}
}
