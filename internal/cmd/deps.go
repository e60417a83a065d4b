package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nodech/hsd-tools/internal/npm"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Check package.json dependencies against the npm registry",
	Long: `Check every dependency declared in <workdir>/package.json against the
latest release published to the npm registry.

Packages whose declared range does not admit the latest release are
reported as outdated. Ranges that are not semver (git URLs, file: and
workspace: links) are skipped.`,
	Args: cobra.NoArgs,
	RunE: runDeps,
}

func init() {
	rootCmd.AddCommand(depsCmd)
	depsCmd.Flags().StringSlice("only", nil, "only check packages matching these glob patterns")
	depsCmd.Flags().StringSlice("ignore", nil, "skip packages matching these glob patterns")
}

func runDeps(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	audit := &npm.Audit{
		Dir: e.workdir,
		Registry: npm.NewClient(npm.Config{
			Registry:    e.cfg.NPM.Registry,
			Concurrency: e.cfg.NPM.Concurrency,
			TTL:         e.cfg.NPM.TTL,
			HTTP:        e.http,
			Cache:       e.store,
			Logger:      e.logger,
		}),
		Logger: e.logger,
	}
	audit.Only, _ = cmd.Flags().GetStringSlice("only")
	audit.Ignore, _ = cmd.Flags().GetStringSlice("ignore")
	return e.run(cmd, audit)
}
