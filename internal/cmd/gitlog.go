package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nodech/hsd-tools/internal/github"
	"github.com/nodech/hsd-tools/internal/gitlog"
)

var gitLogCmd = &cobra.Command{
	Use:   "git-log [from..to]",
	Short: "List first-parent history grouped by merged pull request",
	Long: `List the first-parent history of the working directory repository. Each
"Merge pull request #N" commit is shown with the pull request title from
GitHub and the commits it merged.

The range can be given as a single from..to argument or with --from and
--to. The from revision itself is not listed.`,
	Example: `  hs-tools git-log v6.0.0..
  hs-tools git-log --from v5.0.0 --to v6.0.0
  hs-tools git-log --limit 20`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGitLog,
}

func init() {
	rootCmd.AddCommand(gitLogCmd)
	gitLogCmd.Flags().String("from", "", "exclusive start revision")
	gitLogCmd.Flags().String("to", "", "end revision (default HEAD)")
	gitLogCmd.Flags().Int("limit", 0, "maximum number of first-parent commits (0 for no limit)")
}

func runGitLog(cmd *cobra.Command, args []string) error {
	rng, err := gitLogRange(cmd, args)
	if err != nil {
		return err
	}

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	op := &gitlog.Operation{
		Dir:   e.workdir,
		Range: rng,
		Repo:  e.cfg.GitHub.Repo,
		GitHub: github.NewClient(github.Config{
			API:         e.cfg.GitHub.API,
			Token:       e.cfg.GitHub.Token,
			Concurrency: e.cfg.GitHub.Concurrency,
			HTTP:        e.http,
			Cache:       e.store,
			Logger:      e.logger,
		}),
		Logger: e.logger,
	}
	return e.run(cmd, op)
}

// gitLogRange merges a from..to argument with the flags. Flags win.
func gitLogRange(cmd *cobra.Command, args []string) (gitlog.Range, error) {
	var rng gitlog.Range
	if len(args) == 1 {
		var err error
		if rng, err = gitlog.ParseRange(args[0]); err != nil {
			return rng, err
		}
	}
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		rng.From = from
	}
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		rng.To = to
	}
	rng.Limit, _ = cmd.Flags().GetInt("limit")
	return rng, nil
}
