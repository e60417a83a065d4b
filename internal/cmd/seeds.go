package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nodech/hsd-tools/internal/seeds"
)

var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "Resolve DNS seeds and probe the peers they return",
	Long: `Resolve each configured DNS seed host, then open a TCP connection to every
returned address on the node port. Reachable peers are printed as host:port.`,
	Args: cobra.NoArgs,
	RunE: runSeeds,
}

func init() {
	rootCmd.AddCommand(seedsCmd)
	seedsCmd.Flags().StringSlice("host", nil, "seed hosts to resolve (default from seeds.hosts)")
	seedsCmd.Flags().Int("port", 0, "port to probe (default from seeds.port)")
}

func runSeeds(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	port := e.cfg.Seeds.Port
	if p, _ := cmd.Flags().GetInt("port"); p > 0 {
		port = p
	}
	hosts := e.cfg.Seeds.Hosts
	if h, _ := cmd.Flags().GetStringSlice("host"); len(h) > 0 {
		hosts = h
	}

	op := &seeds.Operation{
		Hosts:       hosts,
		Port:        port,
		Timeout:     e.cfg.Seeds.Timeout,
		Concurrency: e.cfg.Seeds.Concurrency,
		TTL:         e.cfg.Seeds.TTL,
		Cache:       e.store,
		Logger:      e.logger,
	}
	return e.run(cmd, op)
}
