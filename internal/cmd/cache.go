package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nodech/hsd-tools/internal/cache"
	"github.com/nodech/hsd-tools/internal/errors"
	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/util"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the response cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached entries with their size and expiry",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached entry",
	Long: `Remove every cached payload and reset the index. The working directory
lock is taken first, so clear waits for (or fails against) a running
operation unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	workdir, err := cfg.ResolveWorkdir()
	if err != nil {
		return errors.NewConfigError("failed to resolve working directory", err).WithField("workdir")
	}

	store := cache.NewFile(cfg.StateDir(workdir))
	if err := store.Open(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	entries := store.Entries()
	if len(entries) == 0 {
		fmt.Fprintf(out, "Cache is empty (%s)\n", store.Dir())
		return nil
	}

	rows := make([][]string, 0, len(entries))
	var total int64
	for _, e := range entries {
		size := "?"
		if n := store.Size(e); n >= 0 {
			size = humanize.Bytes(uint64(n))
			total += n
		}
		rows = append(rows, []string{e.ID(), size, humanize.Time(time.Unix(e.CreatedAt, 0)), expiry(e)})
	}

	r := lipgloss.NewRenderer(out)
	cell := r.NewStyle().Padding(0, 1)
	header := cell.Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("ENTRY", "SIZE", "CREATED", "EXPIRES").
		Rows(rows...)

	fmt.Fprintln(out, t.String())
	fmt.Fprintf(out, "%s, %s in %s\n", util.Plural(len(entries), "entry"), humanize.Bytes(uint64(total)), store.Dir())
	return nil
}

func expiry(e cache.Entry) string {
	if e.TTL() >= cache.Forever.Truncate(time.Second) {
		return "never"
	}
	return humanize.Time(time.Unix(e.TimeoutAt, 0))
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	// Clear works on the file cache even when reads are disabled.
	file := cache.NewFile(e.stateDir, cache.WithLogger(e.logger))
	e.store = file

	return e.run(cmd, &clearOperation{store: file})
}

type clearOperation struct {
	store *cache.File
}

func (c *clearOperation) Name() string { return "cache-clear" }

func (c *clearOperation) Run(ctx context.Context, r *event.Reporter) error {
	r.Task("cache", c.store.Dir())
	r.TaskStatus("cache", event.Running)
	n := c.store.Clear()
	r.Out(fmt.Sprintf("Removed %s from %s", util.Plural(n, "entry"), c.store.Dir()))
	r.TaskStatus("cache", event.Done, "cleared")
	return nil
}
