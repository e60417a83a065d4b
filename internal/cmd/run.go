package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nodech/hsd-tools/internal/cache"
	"github.com/nodech/hsd-tools/internal/config"
	"github.com/nodech/hsd-tools/internal/errors"
	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/fetch"
	"github.com/nodech/hsd-tools/internal/lock"
	"github.com/nodech/hsd-tools/internal/logging"
	"github.com/nodech/hsd-tools/internal/orchestrator"
	"github.com/nodech/hsd-tools/internal/render"
)

// userAgent identifies hs-tools to the npm registry and GitHub.
const userAgent = "hs-tools (+https://github.com/nodech/hsd-tools)"

// loadConfig applies the flags viper cannot bind directly and validates the
// result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if configReadErr != nil {
		return nil, errors.NewConfigError("failed to read config file", configReadErr).WithField("config")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, errors.NewConfigError("invalid configuration", err)
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache.Enabled = false
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Level = logging.LevelDebug
	}
	return cfg, nil
}

// env is what every operation command shares.
type env struct {
	cfg      *config.Config
	workdir  string
	stateDir string
	logger   *logging.Logger
	store    cache.Cache
	http     *fetch.Client
}

func newEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	workdir, err := cfg.ResolveWorkdir()
	if err != nil {
		return nil, errors.NewConfigError("failed to resolve working directory", err).WithField("workdir")
	}
	stateDir := cfg.StateDir(workdir)

	logger, err := logging.NewLogger(stateDir, cfg.Logging.Level)
	if err != nil {
		return nil, errors.NewCacheError("failed to open debug log", err).WithPath(stateDir)
	}
	logger = logger.With("workdir", workdir)

	store := cache.New(stateDir, cfg.Cache.Enabled, cache.WithLogger(logger))
	if err := store.Ensure(); err != nil {
		_ = logger.Close()
		return nil, err
	}

	return &env{
		cfg:      cfg,
		workdir:  workdir,
		stateDir: stateDir,
		logger:   logger,
		store:    store,
		http:     fetch.NewClient(fetch.WithUserAgent(userAgent)),
	}, nil
}

func (e *env) close() {
	_ = e.logger.Close()
}

// run executes op under the orchestrator. The cache index is loaded and
// written back while the lock is held.
func (e *env) run(cmd *cobra.Command, op orchestrator.Operation) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mode, err := render.ParseMode(e.cfg.UI.Mode)
	if err != nil {
		return errors.NewConfigError(err.Error(), errors.ErrInvalidInput).WithField("ui.mode")
	}
	renderer := render.New(mode, cmd.ErrOrStderr(), render.WithMaxSteps(e.cfg.UI.MaxSteps))

	retries := e.cfg.Lock.Retries
	if retries == 0 {
		retries = -1
	}
	o := orchestrator.New(orchestrator.Config{
		Renderer: renderer,
		Out:      cmd.OutOrStdout(),
		Tick:     e.cfg.UI.Tick,
		LockDir:  e.stateDir,
		Force:    e.cfg.Lock.Force,
		Lock: lock.Options{
			StaleAfter: e.cfg.Lock.StaleAfter,
			Retries:    retries,
			RetryDelay: e.cfg.Lock.RetryDelay,
			Heartbeat:  e.cfg.Lock.Heartbeat,
			Logger:     e.logger,
		},
		Logger: e.logger,
	})

	return o.Run(ctx, orchestrator.Func{
		OpName: op.Name(),
		Fn: func(ctx context.Context, r *event.Reporter) error {
			if err := e.store.Open(); err != nil {
				return err
			}
			defer func() {
				if err := e.store.Close(); err != nil {
					r.Error(err, "stage", "cache close")
				}
			}()
			return op.Run(ctx, r)
		},
	})
}
