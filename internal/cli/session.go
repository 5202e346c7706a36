package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/arbiter/internal/config"
	"github.com/roach88/arbiter/internal/engine"
	"github.com/roach88/arbiter/internal/logging"
	"github.com/roach88/arbiter/internal/seed"
	"github.com/roach88/arbiter/internal/store"
)

// session is one command's view of the persisted engine.
type session struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *store.Store
	engine   *engine.Engine
	registry *prometheus.Registry

	// fresh is true when the database held no state when opened.
	fresh bool
}

// sessionMode selects what openSession does with an empty database.
type sessionMode int

const (
	// seedEmpty applies the configured seed to an empty database.
	seedEmpty sessionMode = iota
	// leaveEmpty starts an empty database with an empty engine.
	leaveEmpty
)

// result is what a command hands back for rendering once its state is saved.
type result struct {
	data interface{}
	text func(w io.Writer)
}

// loadConfig applies the global flag overrides on top of the loaded config.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, withCode(ErrCodeConfig, err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return *cfg, nil
}

// openSession loads configuration, opens the database and restores the
// engine from it. The caller must call close.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command, mode sessionMode) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, withCode(ErrCodeConfig, err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, withCode(ErrCodeStore, fmt.Errorf("open database %s: %w", cfg.Database, err))
	}

	s := &session{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		registry: prometheus.NewRegistry(),
	}
	if err := s.restore(ctx, mode); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *session) restore(ctx context.Context, mode sessionMode) error {
	engOpts := []engine.EngineOption{
		engine.WithPolicy(s.cfg.Policy),
		engine.WithMemoryPolicy(s.cfg.Memory),
		engine.WithLogger(s.logger.Named("engine")),
		engine.WithMetrics(engine.NewMetrics(s.registry)),
	}

	has, err := s.store.HasState(ctx)
	if err != nil {
		return withCode(ErrCodeStore, err)
	}
	if has {
		snap, err := s.store.LoadSnapshot(ctx)
		if err != nil {
			return withCode(ErrCodeStore, err)
		}
		eng, err := engine.NewFromSnapshot(snap, engOpts...)
		if err != nil {
			return withCode(ErrCodeStore, fmt.Errorf("restore engine: %w", err))
		}
		s.engine = eng
		s.logger.Debug("engine restored from database",
			zap.String("database", s.cfg.Database),
			zap.Int64("last_seq", snap.LastSeq()),
		)
		return nil
	}

	eng, err := engine.New(engOpts...)
	if err != nil {
		return withCode(ErrCodeConfig, err)
	}
	s.engine = eng
	s.fresh = true
	if mode == leaveEmpty {
		return nil
	}

	sd, name, err := loadSeed(s.cfg.Seed)
	if err != nil {
		return err
	}
	if err := seed.Apply(sd, eng); err != nil {
		return withCode(ErrCodeSeed, err)
	}
	s.logger.Info("empty database seeded",
		zap.String("seed", name),
		zap.Int("patterns", len(sd.Patterns)),
	)
	return nil
}

// loadSeed returns the configured seed file, or the built-in seed when
// none is configured.
func loadSeed(path string) (*seed.Seed, string, error) {
	if path == "" {
		sd, err := seed.Default()
		return sd, seed.DefaultName, err
	}
	sd, err := seed.LoadFile(path)
	return sd, path, err
}

// save persists the engine state and exports metrics when configured.
func (s *session) save(ctx context.Context) error {
	if err := s.store.SaveSnapshot(ctx, s.engine.Snapshot()); err != nil {
		return withCode(ErrCodeStore, err)
	}
	s.logger.Debug("state saved", zap.String("database", s.cfg.Database))
	return s.writeMetrics()
}

func (s *session) writeMetrics() error {
	path := s.cfg.Metrics.Textfile
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
		return withCode(ErrCodeWriteFailed, fmt.Errorf("write metrics: %w", err))
	}
	return nil
}

func (s *session) close() {
	_ = s.logger.Sync()
	_ = s.store.Close()
}

// runSession opens a session, runs fn, saves the state when save is set
// and renders fn's result. Output happens only after the state is durable.
func runSession(opts *RootOptions, cmd *cobra.Command, save bool, fn func(s *session) (result, error)) error {
	f := opts.formatter(cmd)
	ctx := commandContext(cmd)

	s, err := openSession(ctx, opts, cmd, seedEmpty)
	if err != nil {
		return f.Fail(err)
	}
	defer s.close()

	res, err := fn(s)
	if err != nil {
		return f.Fail(err)
	}
	if save || s.fresh {
		if err := s.save(ctx); err != nil {
			return f.Fail(err)
		}
	} else if err := s.writeMetrics(); err != nil {
		return f.Fail(err)
	}
	return f.Render(res.data, res.text)
}

// commandContext returns the command's context, or a background context
// when the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
