package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/truthgraph/internal/engine"
	"github.com/roach88/truthgraph/internal/schema"
	"github.com/roach88/truthgraph/internal/store"
)

// session is an open store with an engine over it.
type session struct {
	engine    *engine.Engine
	store     *store.Store
	formatter *OutputFormatter
	logger    *slog.Logger
}

// Close closes the store, logging any failure.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openSession opens the configured database and slot schema and builds an
// engine over them.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg := opts.settings()
	formatter := newFormatter(opts, cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithCacheTTL(cfg.CacheTTL),
		engine.WithGapConcurrency(cfg.GapConcurrency),
	}
	if cfg.Schema != "" {
		s, err := schema.Load(cfg.Schema)
		if err != nil {
			_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
			return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
		}
		engineOpts = append(engineOpts, engine.WithSlotSchema(s))
		formatter.VerboseLog("Loaded slot schema %s (%d clause types)", cfg.Schema, len(s.Types()))
	}

	st, err := store.OpenWithOptions(cfg.Database, cfg.StoreOptions())
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("opening database %s: %v", cfg.Database, err), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", "path", cfg.Database)

	return &session{
		engine:    engine.New(st, engineOpts...),
		store:     st,
		formatter: formatter,
		logger:    logger,
	}, nil
}

// commandContext returns the command's context, or Background when the
// command runs without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// scopeFlags binds --document and --family onto a scope.
func scopeFlags(cmd *cobra.Command, scope *engine.Scope) {
	cmd.Flags().StringVar(&scope.DocumentID, "document", "", "document scope")
	cmd.Flags().StringVar(&scope.FamilyID, "family", "", "family scope")
}

func requireScope(scope engine.Scope) error {
	if scope.DocumentID == "" && scope.FamilyID == "" {
		return NewExitError(ExitCommandError, "one of --document or --family is required")
	}
	return nil
}
