package main

import (
	"context"
	"errors"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formval"
	"github.com/goliatone/go-formval/internal/config"
	"github.com/goliatone/go-formval/internal/logging"
	"github.com/goliatone/go-formval/pkg/datasource"
	"github.com/goliatone/go-formval/pkg/store"
	"github.com/goliatone/go-formval/pkg/validation"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "formval",
		Short:         "Validate documents answered against dynamic forms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("forms", "", "Directory of form definition files (overrides FORMVAL_FORMS)")
	root.PersistentFlags().String("log-level", "", "Log level (overrides FORMVAL_LOG_LEVEL)")
	root.PersistentFlags().String("log-format", "", "Log format: console or json (overrides FORMVAL_LOG_FORMAT)")
	root.PersistentFlags().StringSlice("env", nil, "Env files to load (default .env)")

	root.AddCommand(
		newValidateCmd(),
		newCheckQuestionCmd(),
		newServeCmd(),
		newFillCmd(),
		newImportOpenAPICmd(),
	)
	return root
}

// runtime holds the collaborators built from configuration and flags.
type runtime struct {
	cfg     config.Config
	logger  zerolog.Logger
	engine  *formval.Engine
	closers []func(context.Context) error
}

func (r *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// setup resolves configuration (env files, FORMVAL_* variables, then flags)
// and wires the store, the data source cache and the validator.
func setup(cmd *cobra.Command) (*runtime, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env")
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("forms"); v != "" {
		cfg.FormsDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cmd.ErrOrStderr()})
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	optionStore, err := rt.openStore(ctx)
	if err != nil {
		return nil, err
	}

	var wrap func(string, datasource.DataSource) datasource.DataSource
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
		cache := datasource.NewRedisLabelCache(client)
		wrap = func(name string, src datasource.DataSource) datasource.DataSource {
			return datasource.Cached(name, src, cache, cfg.RedisTTL)
		}
	}

	options := []formval.Option{
		validation.WithLogger(logger),
		validation.WithStore(optionStore),
	}
	if cfg.AggregateAnswers {
		options = append(options, validation.WithAnswerErrorAggregation())
	}
	engine, err := formval.Load(os.DirFS(cfg.FormsDir), wrap, options...)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.engine = engine
	logger.Debug().
		Str("forms", cfg.FormsDir).
		Str("store", cfg.Store).
		Int("form_count", len(engine.Forms.Forms())).
		Msg("definitions loaded")
	return rt, nil
}

func (r *runtime) openStore(ctx context.Context) (store.DynamicOptionStore, error) {
	switch r.cfg.Store {
	case config.StoreSQLite:
		s, err := store.OpenSQLite(ctx, r.cfg.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, func(context.Context) error { return s.Close() })
		return s, nil
	case config.StoreMongo:
		s, err := store.OpenMongo(ctx, r.cfg.MongoURI, r.cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, s.Close)
		return s, nil
	default:
		return store.NewMemory(), nil
	}
}

func withRuntime(run func(cmd *cobra.Command, rt *runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if err := rt.Close(context.Background()); err != nil {
				rt.logger.Warn().Err(err).Msg("close resources")
			}
		}()
		return run(cmd, rt, args)
	}
}
