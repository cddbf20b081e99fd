package auth

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jobtrack/cli/internal/api"
	"github.com/jobtrack/cli/internal/auth"
	"github.com/jobtrack/cli/internal/config"
	"github.com/jobtrack/cli/internal/format"
	"github.com/jobtrack/cli/internal/logging"
	"github.com/jobtrack/cli/internal/prompt"
	"github.com/jobtrack/cli/internal/session"
)

// app is everything one auth command needs: a flow bound to the configured
// credential store, plus output and input helpers.
type app struct {
	flow    *auth.Flow
	store   session.Store
	printer *format.Printer
	prompt  *prompt.Prompter
	log     logging.Logger
	close   func() error
}

// newApp wires store, transport and flow from the loaded configuration and
// runs the flow's Init
func newApp(cmd *cobra.Command) (*app, error) {
	cfg := config.Get()

	printer := format.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), config.GetOutputFormat(), cfg.Format.Colors)
	printer.Debug = config.IsDebug()

	level := cfg.Log.Level
	if config.IsDebug() {
		level = "debug"
	}
	log := logging.New(cmd.ErrOrStderr(), level)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	// flow is assigned below; the transport only calls back once requests run
	var flow *auth.Flow
	client := api.NewClient(cfg.Server.URL,
		api.WithTimeout(cfg.Timeout()),
		api.WithTokenSource(session.TokenSource(store)),
		api.WithUnauthorizedHandler(func(ctx context.Context) {
			if flow != nil {
				flow.SessionExpired(ctx)
			}
		}),
		api.WithLogger(log.With("component", "api")),
	)
	flow = auth.NewFlow(auth.NewService(client, store),
		auth.WithLogger(log),
		auth.WithTimeout(cfg.Timeout()),
	)

	a := &app{
		flow:    flow,
		store:   store,
		printer: printer,
		prompt:  prompt.New(cmd.InOrStdin(), cmd.ErrOrStderr()),
		log:     log,
	}
	a.close = func() error {
		flow.Close()
		return closeStore()
	}

	if err := flow.Init(cmd.Context()); err != nil {
		_ = a.close()
		return nil, err
	}
	return a, nil
}

// openStore returns the credential store selected by store.backend
func openStore(cfg *config.Config) (session.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store.Backend {
	case "", config.BackendFile:
		return session.NewConfigStore(), noop, nil
	case config.BackendMemory:
		return session.NewMemoryStore(), noop, nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		return session.NewRedisStore(rdb, cfg.Store.Redis.Prefix), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// withApp runs fn with a freshly wired app and releases it afterwards
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.close(); cerr != nil {
				a.log.Warn(cmd.Context(), "failed to close credential store", "error", cerr)
			}
		}()
		return fn(cmd, a, args)
	}
}

// stringFlag returns the flag value or, when empty, asks for it
func (a *app) stringFlag(cmd *cobra.Command, name, label string) (string, error) {
	v, _ := cmd.Flags().GetString(name)
	if v != "" {
		return v, nil
	}
	return a.prompt.Line(label)
}

// secretFlag is stringFlag for passwords; confirm asks twice
func (a *app) secretFlag(cmd *cobra.Command, name, label string, confirm bool) (string, error) {
	v, _ := cmd.Flags().GetString(name)
	if v != "" {
		return v, nil
	}
	if confirm {
		return a.prompt.NewPassword(label)
	}
	return a.prompt.Password(label)
}
