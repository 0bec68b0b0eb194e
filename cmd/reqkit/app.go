package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/funnyzak/reqkit/internal/config"
	"github.com/funnyzak/reqkit/internal/dispatch"
	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/internal/printer"
	"github.com/funnyzak/reqkit/internal/storage"
	"github.com/funnyzak/reqkit/internal/transport"
	"github.com/funnyzak/reqkit/internal/vars"
	"github.com/funnyzak/reqkit/internal/workspace"
	"github.com/funnyzak/reqkit/pkg/i18n"
	"github.com/funnyzak/reqkit/pkg/request"
)

// app holds everything a command needs, wired from configuration.
type app struct {
	cfg        *config.Config
	log        logger.Logger
	translator *i18n.Translator
	storage    storage.Store
	workspace  *workspace.Store
	envs       *vars.Environments
	transport  *transport.Transport
	dispatcher *dispatch.Dispatcher
	unbind     func()
}

func newApp(cmd *cobra.Command) (*app, error) {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath, viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if noColor, err := cmd.Flags().GetBool("no-color"); err == nil && noColor {
		cfg.Output.Color = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.NewLogger(&cfg.Log, cfg.Output.Mode)

	translator, err := i18n.NewTranslator(cfg.Output.Locale)
	if err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}

	store, err := storage.New(&cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	wsSnap, envSnap, err := storage.Restore(store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to restore workspace: %w", err)
	}

	ws := workspace.New(wsSnap, workspace.WithMaxHistory(cfg.Storage.MaxHistory))
	envs := vars.NewEnvironments(envSnap)
	tr := transport.New(log, transportOptions(&cfg.Transport))

	return &app{
		cfg:        cfg,
		log:        log,
		translator: translator,
		storage:    store,
		workspace:  ws,
		envs:       envs,
		transport:  tr,
		dispatcher: dispatch.New(ws, envs, tr, log, dispatch.WithDynamicVariables(cfg.Variables.Dynamic)),
		unbind:     storage.Bind(store, ws, envs, log),
	}, nil
}

func transportOptions(cfg *config.TransportConfig) transport.Options {
	return transport.Options{
		DefaultTimeout:        time.Duration(cfg.Timeout) * time.Millisecond,
		Retries:               cfg.MaxRetries,
		RetryBackoff:          time.Duration(cfg.RetryBackoff) * time.Millisecond,
		MaxConcurrent:         cfg.MaxConcurrent,
		RateLimit:             cfg.RateLimit,
		MaxResponseBytes:      cfg.MaxResponseBytes,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       time.Duration(cfg.IdleConnTimeout) * time.Second,
		ResponseHeaderTimeout: time.Duration(cfg.ResponseHeaderTimeout) * time.Second,
		TLSHandshakeTimeout:   time.Duration(cfg.TLSHandshakeTimeout) * time.Second,
		TLSInsecureSkipVerify: cfg.TLSInsecureSkipVerify,
		FollowRedirects:       cfg.FollowRedirects,
		Cookies:               cfg.Cookies,
	}
}

func (a *app) Close() {
	a.unbind()
	a.transport.Close()
	if err := a.storage.Close(); err != nil {
		a.log.Error("Failed to close storage", "error", err)
	}
}

func (a *app) printer() printer.Printer {
	return printer.New(&a.cfg.Output, a.log, a.translator)
}

func (a *app) text(key string, args ...interface{}) string {
	if len(args) == 0 {
		return a.translator.Text(a.cfg.Output.Locale, key)
	}
	return a.translator.Format(a.cfg.Output.Locale, key, args...)
}

// resolver returns the variable resolver for env, or the active one when env
// is blank.
func (a *app) resolver(env string) (*vars.Resolver, error) {
	opt := vars.WithDynamic(a.cfg.Variables.Dynamic)
	if env == "" {
		return a.envs.Resolver(opt), nil
	}
	return a.envs.ResolverFor(env, opt)
}

func (a *app) request(nameOrID string) (request.RequestItem, error) {
	item, ok := a.workspace.Find(nameOrID)
	if !ok {
		return request.RequestItem{}, fmt.Errorf("request %q not found", nameOrID)
	}
	return item, nil
}

// withApp adapts a command body that needs the wired application.
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}
