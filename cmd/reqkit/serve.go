package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/funnyzak/reqkit/internal/authflow"
	"github.com/funnyzak/reqkit/internal/server"
	"github.com/funnyzak/reqkit/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workspace over a local JSON API",
	RunE:  withApp(runServe),
}

func init() {
	flags := serveCmd.Flags()
	flags.String("host", "", "Listen host")
	flags.IntP("port", "p", 0, "Listen port")
	flags.String("api-path", "", "URL prefix of the JSON API")
	flags.Bool("cors", false, "Allow cross-origin API calls")

	viper.BindPFlag("server.host", flags.Lookup("host"))
	viper.BindPFlag("server.port", flags.Lookup("port"))
	viper.BindPFlag("server.api_path", flags.Lookup("api-path"))
	viper.BindPFlag("server.cors", flags.Lookup("cors"))
}

func runServe(cmd *cobra.Command, a *app, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := web.NewService(&a.cfg.Server, web.Deps{
		Store:      a.workspace,
		Envs:       a.envs,
		Dispatcher: a.dispatcher,
		Fetcher:    authflow.New(a.transport.Client(), a.log),
		Translator: a.translator,
		Logger:     a.log,
		Locale:     a.cfg.Output.Locale,
		Dynamic:    a.cfg.Variables.Dynamic,
	})
	srv := server.New(a.cfg, a.log, svc, version)

	printStartupBanner(cmd.OutOrStdout(), a)
	a.log.Info("reqkit starting",
		"version", version,
		"addr", a.cfg.Server.Addr(),
		"api_path", a.cfg.Server.APIPath,
		"storage", a.cfg.Storage.Driver,
		"log_level", a.cfg.Log.Level,
	)

	return srv.Run(ctx)
}
