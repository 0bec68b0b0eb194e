package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "reqkit",
	Short: "Compose, send and inspect HTTP requests from a persistent workspace",
	Long: `reqkit keeps a workspace of HTTP requests, folders and environments,
sends them with variable substitution and records every response.

Run "reqkit serve" to expose the workspace over a local JSON API with live
websocket updates, or drive it directly with send, code, history and env.
`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run:   showVersion,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Configuration file path")
	flags.String("env-file", ".env", "Dotenv file loaded into the process environment")
	flags.StringP("log-level", "l", "", "Log level (trace, debug, info, warn, error, fatal, panic)")
	flags.Bool("log-file-enable", false, "Enable file logging")
	flags.String("log-file-path", "", "Log file path")
	flags.Int("log-file-max-size", 0, "Maximum size of a single log file (MB)")
	flags.Int("log-file-max-backups", 0, "Maximum number of old log files to retain")
	flags.Int("log-file-max-age", 0, "Maximum retention days for old log files")
	flags.Bool("log-file-compress", false, "Whether to compress old log files")
	flags.String("storage-driver", "", "Workspace storage driver (sqlite, json)")
	flags.String("storage-path", "", "Workspace storage path")
	flags.Int("max-history", 0, "Responses kept per request (0 keeps all)")
	flags.StringP("output", "o", "", "Output mode (console, json)")
	flags.String("locale", "", "Output locale (en, zh-CN, es)")
	flags.Bool("no-color", false, "Disable colored output")

	bindFlags(rootCmd)

	rootCmd.AddCommand(versionCmd, serveCmd, listCmd, newCmd, sendCmd, runCmd, codeCmd, historyCmd, envCmd)
}

func bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.file_logging.enable", flags.Lookup("log-file-enable"))
	viper.BindPFlag("log.file_logging.path", flags.Lookup("log-file-path"))
	viper.BindPFlag("log.file_logging.max_size_mb", flags.Lookup("log-file-max-size"))
	viper.BindPFlag("log.file_logging.max_backups", flags.Lookup("log-file-max-backups"))
	viper.BindPFlag("log.file_logging.max_age_days", flags.Lookup("log-file-max-age"))
	viper.BindPFlag("log.file_logging.compress", flags.Lookup("log-file-compress"))
	viper.BindPFlag("storage.driver", flags.Lookup("storage-driver"))
	viper.BindPFlag("storage.path", flags.Lookup("storage-path"))
	viper.BindPFlag("storage.max_history", flags.Lookup("max-history"))
	viper.BindPFlag("output.mode", flags.Lookup("output"))
	viper.BindPFlag("output.locale", flags.Lookup("locale"))
}

func showVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "reqkit version %s\n", version)
	fmt.Fprintf(out, "Commit: %s\n", commit)
	fmt.Fprintf(out, "Built: %s\n", buildDate)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
