package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/funnyzak/reqkit/internal/vars"
	"github.com/funnyzak/reqkit/pkg/request"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage environments and global variables",
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List globals and environments with their variables",
	Args:  cobra.NoArgs,
	RunE:  withApp(runEnvList),
}

var envCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an environment and make it active",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runEnvCreate),
}

var envUseCmd = &cobra.Command{
	Use:   "use [environment]",
	Short: "Activate an environment, or deactivate when none is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withApp(runEnvUse),
}

var envSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a variable, globally unless --env is given",
	Args:  cobra.ExactArgs(2),
	RunE:  withApp(runEnvSet),
}

var envImportDotenvCmd = &cobra.Command{
	Use:   "import-dotenv <file>",
	Short: "Load variables from a dotenv file, globally unless --env is given",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runEnvImportDotenv),
}

var envExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write environments and globals as YAML",
	Args:  cobra.NoArgs,
	RunE:  withApp(runEnvExport),
}

var envImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge environments and globals from a YAML file ('-' reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runEnvImport),
}

func init() {
	envSetCmd.Flags().StringP("env", "e", "", "Environment to write to")
	envImportDotenvCmd.Flags().StringP("env", "e", "", "Environment to write to")
	envExportCmd.Flags().String("out", "", "Write to this file instead of stdout")

	envCmd.AddCommand(envListCmd, envCreateCmd, envUseCmd, envSetCmd, envImportDotenvCmd, envExportCmd, envImportCmd)
}

func runEnvList(cmd *cobra.Command, a *app, args []string) error {
	out := cmd.OutOrStdout()
	snap := a.envs.Snapshot()

	fmt.Fprintln(out, a.text("cli.env.global"))
	printVariables(out, a, snap.Globals)
	for _, e := range snap.Environments {
		name := e.Name
		if e.ID == snap.ActiveEnvironmentID {
			name = fmt.Sprintf("%s (%s)", name, a.text("cli.env.active"))
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, name)
		printVariables(out, a, e.Variables)
	}
	return nil
}

func printVariables(w io.Writer, a *app, rows []request.KeyValue) {
	for _, kv := range rows {
		if kv.Key == "" && kv.Value == "" {
			continue
		}
		line := fmt.Sprintf("  %s = %s", kv.Key, kv.Value)
		if !kv.Enabled {
			line += fmt.Sprintf(" (%s)", a.text("cli.env.disabled"))
		}
		fmt.Fprintln(w, line)
	}
}

func runEnvCreate(cmd *cobra.Command, a *app, args []string) error {
	env, err := a.envs.CreateEnvironment(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), a.text("cli.requests.created", env.Name))
	return nil
}

func runEnvUse(cmd *cobra.Command, a *app, args []string) error {
	if len(args) == 0 {
		a.envs.SetActiveEnvironment("")
		return nil
	}
	env, ok := a.envs.Find(args[0])
	if !ok {
		return fmt.Errorf("environment %q not found", args[0])
	}
	a.envs.SetActiveEnvironment(env.ID)
	return nil
}

// envScope maps --env to a variable scope, GlobalScope when unset.
func envScope(cmd *cobra.Command, a *app) (string, string, error) {
	name, _ := cmd.Flags().GetString("env")
	if name == "" {
		return vars.GlobalScope, a.text("cli.env.global"), nil
	}
	env, ok := a.envs.Find(name)
	if !ok {
		return "", "", fmt.Errorf("environment %q not found", name)
	}
	return env.ID, env.Name, nil
}

func runEnvSet(cmd *cobra.Command, a *app, args []string) error {
	scope, _, err := envScope(cmd, a)
	if err != nil {
		return err
	}
	if warn := request.CheckKey(args[0]); warn != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[0], a.text(warn.Code))
	}
	_, err = a.envs.SetVariables(scope, [][2]string{{args[0], args[1]}})
	return err
}

func runEnvImportDotenv(cmd *cobra.Command, a *app, args []string) error {
	scope, label, err := envScope(cmd, a)
	if err != nil {
		return err
	}
	n, err := a.envs.ImportDotenv(scope, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), a.text("cli.env.imported", n, label))
	return nil
}

func runEnvExport(cmd *cobra.Command, a *app, args []string) error {
	data, err := a.envs.ExportYAML()
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		return os.WriteFile(path, data, 0o644)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runEnvImport(cmd *cobra.Command, a *app, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}
	return a.envs.ImportYAML(data)
}
