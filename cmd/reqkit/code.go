package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/funnyzak/reqkit/internal/codegen"
)

var codeCmd = &cobra.Command{
	Use:   "code [request]",
	Short: "Generate a code snippet for a request",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withApp(runCode),
}

func init() {
	flags := codeCmd.Flags()
	flags.String("lang", "curl", "Snippet template id")
	flags.Bool("resolve", false, "Substitute variables before generating")
	flags.StringP("env", "e", "", "Environment used with --resolve (default: active)")
	flags.Bool("copy", false, "Copy the snippet to the clipboard")
	flags.Bool("list", false, "List the available templates")
}

func runCode(cmd *cobra.Command, a *app, args []string) error {
	out := cmd.OutOrStdout()
	if list, _ := cmd.Flags().GetBool("list"); list {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, t := range codegen.Templates() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Name, t.Language)
		}
		return tw.Flush()
	}
	if len(args) == 0 {
		return fmt.Errorf("a request name or id is required")
	}

	item, err := a.request(args[0])
	if err != nil {
		return err
	}
	lang, _ := cmd.Flags().GetString("lang")
	req := item.Request
	if resolve, _ := cmd.Flags().GetBool("resolve"); resolve {
		env, _ := cmd.Flags().GetString("env")
		r, err := a.resolver(env)
		if err != nil {
			return err
		}
		req = codegen.Resolve(req, r)
	}

	code, err := codegen.Generate(lang, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, code)

	if copyOut, _ := cmd.Flags().GetBool("copy"); copyOut {
		if err := clipboard.WriteAll(code); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), a.text("cli.code.copied", lang))
	}
	return nil
}
