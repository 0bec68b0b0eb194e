package main

import (
	"fmt"
	"os"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/funnyzak/reqkit/internal/web"
	"github.com/funnyzak/reqkit/pkg/request"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded responses",
}

var historyListCmd = &cobra.Command{
	Use:   "list <request>",
	Short: "List the responses of a request",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runHistoryList),
}

var historyShowCmd = &cobra.Command{
	Use:   "show <request> [response]",
	Short: "Print one response, the selected one by default",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  withApp(runHistoryShow),
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff <request> [older] [newer]",
	Short: "Diff two response bodies, the two most recent by default",
	Args:  cobra.RangeArgs(1, 3),
	RunE:  withApp(runHistoryDiff),
}

var historyExportCmd = &cobra.Command{
	Use:   "export <request>",
	Short: "Export the response history as json or csv",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runHistoryExport),
}

var historyClearCmd = &cobra.Command{
	Use:   "clear <request>",
	Short: "Delete every recorded response of a request",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runHistoryClear),
}

func init() {
	historyExportCmd.Flags().String("format", "json", "Export format (json, csv)")
	historyExportCmd.Flags().String("out", "", "Write to this file instead of stdout")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDiffCmd, historyExportCmd, historyClearCmd)
}

func runHistoryList(cmd *cobra.Command, a *app, args []string) error {
	item, err := a.request(args[0])
	if err != nil {
		return err
	}
	return a.printer().PrintHistory(item)
}

func runHistoryShow(cmd *cobra.Command, a *app, args []string) error {
	item, err := a.request(args[0])
	if err != nil {
		return err
	}
	var entry request.ResponseHistoryItem
	if len(args) == 2 {
		e, ok := item.FindResponse(args[1])
		if !ok {
			return fmt.Errorf("response %q not found", args[1])
		}
		entry = e
	} else {
		e, ok := a.workspace.ShownResponse(item.ID)
		if !ok {
			return fmt.Errorf("request %q has no responses", item.Name)
		}
		entry = e
	}
	return a.printer().PrintResult(item, entry)
}

func runHistoryDiff(cmd *cobra.Command, a *app, args []string) error {
	item, err := a.request(args[0])
	if err != nil {
		return err
	}
	older, newer, err := pickDiffPair(item, args[1:])
	if err != nil {
		return err
	}

	diff := udiff.Unified(older.ID, newer.ID, diffBody(older), diffBody(newer))
	if diff == "" {
		fmt.Fprintln(cmd.OutOrStdout(), a.text("cli.diff.identical"))
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), diff)
	return nil
}

func runHistoryExport(cmd *cobra.Command, a *app, args []string) error {
	item, err := a.request(args[0])
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	data, _, _, err := web.ExportHistory(item, format)
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		return os.WriteFile(path, data, 0o644)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runHistoryClear(cmd *cobra.Command, a *app, args []string) error {
	item, err := a.request(args[0])
	if err != nil {
		return err
	}
	a.workspace.ClearResponses(item.ID)
	return nil
}

// pickDiffPair returns the entries named by ids, falling back to the two
// newest responses. History is kept newest first.
func pickDiffPair(item request.RequestItem, ids []string) (request.ResponseHistoryItem, request.ResponseHistoryItem, error) {
	var none request.ResponseHistoryItem
	switch len(ids) {
	case 0:
		if len(item.Responses) < 2 {
			return none, none, fmt.Errorf("request %q needs at least two responses to diff", item.Name)
		}
		return item.Responses[1], item.Responses[0], nil
	case 1:
		return none, none, fmt.Errorf("two response ids are required")
	}
	older, ok := item.FindResponse(ids[0])
	if !ok {
		return none, none, fmt.Errorf("response %q not found", ids[0])
	}
	newer, ok := item.FindResponse(ids[1])
	if !ok {
		return none, none, fmt.Errorf("response %q not found", ids[1])
	}
	return older, newer, nil
}

// diffBody is the text compared for one entry: the pretty body when there
// is one, the error message for failures.
func diffBody(e request.ResponseHistoryItem) string {
	var text string
	switch {
	case e.Error != nil:
		text = fmt.Sprintf("error: %s\n", e.Error.Message)
	case e.Response == nil:
	case e.Response.BodyPretty != "":
		text = e.Response.BodyPretty
	default:
		text = e.Response.Body
	}
	if text != "" && text[len(text)-1] != '\n' {
		text += "\n"
	}
	return text
}
