package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/funnyzak/reqkit/internal/dispatch"
	"github.com/funnyzak/reqkit/pkg/request"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved requests",
	Args:  cobra.NoArgs,
	RunE:  withApp(runList),
}

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a request",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runNew),
}

var sendCmd = &cobra.Command{
	Use:   "send <request>",
	Short: "Send a saved request and print the response",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runSend),
}

var runCmd = &cobra.Command{
	Use:   "run <folder>",
	Short: "Send every request in a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runFolder),
}

func init() {
	newCmd.Flags().StringP("method", "X", request.DefaultMethod, "HTTP method")
	newCmd.Flags().StringP("url", "u", "", "Request URL")
	newCmd.Flags().StringArrayP("header", "H", nil, "Header as 'Key: Value' (repeatable)")
	newCmd.Flags().StringP("data", "d", "", "Raw request body")
	newCmd.Flags().StringP("folder", "f", "", "Folder to file the request under")

	sendCmd.Flags().StringP("env", "e", "", "Environment to resolve variables with (default: active)")

	runCmd.Flags().StringP("env", "e", "", "Environment to resolve variables with (default: active)")
	runCmd.Flags().Int("concurrency", 4, "Requests in flight at once")
}

func runList(cmd *cobra.Command, a *app, args []string) error {
	items := a.workspace.Requests()
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, a.text("cli.requests.empty"))
		return nil
	}

	folderOf := make(map[string]string)
	for _, f := range a.workspace.Folders() {
		for _, id := range f.Requests {
			folderOf[id] = f.Name
		}
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	active := a.workspace.ActiveRequestID()
	for _, it := range items {
		marker := " "
		if it.ID == active {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\n", marker, it.Name, it.Request.Method, it.Request.URL, folderOf[it.ID])
	}
	return tw.Flush()
}

func runNew(cmd *cobra.Command, a *app, args []string) error {
	method, _ := cmd.Flags().GetString("method")
	url, _ := cmd.Flags().GetString("url")
	headers, _ := cmd.Flags().GetStringArray("header")
	data, _ := cmd.Flags().GetString("data")
	folder, _ := cmd.Flags().GetString("folder")

	// Row edits act on the active request, which CreateRequest sets.
	item := a.workspace.CreateRequest(args[0])
	if _, ok := a.workspace.SetMethod(method); !ok {
		return fmt.Errorf("invalid method %q", method)
	}
	a.workspace.SetURL(url)
	for _, h := range headers {
		key, value, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("invalid header %q, expected 'Key: Value'", h)
		}
		a.workspace.AddHeader(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if data != "" {
		a.workspace.SetBodyType(request.BodyText)
		a.workspace.SetBody(data)
	}
	if folder != "" {
		f, ok := a.workspace.Folder(folder)
		if !ok {
			created, err := a.workspace.CreateFolder(folder)
			if err != nil {
				return err
			}
			f = created
		}
		if err := a.workspace.AddRequestToFolder(item.ID, f.ID); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), a.text("cli.requests.created", item.Name))
	return nil
}

func runSend(cmd *cobra.Command, a *app, args []string) error {
	item, err := a.request(args[0])
	if err != nil {
		return err
	}
	env, _ := cmd.Flags().GetString("env")
	resolver, err := a.resolver(env)
	if err != nil {
		return err
	}

	result, ok := a.dispatcher.SendRequest(cmd.Context(), item.ID, dispatch.UsingResolver(resolver))
	if !ok {
		return fmt.Errorf("request %q has no URL", item.Name)
	}
	if updated, found := a.workspace.Request(item.ID); found {
		item = updated
	}
	return a.printer().PrintResult(item, result.Entry)
}

func runFolder(cmd *cobra.Command, a *app, args []string) error {
	folder, ok := a.workspace.Folder(args[0])
	if !ok {
		return fmt.Errorf("folder %q not found", args[0])
	}
	env, _ := cmd.Flags().GetString("env")
	resolver, err := a.resolver(env)
	if err != nil {
		return err
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	results, err := a.dispatcher.SendAll(cmd.Context(), folder.Requests, concurrency, dispatch.UsingResolver(resolver))
	if err != nil {
		return err
	}
	p := a.printer()
	for _, res := range results {
		if res.Skipped {
			continue
		}
		item, found := a.workspace.Request(res.RequestID)
		if !found {
			continue
		}
		if err := p.PrintResult(item, res.Entry); err != nil {
			return err
		}
	}
	return nil
}
