package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

const minBoxWidth = 50

func printStartupBanner(w io.Writer, a *app) {
	cfg := a.cfg
	title := fmt.Sprintf("reqkit v%s", version)
	subtitle := a.text("cli.banner.title")

	env := a.text("cli.banner.none")
	snap := a.envs.Snapshot()
	for _, e := range snap.Environments {
		if e.ID == snap.ActiveEnvironmentID {
			env = e.Name
		}
	}
	base := "http://" + cfg.Server.Addr() + cfg.Server.APIPath

	rows := [][2]string{
		{a.text("cli.banner.api"), base},
		{a.text("cli.banner.events"), "ws://" + cfg.Server.Addr() + cfg.Server.APIPath + "/events"},
		{a.text("cli.banner.storage"), fmt.Sprintf("%s (%s)", cfg.Storage.Driver, cfg.Storage.Path)},
		{a.text("cli.banner.requests"), fmt.Sprintf("%d", len(a.workspace.Requests()))},
		{a.text("cli.banner.environment"), env},
	}
	lines := labelled(rows)
	lines = append(lines, "", a.text("cli.banner.stop"))

	renderBox(w, []string{title, subtitle}, lines)
}

// labelled aligns "label: value" rows on the widest label.
func labelled(rows [][2]string) []string {
	width := 0
	for _, r := range rows {
		if n := runewidth.StringWidth(r[0]); n > width {
			width = n
		}
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, runewidth.FillRight(r[0]+":", width+2)+r[1])
	}
	return lines
}

// renderBox draws a box with centered header lines above a separator and
// left-aligned body lines below it.
func renderBox(w io.Writer, header, body []string) {
	maxLength := 0
	for _, line := range append(append([]string{}, header...), body...) {
		if n := runewidth.StringWidth(line); n > maxLength {
			maxLength = n
		}
	}
	boxWidth := maxLength + 6
	if boxWidth < minBoxWidth {
		boxWidth = minBoxWidth
	}
	inner := boxWidth - 2

	fmt.Fprintln(w)
	fmt.Fprintf(w, "┌%s┐\n", strings.Repeat("─", inner))
	for _, line := range header {
		pad := inner - runewidth.StringWidth(line)
		fmt.Fprintf(w, "│%s%s%s│\n", strings.Repeat(" ", pad/2), line, strings.Repeat(" ", pad-pad/2))
	}
	fmt.Fprintf(w, "├%s┤\n", strings.Repeat("─", inner))
	for _, line := range body {
		fmt.Fprintf(w, "│  %s│\n", runewidth.FillRight(line, inner-2))
	}
	fmt.Fprintf(w, "└%s┘\n", strings.Repeat("─", inner))
	fmt.Fprintln(w)
}
