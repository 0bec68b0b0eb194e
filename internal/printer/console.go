package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/funnyzak/reqkit/internal/config"
	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/pkg/i18n"
	"github.com/funnyzak/reqkit/pkg/request"
)

// ColorScheme color scheme
type ColorScheme struct {
	MethodGET      *color.Color
	MethodPOST     *color.Color
	MethodPUT      *color.Color
	MethodDELETE   *color.Color
	MethodPATCH    *color.Color
	MethodOther    *color.Color
	Status2xx      *color.Color
	Status3xx      *color.Color
	Status4xx      *color.Color
	Status5xx      *color.Color
	HeaderKey      *color.Color
	HeaderValue    *color.Color
	Separator      *color.Color
	Muted          *color.Color
	BodyContent    *color.Color
	ErrorText      *color.Color
	TruncateNotice *color.Color
}

// NewColorScheme creates a new color scheme
func NewColorScheme(enabled bool) *ColorScheme {
	cs := &ColorScheme{
		MethodGET:      color.New(color.FgBlue, color.Bold),
		MethodPOST:     color.New(color.FgGreen, color.Bold),
		MethodPUT:      color.New(color.FgYellow, color.Bold),
		MethodDELETE:   color.New(color.FgRed, color.Bold),
		MethodPATCH:    color.New(color.FgMagenta, color.Bold),
		MethodOther:    color.New(color.FgWhite, color.Bold),
		Status2xx:      color.New(color.FgGreen, color.Bold),
		Status3xx:      color.New(color.FgCyan, color.Bold),
		Status4xx:      color.New(color.FgYellow, color.Bold),
		Status5xx:      color.New(color.FgRed, color.Bold),
		HeaderKey:      color.New(color.FgCyan),
		HeaderValue:    color.New(color.FgWhite),
		Separator:      color.New(color.FgYellow, color.Bold),
		Muted:          color.New(color.FgHiBlack),
		BodyContent:    color.New(color.FgWhite),
		ErrorText:      color.New(color.FgHiRed, color.Bold),
		TruncateNotice: color.New(color.FgHiYellow, color.Bold),
	}
	if !enabled {
		for _, c := range cs.all() {
			c.DisableColor()
		}
	}
	return cs
}

func (cs *ColorScheme) all() []*color.Color {
	return []*color.Color{
		cs.MethodGET, cs.MethodPOST, cs.MethodPUT, cs.MethodDELETE, cs.MethodPATCH, cs.MethodOther,
		cs.Status2xx, cs.Status3xx, cs.Status4xx, cs.Status5xx,
		cs.HeaderKey, cs.HeaderValue, cs.Separator, cs.Muted, cs.BodyContent, cs.ErrorText, cs.TruncateNotice,
	}
}

// ConsolePrinter renders results for a terminal.
type ConsolePrinter struct {
	colors    *ColorScheme
	logger    logger.Logger
	out       io.Writer
	maxBody   int
	formatter *bodyFormatter
	intl      *i18n.Translator
	locale    string
	now       func() time.Time
}

// NewConsolePrinter creates a new console printer
func NewConsolePrinter(cfg *config.OutputConfig, log logger.Logger, translator *i18n.Translator) *ConsolePrinter {
	p := &ConsolePrinter{
		colors:  NewColorScheme(cfg.Color),
		logger:  log,
		out:     os.Stdout,
		maxBody: cfg.MaxBodyBytes,
		intl:    translator,
		locale:  cfg.Locale,
		now:     time.Now,
	}
	p.formatter = &bodyFormatter{pretty: cfg.Pretty, logger: log, t: p.t}
	return p
}

// SetOutput replaces the output target.
func (p *ConsolePrinter) SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	p.out = w
}

func (p *ConsolePrinter) t(key string) string {
	if p.intl == nil {
		return key
	}
	return p.intl.Text(p.locale, key)
}

// terminalWidth gets the current terminal width with fallback
func (p *ConsolePrinter) terminalWidth() int {
	width := 80
	if testWidth := os.Getenv("REQKIT_TEST_WIDTH"); testWidth != "" {
		if w, err := strconv.Atoi(testWidth); err == nil {
			width = w
		}
	} else if f, ok := p.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = w
		}
	}
	switch {
	case width < 40:
		return 40
	case width > 150:
		return 150
	default:
		return width
	}
}

// wrapText wraps text by display width, preserving words
func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 || maxWidth <= 0 {
		return []string{text}
	}

	var lines []string
	current := words[0]
	currentWidth := runewidth.StringWidth(current)
	for _, word := range words[1:] {
		w := runewidth.StringWidth(word)
		if currentWidth+1+w > maxWidth {
			lines = append(lines, current)
			current, currentWidth = word, w
			continue
		}
		current += " " + word
		currentWidth += 1 + w
	}
	return append(lines, current)
}

// PrintResult prints the outcome of one send.
func (p *ConsolePrinter) PrintResult(item request.RequestItem, entry request.ResponseHistoryItem) error {
	width := p.terminalWidth()
	separator := strings.Repeat("-", width)

	p.colors.Separator.Fprintln(p.out, separator)
	p.methodColor(item.Request.Method).Fprintf(p.out, "%s ", strings.ToUpper(item.Request.Method))
	fmt.Fprintf(p.out, "%s  ", item.Name)
	p.colors.Muted.Fprintln(p.out, time.UnixMilli(entry.Timestamp).Format("2006-01-02T15:04:05-07:00"))
	p.colors.Separator.Fprintln(p.out, separator)

	if entry.Error != nil {
		fmt.Fprintf(p.out, "%s: ", p.t(keyResponseError))
		p.statusColor(entry.Error.Status).Fprintf(p.out, "%d ", entry.Error.Status)
		p.colors.ErrorText.Fprintln(p.out, entry.Error.Message)
		return nil
	}

	resp := entry.Response
	if resp == nil {
		return nil
	}
	fmt.Fprintf(p.out, "%s: ", p.t(keyResponseStatus))
	p.statusColor(resp.Status).Fprintf(p.out, "%d %s", resp.Status, resp.StatusText)
	fmt.Fprintf(p.out, " | %s: %d ms | %s: %s\n\n",
		p.t(keyResponseTime), resp.ResponseTime,
		p.t(keyResponseSize), humanize.Bytes(uint64(len(resp.Body))),
	)

	p.printHeaders(resp.Headers, width)
	fmt.Fprintln(p.out)
	p.printBody(resp)
	return nil
}

func (p *ConsolePrinter) printHeaders(headers map[string]string, width int) {
	keys := make([]string, 0, len(headers))
	keyWidth := 0
	for key := range headers {
		keys = append(keys, key)
		if w := runewidth.StringWidth(key); w > keyWidth {
			keyWidth = w
		}
	}
	sort.Strings(keys)

	available := width - keyWidth - 2
	if available < 20 {
		available = 20
	}
	indent := strings.Repeat(" ", keyWidth+2)
	for _, key := range keys {
		lines := wrapText(headers[key], available)
		p.colors.HeaderKey.Fprint(p.out, runewidth.FillRight(key+":", keyWidth+2))
		p.colors.HeaderValue.Fprintln(p.out, lines[0])
		for _, line := range lines[1:] {
			fmt.Fprint(p.out, indent)
			p.colors.HeaderValue.Fprintln(p.out, line)
		}
	}
}

func (p *ConsolePrinter) printBody(resp *request.HTTPResponse) {
	if resp.Body == "" {
		p.colors.Muted.Fprintln(p.out, p.t(keyBodyEmpty))
		return
	}
	text := p.formatter.formatResponse(resp)
	truncated := 0
	if p.maxBody > 0 && len(text) > p.maxBody {
		truncated = len(text) - p.maxBody
		text = text[:p.maxBody]
	}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		p.colors.BodyContent.Fprintln(p.out, strings.TrimRight(line, "\r"))
	}
	if truncated > 0 {
		p.colors.TruncateNotice.Fprintf(p.out, p.t(keyBodyTruncate)+"\n", humanize.Bytes(uint64(truncated)))
	}
}

// PrintHistory prints one line per recorded response, newest first. The
// shown response is marked with an asterisk.
func (p *ConsolePrinter) PrintHistory(item request.RequestItem) error {
	p.colors.Separator.Fprintf(p.out, p.t(keyHistoryTitle)+"\n", item.Name)
	if len(item.Responses) == 0 {
		p.colors.Muted.Fprintln(p.out, p.t(keyHistoryEmpty))
		return nil
	}

	shown, _ := item.ShownResponse()
	header := []string{"", p.t(keyHistoryID), p.t(keyHistoryWhen), p.t(keyHistoryStatus), p.t(keyHistoryTime), p.t(keyHistorySize)}
	rows := [][]string{header}
	for _, entry := range item.Responses {
		marker := ""
		if entry.ID == shown.ID {
			marker = "*"
		}
		elapsed, size := "-", "-"
		if entry.Response != nil {
			elapsed = fmt.Sprintf("%d ms", entry.Response.ResponseTime)
			size = humanize.Bytes(uint64(len(entry.Response.Body)))
		}
		rows = append(rows, []string{
			marker,
			entry.ID,
			humanize.RelTime(time.UnixMilli(entry.Timestamp), p.now(), "ago", "from now"),
			strconv.Itoa(entry.Status()),
			elapsed,
			size,
		})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for r, row := range rows {
		for i, cell := range row {
			padded := runewidth.FillRight(cell, widths[i])
			switch {
			case r == 0:
				p.colors.Muted.Fprint(p.out, padded)
			case i == 3:
				p.statusColor(item.Responses[r-1].Status()).Fprint(p.out, padded)
			default:
				fmt.Fprint(p.out, padded)
			}
			if i < len(row)-1 {
				fmt.Fprint(p.out, "  ")
			}
		}
		fmt.Fprintln(p.out)
	}
	return nil
}

func (p *ConsolePrinter) methodColor(method string) *color.Color {
	switch strings.ToUpper(method) {
	case "GET":
		return p.colors.MethodGET
	case "POST":
		return p.colors.MethodPOST
	case "PUT":
		return p.colors.MethodPUT
	case "DELETE":
		return p.colors.MethodDELETE
	case "PATCH":
		return p.colors.MethodPATCH
	default:
		return p.colors.MethodOther
	}
}

func (p *ConsolePrinter) statusColor(status int) *color.Color {
	switch {
	case status >= 500:
		return p.colors.Status5xx
	case status >= 400:
		return p.colors.Status4xx
	case status >= 300:
		return p.colors.Status3xx
	default:
		return p.colors.Status2xx
	}
}
