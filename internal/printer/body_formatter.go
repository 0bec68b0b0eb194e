package printer

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"mime"
	"net/url"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	nethtml "golang.org/x/net/html"

	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/pkg/request"
)

type bodyFormatter struct {
	pretty bool
	logger logger.Logger
	t      func(string) string
}

// formatResponse picks a layout from the response content type. Bodies
// that do not parse as the advertised type are shown verbatim.
func (f *bodyFormatter) formatResponse(resp *request.HTTPResponse) string {
	if resp == nil || resp.Body == "" {
		return ""
	}
	if !f.pretty {
		return resp.Body
	}
	mediaType := normalizeMediaType(resp.Headers["content-type"])
	body := []byte(resp.Body)

	if looksLikeJSON(mediaType, body) {
		if resp.BodyPretty != "" && resp.BodyPretty != resp.Body {
			return resp.BodyPretty
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err == nil {
			return buf.String()
		}
	}
	if strings.Contains(mediaType, "application/x-www-form-urlencoded") {
		if out, ok := f.formatForm(resp.Body); ok {
			return out
		}
	}
	if strings.Contains(mediaType, "xml") {
		out, err := prettyXML(stripControlBytes(body))
		if err == nil {
			return out
		}
		f.logger.Debug("xml pretty failed", "error", err)
	}
	if strings.Contains(mediaType, "html") || looksLikeHTML(body) {
		out, err := prettyHTML(stripControlBytes(body))
		if err == nil {
			return out
		}
		f.logger.Debug("html pretty failed", "error", err)
	}
	return resp.Body
}

func (f *bodyFormatter) formatForm(body string) (string, bool) {
	values, err := url.ParseQuery(body)
	if err != nil || len(values) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	keyHeader := f.t(keyFormKeyHeader)
	valueHeader := f.t(keyFormValueHeader)
	width := runewidth.StringWidth(keyHeader)
	for _, key := range keys {
		if w := runewidth.StringWidth(key); w > width {
			width = w
		}
	}

	var b strings.Builder
	b.WriteString(f.t(keyFormTitle) + "\n")
	fmt.Fprintf(&b, "%s │ %s\n", runewidth.FillRight(keyHeader, width), valueHeader)
	b.WriteString(strings.Repeat("─", width) + "─┼" + strings.Repeat("─", 40) + "\n")
	for _, key := range keys {
		fmt.Fprintf(&b, "%s │ %s\n", runewidth.FillRight(key, width), strings.Join(values[key], ", "))
	}
	return b.String(), true
}

func normalizeMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}

func looksLikeJSON(mediaType string, body []byte) bool {
	if strings.Contains(mediaType, "json") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}
	first := trimmed[0]
	last := trimmed[len(trimmed)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

func looksLikeHTML(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) < 5 {
		return false
	}
	lower := strings.ToLower(string(trimmed[:5]))
	return strings.HasPrefix(lower, "<html") || strings.HasPrefix(lower, "<!doc")
}

func stripControlBytes(b []byte) []byte {
	buf := make([]byte, 0, len(b))
	for _, ch := range b {
		if ch < 0x20 && ch != '\n' && ch != '\r' && ch != '\t' {
			continue
		}
		buf = append(buf, ch)
	}
	return buf
}

func prettyXML(data []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	var buf bytes.Buffer
	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if cd, ok := token.(xml.CharData); ok && len(bytes.TrimSpace(cd)) == 0 {
			continue
		}
		if err := encoder.EncodeToken(token); err != nil {
			return "", err
		}
	}
	if err := encoder.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func prettyHTML(data []byte) (string, error) {
	node, err := nethtml.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	renderHTMLNode(&b, node, 0)
	return b.String(), nil
}

func renderHTMLNode(b *strings.Builder, node *nethtml.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch node.Type {
	case nethtml.DocumentNode:
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			renderHTMLNode(b, child, depth)
		}
	case nethtml.ElementNode:
		b.WriteString(indent + "<" + node.Data)
		for _, attr := range node.Attr {
			fmt.Fprintf(b, " %s=\"%s\"", attr.Key, html.EscapeString(attr.Val))
		}
		if isVoidElement(node.Data) {
			b.WriteString(" />\n")
			return
		}
		b.WriteString(">\n")
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			renderHTMLNode(b, child, depth+1)
		}
		if node.FirstChild != nil {
			b.WriteString(indent)
		}
		b.WriteString("</" + node.Data + ">\n")
	case nethtml.TextNode:
		if text := strings.TrimSpace(node.Data); text != "" {
			b.WriteString(indent + text + "\n")
		}
	case nethtml.CommentNode:
		b.WriteString(indent + "<!--" + strings.TrimSpace(node.Data) + "-->\n")
	}
}

func isVoidElement(tag string) bool {
	switch strings.ToLower(tag) {
	case "area", "base", "br", "col", "embed", "hr", "img", "input", "link", "meta", "param", "source", "track", "wbr":
		return true
	default:
		return false
	}
}
