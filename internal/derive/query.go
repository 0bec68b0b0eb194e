package derive

import (
	"regexp"
	"strings"

	"github.com/funnyzak/reqkit/pkg/request"
)

var placeholder = regexp.MustCompile(`\{\{[^}]+\}\}`)

// BaseURL returns everything before the first '?'.
func BaseURL(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// QueryString joins the complete params as key=value pairs in list order.
func QueryString(params []request.KeyValue) string {
	var parts []string
	for _, p := range params {
		if !p.Complete() {
			continue
		}
		parts = append(parts, EncodeComponent(p.Key)+"="+EncodeComponent(p.Value))
	}
	return strings.Join(parts, "&")
}

// URLWithParams rebuilds the query string of rawURL from params. With no
// complete param the bare base URL is returned.
func URLWithParams(rawURL string, params []request.KeyValue) string {
	base := BaseURL(rawURL)
	if qs := QueryString(params); qs != "" {
		return base + "?" + qs
	}
	return base
}

// SyncURL returns req with its URL recomputed from its params. Hand edits to
// the URL's query are not read back into params.
func SyncURL(req request.HTTPRequest) request.HTTPRequest {
	req.URL = URLWithParams(req.URL, req.Params)
	return req
}

// AppendQuery adds one encoded pair to rawURL, keeping any fragment last.
func AppendQuery(rawURL, key, value string) string {
	fragment := ""
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		rawURL, fragment = rawURL[:i], rawURL[i:]
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
		if strings.HasSuffix(rawURL, "?") || strings.HasSuffix(rawURL, "&") {
			sep = ""
		}
	}
	return rawURL + sep + EncodeComponent(key) + "=" + EncodeComponent(value) + fragment
}

// EncodeComponent percent-encodes s like a URI component, leaving
// {{placeholders}} untouched so they can still be resolved at send time.
func EncodeComponent(s string) string {
	locs := placeholder.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return escapeComponent(s)
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(escapeComponent(s[last:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(escapeComponent(s[last:]))
	return b.String()
}

const upperhex = "0123456789ABCDEF"

func escapeComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
