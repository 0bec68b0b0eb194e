package request

import (
	"strings"
	"time"
)

// BodyType selects how the request body is encoded on the wire.
type BodyType string

const (
	BodyNone    BodyType = "none"
	BodyText    BodyType = "text"
	BodyForm    BodyType = "form"
	BodyBinary  BodyType = "binary"
	BodyGraphQL BodyType = "graphql"
)

// TextSubtype refines BodyText.
type TextSubtype string

const (
	TextRaw  TextSubtype = "raw"
	TextJSON TextSubtype = "json"
	TextXML  TextSubtype = "xml"
	TextYAML TextSubtype = "yaml"
)

// FormSubtype refines BodyForm.
type FormSubtype string

const (
	FormURLEncoded FormSubtype = "urlencoded"
	FormMultipart  FormSubtype = "multipart"
)

const (
	DefaultMethod      = "GET"
	DefaultTimeoutMs   = 30000
	DefaultRequestName = "Request"
	DefaultRequestTab  = "params"
	DefaultResponseTab = "body"
)

// KeyValue is one editable row: a header, a query param or a variable.
type KeyValue struct {
	ID      string `json:"id" yaml:"id"`
	Key     string `json:"key" yaml:"key"`
	Value   string `json:"value" yaml:"value"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// NewRow returns a blank, disabled row.
func NewRow(prefix string) KeyValue {
	return KeyValue{ID: NewID(prefix)}
}

// Blank reports whether both key and value are empty after trimming.
func (kv KeyValue) Blank() bool {
	return strings.TrimSpace(kv.Key) == "" && strings.TrimSpace(kv.Value) == ""
}

// Active reports the effective enabled state. Blank rows are never active.
func (kv KeyValue) Active() bool {
	return kv.Enabled && !kv.Blank()
}

// Complete reports whether the row is enabled with a non-blank key and value.
func (kv KeyValue) Complete() bool {
	return kv.Enabled && strings.TrimSpace(kv.Key) != "" && strings.TrimSpace(kv.Value) != ""
}

// BinaryFile holds the raw content picked for a binary body.
type BinaryFile struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// HTTPRequest is the editable definition of one request.
type HTTPRequest struct {
	Method            string      `json:"method"`
	URL               string      `json:"url"`
	ActiveRequestTab  string      `json:"activeRequestTab"`
	ActiveResponseTab string      `json:"activeResponseTab"`
	Headers           []KeyValue  `json:"headers"`
	Params            []KeyValue  `json:"params"`
	Auth              Auth        `json:"auth"`
	Body              string      `json:"body"`
	BodyType          BodyType    `json:"bodyType"`
	TextSubtype       TextSubtype `json:"textSubtype"`
	FormSubtype       FormSubtype `json:"formSubtype"`
	BinaryFile        *BinaryFile `json:"binaryFile,omitempty"`
	Timeout           int64       `json:"timeout"`
}

// NewHTTPRequest returns a request with every field at its default and one
// blank row in both the header and param lists.
func NewHTTPRequest() HTTPRequest {
	return HTTPRequest{
		Method:            DefaultMethod,
		ActiveRequestTab:  DefaultRequestTab,
		ActiveResponseTab: DefaultResponseTab,
		Headers:           []KeyValue{NewRow("header")},
		Params:            []KeyValue{NewRow("param")},
		Auth:              NewAuth(),
		BodyType:          BodyNone,
		TextSubtype:       TextRaw,
		FormSubtype:       FormURLEncoded,
		Timeout:           DefaultTimeoutMs,
	}
}

// Clone returns a deep copy.
func (r HTTPRequest) Clone() HTTPRequest {
	out := r
	out.Headers = cloneRows(r.Headers)
	out.Params = cloneRows(r.Params)
	out.Auth = r.Auth.Clone()
	if r.BinaryFile != nil {
		bf := *r.BinaryFile
		bf.Data = append([]byte(nil), r.BinaryFile.Data...)
		out.BinaryFile = &bf
	}
	return out
}

// RequestItem is a saved request plus its response history.
type RequestItem struct {
	ID                 string                `json:"id"`
	Name               string                `json:"name"`
	Request            HTTPRequest           `json:"request"`
	Responses          []ResponseHistoryItem `json:"responses"`
	SelectedResponseID string                `json:"selectedResponseId,omitempty"`
	CreatedAt          int64                 `json:"createdAt"`
	UpdatedAt          int64                 `json:"updatedAt"`
}

// NewRequestItem creates an empty request item stamped with now.
func NewRequestItem(now time.Time) RequestItem {
	ts := now.UnixMilli()
	return RequestItem{
		ID:        NewID("request"),
		Name:      DefaultRequestName,
		Request:   NewHTTPRequest(),
		Responses: []ResponseHistoryItem{},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// Clone returns a deep copy.
func (it RequestItem) Clone() RequestItem {
	out := it
	out.Request = it.Request.Clone()
	out.Responses = make([]ResponseHistoryItem, len(it.Responses))
	for i, r := range it.Responses {
		out.Responses[i] = r.Clone()
	}
	return out
}

// Folder groups requests. A request belongs to at most one folder.
type Folder struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Expanded bool     `json:"expanded"`
	Requests []string `json:"requests"`
}

// NewFolder returns an expanded, empty folder.
func NewFolder(name string) Folder {
	return Folder{
		ID:       NewID("folder"),
		Name:     strings.TrimSpace(name),
		Expanded: true,
		Requests: []string{},
	}
}

// Clone returns a deep copy.
func (f Folder) Clone() Folder {
	out := f
	out.Requests = append([]string{}, f.Requests...)
	return out
}

// Contains reports whether the folder lists requestID.
func (f Folder) Contains(requestID string) bool {
	for _, id := range f.Requests {
		if id == requestID {
			return true
		}
	}
	return false
}

func cloneRows(rows []KeyValue) []KeyValue {
	if rows == nil {
		return nil
	}
	return append([]KeyValue{}, rows...)
}

// CloneRows returns a copy of rows.
func CloneRows(rows []KeyValue) []KeyValue {
	return cloneRows(rows)
}
