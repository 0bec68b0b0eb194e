package printer

import (
	"encoding/json"
	"io"
	"os"

	"github.com/funnyzak/reqkit/internal/logger"
	"github.com/funnyzak/reqkit/pkg/request"
)

// JSONPrinter writes one JSON document per line.
type JSONPrinter struct {
	encoder *json.Encoder
	logger  logger.Logger
}

// NewJSONPrinter creates a JSON printer writing to stdout.
func NewJSONPrinter(log logger.Logger) *JSONPrinter {
	p := &JSONPrinter{logger: log}
	p.SetOutput(os.Stdout)
	return p
}

// SetOutput replaces the output target.
func (p *JSONPrinter) SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	p.encoder = encoder
}

type jsonResultEnvelope struct {
	Type      string                      `json:"type"`
	RequestID string                      `json:"request_id"`
	Name      string                      `json:"name"`
	Method    string                      `json:"method"`
	URL       string                      `json:"url"`
	Entry     request.ResponseHistoryItem `json:"entry"`
}

type jsonHistoryEnvelope struct {
	Type               string                        `json:"type"`
	RequestID          string                        `json:"request_id"`
	Name               string                        `json:"name"`
	SelectedResponseID string                        `json:"selected_response_id,omitempty"`
	Responses          []request.ResponseHistoryItem `json:"responses"`
}

// PrintResult writes a send outcome.
func (p *JSONPrinter) PrintResult(item request.RequestItem, entry request.ResponseHistoryItem) error {
	return p.encode(jsonResultEnvelope{
		Type:      "response",
		RequestID: item.ID,
		Name:      item.Name,
		Method:    item.Request.Method,
		URL:       item.Request.URL,
		Entry:     entry,
	})
}

// PrintHistory writes the full history of one request.
func (p *JSONPrinter) PrintHistory(item request.RequestItem) error {
	responses := item.Responses
	if responses == nil {
		responses = []request.ResponseHistoryItem{}
	}
	return p.encode(jsonHistoryEnvelope{
		Type:               "history",
		RequestID:          item.ID,
		Name:               item.Name,
		SelectedResponseID: item.SelectedResponseID,
		Responses:          responses,
	})
}

func (p *JSONPrinter) encode(v interface{}) error {
	if err := p.encoder.Encode(v); err != nil {
		if p.logger != nil {
			p.logger.Error("Failed to encode JSON output", "error", err)
		}
		return err
	}
	return nil
}
