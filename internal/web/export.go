package web

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/funnyzak/reqkit/pkg/request"
)

// ExportFormats lists the accepted history export formats.
var ExportFormats = []string{"json", "csv"}

// historyExport is the JSON export document.
type historyExport struct {
	RequestID string                        `json:"request_id"`
	Name      string                        `json:"name"`
	Method    string                        `json:"method"`
	URL       string                        `json:"url"`
	Responses []request.ResponseHistoryItem `json:"responses"`
}

// ExportHistory serializes the response history of item, newest first. It
// returns the data, its content type and a file extension.
func ExportHistory(item request.RequestItem, format string) ([]byte, string, string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		responses := item.Responses
		if responses == nil {
			responses = []request.ResponseHistoryItem{}
		}
		buf, err := json.MarshalIndent(historyExport{
			RequestID: item.ID,
			Name:      item.Name,
			Method:    item.Request.Method,
			URL:       item.Request.URL,
			Responses: responses,
		}, "", "  ")
		return buf, contentTypeJSON, "json", err
	case "csv":
		return exportCSV(item.Responses)
	default:
		return nil, "", "", fmt.Errorf("unsupported export format: %s", format)
	}
}

func exportCSV(items []request.ResponseHistoryItem) ([]byte, string, string, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	headers := []string{
		"id", "timestamp", "status", "status_text", "response_time_ms",
		"size", "error", "headers", "body",
	}
	if err := writer.Write(headers); err != nil {
		return nil, "", "", err
	}

	for _, item := range items {
		line := []string{
			item.ID,
			time.UnixMilli(item.Timestamp).UTC().Format(time.RFC3339),
			strconv.Itoa(item.Status()),
		}
		if resp := item.Response; resp != nil {
			headersJSON, _ := json.Marshal(resp.Headers)
			line = append(line,
				resp.StatusText,
				strconv.FormatInt(resp.ResponseTime, 10),
				strconv.Itoa(len(resp.Body)),
				"",
				string(headersJSON),
				resp.Body,
			)
		} else if item.Error != nil {
			line = append(line, "", "", "0", item.Error.Message, "", "")
		}
		if err := writer.Write(line); err != nil {
			return nil, "", "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", "", err
	}

	return buf.Bytes(), "text/csv", "csv", nil
}
