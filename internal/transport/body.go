package transport

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/funnyzak/reqkit/pkg/request"
)

// encodeBody renders the payload body for its body type and returns the
// content type the encoding implies, if any.
func encodeBody(p *request.Payload) ([]byte, string, error) {
	switch p.BodyType {
	case request.BodyNone, "":
		return nil, "", nil
	case request.BodyForm:
		if p.Body == nil {
			return nil, "", nil
		}
		if p.FormSubtype == request.FormMultipart {
			return encodeMultipart(*p.Body)
		}
		return []byte(encodeURLForm(*p.Body)), "application/x-www-form-urlencoded", nil
	case request.BodyBinary:
		if p.BinaryData == nil {
			return nil, "", nil
		}
		data, err := base64.StdEncoding.DecodeString(*p.BinaryData)
		if err != nil {
			return nil, "", &request.HTTPError{Message: fmt.Sprintf("Invalid base64 binary data: %v", err)}
		}
		contentType := ""
		if !hasHeader(p.Headers, "Content-Type") {
			contentType = DetectContentType(data)
		}
		return data, contentType, nil
	default:
		if p.Body == nil {
			return nil, "", nil
		}
		return []byte(*p.Body), "", nil
	}
}

// encodeURLForm re-encodes a&b=c style input. Pairs without '=' are
// dropped; undecodable parts become empty.
func encodeURLForm(body string) string {
	var parts []string
	for _, pair := range strings.Split(body, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		parts = append(parts, url.QueryEscape(decodeOrEmpty(key))+"="+url.QueryEscape(decodeOrEmpty(value)))
	}
	return strings.Join(parts, "&")
}

func decodeOrEmpty(s string) string {
	out, err := url.PathUnescape(s)
	if err != nil {
		return ""
	}
	return out
}

// encodeMultipart turns key=value lines into text form fields.
func encodeMultipart(body string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, line := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if err := w.WriteField(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, "", &request.HTTPError{Message: fmt.Sprintf("Request failed: %v", err)}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", &request.HTTPError{Message: fmt.Sprintf("Request failed: %v", err)}
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// DetectContentType sniffs common binary formats by their magic bytes and
// falls back to text/plain for printable ASCII.
func DetectContentType(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}
	switch {
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}):
		return "image/png"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "image/gif"
	case bytes.HasPrefix(data, []byte("%PDF")):
		return "application/pdf"
	case bytes.HasPrefix(data, []byte{'P', 'K', 0x03, 0x04}),
		bytes.HasPrefix(data, []byte{'P', 'K', 0x05, 0x06}),
		bytes.HasPrefix(data, []byte{'P', 'K', 0x07, 0x08}):
		return "application/zip"
	}
	for _, b := range data {
		printable := b >= 0x21 && b <= 0x7E
		space := b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
		if !printable && !space {
			return "application/octet-stream"
		}
	}
	return "text/plain"
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
