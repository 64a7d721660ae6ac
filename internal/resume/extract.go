// Package resume turns uploaded resume files into plain text. The rest of the
// system only cares about "text in, usable or not".
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedType is returned for anything that is not PDF or plain text.
	ErrUnsupportedType = errors.New("unsupported file type, upload PDF or TXT")

	// ErrEmptyExtraction is returned when a file parses but yields no text.
	ErrEmptyExtraction = errors.New("no text could be extracted from the file")
)

// Extract returns the plain text of an uploaded resume. contentType is the
// MIME type reported by the upload.
func Extract(contentType string, data []byte) (string, error) {
	var text string
	switch {
	case contentType == "application/pdf":
		var err error
		text, err = extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("parse pdf: %w", err)
		}
	case strings.HasPrefix(contentType, "text/plain"):
		text = string(data)
	default:
		return "", ErrUnsupportedType
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyExtraction
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var b bytes.Buffer
	if _, err := b.ReadFrom(plain); err != nil {
		return "", err
	}
	return b.String(), nil
}
