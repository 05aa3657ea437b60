package client

import (
	"bytes"
	"fmt"

	"pdfstudio/internal/domain"
)

// HandleResponse wraps a successful response body as a named document.
// Bodies that are not a PDF are rejected.
func HandleResponse(title string, body []byte) (domain.Document, error) {
	if len(body) == 0 {
		return domain.Document{}, fmt.Errorf("%w: empty response body", domain.ErrInvalidPDF)
	}
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		return domain.Document{}, fmt.Errorf("%w: response is not a PDF", domain.ErrInvalidPDF)
	}
	return domain.NewDocument(title, body), nil
}
