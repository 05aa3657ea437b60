package render

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"pdfstudio/internal/domain"
)

var pdfMagic = []byte("%PDF-")

// Verify checks that b is a readable PDF and returns its page count. Empty or
// truncated output from an engine fails here instead of reaching a client.
func Verify(b []byte) (pages int, err error) {
	if !bytes.HasPrefix(b, pdfMagic) {
		return 0, fmt.Errorf("%w: missing %%PDF- header", domain.ErrInvalidPDF)
	}

	defer func() {
		if r := recover(); r != nil {
			pages, err = 0, fmt.Errorf("%w: %v", domain.ErrInvalidPDF, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidPDF, err)
	}
	pages = r.NumPage()
	if pages == 0 {
		return 0, fmt.Errorf("%w: no pages", domain.ErrInvalidPDF)
	}
	return pages, nil
}
