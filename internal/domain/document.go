package domain

import (
	"fmt"
	"io"
	"net/url"
	"strings"
)

// ContentType is the MIME type of every generated document.
const ContentType = "application/pdf"

// Document is a rendered PDF together with its download name.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
	Pages       int
}

// NewDocument names data after title.
func NewDocument(title string, data []byte) Document {
	return Document{
		Name:        DocumentFilename(title),
		ContentType: ContentType,
		Data:        data,
	}
}

// WriteTo writes the raw PDF bytes.
func (d Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.Data)
	return int64(n), err
}

// DocumentFilename derives the download name: the title, or "document", plus ".pdf".
func DocumentFilename(title string) string {
	if title == "" {
		title = "document"
	}
	return title + ".pdf"
}

// DisplayTitle is the header text of a rendered document.
func DisplayTitle(title string) string {
	if title == "" {
		return "Document"
	}
	return title
}

// ContentDisposition builds a header value for kind ("attachment" or
// "inline"). Quotes, backslashes and control characters are replaced in the
// quoted form; non-ASCII names also get an RFC 5987 filename* parameter.
func ContentDisposition(kind, filename string) string {
	var b strings.Builder
	ascii := true
	for _, r := range filename {
		switch {
		case r == '"' || r == '\\' || r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		case r > 0x7e:
			ascii = false
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	v := fmt.Sprintf("%s; filename=\"%s\"", kind, b.String())
	if !ascii {
		v += "; filename*=UTF-8''" + url.PathEscape(filename)
	}
	return v
}
