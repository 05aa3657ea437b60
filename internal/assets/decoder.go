package assets

import (
	"fmt"
	"strings"

	"github.com/vincent-petithory/dataurl"

	"pdfstudio/internal/domain"
)

// Image is a decoded data URI.
type Image struct {
	MediaType string
	Data      []byte
}

// DataURI re-encodes the image in canonical base64 form.
func (i Image) DataURI() string {
	return dataurl.New(i.Data, i.MediaType).String()
}

// Decode parses a data URI and requires a non-empty image payload.
func Decode(uri string) (Image, error) {
	if !strings.HasPrefix(uri, "data:") {
		return Image{}, fmt.Errorf("%w: missing data: scheme", domain.ErrInvalidDataURI)
	}
	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", domain.ErrInvalidDataURI, err)
	}
	mt := strings.ToLower(du.MediaType.ContentType())
	if !strings.HasPrefix(mt, "image/") {
		return Image{}, fmt.Errorf("%w: %s is not an image", domain.ErrInvalidDataURI, mt)
	}
	if len(du.Data) == 0 {
		return Image{}, fmt.Errorf("%w: empty payload", domain.ErrInvalidDataURI)
	}
	return Image{MediaType: mt, Data: du.Data}, nil
}
