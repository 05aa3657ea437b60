package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/vincent-petithory/dataurl"

	"pdfstudio/internal/domain"
)

// MaxAssetBytes caps a single upload.
const MaxAssetBytes = 10 * 1024 * 1024

// AssetError names the upload that failed to encode.
type AssetError struct {
	Field string
	Name  string
	Err   error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Name, e.Err)
}

func (e *AssetError) Unwrap() []error {
	return []error{domain.ErrAssetEncode, e.Err}
}

// Encode reads the asset and returns a base64 data URI carrying its image MIME type.
func Encode(ctx context.Context, a Asset) (string, error) {
	return encode(ctx, "asset", a)
}

// EncodeOptional encodes a may-be-absent asset, such as the logo. No asset
// yields an empty string.
func EncodeOptional(ctx context.Context, field string, a *Asset) (string, error) {
	if a == nil {
		return "", nil
	}
	return encode(ctx, field, *a)
}

// EncodeAll encodes assets in order. The first failure stops the batch and
// names the failing index.
func EncodeAll(ctx context.Context, field string, list []Asset) ([]string, error) {
	out := make([]string, 0, len(list))
	for i, a := range list {
		uri, err := encode(ctx, fmt.Sprintf("%s[%d]", field, i), a)
		if err != nil {
			return nil, err
		}
		out = append(out, uri)
	}
	return out, nil
}

func encode(ctx context.Context, field string, a Asset) (string, error) {
	fail := func(err error) (string, error) {
		return "", &AssetError{Field: field, Name: a.Name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if a.Open == nil {
		return fail(errors.New("no data source"))
	}

	rc, err := a.Open()
	if err != nil {
		return fail(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxAssetBytes+1))
	if err != nil {
		return fail(err)
	}
	if len(data) == 0 {
		return fail(errors.New("file is empty"))
	}
	if len(data) > MaxAssetBytes {
		return fail(fmt.Errorf("file exceeds %d bytes", MaxAssetBytes))
	}

	mediaType := resolveMediaType(a, data)
	if !strings.HasPrefix(mediaType, "image/") {
		return fail(fmt.Errorf("%w: %s", domain.ErrUnsupportedImage, mediaType))
	}
	return dataurl.New(data, mediaType).String(), nil
}

// resolveMediaType trusts the bytes when sniffing finds an image type.
// Otherwise it falls back to the declared type, then the file extension.
func resolveMediaType(a Asset, data []byte) string {
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	candidates := []string{a.ContentType, mime.TypeByExtension(strings.ToLower(filepath.Ext(a.Name)))}
	for _, c := range candidates {
		if c == "" || c == "application/octet-stream" {
			continue
		}
		if mt, _, err := mime.ParseMediaType(c); err == nil {
			return mt
		}
	}
	return sniffed
}
