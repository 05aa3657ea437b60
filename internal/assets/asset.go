package assets

import (
	"bytes"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Asset is a user-selected binary file waiting to be encoded.
type Asset struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// FileAsset refers to a file on disk. The file is opened only when encoded.
func FileAsset(path string) Asset {
	return Asset{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// BytesAsset wraps in-memory bytes.
func BytesAsset(name, contentType string, data []byte) Asset {
	return Asset{
		Name:        name,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// MultipartAsset wraps an uploaded form file.
func MultipartAsset(fh *multipart.FileHeader) Asset {
	return Asset{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
