package viewer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/xid"

	"pdfstudio/internal/domain"
)

const (
	dataKeyPrefix = "viewer:data:"
	metaKeyPrefix = "viewer:meta:"
)

type blobMeta struct {
	Name  string `json:"name"`
	Pages int    `json:"pages"`
}

// BlobStore hands out opaque handles for document bytes, the server-side
// counterpart of a browser object URL. A handle stays valid until it is
// revoked or its TTL runs out.
type BlobStore struct {
	store fiber.Storage
	ttl   time.Duration
}

func NewBlobStore(store fiber.Storage, ttl time.Duration) *BlobStore {
	return &BlobStore{store: store, ttl: ttl}
}

// Publish stores doc and returns its handle.
func (b *BlobStore) Publish(doc domain.Document) (string, error) {
	handle := xid.New().String()
	meta, err := json.Marshal(blobMeta{Name: doc.Name, Pages: doc.Pages})
	if err != nil {
		return "", err
	}
	if err := b.store.Set(dataKeyPrefix+handle, doc.Data, b.ttl); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	if err := b.store.Set(metaKeyPrefix+handle, meta, b.ttl); err != nil {
		_ = b.store.Delete(dataKeyPrefix + handle)
		return "", fmt.Errorf("store document: %w", err)
	}
	return handle, nil
}

// Open returns the document behind handle, or ErrDocumentNotFound.
func (b *BlobStore) Open(handle string) (domain.Document, error) {
	if handle == "" {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	rawMeta, err := b.store.Get(metaKeyPrefix + handle)
	if err != nil {
		return domain.Document{}, fmt.Errorf("load document: %w", err)
	}
	data, err := b.store.Get(dataKeyPrefix + handle)
	if err != nil {
		return domain.Document{}, fmt.Errorf("load document: %w", err)
	}
	if len(rawMeta) == 0 || len(data) == 0 {
		return domain.Document{}, domain.ErrDocumentNotFound
	}

	var meta blobMeta
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return domain.Document{}, fmt.Errorf("load document: %w", err)
	}
	return domain.Document{Name: meta.Name, ContentType: domain.ContentType, Data: data, Pages: meta.Pages}, nil
}

// Revoke releases handle. Revoking an unknown handle is not an error.
func (b *BlobStore) Revoke(handle string) error {
	if handle == "" {
		return nil
	}
	if err := b.store.Delete(dataKeyPrefix + handle); err != nil {
		return err
	}
	return b.store.Delete(metaKeyPrefix + handle)
}
