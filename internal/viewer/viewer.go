package viewer

import (
	"fmt"
	"io"

	"pdfstudio/internal/domain"
	"pdfstudio/internal/infra/logging"
)

// Snapshot is the viewer state carried between HTTP requests.
type Snapshot struct {
	Handle   string
	Name     string
	Scale    float64
	Rotation int
}

// Viewer shows at most one document at a time. Showing a new document or
// closing the viewer revokes the previous handle.
type Viewer struct {
	blobs  *BlobStore
	handle string
	name   string
	state  State
}

func New(blobs *BlobStore) *Viewer {
	return &Viewer{blobs: blobs, state: NewState()}
}

// Show publishes doc, revokes the previously shown document and resets zoom
// and rotation.
func (v *Viewer) Show(doc domain.Document) error {
	handle, err := v.blobs.Publish(doc)
	if err != nil {
		return err
	}
	v.release()
	v.handle, v.name = handle, doc.Name
	v.state.Reset()
	return nil
}

// Close revokes the shown document.
func (v *Viewer) Close() {
	v.release()
	v.state.Reset()
}

func (v *Viewer) release() {
	if v.handle == "" {
		return
	}
	if err := v.blobs.Revoke(v.handle); err != nil {
		logging.Warn("Failed to revoke viewer document", "handle", v.handle, "error", err)
	}
	v.handle, v.name = "", ""
}

// HasDocument reports whether a document is shown.
func (v *Viewer) HasDocument() bool { return v.handle != "" }

func (v *Viewer) Name() string { return v.name }

func (v *Viewer) State() State { return v.state }

// Apply runs a toolbar action; see State.Action.
func (v *Viewer) Apply(action string) bool { return v.state.Action(action) }

// Document returns the shown document.
func (v *Viewer) Document() (domain.Document, error) {
	if v.handle == "" {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return v.blobs.Open(v.handle)
}

// Download writes the original bytes of the shown document to w and returns
// the filename to save them under.
func (v *Viewer) Download(w io.Writer) (string, error) {
	doc, err := v.Document()
	if err != nil {
		return "", err
	}
	if _, err := doc.WriteTo(w); err != nil {
		return "", fmt.Errorf("write %s: %w", doc.Name, err)
	}
	return doc.Name, nil
}

func (v *Viewer) Snapshot() Snapshot {
	return Snapshot{Handle: v.handle, Name: v.name, Scale: v.state.Scale, Rotation: v.state.Rotation}
}

// Restore loads s, normalising out-of-range values.
func (v *Viewer) Restore(s Snapshot) {
	v.handle, v.name = s.Handle, s.Name
	v.state = State{Scale: clampScale(s.Scale), Rotation: normalizeRotation(s.Rotation)}
	if s.Scale == 0 {
		v.state.Scale = 1
	}
}
