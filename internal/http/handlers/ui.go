package handlers

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"pdfstudio/internal/assets"
	"pdfstudio/internal/client"
	"pdfstudio/internal/domain"
	"pdfstudio/internal/infra/logging"
	"pdfstudio/internal/render"
	"pdfstudio/internal/viewer"
)

//go:embed templates/index.html
var uiFS embed.FS

var indexTemplate = template.Must(template.ParseFS(uiFS, "templates/index.html"))

// Session keys.
const (
	sessHandle   = "doc_handle"
	sessName     = "doc_name"
	sessScale    = "scale"
	sessRotation = "rotation"
	sessFlash    = "flash"
	sessTitle    = "form_title"
	sessContent  = "form_content"
)

const maxViewerUploadBytes = 50 * 1024 * 1024

// UI serves the browser front end: the generator form and the viewer.
// Per-browser state lives in the fiber session; the document bytes live in
// the blob store under a handle that is revoked when it is replaced.
type UI struct {
	Service  *PDFService
	Sessions *session.Store
	Blobs    *viewer.BlobStore

	inflight sync.Map
}

func NewUI(svc *PDFService, sessions *session.Store, blobs *viewer.BlobStore) *UI {
	return &UI{Service: svc, Sessions: sessions, Blobs: blobs}
}

type indexPage struct {
	Flash       string
	HasDocument bool
	Name        string
	Percent     int
	Scale       float64
	Rotation    int
	MaxImages   int
	Title       string
	Content     string
}

func (ui *UI) loadViewer(sess *session.Session) *viewer.Viewer {
	v := viewer.New(ui.Blobs)
	snap := viewer.Snapshot{}
	snap.Handle, _ = sess.Get(sessHandle).(string)
	snap.Name, _ = sess.Get(sessName).(string)
	snap.Scale, _ = sess.Get(sessScale).(float64)
	snap.Rotation, _ = sess.Get(sessRotation).(int)
	v.Restore(snap)
	return v
}

func saveViewer(sess *session.Session, v *viewer.Viewer) {
	snap := v.Snapshot()
	sess.Set(sessHandle, snap.Handle)
	sess.Set(sessName, snap.Name)
	sess.Set(sessScale, snap.Scale)
	sess.Set(sessRotation, snap.Rotation)
}

func (ui *UI) finish(c *fiber.Ctx, sess *session.Session) error {
	if err := sess.Save(); err != nil {
		logging.Error("Session save failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Session unavailable")
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (ui *UI) session(c *fiber.Ctx) (*session.Session, error) {
	sess, err := ui.Sessions.Get(c)
	if err != nil {
		logging.Error("Session load failed", "error", err)
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Session unavailable")
	}
	return sess, nil
}

// HandleIndex serves GET /.
func (ui *UI) HandleIndex(c *fiber.Ctx) error {
	sess, err := ui.session(c)
	if err != nil {
		return err
	}
	v := ui.loadViewer(sess)
	page := indexPage{MaxImages: ui.Service.Config.Limits.MaxImages}
	page.Flash, _ = sess.Get(sessFlash).(string)
	page.Title, _ = sess.Get(sessTitle).(string)
	page.Content, _ = sess.Get(sessContent).(string)
	sess.Delete(sessFlash)

	if v.HasDocument() {
		if _, err := v.Document(); err != nil {
			// expired or revoked elsewhere
			v.Close()
		}
	}
	saveViewer(sess, v)
	if err := sess.Save(); err != nil {
		logging.Warn("Session save failed", "error", err)
	}

	st := v.State()
	page.HasDocument = v.HasDocument()
	page.Name = v.Name()
	page.Percent = st.Percent()
	page.Scale = st.Scale
	page.Rotation = st.Rotation

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

// HandleGenerate serves POST /ui/generate with a multipart form of title,
// content, logo and images.
func (ui *UI) HandleGenerate(c *fiber.Ctx) error {
	sess, err := ui.session(c)
	if err != nil {
		return err
	}

	id := sess.ID()
	if _, busy := ui.inflight.LoadOrStore(id, struct{}{}); busy {
		return fiber.NewError(fiber.StatusConflict, "Generation already in progress")
	}
	defer ui.inflight.Delete(id)

	ctx := c.UserContext()
	title, content := c.FormValue("title"), c.FormValue("content")
	gen := client.NewGenerator(client.LocalTransport{Generate: ui.Service.Generate})
	gen.SetTitle(title)
	gen.SetContent(content)

	var rejected []string
	if fh, err := c.FormFile("logo"); err == nil && fh.Size > 0 {
		logo, bad := acceptUploads(ctx, "logo", []*multipart.FileHeader{fh})
		if len(logo) == 1 {
			gen.SetLogo(logo[0])
		}
		rejected = append(rejected, bad...)
	}
	if form, err := c.MultipartForm(); err == nil {
		images, bad := acceptUploads(ctx, "images", form.File["images"])
		gen.AddImages(images...)
		rejected = append(rejected, bad...)
	}

	// The typed fields survive the redirect until a clean generation.
	keepForm := func() {
		sess.Set(sessTitle, title)
		sess.Set(sessContent, content)
	}

	doc, err := gen.Generate(ctx)
	if err != nil {
		sess.Set(sessFlash, ui.userMessage(err, c.GetRespHeader(fiber.HeaderXRequestID)))
		keepForm()
		return ui.finish(c, sess)
	}

	v := ui.loadViewer(sess)
	if err := v.Show(doc); err != nil {
		logging.Error("Viewer publish failed", "error", err)
		sess.Set(sessFlash, "Failed to generate PDF")
		keepForm()
		return ui.finish(c, sess)
	}
	saveViewer(sess, v)

	if len(rejected) > 0 {
		sess.Set(sessFlash, "Could not read "+strings.Join(rejected, ", ")+": please choose a valid image file")
		keepForm()
	} else {
		sess.Delete(sessTitle)
		sess.Delete(sessContent)
	}
	return ui.finish(c, sess)
}

// acceptUploads drops the files that cannot be encoded as images and
// returns their names. Empty file inputs are ignored.
func acceptUploads(ctx context.Context, field string, files []*multipart.FileHeader) ([]assets.Asset, []string) {
	var ok []assets.Asset
	var rejected []string
	for _, fh := range files {
		if fh.Size == 0 {
			continue
		}
		a := assets.MultipartAsset(fh)
		if _, err := assets.Encode(ctx, a); err != nil {
			logging.Warn("Upload rejected", "field", field, "name", fh.Filename, "error", err)
			rejected = append(rejected, fh.Filename)
			continue
		}
		ok = append(ok, a)
	}
	return ok, rejected
}

func (ui *UI) userMessage(err error, requestID string) string {
	var ae *assets.AssetError
	switch {
	case errors.Is(err, domain.ErrEmptyDocument):
		return "Please add a title or content to generate PDF"
	case errors.As(err, &ae):
		logging.Warn("Upload rejected", "field", ae.Field, "name", ae.Name, "error", ae.Err)
		return "Could not read " + ae.Name + ": please choose a valid image file"
	default:
		return ui.Service.renderError(err, requestID).Message
	}
}

// HandleOpen serves POST /ui/viewer/open: shows a PDF uploaded from disk.
func (ui *UI) HandleOpen(c *fiber.Ctx) error {
	sess, err := ui.session(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing file")
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Could not read file")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxViewerUploadBytes+1))
	if err != nil || len(data) > maxViewerUploadBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "File too large")
	}

	pages, err := render.Verify(data)
	if err != nil {
		sess.Set(sessFlash, "Failed to load PDF")
		return ui.finish(c, sess)
	}
	doc := domain.Document{Name: fh.Filename, ContentType: domain.ContentType, Data: data, Pages: pages}

	v := ui.loadViewer(sess)
	if err := v.Show(doc); err != nil {
		logging.Error("Viewer publish failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load PDF")
	}
	saveViewer(sess, v)
	return ui.finish(c, sess)
}

// HandleViewerAction serves POST /ui/viewer/:action.
func (ui *UI) HandleViewerAction(c *fiber.Ctx) error {
	sess, err := ui.session(c)
	if err != nil {
		return err
	}
	v := ui.loadViewer(sess)
	switch action := c.Params("action"); action {
	case "close":
		v.Close()
	default:
		if !v.Apply(action) {
			return fiber.NewError(fiber.StatusBadRequest, "Unknown viewer action")
		}
	}
	saveViewer(sess, v)
	return ui.finish(c, sess)
}

// HandleDocument serves the shown document inline.
func (ui *UI) HandleDocument(c *fiber.Ctx) error { return ui.sendDocument(c, "inline") }

// HandleDownload serves the shown document as an attachment.
func (ui *UI) HandleDownload(c *fiber.Ctx) error { return ui.sendDocument(c, "attachment") }

func (ui *UI) sendDocument(c *fiber.Ctx, disposition string) error {
	sess, err := ui.session(c)
	if err != nil {
		return err
	}
	v := ui.loadViewer(sess)
	var buf bytes.Buffer
	name, err := v.Download(&buf)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "No document")
	}
	if err != nil {
		logging.Error("Viewer document load failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load PDF")
	}
	c.Set(fiber.HeaderContentType, domain.ContentType)
	c.Set(fiber.HeaderContentDisposition, domain.ContentDisposition(disposition, name))
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(http.StatusOK).Send(buf.Bytes())
}
