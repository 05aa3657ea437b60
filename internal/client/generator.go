// Package client assembles generation requests from user-selected files,
// submits them to a renderer and keeps the most recent document.
package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"pdfstudio/internal/assets"
	"pdfstudio/internal/domain"
	"pdfstudio/internal/infra/logging"
)

// Generator holds the form of one user: title, content, an optional logo and
// ordered content images. Only one Generate call runs at a time.
type Generator struct {
	transport Transport

	// OnGenerated, when set, receives every successfully generated document.
	OnGenerated func(domain.Document)

	mu      sync.Mutex
	title   string
	content string
	logo    *assets.Asset
	images  []assets.Asset
	last    *domain.Document

	generating atomic.Bool
}

func NewGenerator(t Transport) *Generator {
	return &Generator{transport: t}
}

func (g *Generator) SetTitle(title string) {
	g.mu.Lock()
	g.title = title
	g.mu.Unlock()
}

func (g *Generator) SetContent(content string) {
	g.mu.Lock()
	g.content = content
	g.mu.Unlock()
}

// SetLogo replaces the logo.
func (g *Generator) SetLogo(a assets.Asset) {
	g.mu.Lock()
	g.logo = &a
	g.mu.Unlock()
}

func (g *Generator) RemoveLogo() {
	g.mu.Lock()
	g.logo = nil
	g.mu.Unlock()
}

// AddImages appends images after the ones already selected.
func (g *Generator) AddImages(list ...assets.Asset) {
	g.mu.Lock()
	g.images = append(g.images, list...)
	g.mu.Unlock()
}

// RemoveImage drops the image at index i, keeping the order of the rest.
func (g *Generator) RemoveImage(i int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i < 0 || i >= len(g.images) {
		return fmt.Errorf("image index %d out of range [0,%d)", i, len(g.images))
	}
	g.images = append(g.images[:i:i], g.images[i+1:]...)
	return nil
}

// ImageNames lists the selected images in submission order.
func (g *Generator) ImageNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, len(g.images))
	for i, a := range g.images {
		names[i] = a.Name
	}
	return names
}

// Generating reports whether a Generate call is in flight.
func (g *Generator) Generating() bool { return g.generating.Load() }

// Last returns the most recently generated document.
func (g *Generator) Last() (domain.Document, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last == nil {
		return domain.Document{}, false
	}
	return *g.last, true
}

// Generate validates the form, encodes the selected files, submits the
// request and records the resulting document. It fails with
// ErrGenerationInProgress while another call runs and with ErrEmptyDocument,
// before any network traffic, when title and content are both blank. On any
// failure the previous document is kept.
func (g *Generator) Generate(ctx context.Context) (domain.Document, error) {
	if !g.generating.CompareAndSwap(false, true) {
		return domain.Document{}, domain.ErrGenerationInProgress
	}
	defer g.generating.Store(false)

	g.mu.Lock()
	title, content := g.title, g.content
	logo := g.logo
	images := append([]assets.Asset(nil), g.images...)
	g.mu.Unlock()

	req, err := BuildRequest(ctx, title, content, logo, images)
	if err != nil {
		return domain.Document{}, err
	}

	body, err := g.transport.Submit(ctx, req)
	if err != nil {
		logging.Warn("PDF generation request failed", "error", err)
		return domain.Document{}, err
	}
	doc, err := HandleResponse(title, body)
	if err != nil {
		return domain.Document{}, err
	}

	g.mu.Lock()
	g.last = &doc
	g.mu.Unlock()
	if g.OnGenerated != nil {
		g.OnGenerated(doc)
	}
	return doc, nil
}

// BuildRequest checks the title/content precondition and encodes the assets
// into a GenerationRequest.
func BuildRequest(ctx context.Context, title, content string, logo *assets.Asset, images []assets.Asset) (domain.GenerationRequest, error) {
	req := domain.GenerationRequest{Title: title, Content: content}
	if err := req.Validate(); err != nil {
		return domain.GenerationRequest{}, err
	}

	var err error
	if req.Logo, err = assets.EncodeOptional(ctx, "logo", logo); err != nil {
		return domain.GenerationRequest{}, err
	}
	if req.Images, err = assets.EncodeAll(ctx, "images", images); err != nil {
		return domain.GenerationRequest{}, err
	}
	return req, nil
}
