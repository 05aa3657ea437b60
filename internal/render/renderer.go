// Package render turns a GenerationRequest into PDF bytes.
//
// Two engines implement Renderer. The chrome engine prints an HTML page with
// headless Chrome and treats content as live markup. The fpdf engine draws
// the document tree directly and treats content as literal text. A
// deployment runs exactly one of them, selected by pdf.engine.
package render

import (
	"context"
	"fmt"
	"time"

	"pdfstudio/internal/config"
	"pdfstudio/internal/domain"
)

// Renderer produces a complete PDF for req.
type Renderer interface {
	Render(ctx context.Context, req domain.GenerationRequest) ([]byte, error)
	Name() string
}

// New returns the engine selected by cfg.PDF.Engine.
func New(cfg config.Config) (Renderer, error) {
	switch cfg.PDF.Engine {
	case config.EngineChrome:
		return NewChromeRenderer(cfg), nil
	case config.EngineFPDF:
		return NewTreeRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown pdf engine %q", cfg.PDF.Engine)
	}
}

// Clock is swapped in tests to pin footer dates.
type Clock func() time.Time
