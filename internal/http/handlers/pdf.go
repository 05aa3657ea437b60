package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"pdfstudio/internal/config"
	"pdfstudio/internal/domain"
	"pdfstudio/internal/infra/cache"
	"pdfstudio/internal/infra/chrome"
	"pdfstudio/internal/infra/logging"
	"pdfstudio/internal/render"
)

// PDFService renders documents for the API and the web UI.
type PDFService struct {
	Config   config.Config
	Renderer render.Renderer
	Cache    *cache.PDFCache

	now func() time.Time
}

func NewPDFService(cfg config.Config, r render.Renderer, c *cache.PDFCache) *PDFService {
	return &PDFService{Config: cfg, Renderer: r, Cache: c, now: time.Now}
}

// Generate renders req, or serves it from the PDF cache when enabled. The
// returned document always holds a verified PDF.
func (svc *PDFService) Generate(ctx context.Context, req domain.GenerationRequest) (domain.Document, error) {
	if limit := svc.Config.Limits.MaxImages; limit > 0 && len(req.Images) > limit {
		return domain.Document{}, fmt.Errorf("%w: %d > %d", domain.ErrTooManyImages, len(req.Images), limit)
	}

	useCache := svc.Config.Cache.PDFCacheEnabled && svc.Cache != nil
	key := ""
	if useCache {
		key = cache.Key(svc.Renderer.Name(), req, svc.now())
		if cached, ok := svc.Cache.Get(ctx, key); ok {
			if pages, err := render.Verify(cached); err == nil {
				doc := domain.NewDocument(req.Title, cached)
				doc.Pages = pages
				return doc, nil
			}
		}
	}

	if timeout := svc.Config.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	data, err := svc.Renderer.Render(ctx, req)
	if err != nil {
		return domain.Document{}, err
	}
	pages, err := render.Verify(data)
	if err != nil {
		return domain.Document{}, err
	}
	if limit := svc.Config.Limits.MaxPDFBytes; limit > 0 && len(data) > limit {
		return domain.Document{}, fmt.Errorf("%w: %d bytes", domain.ErrPDFTooLarge, len(data))
	}

	if useCache {
		svc.Cache.Set(ctx, key, data)
	}

	doc := domain.NewDocument(req.Title, data)
	doc.Pages = pages
	return doc, nil
}

// HandleGenerate serves POST /api/generate-pdf.
func (svc *PDFService) HandleGenerate(c *fiber.Ctx) error {
	var req domain.GenerationRequest
	if err := c.App().Config().JSONDecoder(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	}

	requestID := c.GetRespHeader(fiber.HeaderXRequestID)
	start := time.Now()
	doc, err := svc.Generate(c.UserContext(), req)
	if err != nil {
		return svc.renderError(err, requestID)
	}

	logging.Info("PDF generated",
		"filename", doc.Name,
		"pages", doc.Pages,
		"bytes", len(doc.Data),
		"engine", svc.Renderer.Name(),
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)

	c.Set(fiber.HeaderContentType, domain.ContentType)
	c.Set(fiber.HeaderContentDisposition, domain.ContentDisposition("attachment", doc.Name))
	c.Set("X-PDF-Pages", strconv.Itoa(doc.Pages))
	return c.Send(doc.Data)
}

// renderError logs err in full and returns the message a client may see.
func (svc *PDFService) renderError(err error, requestID string) *fiber.Error {
	fe := StatusFor(err)
	if fe.Code >= fiber.StatusInternalServerError {
		logging.Error("PDF generation failed", "error", err.Error(), "status", fe.Code,
			"timeout_secs", svc.Config.PDF.TimeoutSecs, "request_id", requestID)
	} else {
		logging.Warn("PDF request rejected", "error", err.Error(), "status", fe.Code, "request_id", requestID)
	}
	return fe
}

// StatusFor maps a generation error to an HTTP status and a client message
// without internal detail.
func StatusFor(err error) *fiber.Error {
	switch {
	case errors.Is(err, domain.ErrInvalidDataURI), errors.Is(err, domain.ErrUnsupportedImage):
		field, _, _ := strings.Cut(err.Error(), ":")
		if field == "logo" || strings.HasPrefix(field, "images[") {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid image data: "+field)
		}
		return fiber.NewError(fiber.StatusBadRequest, "Invalid image data")
	case errors.Is(err, domain.ErrUnsupportedText):
		return fiber.NewError(fiber.StatusBadRequest, "Text contains characters the PDF engine cannot print")
	case errors.Is(err, domain.ErrTooManyImages):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Too many images")
	case errors.Is(err, domain.ErrPDFTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "PDF exceeds allowed size")
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "PDF rendering took too long")
	case errors.Is(err, context.Canceled):
		return fiber.NewError(fiber.StatusServiceUnavailable, "PDF rendering was canceled")
	case chrome.IsSessionInterrupted(err):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Chrome session interrupted")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate PDF")
	}
}

// HandleChromeStats serves GET /api/chrome/stats.
func (svc *PDFService) HandleChromeStats(c *fiber.Ctx) error {
	cr, ok := svc.Renderer.(*render.ChromeRenderer)
	if !ok {
		return c.JSON(fiber.Map{"engine": svc.Renderer.Name(), "enabled": false})
	}
	pool, err := cr.Pool()
	if err != nil {
		logging.Error("Chrome pool init failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Chrome pool unavailable")
	}
	if pool == nil {
		return c.JSON(chrome.Stats{
			Enabled:      false,
			PoolSizeConf: svc.Config.PDF.ChromePoolSize,
			TimeoutSecs:  svc.Config.PDF.TimeoutSecs,
		})
	}
	return c.JSON(pool.Stats(svc.Config.PDF.TimeoutSecs))
}
