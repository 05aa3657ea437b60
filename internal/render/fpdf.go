package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"pdfstudio/internal/assets"
	"pdfstudio/internal/config"
	"pdfstudio/internal/domain"
)

// Page geometry in points.
const (
	pageMargin      = 30.0
	logoMaxWidth    = 200.0
	logoMaxHeight   = 60.0
	imageMaxHeight  = 400.0
	imageGap        = 15.0
	footerHeight    = 30.0
	titleSize       = 28.0
	bodySize        = 14.0
	bodyLineHeight  = bodySize * 1.8
	footerSize      = 12.0
	headerRuleWidth = 2.0
)

type rgb struct{ r, g, b int }

var (
	titleColor  = rgb{44, 62, 80}
	bodyColor   = rgb{51, 51, 51}
	footerColor = rgb{102, 102, 102}
	ruleColor   = rgb{224, 224, 224}
)

// TreeRenderer draws the document tree straight into PDF objects. Content is
// written as literal text; markup in it is printed, not interpreted.
//
// Text is set in the core Helvetica font, which only covers Windows-1252.
// Titles or content with other characters (CJK, emoji) fail with
// domain.ErrUnsupportedText instead of printing with gaps; the chrome engine
// has no such limit.
type TreeRenderer struct {
	now      Clock
	compress bool
}

func NewTreeRenderer() *TreeRenderer {
	return &TreeRenderer{now: time.Now, compress: true}
}

func (r *TreeRenderer) Name() string { return config.EngineFPDF }

func (r *TreeRenderer) Render(ctx context.Context, req domain.GenerationRequest) ([]byte, error) {
	now := r.now()
	tree, err := BuildTree(req, now)
	if err != nil {
		return nil, err
	}
	if err := checkPrintable("title", tree.Header.Title); err != nil {
		return nil, err
	}
	if err := checkPrintable("content", tree.Content.Text); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf, err := r.draw(tree, now)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *TreeRenderer) draw(t Tree, now time.Time) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle(t.Header.Title, true)
	pdf.SetCreator("pdfstudio", true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin+footerHeight)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()
	contentW := pageW - 2*pageMargin

	pdf.SetFooterFunc(func() {
		top := pageH - pageMargin - footerHeight + 10
		setDrawColor(pdf, ruleColor)
		pdf.SetLineWidth(1)
		pdf.Line(pageMargin, top, pageW-pageMargin, top)
		pdf.SetY(top + 4)
		pdf.SetFont("Helvetica", "", footerSize)
		setTextColor(pdf, footerColor)
		pdf.CellFormat(0, footerSize+4, tr(t.Footer.Text), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	if logo := t.Header.Logo; logo != nil {
		info, err := registerImage(pdf, "logo", *logo)
		if err != nil {
			return nil, fmt.Errorf("logo: %w", err)
		}
		w, h := fit(info.Width(), info.Height(), logoMaxWidth, logoMaxHeight)
		y := pdf.GetY()
		pdf.ImageOptions("logo", pageMargin, y, w, h, false, fpdf.ImageOptions{}, 0, "")
		pdf.SetY(y + h + 10)
	}

	pdf.SetFont("Helvetica", "B", titleSize)
	setTextColor(pdf, titleColor)
	pdf.MultiCell(0, titleSize*1.2, tr(t.Header.Title), "", "L", false)

	y := pdf.GetY() + 10
	setDrawColor(pdf, ruleColor)
	pdf.SetLineWidth(headerRuleWidth)
	pdf.Line(pageMargin, y, pageW-pageMargin, y)
	pdf.SetY(y + 20)

	if text := strings.ReplaceAll(t.Content.Text, "\r\n", "\n"); text != "" {
		pdf.SetFont("Helvetica", "", bodySize)
		setTextColor(pdf, bodyColor)
		pdf.MultiCell(0, bodyLineHeight, tr(text), "", "L", false)
		pdf.Ln(imageGap)
	}

	_, _, _, bottom := pdf.GetMargins()
	for i, img := range t.Content.Images {
		name := fmt.Sprintf("image-%d", i)
		info, err := registerImage(pdf, name, img)
		if err != nil {
			return nil, fmt.Errorf("images[%d]: %w", i, err)
		}
		w, h := fit(info.Width(), info.Height(), contentW, imageMaxHeight)
		if pdf.GetY()+h > pageH-bottom {
			pdf.AddPage()
		}
		y := pdf.GetY()
		pdf.ImageOptions(name, pageMargin+(contentW-w)/2, y, w, h, false, fpdf.ImageOptions{}, 0, "")
		pdf.SetY(y + h + imageGap)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	return pdf, nil
}

// checkPrintable reports the first rune of s the core fonts cannot encode.
func checkPrintable(field, s string) error {
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return fmt.Errorf("%s: %w: %q", field, domain.ErrUnsupportedText, r)
		}
	}
	return nil
}

func registerImage(pdf *fpdf.Fpdf, name string, img assets.Image) (*fpdf.ImageInfoType, error) {
	var kind string
	switch strings.ToLower(img.MediaType) {
	case "image/png":
		kind = "PNG"
	case "image/jpeg", "image/jpg":
		kind = "JPG"
	case "image/gif":
		kind = "GIF"
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedImage, img.MediaType)
	}

	info := pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: kind}, bytes.NewReader(img.Data))
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	if info == nil || info.Width() <= 0 || info.Height() <= 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrUnsupportedImage)
	}
	return info, nil
}

// fit scales w×h down to fit inside maxW×maxH, keeping the aspect ratio.
func fit(w, h, maxW, maxH float64) (float64, float64) {
	scale := 1.0
	if w > maxW {
		scale = maxW / w
	}
	if h*scale > maxH {
		scale = maxH / h
	}
	return w * scale, h * scale
}

func setTextColor(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
func setDrawColor(pdf *fpdf.Fpdf, c rgb) { pdf.SetDrawColor(c.r, c.g, c.b) }
