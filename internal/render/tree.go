package render

import (
	"fmt"
	"time"

	"pdfstudio/internal/assets"
	"pdfstudio/internal/domain"
)

// Tree is the logical document both engines lay out: a header with an
// optional logo and the title, a content block with optional text followed by
// images in submission order, and a footer stamped with the render date.
type Tree struct {
	Header  Header
	Content Content
	Footer  Footer
}

type Header struct {
	Logo  *assets.Image
	Title string
}

type Content struct {
	Text   string
	Images []assets.Image
}

type Footer struct {
	Text string
}

const footerDateLayout = "January 2, 2006"

// BuildTree validates every data URI in req and assembles the tree.
func BuildTree(req domain.GenerationRequest, now time.Time) (Tree, error) {
	t := Tree{
		Header:  Header{Title: domain.DisplayTitle(req.Title)},
		Content: Content{Text: req.Content},
		Footer:  Footer{Text: "Generated on " + now.Format(footerDateLayout)},
	}

	if req.Logo != "" {
		logo, err := assets.Decode(req.Logo)
		if err != nil {
			return Tree{}, fmt.Errorf("logo: %w", err)
		}
		t.Header.Logo = &logo
	}

	t.Content.Images = make([]assets.Image, 0, len(req.Images))
	for i, uri := range req.Images {
		img, err := assets.Decode(uri)
		if err != nil {
			return Tree{}, fmt.Errorf("images[%d]: %w", i, err)
		}
		t.Content.Images = append(t.Content.Images, img)
	}
	return t, nil
}
