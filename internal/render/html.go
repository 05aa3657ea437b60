package render

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed templates/document.html
var templateFS embed.FS

var documentTemplate = template.Must(
	template.New("document.html").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(templateFS, "templates/document.html"),
)

type htmlDocument struct {
	Title   string
	Logo    template.URL
	Content template.HTML
	Images  []template.URL
	Footer  string
}

// RenderHTML writes the tree as a standalone HTML page.
//
// The title and footer are escaped. The content is inserted as live markup:
// formatting tags render, and so do scripts and event handlers, which run in
// the headless browser while the page is printed. Images are re-encoded from
// their decoded bytes, so only canonical data URIs reach the src attributes.
func RenderHTML(t Tree) (string, error) {
	doc := htmlDocument{
		Title:   t.Header.Title,
		Content: template.HTML(t.Content.Text),
		Footer:  t.Footer.Text,
		Images:  make([]template.URL, 0, len(t.Content.Images)),
	}
	if t.Header.Logo != nil {
		doc.Logo = template.URL(t.Header.Logo.DataURI())
	}
	for _, img := range t.Content.Images {
		doc.Images = append(doc.Images, template.URL(img.DataURI()))
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
