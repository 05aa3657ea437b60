package domain

import (
	"encoding/json"
	"strings"
)

// GenerationRequest is the payload of POST /api/generate-pdf. Logo and Images
// hold data URIs; Content may contain markup.
type GenerationRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Logo    string   `json:"logo"`
	Images  []string `json:"images"`
}

// Validate checks the submission precondition: a title or content must be
// present. The server renders whatever it receives.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Content) == "" {
		return ErrEmptyDocument
	}
	return nil
}

// MarshalJSON writes an absent logo as null and absent images as [].
func (r GenerationRequest) MarshalJSON() ([]byte, error) {
	type wire struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Logo    *string  `json:"logo"`
		Images  []string `json:"images"`
	}
	w := wire{Title: r.Title, Content: r.Content, Images: r.Images}
	if r.Logo != "" {
		logo := r.Logo
		w.Logo = &logo
	}
	if w.Images == nil {
		w.Images = []string{}
	}
	return json.Marshal(w)
}
