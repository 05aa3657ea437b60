package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_RequiresTitleOrContent(t *testing.T) {
	tests := []struct {
		name string
		req  GenerationRequest
		want error
	}{
		{"both empty", GenerationRequest{}, ErrEmptyDocument},
		{"whitespace only", GenerationRequest{Title: "  ", Content: "\n\t"}, ErrEmptyDocument},
		{"images only", GenerationRequest{Images: []string{"data:image/png;base64,AA=="}}, ErrEmptyDocument},
		{"title", GenerationRequest{Title: "Invoice"}, nil},
		{"content", GenerationRequest{Content: "<p>Total: $10</p>"}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestMarshalJSON_NullLogoAndEmptyImages(t *testing.T) {
	b, err := json.Marshal(GenerationRequest{Title: "Invoice", Content: "<p>Total: $10</p>"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Invoice","content":"<p>Total: $10</p>","logo":null,"images":[]}`, string(b))

	b, err = json.Marshal(GenerationRequest{Logo: "data:image/png;base64,AA==", Images: []string{"a", "b"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"","content":"","logo":"data:image/png;base64,AA==","images":["a","b"]}`, string(b))
}

func TestUnmarshal_AcceptsNullLogo(t *testing.T) {
	var req GenerationRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"T","logo":null,"images":["x","y","z"]}`), &req))
	assert.Equal(t, "", req.Logo)
	assert.Equal(t, []string{"x", "y", "z"}, req.Images)
}

func TestDocumentFilenameAndDisplayTitle(t *testing.T) {
	assert.Equal(t, "document.pdf", DocumentFilename(""))
	assert.Equal(t, "Invoice.pdf", DocumentFilename("Invoice"))
	assert.Equal(t, "Document", DisplayTitle(""))
	assert.Equal(t, "Invoice", DisplayTitle("Invoice"))

	doc := NewDocument("", []byte("%PDF-1.7"))
	assert.Equal(t, "document.pdf", doc.Name)
	assert.Equal(t, ContentType, doc.ContentType)

	var buf bytes.Buffer
	n, err := doc.WriteTo(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)
	assert.Equal(t, "%PDF-1.7", buf.String())
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="Invoice.pdf"`, ContentDisposition("attachment", "Invoice.pdf"))
	assert.Equal(t, `inline; filename="a_b_.pdf"`, ContentDisposition("inline", "a\"b\n.pdf"))
	assert.Equal(t, `attachment; filename="R_sum_.pdf"; filename*=UTF-8''R%C3%A9sum%C3%A9.pdf`,
		ContentDisposition("attachment", "Résumé.pdf"))
}
