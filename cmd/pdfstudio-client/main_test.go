package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfstudio/internal/domain"
)

func TestParseFlags_Defaults(t *testing.T) {
	o, err := parseFlags([]string{"--title", "Invoice", "-i", "a.png", "--image", "b.png"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", o.server)
	assert.Equal(t, "Invoice", o.title)
	assert.Equal(t, []string{"a.png", "b.png"}, o.images)
	assert.False(t, o.local)
}

func TestParseFlags_ContentConflict(t *testing.T) {
	_, err := parseFlags([]string{"--content", "x", "--content-file", "x.html"}, io.Discard)
	require.Error(t, err)
}

func TestRun_HelpIsNotAnError(t *testing.T) {
	var stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--help"}, io.Discard, &stderr))
	assert.Contains(t, stderr.String(), "--content-file")
}

func TestRun_LocalWritesPDF(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out", "invoice.pdf")
	var stdout bytes.Buffer

	err := run(context.Background(), []string{"--local", "--title", "Invoice", "--content", "Total: $10", "--out", out}, &stdout, io.Discard)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Equal(t, out, strings.TrimSpace(stdout.String()))
}

func TestRun_EmptyFormFails(t *testing.T) {
	err := run(context.Background(), []string{"--local", "--out", filepath.Join(t.TempDir(), "x.pdf")}, io.Discard, io.Discard)
	require.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestRun_RemoteUsesAPIKeyAndDefaultName(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4\n%%EOF\n"))
	}))
	defer srv.Close()

	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	err = run(context.Background(), []string{"--server", srv.URL, "--api-key", "k1", "--title", "Report"}, io.Discard, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "k1", gotKey)
	_, err = os.Stat(filepath.Join(dir, "Report.pdf"))
	require.NoError(t, err)
}

func TestRun_ContentFileMissing(t *testing.T) {
	err := run(context.Background(), []string{"--local", "--content-file", filepath.Join(t.TempDir(), "nope.html")}, io.Discard, io.Discard)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrEmptyDocument))
}
