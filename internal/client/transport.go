package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"pdfstudio/internal/domain"
)

// GeneratePath is the renderer endpoint relative to the server URL.
const GeneratePath = "/api/generate-pdf"

// Transport submits a request and returns the raw PDF body.
type Transport interface {
	Submit(ctx context.Context, req domain.GenerationRequest) ([]byte, error)
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Unwrap lets server-side failures (5xx) match domain.ErrGenerationFailed.
func (e *StatusError) Unwrap() error {
	if e.Code >= 500 {
		return domain.ErrGenerationFailed
	}
	return nil
}

// HTTPTransport posts requests to a remote server.
type HTTPTransport struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewHTTPTransport(baseURL, apiKey string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey, Timeout: timeout}
}

func (t *HTTPTransport) Submit(ctx context.Context, req domain.GenerationRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := t.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); timeout <= 0 || rem < timeout {
			timeout = rem
		}
	}

	a := fiber.Post(t.BaseURL + GeneratePath).JSON(req)
	if t.APIKey != "" {
		a.Set("X-API-Key", t.APIKey)
	}
	if timeout > 0 {
		a.Timeout(timeout)
	}

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("post %s: %w", GeneratePath, errors.Join(errs...))
	}
	if code < 200 || code > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &payload)
		return nil, &StatusError{Code: code, Message: payload.Error}
	}
	return body, nil
}

// GenerateFunc renders a request in process.
type GenerateFunc func(ctx context.Context, req domain.GenerationRequest) (domain.Document, error)

// LocalTransport calls a renderer in the same process.
type LocalTransport struct {
	Generate GenerateFunc
}

func (t LocalTransport) Submit(ctx context.Context, req domain.GenerationRequest) ([]byte, error) {
	doc, err := t.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}
