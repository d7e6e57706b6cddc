// Package tesseract provides a local OCR engine backed by libtesseract.
// It lives in its own package so that only binaries selecting it need cgo.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine implements scanning.ImageOCR with gosseract
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New creates an Engine for the given tesseract language codes (default "eng")
func New(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Engine{languages: languages, clientFactory: gosseract.NewClient}
}

// Recognize runs OCR on a PNG image. A fresh client is used per call;
// gosseract clients are not safe for concurrent use.
func (e *Engine) Recognize(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Close is a no-op; clients are released after each call
func (e *Engine) Close() error {
	return nil
}
