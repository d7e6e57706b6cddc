package scanning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// FitzReader reads PDF text with MuPDF. Pages without an embedded text layer
// are rendered and passed to the OCR engine when one is configured.
type FitzReader struct {
	ocr      ImageOCR
	maxPages int
}

// NewFitzReader creates a FitzReader; ocr may be nil
func NewFitzReader(ocr ImageOCR) *FitzReader {
	return &FitzReader{ocr: ocr, maxPages: 50}
}

// ReadText returns the text of every page joined by newlines
func (f *FitzReader) ReadText(ctx context.Context, pdfData []byte) (string, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return "", errors.New("PDF has no pages")
	}
	if f.maxPages > 0 && pageCount > f.maxPages {
		pageCount = f.maxPages
	}

	pages := make([]string, 0, pageCount)
	for n := 0; n < pageCount; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("reading page %d: %w", n+1, err)
		}
		if strings.TrimSpace(text) == "" && f.ocr != nil {
			text, err = f.ocrPage(ctx, doc, n)
			if err != nil {
				return "", err
			}
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	return strings.Join(pages, "\n"), nil
}

// ocrPage renders a scanned page and runs OCR on it
func (f *FitzReader) ocrPage(ctx context.Context, doc *fitz.Document, n int) (string, error) {
	img, err := doc.Image(n)
	if err != nil {
		return "", fmt.Errorf("rendering PDF page %d: %w", n+1, err)
	}
	pngData, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	text, err := f.ocr.Recognize(ctx, pngData)
	if err != nil {
		return "", fmt.Errorf("recognizing page %d: %w", n+1, err)
	}
	return text, nil
}
