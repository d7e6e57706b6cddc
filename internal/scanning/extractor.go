package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrNoText means the asset decoded but yielded no readable text
	ErrNoText = errors.New("no text found in document")
	// ErrUnsupportedKind means the asset kind has no extraction path
	ErrUnsupportedKind = errors.New("unsupported asset kind")
)

// ExtractedText is the plain text read from exactly one CapturedAsset
type ExtractedText struct {
	Raw string `json:"raw"`
}

// IsEmpty reports whether the text has no non-blank content
func (t ExtractedText) IsEmpty() bool {
	return strings.TrimSpace(t.Raw) == ""
}

// ExtractionError is returned when an asset cannot be read or decoded
type ExtractionError struct {
	Asset CapturedAsset
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting text from %s %q: %v", e.Asset.Kind, e.Asset.URI, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor turns a captured asset into plain text
type Extractor interface {
	Extract(ctx context.Context, asset CapturedAsset) (ExtractedText, error)
}

// ImageOCR recognises text in a PNG image
type ImageOCR interface {
	Recognize(ctx context.Context, png []byte) (string, error)
	Close() error
}

// DocumentReader reads the text of a PDF
type DocumentReader interface {
	ReadText(ctx context.Context, pdf []byte) (string, error)
}

// Dispatcher is the default Extractor. It routes photos through image
// normalisation and OCR, and PDFs through the DocumentReader.
type Dispatcher struct {
	loader Loader
	ocr    ImageOCR
	pdf    DocumentReader
	log    *slog.Logger
}

// NewDispatcher creates a Dispatcher. ocr may be nil, in which case photos
// cannot be extracted and scanned PDFs without embedded text fail.
func NewDispatcher(loader Loader, ocr ImageOCR) *Dispatcher {
	return NewDispatcherWithDeps(loader, ocr, NewFitzReader(ocr), slog.Default())
}

// NewDispatcherWithDeps creates a Dispatcher with a custom document reader and logger
func NewDispatcherWithDeps(loader Loader, ocr ImageOCR, pdf DocumentReader, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		loader: loader,
		ocr:    ocr,
		pdf:    pdf,
		log:    logger,
	}
}

// Extract reads the asset and returns its text. Every failure is an *ExtractionError.
func (d *Dispatcher) Extract(ctx context.Context, asset CapturedAsset) (ExtractedText, error) {
	fail := func(err error) (ExtractedText, error) {
		d.log.Error("Failed to extract text", "uri", asset.URI, "kind", asset.Kind, "error", err)
		return ExtractedText{}, &ExtractionError{Asset: asset, Err: err}
	}

	if asset.URI == "" {
		return fail(errors.New("empty asset handle"))
	}

	data, err := d.loader.Load(asset.URI)
	if err != nil {
		return fail(fmt.Errorf("loading asset: %w", err))
	}
	if len(data) == 0 {
		return fail(errors.New("asset is empty"))
	}

	var text string
	switch asset.Kind {
	case Photo:
		text, err = d.extractPhoto(ctx, data)
	case Document:
		text, err = d.pdf.ReadText(ctx, data)
	default:
		err = ErrUnsupportedKind
	}
	if err != nil {
		return fail(err)
	}

	text = NormalizeText(text)
	if text == "" {
		return fail(ErrNoText)
	}

	d.log.Info("Extracted text", "uri", asset.URI, "kind", asset.Kind, "chars", len([]rune(text)))
	return ExtractedText{Raw: text}, nil
}

func (d *Dispatcher) extractPhoto(ctx context.Context, data []byte) (string, error) {
	if d.ocr == nil {
		return "", errors.New("no OCR engine configured")
	}
	pngData, err := prepareImage(data, detectContentType(data))
	if err != nil {
		return "", err
	}
	text, err := d.ocr.Recognize(ctx, pngData)
	if err != nil {
		return "", fmt.Errorf("recognizing text: %w", err)
	}
	return text, nil
}
