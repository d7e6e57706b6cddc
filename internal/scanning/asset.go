package scanning

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// Kind is the type of a captured document
type Kind int

const (
	// Photo is a camera capture or gallery image
	Photo Kind = iota
	// Document is a PDF
	Document
)

func (k Kind) String() string {
	switch k {
	case Photo:
		return "photo"
	case Document:
		return "document"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind parses "photo" or "document"
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "photo", "image":
		return Photo, nil
	case "document", "pdf":
		return Document, nil
	default:
		return 0, ErrUnsupportedKind
	}
}

// KindFromContentType maps a MIME type to a Kind
func KindFromContentType(contentType string) Kind {
	if strings.ToLower(strings.TrimSpace(contentType)) == "application/pdf" {
		return Document
	}
	return Photo
}

// KindFromFilename maps a file extension to a Kind
func KindFromFilename(name string) Kind {
	if strings.ToLower(filepath.Ext(name)) == ".pdf" {
		return Document
	}
	return Photo
}

// CapturedAsset is a handle to a document produced by an AssetSource.
// It is immutable once created.
type CapturedAsset struct {
	URI  string `json:"uri"`
	Kind Kind   `json:"kind"`
}

// Intent is what the user asked the AssetSource for
type Intent int

const (
	TakePhoto Intent = iota
	PickImage
	PickDocument
)

// ErrSelectionCancelled is returned by an AssetSource when the user abandons acquisition
var ErrSelectionCancelled = errors.New("selection cancelled")

// AssetSource produces captured documents (camera, gallery, file picker)
type AssetSource interface {
	// Acquire blocks until the user supplies an asset or cancels
	Acquire(ctx context.Context, intent Intent) (CapturedAsset, error)
}
