package scanning

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSource is an AssetSource backed by a path on the local filesystem.
// An empty Path behaves like a cancelled picker.
type FileSource struct {
	Path string
}

// Acquire resolves the configured path into a CapturedAsset
func (f FileSource) Acquire(ctx context.Context, intent Intent) (CapturedAsset, error) {
	if err := ctx.Err(); err != nil {
		return CapturedAsset{}, err
	}
	if f.Path == "" {
		return CapturedAsset{}, ErrSelectionCancelled
	}

	abs, err := filepath.Abs(f.Path)
	if err != nil {
		return CapturedAsset{}, fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return CapturedAsset{}, fmt.Errorf("stat asset: %w", err)
	}
	if info.IsDir() {
		return CapturedAsset{}, fmt.Errorf("asset %s is a directory", abs)
	}

	kind := KindFromFilename(abs)
	if intent == PickDocument && kind != Document {
		return CapturedAsset{}, fmt.Errorf("%s is not a PDF: %w", abs, ErrUnsupportedKind)
	}

	return CapturedAsset{URI: abs, Kind: kind}, nil
}
