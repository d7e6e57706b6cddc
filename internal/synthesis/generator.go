package synthesis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/zombor/study-scan/internal/scanning"
)

// Remote produces a synthesis body from text using an external service
type Remote interface {
	Complete(ctx context.Context, text string) (string, error)
}

// Generator produces a Synthesis, remote first and local fallback second
type Generator struct {
	remote  Remote
	timeout time.Duration
	log     *slog.Logger
}

// NewGenerator creates a Generator. A nil remote makes every synthesis a fallback.
func NewGenerator(remote Remote) *Generator {
	return NewGeneratorWithDeps(remote, 30*time.Second, slog.Default())
}

// NewGeneratorWithDeps creates a Generator with a custom remote timeout and logger
func NewGeneratorWithDeps(remote Remote, timeout time.Duration, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		remote:  remote,
		timeout: timeout,
		log:     logger,
	}
}

// Generate returns a synthesis of text. The only error is ErrEmptyText, for
// an empty string; remote failures of any kind are absorbed by the fallback.
func (g *Generator) Generate(ctx context.Context, text scanning.ExtractedText) (Synthesis, error) {
	if text.Raw == "" {
		return Synthesis{}, ErrEmptyText
	}

	if g.remote != nil {
		body, err := g.callRemote(ctx, text.Raw)
		if err == nil {
			return Synthesis{Body: body, Origin: OriginRemote}, nil
		}
		g.log.Warn("Using fallback synthesis", "error", err)
	}

	return Synthesis{Body: Fallback(text.Raw), Origin: OriginFallback}, nil
}

func (g *Generator) callRemote(ctx context.Context, raw string) (body string, err error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			body, err = "", ErrRemoteFailure
			g.log.Error("Remote synthesis panicked", "panic", r)
		}
	}()

	body, err = g.remote.Complete(ctx, raw)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(body) == "" {
		return "", ErrRemoteFailure
	}
	return body, nil
}
