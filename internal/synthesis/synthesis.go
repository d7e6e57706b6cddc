// Package synthesis turns extracted course text into a structured study
// synthesis. A remote chat/completions model is tried first; any failure
// there falls back to a deterministic local template, so generation never
// fails for non-empty input.
package synthesis

import (
	"errors"
)

// Origin records which path produced a Synthesis
type Origin int

const (
	// OriginRemote means the body came from the remote model
	OriginRemote Origin = iota
	// OriginFallback means the body came from the local template
	OriginFallback
)

func (o Origin) String() string {
	switch o {
	case OriginRemote:
		return "remote"
	case OriginFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Synthesis is a structured, human-readable study summary
type Synthesis struct {
	Body   string `json:"body"`
	Origin Origin `json:"origin"`
}

var (
	// ErrEmptyText is returned when a synthesis is requested for empty text
	ErrEmptyText = errors.New("no extracted text to synthesize")
	// ErrRemoteFailure wraps every remote generation problem. It never
	// reaches callers of Generator.Generate.
	ErrRemoteFailure = errors.New("remote synthesis failed")
)
