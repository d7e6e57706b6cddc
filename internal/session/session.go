// Package session owns the capture → extraction → synthesis flow for a
// single user and exposes it over HTTP.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/zombor/study-scan/internal/scanning"
	"github.com/zombor/study-scan/internal/synthesis"
)

var (
	// ErrInvalidTransition is returned when a command is not allowed in the current state
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrSuperseded is returned when the session was reset while a stage was running;
	// the stage's result has been discarded
	ErrSuperseded = errors.New("session was reset")
)

// Generator produces a synthesis from extracted text
type Generator interface {
	Generate(ctx context.Context, text scanning.ExtractedText) (synthesis.Synthesis, error)
}

// Snapshot is a read-only view of a session
type Snapshot struct {
	ID        string                  `json:"id"`
	State     State                   `json:"state"`
	Asset     *scanning.CapturedAsset `json:"asset,omitempty"`
	Text      *scanning.ExtractedText `json:"text,omitempty"`
	Synthesis *synthesis.Synthesis    `json:"synthesis,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// Observer is called with a snapshot after every transition
type Observer func(Snapshot)

// Session is the state machine for one scanning session. The asset, text
// and synthesis are only ever written here, under mu.
type Session struct {
	mu        sync.Mutex
	id        string
	state     State
	epoch     uint64
	asset     *scanning.CapturedAsset
	text      *scanning.ExtractedText
	synthesis *synthesis.Synthesis
	lastErr   error

	// observer delivery queue, guarded by mu
	pending  []Snapshot
	draining bool

	extractor scanning.Extractor
	generator Generator
	observer  Observer
	log       *slog.Logger
}

// New creates an Idle session
func New(extractor scanning.Extractor, generator Generator) *Session {
	return NewWithDeps(extractor, generator, nil, slog.Default())
}

// NewWithDeps creates an Idle session with an observer and logger
func NewWithDeps(extractor scanning.Extractor, generator Generator, observer Observer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:        uuid.NewString(),
		state:     Idle,
		extractor: extractor,
		generator: generator,
		observer:  observer,
		log:       logger,
	}
}

// Snapshot returns the current state and data
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{ID: s.id, State: s.state}
	if s.asset != nil {
		a := *s.asset
		snap.Asset = &a
	}
	if s.text != nil {
		t := *s.text
		snap.Text = &t
	}
	if s.synthesis != nil {
		syn := *s.synthesis
		snap.Synthesis = &syn
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	return snap
}

// setStateLocked moves to next and queues the snapshot for the observer.
// Snapshots are queued in transition order because every transition holds mu.
func (s *Session) setStateLocked(next State) Snapshot {
	s.log.Debug("Session transition", "session_id", s.id, "from", s.state, "to", next)
	s.state = next
	snap := s.snapshotLocked()
	if s.observer != nil {
		s.pending = append(s.pending, snap)
	}
	return snap
}

// publish delivers queued snapshots to the observer outside mu. Only one
// goroutine drains at a time, so the observer sees transitions in order and is
// never called concurrently. A snapshot queued while another goroutine is
// draining is delivered by that goroutine, possibly after publish returns.
func (s *Session) publish() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()
		for _, snap := range batch {
			s.observer(snap)
		}
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
}

func (s *Session) invalid(command string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, command, s.state)
}

// clearLocked drops the asset, text and synthesis together
func (s *Session) clearLocked() {
	s.asset = nil
	s.text = nil
	s.synthesis = nil
}

// RequestScan moves Idle → AwaitingSource
func (s *Session) RequestScan() error {
	s.mu.Lock()
	if s.state != Idle {
		err := s.invalid("scan requested")
		s.mu.Unlock()
		return err
	}
	s.lastErr = nil
	s.setStateLocked(AwaitingSource)
	s.mu.Unlock()

	s.publish()
	return nil
}

// Cancel moves AwaitingSource → Idle without producing an asset
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.state != AwaitingSource {
		err := s.invalid("selection cancelled")
		s.mu.Unlock()
		return err
	}
	s.clearLocked()
	snap := s.setStateLocked(Idle)
	s.mu.Unlock()

	s.log.Info("Selection cancelled", "session_id", snap.ID)
	s.publish()
	return nil
}

// ReceiveAsset records the asset, then runs extraction. On success the
// session is Ready; on failure it returns to Idle and the ExtractionError is
// both returned and kept on the snapshot.
func (s *Session) ReceiveAsset(ctx context.Context, asset scanning.CapturedAsset) (scanning.ExtractedText, error) {
	s.mu.Lock()
	if s.state != AwaitingSource {
		err := s.invalid("asset received")
		s.mu.Unlock()
		return scanning.ExtractedText{}, err
	}
	s.asset = &asset
	s.setStateLocked(Captured)
	s.setStateLocked(Extracting)
	epoch := s.epoch
	id := s.id
	s.mu.Unlock()

	s.publish()
	s.log.Info("Extracting text", "session_id", id, "kind", asset.Kind, "uri", asset.URI)

	text, err := s.extractor.Extract(ctx, asset)
	if err == nil && text.IsEmpty() {
		err = &scanning.ExtractionError{Asset: asset, Err: scanning.ErrNoText}
	}
	if err != nil {
		var extractionErr *scanning.ExtractionError
		if !errors.As(err, &extractionErr) {
			err = &scanning.ExtractionError{Asset: asset, Err: err}
		}
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.log.Info("Discarding extraction result after reset", "session_id", id)
		return scanning.ExtractedText{}, ErrSuperseded
	}
	if err != nil {
		s.clearLocked()
		s.lastErr = err
		s.setStateLocked(Idle)
	} else {
		s.text = &text
		s.setStateLocked(Ready)
	}
	s.mu.Unlock()

	s.publish()
	if err != nil {
		s.log.Warn("Extraction failed", "session_id", id, "error", err)
		return scanning.ExtractedText{}, err
	}
	return text, nil
}

// RequestSynthesis moves Ready → Generating → SynthesisReady. With no
// extracted text it returns synthesis.ErrEmptyText and stays Ready.
func (s *Session) RequestSynthesis(ctx context.Context) (synthesis.Synthesis, error) {
	s.mu.Lock()
	if s.state != Ready {
		err := s.invalid("synthesis requested")
		s.mu.Unlock()
		return synthesis.Synthesis{}, err
	}
	if s.text == nil || s.text.Raw == "" {
		s.lastErr = synthesis.ErrEmptyText
		s.mu.Unlock()
		return synthesis.Synthesis{}, synthesis.ErrEmptyText
	}
	text := *s.text
	s.lastErr = nil
	s.setStateLocked(Generating)
	epoch := s.epoch
	id := s.id
	s.mu.Unlock()

	s.publish()

	result, err := s.generator.Generate(ctx, text)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.log.Info("Discarding synthesis after reset", "session_id", id)
		return synthesis.Synthesis{}, ErrSuperseded
	}
	if err != nil {
		// Generators only fail on empty text, ruled out above
		s.lastErr = err
		s.setStateLocked(Ready)
	} else {
		s.synthesis = &result
		s.setStateLocked(SynthesisReady)
	}
	s.mu.Unlock()

	s.publish()
	if err != nil {
		s.log.Error("Synthesis failed", "session_id", id, "error", err)
		return synthesis.Synthesis{}, err
	}
	s.log.Info("Synthesis ready", "session_id", id, "origin", result.Origin)
	return result, nil
}

// DismissSynthesis moves SynthesisReady → Ready, keeping the asset and text
func (s *Session) DismissSynthesis() error {
	s.mu.Lock()
	if s.state != SynthesisReady {
		err := s.invalid("dismiss synthesis")
		s.mu.Unlock()
		return err
	}
	s.synthesis = nil
	s.setStateLocked(Ready)
	s.mu.Unlock()

	s.publish()
	return nil
}

// Reset returns to Idle from any state and clears everything. Stages still
// running will have their results discarded. A new session id is issued.
func (s *Session) Reset() {
	s.mu.Lock()
	s.epoch++
	s.clearLocked()
	s.lastErr = nil
	s.id = uuid.NewString()
	snap := s.setStateLocked(Idle)
	s.mu.Unlock()

	s.log.Info("Session reset", "session_id", snap.ID)
	s.publish()
}

// Scan runs the capture part of the flow against an AssetSource:
// scan requested, acquisition, then extraction. A cancelled selection
// returns scanning.ErrSelectionCancelled with the session back in Idle.
func (s *Session) Scan(ctx context.Context, source scanning.AssetSource, intent scanning.Intent) (scanning.ExtractedText, error) {
	if err := s.RequestScan(); err != nil {
		return scanning.ExtractedText{}, err
	}

	asset, err := source.Acquire(ctx, intent)
	if err != nil {
		s.abandonAcquisition(err)
		if errors.Is(err, scanning.ErrSelectionCancelled) {
			return scanning.ExtractedText{}, err
		}
		return scanning.ExtractedText{}, fmt.Errorf("acquiring asset: %w", err)
	}

	return s.ReceiveAsset(ctx, asset)
}

// abandonAcquisition returns an AwaitingSource session to Idle. Anything other
// than a user cancel is kept on the snapshot.
func (s *Session) abandonAcquisition(err error) {
	s.mu.Lock()
	if s.state != AwaitingSource {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	if !errors.Is(err, scanning.ErrSelectionCancelled) {
		s.lastErr = err
	}
	snap := s.setStateLocked(Idle)
	s.mu.Unlock()

	s.log.Info("Acquisition ended without an asset", "session_id", snap.ID, "error", err)
	s.publish()
}
