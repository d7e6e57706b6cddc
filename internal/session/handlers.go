package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/zombor/study-scan/internal/scanning"
	"github.com/zombor/study-scan/internal/synthesis"
)

const maxUploadSize = int64(50 << 20) // 50MB, enough for full-resolution phone photos

// corsError writes a plain error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// statusFor maps session errors onto HTTP status codes
func statusFor(err error) int {
	var extractionErr *scanning.ExtractionError
	switch {
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrSuperseded):
		return http.StatusConflict
	case errors.As(err, &extractionErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, synthesis.ErrEmptyText):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeSessionError reports err alongside the session snapshot
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{
		"error":   err.Error(),
		"session": s.session.Snapshot(),
	})
}

// handleGetSession returns the session snapshot
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleRequestScan moves the session to awaiting_source
func (s *Server) handleRequestScan(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RequestScan(); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleCancel abandons asset acquisition
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Cancel(); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleReceiveAsset stores the uploaded document and runs extraction. Rejected
// uploads do not stay in storage.
func (s *Server) handleReceiveAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeError(w, http.StatusBadRequest, errorMsg)
		return
	}

	// Uploads outside a scan are rejected before anything is written
	if state := s.session.Snapshot().State; state != AwaitingSource {
		s.writeSessionError(w, fmt.Errorf("%w: asset received while %s", ErrInvalidTransition, state))
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		writeError(w, http.StatusBadRequest, errorMsg)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	kind, err := uploadKind(r.FormValue("kind"), header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := fmt.Sprintf("%s_%s", uuid.NewString(), scanning.SanitizeFilename(header.Filename))
	uri, err := s.storage.Save(name, data)
	if err != nil {
		slog.Error("Error saving upload", "filename", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Error storing file. Please try again.")
		return
	}

	if _, err := s.session.ReceiveAsset(r.Context(), scanning.CapturedAsset{URI: uri, Kind: kind}); err != nil {
		// The asset was never accepted, so nothing else refers to the file
		if delErr := s.storage.Delete(uri); delErr != nil {
			slog.Error("Error deleting rejected upload", "uri", uri, "error", delErr)
		}
		s.writeSessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// uploadKind picks the asset kind from an explicit form value, the part's
// content type, or the file extension, in that order
func uploadKind(explicit, contentType, filename string) (scanning.Kind, error) {
	if explicit != "" {
		kind, err := scanning.ParseKind(explicit)
		if err != nil {
			return 0, fmt.Errorf("invalid kind %q: %w", explicit, err)
		}
		return kind, nil
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType != "" && contentType != "application/octet-stream" {
		return scanning.KindFromContentType(contentType), nil
	}
	return scanning.KindFromFilename(filepath.Base(filename)), nil
}

// handleRequestSynthesis generates a synthesis of the extracted text
func (s *Server) handleRequestSynthesis(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.RequestSynthesis(r.Context()); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleDismissSynthesis closes the synthesis and returns to ready
func (s *Server) handleDismissSynthesis(w http.ResponseWriter, r *http.Request) {
	if err := s.session.DismissSynthesis(); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleReset returns the session to idle
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleGetSynthesis returns the synthesis body as markdown or rendered HTML
func (s *Server) handleGetSynthesis(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	if snap.Synthesis == nil {
		corsError(w, "No synthesis available", http.StatusNotFound)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("X-Synthesis-Origin", snap.Synthesis.Origin.String())

	switch r.URL.Query().Get("format") {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, snap.Synthesis.Body)
	case "html":
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(snap.Synthesis.Body), &buf); err != nil {
			slog.Error("Error rendering synthesis", "error", err)
			corsError(w, "Error rendering synthesis", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	default:
		corsError(w, "Unknown format", http.StatusBadRequest)
	}
}
