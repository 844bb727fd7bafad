package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/abenov/tenge-scan/internal/parsing"
	"github.com/abenov/tenge-scan/internal/transaction"
)

// stateResponse is the JSON shape of a session state.
type stateResponse struct {
	State         string                 `json:"state"`
	StatusMessage string                 `json:"status_message,omitempty"`
	Receipt       *parsing.ParsedReceipt `json:"receipt,omitempty"`
	Failure       *failureResponse       `json:"failure,omitempty"`
}

type failureResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func toStateResponse(state State) stateResponse {
	resp := stateResponse{
		State:         state.Kind.String(),
		StatusMessage: state.StatusMessage,
		Receipt:       state.Receipt,
	}
	if state.Failure != nil {
		resp.Failure = &failureResponse{
			Kind:    state.Failure.Kind.String(),
			Message: state.Failure.Message,
		}
	}
	return resp
}

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSONError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleScan accepts a receipt photo or statement PDF upload and runs the
// scan pipeline on it.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	// Max 50MB to handle high-resolution phone photos
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeJSONError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeJSONError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxFormSize {
		writeJSONError(w, "File is too large. Maximum size is 50MB.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSONError(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	// Retain the original upload next to the eventual transaction
	cleanName := transaction.SanitizeFilename(header.Filename)
	savedPath, err := s.storage.Save(fmt.Sprintf("%d_%s", time.Now().UnixNano(), cleanName), data)
	if err != nil {
		slog.Error("Error saving upload", "error", err, "filename", header.Filename)
		writeJSONError(w, "Error saving file", http.StatusInternalServerError)
		return
	}

	var state State
	var scanErr error
	if isPDF(header.Filename, header.Header.Get("Content-Type")) {
		state, scanErr = s.controller.ScanPDF(r.Context(), s.storage.Path(savedPath), header.Filename)
	} else {
		state, scanErr = s.controller.ScanImage(r.Context(), s.storage.Path(savedPath))
	}
	if scanErr != nil {
		if errors.Is(scanErr, ErrScanInProgress) {
			writeJSONError(w, scanErr.Error(), http.StatusConflict)
			return
		}
		writeJSONError(w, scanErr.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toStateResponse(state)); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleScanState returns the current session state
func (s *Server) handleScanState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toStateResponse(s.controller.State())); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleClearScan resets the session to idle
func (s *Server) handleClearScan(w http.ResponseWriter, r *http.Request) {
	s.controller.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// handleConfirm persists the current scan result with the caller-chosen
// category and note
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category parsing.Category `json:"category"`
		Note     string           `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Category == "" {
		req.Category = parsing.CategoryOther
	}

	id, err := s.controller.Confirm(req.Category, req.Note)
	if err != nil {
		if errors.Is(err, ErrNoResult) {
			writeJSONError(w, err.Error(), http.StatusConflict)
			return
		}
		slog.Error("Error confirming transaction", "error", err)
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

// handleListTransactions returns all stored transactions
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.db.ListTransactions()
	if err != nil {
		slog.Error("Error listing transactions", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(txns); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetTransaction returns a single transaction
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Transaction ID required", http.StatusBadRequest)
		return
	}
	txn, err := s.db.GetTransaction(id)
	if err != nil {
		corsError(w, "Transaction not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(txn); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleDeleteTransaction deletes a transaction
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Transaction ID required", http.StatusBadRequest)
		return
	}
	if err := s.db.DeleteTransaction(id); err != nil {
		corsError(w, "Error deleting transaction", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func isPDF(filename, contentType string) bool {
	if strings.EqualFold(strings.TrimSpace(contentType), "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}
