package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/receipt-splitter/internal/parsing"
)

// maxUploadSize bounds receipt uploads; phone photos are large
const maxUploadSize = int64(50 << 20)

// maxWordsSize bounds the JSON body of a parse request
const maxWordsSize = int64(5 << 20)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// writeServiceError maps a service error onto a status code
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, "Receipt not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidInput):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("Error handling request", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// contentTypeFor guesses a MIME type from the upload's extension
func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleListReceipts returns a list of all receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleUploadReceipt handles receipt upload
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		writeError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFor(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	receipt, err := s.service.ProcessReceipt(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing receipt", "filename", header.Filename, "error", err)
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns the file for a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, "File not found", http.StatusNotFound)
			return
		}
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleUpdateTotals applies manual corrections to a receipt's totals
func (s *Server) handleUpdateTotals(w http.ResponseWriter, r *http.Request) {
	var req TotalsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	receipt, err := s.service.UpdateTotals(r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleUpdateItem applies manual corrections to one line item
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(r.PathValue("position"))
	if err != nil {
		writeError(w, "Invalid item position", http.StatusBadRequest)
		return
	}

	var req ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	receipt, err := s.service.UpdateItem(r.PathValue("id"), position, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleReprocessReceipt re-runs detection and parsing on a stored receipt
func (s *Server) handleReprocessReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.ReprocessReceipt(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeServiceError(w, err)
			return
		}
		slog.Error("Error reprocessing receipt", "id", r.PathValue("id"), "error", err)
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleParseWords parses a JSON array of detected words without storing
// anything
func (s *Server) handleParseWords(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWordsSize)

	var words []parsing.Word
	if err := json.NewDecoder(r.Body).Decode(&words); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.service.ParseWords(words))
}
