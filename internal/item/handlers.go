package item

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/freshtrack/freshtrack/internal/scanning"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error payload with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// analyzeErrorMessage maps extraction failures to the generic user-facing
// messages; raw model output never leaves the logs
func analyzeErrorMessage(err error) string {
	switch {
	case errors.Is(err, scanning.ErrNoJSONFound), errors.Is(err, scanning.ErrMalformedJSON):
		return "Invalid response format"
	case errors.Is(err, scanning.ErrEmptyResult):
		return "Failed to analyze receipt"
	default:
		return "Failed to process receipt"
	}
}

// handleAnalyzeReceipt accepts a receipt photo upload and returns the
// extracted item list sorted by expiry date
func (s *Server) handleAnalyzeReceipt(w http.ResponseWriter, r *http.Request) {
	// Max 50MB to handle high-resolution phone photos
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("receipt")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if err.Error() == "http: no such file" {
			errorMsg = "No receipt was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxFormSize {
		jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		switch ext {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	// Preserve HEIC/HEIF MIME types so conversion logic can detect them
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	analysis, err := s.service.AnalyzeReceipt(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error analyzing receipt", "filename", header.Filename, "error", err)
		jsonError(w, analyzeErrorMessage(err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(analysis); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleSaveItems persists an extracted batch for a recipient
func (s *Server) handleSaveItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiptID string              `json:"receipt_id"`
		Items     []scanning.ItemData `json:"items"`
		Email     string              `json:"email"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := s.service.SaveItems(req.ReceiptID, req.Items, req.Email)
	if err != nil {
		slog.Error("Error saving items", "error", err)
		jsonError(w, "Failed to save items", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(saved); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListItems returns all items with their computed freshness
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	views, err := s.service.ListItems()
	if err != nil {
		slog.Error("Error listing items", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleDeleteItem deletes an item
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Item ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteItem(id); err != nil {
		corsError(w, "Error deleting item", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleShiftItems rewrites the purchase date of a pending batch
func (s *Server) handleShiftItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items        []scanning.ItemData `json:"items"`
		PurchaseDate string              `json:"purchase_date"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	shifted, err := s.service.ShiftItems(req.Items, req.PurchaseDate)
	if err != nil {
		jsonError(w, "Invalid purchase date", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(shifted); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleListReceipts returns all stored receipt records
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if receipts == nil {
		receipts = []*Receipt{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(receipts); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetReceiptFile returns the stored image for a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Receipt ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.GetReceiptFile(id)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleSendNotifications runs one scan-and-dispatch pass. The run reports
// success when the scan completes; individual delivery failures are logged
// by the scheduler and reflected in the summary only.
func (s *Server) handleSendNotifications(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		jsonError(w, "Notifications are not configured", http.StatusServiceUnavailable)
		return
	}

	summary, err := s.scheduler.Run()
	if err != nil {
		slog.Error("Notification run failed", "error", err)
		jsonError(w, "Failed to send notifications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"summary": summary,
	}); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleTime returns the server's notion of now, for debugging timezone
// issues with expiry matching
func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	zone, _ := now.Zone()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"utc":       now.UTC().Format(time.RFC3339),
		"local":     now.Format(time.RFC3339),
		"timezone":  zone,
		"timestamp": now.UnixMilli(),
	}); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}
