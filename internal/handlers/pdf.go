package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/documenttextflow/internal/models"
	"github.com/Lllllllleong/documenttextflow/internal/services"
)

const (
	msgMissingPDF = "No file data provided"
	msgPDFFailed  = "Failed to process PDF"
)

// PDFHandler serves the PDF function: {fileData|gcsUri} -> {text}.
type PDFHandler struct {
	PDF     services.PDFExtractor
	Objects ObjectSource
}

func (h *PDFHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx := requestContext(r)
	logCtx := slog.With("requestId", services.RequestIDFrom(ctx))

	var req models.PDFRequest
	if status, err := decodeJSON(w, r, &req); err != nil {
		logCtx.Warn("Could not decode PDF request body.", "error", err)
		writeError(w, status, msgMissingPDF)
		return
	}
	if req.FileData == "" && req.GCSUri == "" {
		logCtx.Warn("Missing file data.")
		writeError(w, http.StatusBadRequest, msgMissingPDF)
		return
	}

	data, status, err := loadPayload(ctx, h.Objects, req.FileData, req.GCSUri)
	if err != nil {
		logCtx.Warn("Could not load PDF payload.", "error", err, "gcsUri", req.GCSUri)
		if status == http.StatusBadRequest {
			writeError(w, status, msgMissingPDF)
		} else {
			writeError(w, status, msgPDFFailed)
		}
		return
	}

	result, err := h.PDF.Extract(ctx, data)
	if err != nil {
		logCtx.Error("PDF route top-level error", "error", err)
		writePipelineError(w, err, msgPDFFailed)
		return
	}

	logCtx.Info("PDF extraction done.", "source", result.Source, "pageCount", result.PageCount)
	writeJSON(w, http.StatusOK, models.TextResponse{Text: result.Text})
}
