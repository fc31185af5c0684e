package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/documenttextflow/internal/models"
	"github.com/Lllllllleong/documenttextflow/internal/services"
)

const (
	msgMissingImage = "Missing image data or mime type"
	msgImageFailed  = "Failed to process image"
)

// OCRHandler serves the OCR function: {imageData|gcsUri, mimeType} -> {text}.
type OCRHandler struct {
	OCR     services.ImageExtractor
	Objects ObjectSource
}

func (h *OCRHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ctx := requestContext(r)
	logCtx := slog.With("requestId", services.RequestIDFrom(ctx))

	var req models.OCRRequest
	if status, err := decodeJSON(w, r, &req); err != nil {
		logCtx.Warn("Could not decode OCR request body.", "error", err)
		writeError(w, status, msgMissingImage)
		return
	}
	if (req.ImageData == "" && req.GCSUri == "") || req.MIMEType == "" {
		writeError(w, http.StatusBadRequest, msgMissingImage)
		return
	}

	data, status, err := loadPayload(ctx, h.Objects, req.ImageData, req.GCSUri)
	if err != nil {
		logCtx.Warn("Could not load image payload.", "error", err, "gcsUri", req.GCSUri)
		if status == http.StatusBadRequest {
			writeError(w, status, msgMissingImage)
		} else {
			writeError(w, status, msgImageFailed)
		}
		return
	}

	text, err := h.OCR.ExtractText(ctx, data, req.MIMEType)
	if err != nil {
		logCtx.Error("OCR API error", "error", err)
		writePipelineError(w, err, msgImageFailed)
		return
	}

	writeJSON(w, http.StatusOK, models.TextResponse{Text: text})
}
