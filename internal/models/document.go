package models

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// MaxFileSize is the largest upload accepted for extraction (10 MiB, inclusive).
const MaxFileSize = 10 * 1024 * 1024

// Supported MIME types.
const (
	MIMETypePNG  = "image/png"
	MIMETypeJPEG = "image/jpeg"
	MIMETypeJPG  = "image/jpg"
	MIMETypePDF  = "application/pdf"
)

// Result sources reported in ExtractionResult.Source.
const (
	SourceOCR         = "ocr"
	SourceTextLayer   = "text-layer"
	SourceOCRFallback = "ocr-fallback"
	SourceRemote      = "remote"
)

// UploadedFile is a single user-selected file, held in memory for the lifetime of one request.
type UploadedFile struct {
	Name     string
	MIMEType string
	Size     int64
	Content  []byte
}

// ExtractionRequest carries file content as a base64 data URI plus its MIME type.
type ExtractionRequest struct {
	DataURI  string
	MIMEType string
}

// NewExtractionRequest encodes an uploaded file into a data URI payload.
func NewExtractionRequest(file UploadedFile) ExtractionRequest {
	return ExtractionRequest{
		DataURI:  EncodeDataURI(file.Content, file.MIMEType),
		MIMEType: file.MIMEType,
	}
}

// ExtractionResult is the outcome of exactly one pipeline invocation.
type ExtractionResult struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	PageCount int    `json:"pageCount,omitempty"`
}

// PageFragment is the text extracted from a single PDF page. Index is 1-based.
// Unmapped pages showed text in a font without a Unicode mapping; their Text is empty.
type PageFragment struct {
	Index    int
	Text     string
	Unmapped bool
}

// Progress states.
const (
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// Progress is the coarse progress of one request, keyed by its request ID.
type Progress struct {
	RequestID string
	Percent   int
	State     string
	Error     string
	UpdatedAt time.Time
}

// EncodeDataURI renders data as "data:<mime>;base64,<payload>".
func EncodeDataURI(data []byte, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// DecodeDataURI decodes a base64 data URI. A bare base64 payload without the
// "data:...," prefix is accepted as well. The MIME type is empty when the URI
// does not declare one.
func DecodeDataURI(uri string) ([]byte, string, error) {
	payload := strings.TrimSpace(uri)
	var mimeType string
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed data URI: missing payload separator")
		}
		meta := strings.TrimPrefix(header, "data:")
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("malformed data URI: payload is not base64 encoded")
		}
		mimeType = strings.TrimSuffix(meta, ";base64")
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	return data, mimeType, nil
}
