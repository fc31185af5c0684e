package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Lllllllleong/documenttextflow/internal/gcp"
	"github.com/Lllllllleong/documenttextflow/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// ImageExtractor transcribes a single image.
type ImageExtractor interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// PDFExtractor extracts the text of a whole PDF.
type PDFExtractor interface {
	Extract(ctx context.Context, data []byte) (*models.ExtractionResult, error)
}

// FileKind is the pipeline an upload is dispatched to.
type FileKind int

const (
	KindUnsupported FileKind = iota
	KindImage
	KindPDF
)

// CoordinatorConfig holds configuration for the upload coordinator.
type CoordinatorConfig struct {
	OCRFunctionURL    string
	PDFFunctionURL    string
	FunctionAuth      bool
	ProgressRetention time.Duration
}

// LoadCoordinatorConfig reads the coordinator configuration from the environment.
// Empty function URLs mean the pipelines run in-process.
func LoadCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		OCRFunctionURL:    gcp.GetEnv("OCR_FUNCTION_URL", ""),
		PDFFunctionURL:    gcp.GetEnv("PDF_FUNCTION_URL", ""),
		FunctionAuth:      gcp.GetEnvBool("FUNCTION_AUTH", false),
		ProgressRetention: gcp.GetEnvDuration("PROGRESS_RETENTION", DefaultProgressTTL),
	}
}

// UploadCoordinator validates one uploaded file, dispatches it to the image or
// PDF pipeline and records its progress under the request ID.
type UploadCoordinator struct {
	images   ImageExtractor
	pdfs     PDFExtractor
	progress *ProgressTracker
	inflight singleflight.Group
}

// NewUploadCoordinator creates a coordinator. A nil tracker gets a default one.
func NewUploadCoordinator(images ImageExtractor, pdfs PDFExtractor, progress *ProgressTracker) *UploadCoordinator {
	if progress == nil {
		progress = NewProgressTracker(DefaultProgressTTL)
	}
	return &UploadCoordinator{images: images, pdfs: pdfs, progress: progress}
}

// NewRequestID returns a fresh request identifier.
func NewRequestID() string {
	return uuid.NewString()
}

// Progress exposes the coordinator's progress tracker.
func (c *UploadCoordinator) Progress() *ProgressTracker {
	return c.progress
}

// Classify maps a declared MIME type to the pipeline that handles it.
func Classify(mimeType string) FileKind {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case models.MIMETypePDF:
		return KindPDF
	case models.MIMETypePNG, models.MIMETypeJPEG, models.MIMETypeJPG:
		return KindImage
	}
	return KindUnsupported
}

// ValidateUpload rejects files that must never reach a pipeline.
func ValidateUpload(file models.UploadedFile) error {
	size := file.Size
	if n := int64(len(file.Content)); n > size {
		size = n
	}
	if size > models.MaxFileSize {
		return &InputError{Message: MsgFileTooLarge}
	}
	if Classify(file.MIMEType) == KindUnsupported {
		return &InputError{Message: MsgUnsupportedType}
	}
	if len(file.Content) == 0 {
		return &InputError{Message: MsgEmptyFile}
	}
	return nil
}

// Submit extracts the text of one file. Validation failures are returned
// before any pipeline is invoked and leave no progress entry behind.
func (c *UploadCoordinator) Submit(ctx context.Context, requestID string, file models.UploadedFile) (*models.ExtractionResult, error) {
	if requestID == "" {
		requestID = NewRequestID()
	}
	ctx = WithRequestID(ctx, requestID)
	logCtx := loggerFor(ctx).With("fileName", file.Name, "mimeType", file.MIMEType, "size", len(file.Content))

	if err := ValidateUpload(file); err != nil {
		logCtx.Warn("Rejected upload.", "error", err)
		return nil, err
	}

	c.progress.Start(requestID)
	logCtx.Info("Processing upload.")

	kind := Classify(file.MIMEType)
	key := dedupeKey(file)
	if kind == KindPDF {
		c.progress.Advance(requestID, ProgressPDFRead)
	} else {
		c.progress.Advance(requestID, ProgressImageRead)
	}

	// The shared call outlives any single caller; each caller stops waiting on its own context.
	sharedCtx := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(key, func() (any, error) {
		res, err := c.dispatch(sharedCtx, kind, file)
		if err == nil && res == nil {
			err = fmt.Errorf("%w: pipeline returned no result", ErrService)
		}
		return res, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		err := fmt.Errorf("upload abandoned: %w", ctx.Err())
		logCtx.Warn("Caller went away before extraction finished.", "error", err)
		c.progress.Fail(requestID, "Upload was cancelled.")
		return nil, err
	}
	if res.Err != nil {
		logCtx.Error("Extraction failed", "error", res.Err)
		c.progress.Fail(requestID, "Error processing file. Please try again.")
		return nil, res.Err
	}
	if res.Shared {
		logCtx.Info("Extraction shared with a concurrent identical upload.")
	}

	result := *res.Val.(*models.ExtractionResult)
	c.progress.Complete(requestID)
	logCtx.Info("Extraction complete.", "source", result.Source, "chars", len(result.Text))
	return &result, nil
}

func (c *UploadCoordinator) dispatch(ctx context.Context, kind FileKind, file models.UploadedFile) (*models.ExtractionResult, error) {
	switch kind {
	case KindPDF:
		if c.pdfs == nil {
			return nil, fmt.Errorf("%w: no PDF pipeline available", ErrConfiguration)
		}
		return c.pdfs.Extract(ctx, file.Content)
	case KindImage:
		if c.images == nil {
			return nil, fmt.Errorf("%w: no OCR service available", ErrConfiguration)
		}
		text, err := c.images.ExtractText(ctx, file.Content, file.MIMEType)
		if err != nil {
			return nil, err
		}
		return &models.ExtractionResult{Text: text, Source: models.SourceOCR}, nil
	}
	return nil, &InputError{Message: MsgUnsupportedType}
}

// dedupeKey identifies byte-identical uploads of the same type.
func dedupeKey(file models.UploadedFile) string {
	sum := sha256.Sum256(file.Content)
	return strings.ToLower(file.MIMEType) + ":" + hex.EncodeToString(sum[:])
}
