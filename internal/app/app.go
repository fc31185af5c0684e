// Package app wires configuration, clients and handlers for the function entry points.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Lllllllleong/documenttextflow/internal/gcp"
	"github.com/Lllllllleong/documenttextflow/internal/handlers"
	"github.com/Lllllllleong/documenttextflow/internal/services"
)

// Process-scoped clients, created once and never reconfigured.
var (
	ocrOnce    sync.Once
	ocrService *services.OCRService
	ocrErr     error

	objects = gcp.NewObjectReader()
)

// sharedOCR returns the process-wide OCR service.
func sharedOCR(ctx context.Context) (*services.OCRService, error) {
	ocrOnce.Do(func() {
		ocrService, ocrErr = services.NewOCRService(ctx, services.LoadOCRConfig())
	})
	return ocrService, ocrErr
}

// NewOCRHandler builds the OCR function handler.
func NewOCRHandler(ctx context.Context) (*handlers.OCRHandler, error) {
	ocr, err := sharedOCR(ctx)
	if err != nil {
		return nil, err
	}
	return &handlers.OCRHandler{OCR: ocr, Objects: objects}, nil
}

// NewPDFHandler builds the PDF function handler. The OCR fallback runs
// in-process unless OCR_FUNCTION_URL points at a deployed OCR function.
func NewPDFHandler(ctx context.Context) (*handlers.PDFHandler, error) {
	fallback, err := ocrFallback(ctx, services.LoadCoordinatorConfig())
	if err != nil {
		return nil, err
	}
	pipeline := services.NewPDFPipeline(services.PDFCPUTextLayer{}, fallback)
	return &handlers.PDFHandler{PDF: pipeline, Objects: objects}, nil
}

// NewUploadHandlers builds the upload and progress handlers around one coordinator.
func NewUploadHandlers(ctx context.Context) (*handlers.UploadHandler, *handlers.ProgressHandler, error) {
	cfg := services.LoadCoordinatorConfig()

	images, err := imageExtractor(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	pdfs, err := pdfExtractor(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	tracker := services.NewProgressTracker(cfg.ProgressRetention)
	coordinator := services.NewUploadCoordinator(images, pdfs, tracker)
	return &handlers.UploadHandler{Coordinator: coordinator}, &handlers.ProgressHandler{Tracker: tracker}, nil
}

func imageExtractor(ctx context.Context, cfg services.CoordinatorConfig) (services.ImageExtractor, error) {
	if cfg.OCRFunctionURL == "" {
		return sharedOCR(ctx)
	}
	client, err := services.NewFunctionHTTPClient(ctx, cfg.OCRFunctionURL, cfg.FunctionAuth)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR function client: %w", err)
	}
	return &services.RemoteOCR{URL: cfg.OCRFunctionURL, Client: client}, nil
}

func pdfExtractor(ctx context.Context, cfg services.CoordinatorConfig) (services.PDFExtractor, error) {
	if cfg.PDFFunctionURL != "" {
		client, err := services.NewFunctionHTTPClient(ctx, cfg.PDFFunctionURL, cfg.FunctionAuth)
		if err != nil {
			return nil, fmt.Errorf("failed to create PDF function client: %w", err)
		}
		return &services.RemotePDF{URL: cfg.PDFFunctionURL, Client: client}, nil
	}

	fallback, err := ocrFallback(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return services.NewPDFPipeline(services.PDFCPUTextLayer{}, fallback), nil
}

func ocrFallback(ctx context.Context, cfg services.CoordinatorConfig) (services.Recognizer, error) {
	if cfg.OCRFunctionURL == "" {
		return sharedOCR(ctx)
	}
	client, err := services.NewFunctionHTTPClient(ctx, cfg.OCRFunctionURL, cfg.FunctionAuth)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR function client: %w", err)
	}
	slog.Info("PDF OCR fallback uses remote function.", "url", cfg.OCRFunctionURL)
	return &services.RemoteOCR{URL: cfg.OCRFunctionURL, Client: client}, nil
}
