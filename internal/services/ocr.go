package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/documenttextflow/internal/gcp"
	"github.com/Lllllllleong/documenttextflow/internal/models"
)

// ContentGenerator is the part of *genai.GenerativeModel the OCR service uses.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// OCRConfig holds all configuration for the OCR service.
type OCRConfig struct {
	ProjectID      string
	VertexAIRegion string
	Model          string
	APIKey         string
}

// LoadOCRConfig reads the OCR configuration from the environment. A missing
// PROJECT_ID is not an error here: it is reported on every OCR call instead.
func LoadOCRConfig() OCRConfig {
	return OCRConfig{
		ProjectID:      gcp.GetEnv("PROJECT_ID", ""),
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		Model:          gcp.GetEnv("OCR_MODEL", gcp.DefaultOCRModel),
		APIKey:         gcp.GetEnv("GEMINI_API_KEY", ""),
	}
}

// OCRService extracts text from images (and whole PDFs) with a Gemini model.
type OCRService struct {
	model        ContentGenerator
	vertexClient *gcp.VertexClient
}

// NewOCRService creates the OCR service and its Vertex AI client. Without a
// project ID the service is created unconfigured and every call fails with
// ErrConfiguration.
func NewOCRService(ctx context.Context, config OCRConfig) (*OCRService, error) {
	if config.ProjectID == "" {
		slog.Warn("PROJECT_ID is not set; OCR requests will fail until it is configured.")
		return &OCRService{}, nil
	}

	vertexClient, err := gcp.NewVertexClient(ctx, gcp.VertexConfig{
		ProjectID: config.ProjectID,
		Region:    config.VertexAIRegion,
		Model:     config.Model,
		APIKey:    config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	slog.Info("OCR service initialized.", "model", config.Model, "region", config.VertexAIRegion)
	return &OCRService{
		model:        vertexClient.OCRModel,
		vertexClient: vertexClient,
	}, nil
}

// NewOCRServiceWithModel wraps an already configured model. A nil model
// yields an unconfigured service.
func NewOCRServiceWithModel(model ContentGenerator) *OCRService {
	return &OCRService{model: model}
}

// Close releases the underlying Vertex AI client.
func (s *OCRService) Close() error {
	if s.vertexClient != nil {
		return s.vertexClient.Close()
	}
	return nil
}

// ExtractText transcribes data and returns the text. When the model returns
// nothing, the NoTextExtracted placeholder is returned with a nil error.
func (s *OCRService) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	text, err := s.Recognize(ctx, data, mimeType)
	if err != nil {
		return "", err
	}
	if text == "" {
		return NoTextExtracted, nil
	}
	return text, nil
}

// Recognize performs a single model call and returns the raw transcription,
// which is empty when the model found no text.
func (s *OCRService) Recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", invalidInput("Image data is empty.")
	}
	normalized, err := normalizeOCRMIMEType(mimeType)
	if err != nil {
		return "", err
	}
	if s.model == nil {
		return "", fmt.Errorf("%w: PROJECT_ID must be set", ErrConfiguration)
	}

	logCtx := loggerFor(ctx).With("mimeType", normalized, "bytes", len(data))
	logCtx.Info("Calling Gemini for text extraction.")

	resp, err := s.model.GenerateContent(ctx,
		genai.Blob{MIMEType: normalized, Data: data},
		genai.Text(gcp.OCRUserPrompt),
	)
	if err != nil {
		logCtx.Error("Call to Vertex AI for OCR failed", "error", err)
		return "", fmt.Errorf("%w: gemini generate content: %w", ErrService, err)
	}

	text := extractResponseText(resp)
	if text == "" {
		logCtx.Warn("Gemini returned no text.", "finishReason", finishReason(resp))
	}
	return text, nil
}

// normalizeOCRMIMEType validates mimeType and maps image/jpg to image/jpeg.
func normalizeOCRMIMEType(mimeType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case models.MIMETypePNG:
		return models.MIMETypePNG, nil
	case models.MIMETypeJPEG, models.MIMETypeJPG:
		return models.MIMETypeJPEG, nil
	case models.MIMETypePDF:
		return models.MIMETypePDF, nil
	default:
		return "", invalidInput("Unsupported image type %q.", mimeType)
	}
}

// extractResponseText concatenates the text parts of the first candidate.
func extractResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(sb.String())
	if strings.HasPrefix(text, "```") {
		// Drop a fence line such as ```text, then the closing fence.
		if _, rest, ok := strings.Cut(text, "\n"); ok {
			text = rest
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

func finishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return "no candidates"
	}
	return fmt.Sprint(resp.Candidates[0].FinishReason)
}
