package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

// --- OCR Model Prompts ---
const OCRSystemPrompt = "You are a precise transcription engine. You read documents, including handwritten notes, and return their text exactly as written."
const OCRUserPrompt = "Extract all text from this image. Focus on handwritten content and provide accurate transcription. Return only the extracted text without any additional commentary or description."

// DefaultOCRModel is the Gemini model used when OCR_MODEL is not set.
const DefaultOCRModel = "gemini-2.5-flash"

// VertexConfig is the read-only configuration of the Vertex AI client.
type VertexConfig struct {
	ProjectID string
	Region    string
	Model     string
	APIKey    string
}

// VertexClient holds the pre-configured OCR model.
type VertexClient struct {
	OCRModel   *genai.GenerativeModel
	baseClient *genai.Client
}

// NewVertexClient creates a new client holding the OCR model.
func NewVertexClient(ctx context.Context, cfg VertexConfig) (*VertexClient, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	var opts []option.ClientOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	baseClient, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultOCRModel
	}

	ocrModel := baseClient.GenerativeModel(modelName)
	ocrModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(OCRSystemPrompt)},
	}
	ocrModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		OCRModel:   ocrModel,
		baseClient: baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
