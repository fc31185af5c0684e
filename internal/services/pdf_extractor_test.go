package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Lllllllleong/documenttextflow/internal/models"
)

type stubTextLayer struct {
	fragments []models.PageFragment
	err       error
	calls     int
}

func (s *stubTextLayer) ReadPages(data []byte) ([]models.PageFragment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.PageFragment, len(s.fragments))
	copy(out, s.fragments)
	return out, nil
}

type stubRecognizer struct {
	text     string
	err      error
	calls    int
	data     []byte
	mimeType string
}

func (s *stubRecognizer) Recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	s.calls++
	s.data = data
	s.mimeType = mimeType
	return s.text, s.err
}

func TestPDFPipeline_TextLayerSkipsOCR(t *testing.T) {
	layer := &stubTextLayer{fragments: []models.PageFragment{
		{Index: 1, Text: "Page1Text"},
		{Index: 2, Text: "Page2Text"},
	}}
	ocr := &stubRecognizer{text: "should not be used"}
	pipeline := NewPDFPipeline(layer, ocr)

	result, err := pipeline.Extract(context.Background(), []byte("%PDF-1.4 two pages"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ocr.calls != 0 {
		t.Errorf("OCR calls = %d, want 0", ocr.calls)
	}

	want := "\n--- Page 1 ---\nPage1Text\n--- Page 2 ---\nPage2Text"
	if result.Text != want {
		t.Errorf("text = %q, want %q", result.Text, want)
	}
	if result.Source != models.SourceTextLayer || result.PageCount != 2 {
		t.Errorf("source = %q pages = %d", result.Source, result.PageCount)
	}
	if strings.Index(result.Text, "Page1Text") > strings.Index(result.Text, "Page2Text") {
		t.Error("pages out of order")
	}
}

func TestPDFPipeline_PagesAreOrderedByIndex(t *testing.T) {
	layer := &stubTextLayer{fragments: []models.PageFragment{
		{Index: 3, Text: "third"},
		{Index: 1, Text: "first"},
		{Index: 2, Text: ""},
	}}
	pipeline := NewPDFPipeline(layer, &stubRecognizer{})

	result, err := pipeline.Extract(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "\n--- Page 1 ---\nfirst\n--- Page 2 ---\n\n--- Page 3 ---\nthird"
	if result.Text != want {
		t.Errorf("text = %q, want %q", result.Text, want)
	}
}

func TestPDFPipeline_EmptyTextLayerFallsBackToOCR(t *testing.T) {
	scanned := []byte("%PDF-1.4 scanned image only")
	layer := &stubTextLayer{fragments: []models.PageFragment{
		{Index: 1, Text: ""},
		{Index: 2, Text: "   \n\t"},
	}}
	ocr := &stubRecognizer{text: "Handwritten shopping list"}
	pipeline := NewPDFPipeline(layer, ocr)

	result, err := pipeline.Extract(context.Background(), scanned)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ocr.calls != 1 {
		t.Fatalf("OCR calls = %d, want 1", ocr.calls)
	}
	if !bytes.Equal(ocr.data, scanned) {
		t.Error("OCR fallback must receive the original PDF bytes")
	}
	if ocr.mimeType != models.MIMETypePDF {
		t.Errorf("OCR mime = %q, want %q", ocr.mimeType, models.MIMETypePDF)
	}
	if result.Text != "Handwritten shopping list" {
		t.Errorf("text = %q", result.Text)
	}
	if result.Source != models.SourceOCRFallback {
		t.Errorf("source = %q", result.Source)
	}
}

func TestPDFPipeline_ParseFailureFallsBackToOCR(t *testing.T) {
	for name, parseErr := range map[string]error{
		"corrupt":     fmt.Errorf("%w: xref table broken", errPDFParse),
		"other error": errors.New("reader exploded"),
	} {
		t.Run(name, func(t *testing.T) {
			ocr := &stubRecognizer{text: "recovered by OCR"}
			pipeline := NewPDFPipeline(&stubTextLayer{err: parseErr}, ocr)

			result, err := pipeline.Extract(context.Background(), []byte("not a pdf"))
			if err != nil {
				t.Fatalf("parse errors must not surface, got %v", err)
			}
			if ocr.calls != 1 {
				t.Errorf("OCR calls = %d, want 1", ocr.calls)
			}
			if result.Text != "recovered by OCR" {
				t.Errorf("text = %q", result.Text)
			}
		})
	}
}

func TestPDFPipeline_EmptyOCRResultYieldsPlaceholder(t *testing.T) {
	ocr := &stubRecognizer{text: "  "}
	pipeline := NewPDFPipeline(&stubTextLayer{}, ocr)

	result, err := pipeline.Extract(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Text != NoReadableText {
		t.Errorf("text = %q, want %q", result.Text, NoReadableText)
	}
	if ocr.calls != 1 {
		t.Errorf("OCR calls = %d, want 1", ocr.calls)
	}
}

func TestPDFPipeline_OCRFailureIsFatal(t *testing.T) {
	for name, ocrErr := range map[string]error{
		"service":       fmt.Errorf("%w: unavailable", ErrService),
		"configuration": fmt.Errorf("%w: PROJECT_ID must be set", ErrConfiguration),
	} {
		t.Run(name, func(t *testing.T) {
			pipeline := NewPDFPipeline(&stubTextLayer{}, &stubRecognizer{err: ocrErr})

			result, err := pipeline.Extract(context.Background(), []byte("%PDF"))
			if err == nil {
				t.Fatalf("expected error, got result %+v", result)
			}
			if !errors.Is(err, ocrErr) {
				t.Errorf("err = %v, want it to wrap %v", err, ocrErr)
			}
			if result != nil {
				t.Errorf("no partial result expected, got %+v", result)
			}
		})
	}
}

func TestPDFPipeline_WithoutOCRFallbackIsConfigurationError(t *testing.T) {
	pipeline := NewPDFPipeline(&stubTextLayer{}, nil)
	_, err := pipeline.Extract(context.Background(), []byte("%PDF"))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestPDFPipeline_EmptyInputIsRejected(t *testing.T) {
	layer := &stubTextLayer{}
	ocr := &stubRecognizer{}
	_, err := NewPDFPipeline(layer, ocr).Extract(context.Background(), nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if layer.calls != 0 || ocr.calls != 0 {
		t.Errorf("no work expected, got %d parses and %d OCR calls", layer.calls, ocr.calls)
	}
}

func TestPDFPipeline_IsDeterministic(t *testing.T) {
	layer := &stubTextLayer{fragments: []models.PageFragment{
		{Index: 2, Text: "beta"},
		{Index: 1, Text: "alpha"},
		{Index: 3, Text: "gamma"},
	}}
	pipeline := NewPDFPipeline(layer, &stubRecognizer{})
	data := []byte("%PDF same bytes")

	first, err := pipeline.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	second, err := pipeline.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if first.Text != second.Text {
		t.Errorf("outputs differ:\n%q\n%q", first.Text, second.Text)
	}
}

func TestPDFPipeline_RealPDFTextLayer(t *testing.T) {
	pdf := buildTestPDF("Page1Text", "Page2Text")
	ocr := &stubRecognizer{text: "unused"}

	result, err := NewPDFPipeline(nil, ocr).Extract(context.Background(), pdf)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ocr.calls != 0 {
		t.Errorf("OCR calls = %d, want 0", ocr.calls)
	}
	first := strings.Index(result.Text, "Page1Text")
	second := strings.Index(result.Text, "Page2Text")
	if first < 0 || second < 0 || first > second {
		t.Errorf("text = %q, want both fragments in page order", result.Text)
	}
}

func TestPDFPipeline_RealCorruptPDFFallsBack(t *testing.T) {
	ocr := &stubRecognizer{text: "ocr text"}

	result, err := NewPDFPipeline(nil, ocr).Extract(context.Background(), []byte("this is not a pdf at all"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ocr.calls != 1 || result.Text != "ocr text" {
		t.Errorf("calls = %d text = %q", ocr.calls, result.Text)
	}
}
