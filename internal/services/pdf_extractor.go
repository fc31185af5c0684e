package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/Lllllllleong/documenttextflow/internal/models"
)

// Recognizer transcribes a document with OCR, returning "" when nothing was found.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte, mimeType string) (string, error)
}

// pdfStage is a step of the PDF extraction state machine:
// Parsing -> Extracted | Empty -> OCRFallback -> Done.
type pdfStage int

const (
	stageParsing pdfStage = iota
	stageExtracted
	stageEmpty
	stageOCRFallback
	stageDone
)

func (s pdfStage) String() string {
	switch s {
	case stageParsing:
		return "parsing"
	case stageExtracted:
		return "extracted"
	case stageEmpty:
		return "empty"
	case stageOCRFallback:
		return "ocr-fallback"
	case stageDone:
		return "done"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// pdfRun is the state carried through one pipeline invocation.
type pdfRun struct {
	data      []byte
	fragments []models.PageFragment
	result    *models.ExtractionResult
	logCtx    *slog.Logger
}

// PDFPipeline extracts text from a PDF's text layer and falls back to OCR
// when the text layer is empty or unreadable.
type PDFPipeline struct {
	textLayer TextLayerReader
	ocr       Recognizer
}

// NewPDFPipeline creates a pipeline. A nil textLayer uses pdfcpu.
func NewPDFPipeline(textLayer TextLayerReader, ocr Recognizer) *PDFPipeline {
	if textLayer == nil {
		textLayer = PDFCPUTextLayer{}
	}
	return &PDFPipeline{textLayer: textLayer, ocr: ocr}
}

// Extract returns the best-effort text of a PDF. Parse failures never surface;
// an OCR fallback failure does.
func (p *PDFPipeline) Extract(ctx context.Context, data []byte) (*models.ExtractionResult, error) {
	if len(data) == 0 {
		return nil, invalidInput("PDF data is empty.")
	}

	run := &pdfRun{
		data:   data,
		logCtx: loggerFor(ctx).With("bytes", len(data)),
	}

	stage := stageParsing
	for stage != stageDone {
		next, err := p.step(ctx, stage, run)
		if err != nil {
			return nil, err
		}
		run.logCtx.Debug("PDF pipeline transition.", "from", stage.String(), "to", next.String())
		stage = next
	}
	return run.result, nil
}

func (p *PDFPipeline) step(ctx context.Context, stage pdfStage, run *pdfRun) (pdfStage, error) {
	switch stage {
	case stageParsing:
		return p.parse(run), nil
	case stageExtracted:
		run.result = &models.ExtractionResult{
			Text:      joinFragments(run.fragments),
			Source:    models.SourceTextLayer,
			PageCount: len(run.fragments),
		}
		run.logCtx.Info("PDF text layer extracted.", "pageCount", len(run.fragments))
		return stageDone, nil
	case stageEmpty:
		run.logCtx.Warn("No text found in PDF text layer. Using OCR fallback.")
		return stageOCRFallback, nil
	case stageOCRFallback:
		return stageDone, p.fallback(ctx, run)
	}
	return stageDone, fmt.Errorf("unknown pdf pipeline stage %v", stage)
}

func (p *PDFPipeline) parse(run *pdfRun) pdfStage {
	fragments, err := p.textLayer.ReadPages(run.data)
	if err != nil {
		// Corrupt files and scanned files both end up in the OCR fallback; only the log tells them apart.
		reason := "unreadable"
		if errors.Is(err, errPDFParse) {
			reason = "corrupt"
		}
		run.logCtx.Warn("PDF text layer extraction failed.", "reason", reason, "error", err)
		return stageEmpty
	}
	slices.SortStableFunc(fragments, func(a, b models.PageFragment) int { return cmp.Compare(a.Index, b.Index) })
	run.fragments = fragments

	unmapped := 0
	for _, f := range fragments {
		if strings.TrimSpace(f.Text) != "" {
			return stageExtracted
		}
		if f.Unmapped {
			unmapped++
		}
	}
	reason := "no-text-layer"
	if unmapped > 0 {
		reason = "unmapped-font"
	}
	run.logCtx.Info("PDF has no text layer.", "reason", reason, "pageCount", len(fragments), "unmappedPages", unmapped)
	return stageEmpty
}

func (p *PDFPipeline) fallback(ctx context.Context, run *pdfRun) error {
	if p.ocr == nil {
		return fmt.Errorf("%w: no OCR service available for PDF fallback", ErrConfiguration)
	}

	text, err := p.ocr.Recognize(ctx, run.data, models.MIMETypePDF)
	if err != nil {
		run.logCtx.Error("OCR fallback failed", "error", err)
		return fmt.Errorf("OCR fallback failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = NoReadableText
	}
	run.result = &models.ExtractionResult{
		Text:      text,
		Source:    models.SourceOCRFallback,
		PageCount: len(run.fragments),
	}
	return nil
}

// joinFragments concatenates page fragments in ascending page order.
func joinFragments(fragments []models.PageFragment) string {
	var sb strings.Builder
	for _, f := range fragments {
		fmt.Fprintf(&sb, "\n--- Page %d ---\n%s", f.Index, f.Text)
	}
	return sb.String()
}
