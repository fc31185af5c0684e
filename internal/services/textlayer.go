package services

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/Lllllllleong/documenttextflow/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// TextLayerReader reads the embedded text of every page of a PDF.
type TextLayerReader interface {
	ReadPages(data []byte) ([]models.PageFragment, error)
}

// PDFCPUTextLayer reads PDF text layers with pdfcpu.
type PDFCPUTextLayer struct{}

// ReadPages parses data and returns one fragment per page in ascending page
// order. Pages without text yield empty fragments. Any structural failure is
// returned wrapped in errPDFParse.
func (PDFCPUTextLayer) ReadPages(data []byte) (fragments []models.PageFragment, err error) {
	// pdfcpu panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			fragments, err = nil, fmt.Errorf("%w: pdfcpu panic: %v", errPDFParse, r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errPDFParse, err)
	}

	fragments = make([]models.PageFragment, 0, ctx.PageCount)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", errPDFParse, pageNr, err)
		}
		var content []byte
		if r != nil {
			if content, err = io.ReadAll(r); err != nil {
				return nil, fmt.Errorf("%w: page %d: %w", errPDFParse, pageNr, err)
			}
		}
		fonts, err := pageFonts(ctx, pageNr)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", errPDFParse, pageNr, err)
		}
		runs, unmapped := textRuns(content, fonts)
		if unmapped {
			// Partially decoded glyph codes are noise; the page is left to OCR.
			runs = nil
		}
		fragments = append(fragments, models.PageFragment{
			Index:    pageNr,
			Text:     strings.Join(runs, " "),
			Unmapped: unmapped,
		})
	}
	return fragments, nil
}

// wordGapKerning is the TJ displacement, in thousandths of an em, treated as a space.
const wordGapKerning = 200

// TextRuns returns the strings shown by the text operators (Tj, TJ, ' and ")
// of a decoded content stream, one run per operator, in stream order. Blank
// runs are dropped. Strings are decoded as single-byte or UTF-16 text.
func TextRuns(content []byte) []string {
	runs, _ := textRuns(content, nil)
	return runs
}

// textRuns decodes each shown string in the font selected by the last Tf.
// Unknown fonts use the single-byte decoding of TextRuns. unmapped reports a
// run whose glyph codes have no Unicode mapping.
func textRuns(content []byte, fonts map[string]*fontDecoder) (runs []string, unmapped bool) {
	var (
		operands    [][]byte
		lastName    string
		font        *fontDecoder
		inArray     bool
		arrayParts  []string
		arrayFailed bool
	)

	lx := contentLexer{data: content}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokName:
			if !inArray {
				lastName = string(tok.value)
			}
		case tokString:
			if !inArray {
				operands = append(operands, tok.value)
				continue
			}
			text, mapped := font.decode(tok.value)
			if !mapped {
				arrayFailed = true
			}
			arrayParts = append(arrayParts, text)
		case tokOperand:
			// Wide negative kerning inside TJ arrays stands for a word gap.
			if inArray && len(tok.value) > 0 {
				if kern, err := strconv.ParseFloat(string(tok.value), 64); err == nil && kern <= -wordGapKerning {
					arrayParts = append(arrayParts, " ")
				}
			}
		case tokArrayStart:
			inArray = true
			arrayParts = nil
			arrayFailed = false
		case tokArrayEnd:
			inArray = false
		case tokOperator:
			shown, mapped := "", true
			switch string(tok.value) {
			case "Tf":
				font = fonts[lastName]
			case "Tj", "'", "\"":
				if n := len(operands); n > 0 {
					shown, mapped = font.decode(operands[n-1])
				}
			case "TJ":
				shown, mapped = strings.Join(arrayParts, ""), !arrayFailed
			case "BI":
				lx.skipInlineImage()
			}
			if !mapped {
				unmapped = true
			} else if run := normalizeRun(shown); run != "" {
				runs = append(runs, run)
			}
			operands = operands[:0]
			lastName = ""
			arrayParts = nil
			arrayFailed = false
		}
	}
	return runs, unmapped
}

// decodeBytes decodes a string shown in a simple font.
func decodeBytes(raw []byte) string {
	switch {
	case bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		return decodeUTF16BE(raw[2:])
	case utf8.Valid(raw):
		return string(raw)
	}
	// Treat single-byte encodings as Latin-1.
	rs := make([]rune, len(raw))
	for i, b := range raw {
		rs[i] = rune(b)
	}
	return string(rs)
}

// normalizeRun collapses whitespace and drops unprintable runes.
func normalizeRun(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}

func decodeUTF16BE(b []byte) string {
	return string(utf16.Decode(utf16BEUnits(b)))
}
