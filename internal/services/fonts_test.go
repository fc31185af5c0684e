package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/Lllllllleong/documenttextflow/internal/models"
)

// testToUnicode maps the glyph IDs of "Hello" and "World" in a subset font.
const testToUnicode = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
4 beginbfchar
<002B> <0048>
<0048> <0065>
<004F> <006C>
<0052> <006F>
endbfchar
2 beginbfrange
<003A> <003A> <0057>
<0055> <0056> [<0072> <0064>]
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end`

// buildType0PDF writes a single page showing content in an Identity-H
// composite font, with or without a ToUnicode CMap.
func buildType0PDF(content string, withToUnicode bool) []byte {
	toUnicode := ""
	if withToUnicode {
		toUnicode = " /ToUnicode 8 0 R"
	}
	return assemblePDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /C0 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type0 /BaseFont /TestSubset+Sans /Encoding /Identity-H /DescendantFonts [6 0 R]" + toUnicode + " >>",
		"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /TestSubset+Sans /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> /FontDescriptor 7 0 R >>",
		"<< /Type /FontDescriptor /FontName /TestSubset+Sans /Flags 32 /FontBBox [0 0 1000 1000] /ItalicAngle 0 /Ascent 800 /Descent -200 /CapHeight 700 /StemV 80 >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(testToUnicode), testToUnicode),
	})
}

const helloWorldGlyphs = "BT\n/C0 12 Tf\n72 720 Td\n<002B0048004F004F0052> Tj\n[<003A> 10 <0052> -400 <0055004F0056>] TJ\nET"

func TestPDFCPUTextLayer_MapsCompositeFontThroughToUnicode(t *testing.T) {
	fragments, err := PDFCPUTextLayer{}.ReadPages(buildType0PDF(helloWorldGlyphs, true))
	if err != nil {
		t.Fatalf("ReadPages: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("fragments = %d, want 1", len(fragments))
	}
	if got := fragments[0]; got.Text != "Hello Wo rld" || got.Unmapped {
		t.Errorf("fragment = %+v, want mapped text %q", got, "Hello Wo rld")
	}
}

func TestPDFCPUTextLayer_CompositeFontWithoutToUnicodeIsUnmapped(t *testing.T) {
	fragments, err := PDFCPUTextLayer{}.ReadPages(buildType0PDF(helloWorldGlyphs, false))
	if err != nil {
		t.Fatalf("ReadPages: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("fragments = %d, want 1", len(fragments))
	}
	if got := fragments[0]; got.Text != "" || !got.Unmapped {
		t.Errorf("fragment = %+v, want an unmapped page with no text", got)
	}
}

func TestPDFPipeline_UnmappedFontFallsBackToOCR(t *testing.T) {
	ocr := &stubRecognizer{text: "Hello World"}

	result, err := NewPDFPipeline(nil, ocr).Extract(context.Background(), buildType0PDF(helloWorldGlyphs, false))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ocr.calls != 1 {
		t.Fatalf("OCR calls = %d, want 1", ocr.calls)
	}
	if result.Text != "Hello World" || result.Source != models.SourceOCRFallback {
		t.Errorf("result = %+v", result)
	}
}

func TestPDFPipeline_MappedCompositeFontSkipsOCR(t *testing.T) {
	ocr := &stubRecognizer{text: "unused"}

	result, err := NewPDFPipeline(nil, ocr).Extract(context.Background(), buildType0PDF("BT /C0 12 Tf <002B0048004F004F0052> Tj ET", true))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if ocr.calls != 0 {
		t.Errorf("OCR calls = %d, want 0", ocr.calls)
	}
	if result.Text != "\n--- Page 1 ---\nHello" {
		t.Errorf("text = %q", result.Text)
	}
}

func TestTextRuns_FontSelection(t *testing.T) {
	fonts := map[string]*fontDecoder{
		"C0": {composite: true, toUnicode: parseToUnicode([]byte(testToUnicode))},
		"C1": {composite: true},
		"F1": {},
	}
	tests := []struct {
		name         string
		content      string
		want         []string
		wantUnmapped bool
	}{
		{
			name:    "composite with cmap",
			content: "BT /C0 10 Tf <002B0048004F004F0052> Tj ET",
			want:    []string{"Hello"},
		},
		{
			name:    "switching back to a simple font",
			content: "BT /C0 10 Tf <002B> Tj /F1 10 Tf (plain) Tj ET",
			want:    []string{"H", "plain"},
		},
		{
			name:         "composite without cmap",
			content:      "BT /F1 10 Tf (ok) Tj /C1 10 Tf <002B0048> Tj ET",
			want:         []string{"ok"},
			wantUnmapped: true,
		},
		{
			name:         "codes missing from the cmap",
			content:      "BT /C0 10 Tf <0001 0002> Tj ET",
			wantUnmapped: true,
		},
		{
			name:    "unknown font decodes bytes",
			content: "BT /F9 10 Tf (text) Tj ET",
			want:    []string{"text"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unmapped := textRuns([]byte(tt.content), fonts)
			if fmt.Sprint(got) != fmt.Sprint(tt.want) || unmapped != tt.wantUnmapped {
				t.Errorf("textRuns() = %q, %v; want %q, %v", got, unmapped, tt.want, tt.wantUnmapped)
			}
		})
	}
}
