package services

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// fontDecoder turns the bytes shown in one font into text.
type fontDecoder struct {
	// composite fonts (Type0) show multi-byte glyph codes that only a
	// ToUnicode CMap can map back to text.
	composite bool
	toUnicode *toUnicodeCMap
}

// decode reports false when raw holds glyph codes with no Unicode mapping.
func (f *fontDecoder) decode(raw []byte) (string, bool) {
	if f == nil {
		return decodeBytes(raw), true
	}
	if f.toUnicode != nil {
		return f.toUnicode.decode(raw, f.composite)
	}
	if f.composite {
		return "", len(raw) == 0
	}
	return decodeBytes(raw), true
}

// pageFonts resolves the font resources of a page keyed by resource name.
func pageFonts(ctx *model.Context, pageNr int) (map[string]*fontDecoder, error) {
	_, _, attrs, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return nil, err
	}
	if attrs == nil || attrs.Resources == nil {
		return nil, nil
	}
	obj, found := attrs.Resources.Find("Font")
	if !found {
		return nil, nil
	}
	fontDict, err := ctx.DereferenceDict(obj)
	if err != nil {
		return nil, fmt.Errorf("font resources: %w", err)
	}

	fonts := make(map[string]*fontDecoder, len(fontDict))
	for name, ref := range fontDict {
		fd, err := loadFontDecoder(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("font %s: %w", name, err)
		}
		fonts[name] = fd
	}
	return fonts, nil
}

func loadFontDecoder(ctx *model.Context, ref types.Object) (*fontDecoder, error) {
	d, err := ctx.DereferenceDict(ref)
	if err != nil || d == nil {
		return nil, err
	}
	fd := &fontDecoder{}
	if st := d.Subtype(); st != nil && *st == "Type0" {
		fd.composite = true
	}

	obj, found := d.Find("ToUnicode")
	if !found {
		return fd, nil
	}
	// A name such as /Identity-H is not a usable CMap stream.
	if _, isName := obj.(types.Name); isName {
		return fd, nil
	}
	// A broken ToUnicode stream leaves the font unmapped.
	sd, _, err := ctx.DereferenceStreamDict(obj)
	if err != nil || sd == nil {
		return fd, nil
	}
	if err := sd.Decode(); err != nil {
		return fd, nil
	}
	fd.toUnicode = parseToUnicode(sd.Content)
	return fd, nil
}
