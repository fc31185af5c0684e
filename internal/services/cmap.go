package services

import (
	"slices"
	"strings"
	"unicode/utf16"
)

// maxRangeSpan bounds a single bfrange so a hostile CMap cannot allocate unbounded maps.
const maxRangeSpan = 0xFFFF

type codeSpace struct {
	width  int
	lo, hi uint32
}

// toUnicodeCMap maps character codes of a font to Unicode text.
type toUnicodeCMap struct {
	spaces []codeSpace
	chars  map[uint64]string
}

func cmapKey(width int, code uint32) uint64 {
	return uint64(width)<<32 | uint64(code)
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

// parseToUnicode reads the codespace ranges, bfchar and bfrange sections of a
// ToUnicode CMap stream. Unknown operators are ignored.
func parseToUnicode(data []byte) *toUnicodeCMap {
	cm := &toUnicodeCMap{chars: make(map[uint64]string)}

	const (
		sectionNone = iota
		sectionCodespace
		sectionBFChar
		sectionBFRange
	)
	section := sectionNone
	var operands [][]byte
	var dstArray [][]byte
	inArray := false

	lx := contentLexer{data: data}
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokString:
			if inArray {
				dstArray = append(dstArray, tok.value)
				continue
			}
			operands = append(operands, tok.value)
		case tokArrayStart:
			inArray = true
			dstArray = nil
		case tokArrayEnd:
			inArray = false
			if section == sectionBFRange && len(operands) == 2 {
				cm.addRangeArray(operands[0], operands[1], dstArray)
				operands = operands[:0]
			}
		case tokOperator:
			switch string(tok.value) {
			case "begincodespacerange":
				section = sectionCodespace
			case "beginbfchar":
				section = sectionBFChar
			case "beginbfrange":
				section = sectionBFRange
			case "endcodespacerange", "endbfchar", "endbfrange":
				section = sectionNone
			}
			operands = operands[:0]
			continue
		default:
			continue
		}

		switch {
		case section == sectionCodespace && len(operands) == 2:
			lo, hi := operands[0], operands[1]
			if len(lo) > 0 && len(lo) <= 4 && len(lo) == len(hi) {
				cm.spaces = append(cm.spaces, codeSpace{width: len(lo), lo: codeValue(lo), hi: codeValue(hi)})
			}
			operands = operands[:0]
		case section == sectionBFChar && len(operands) == 2:
			if src := operands[0]; len(src) > 0 && len(src) <= 4 {
				cm.chars[cmapKey(len(src), codeValue(src))] = decodeUTF16BE(operands[1])
			}
			operands = operands[:0]
		case section == sectionBFRange && len(operands) == 3:
			cm.addRange(operands[0], operands[1], operands[2])
			operands = operands[:0]
		}
	}

	slices.SortFunc(cm.spaces, func(a, b codeSpace) int { return a.width - b.width })
	return cm
}

// addRange maps lo..hi onto consecutive destinations starting at dst.
func (cm *toUnicodeCMap) addRange(lo, hi, dst []byte) {
	if len(lo) == 0 || len(lo) > 4 || len(lo) != len(hi) || len(dst) < 2 {
		return
	}
	start, end := codeValue(lo), codeValue(hi)
	if end < start || end-start > maxRangeSpan {
		return
	}
	base := utf16BEUnits(dst)
	for code := start; code <= end; code++ {
		out := slices.Clone(base)
		out[len(out)-1] += uint16(code - start)
		cm.chars[cmapKey(len(lo), code)] = string(utf16.Decode(out))
	}
}

// addRangeArray maps lo..hi onto the explicit destinations in dst.
func (cm *toUnicodeCMap) addRangeArray(lo, hi []byte, dst [][]byte) {
	if len(lo) == 0 || len(lo) > 4 || len(lo) != len(hi) {
		return
	}
	start, end := codeValue(lo), codeValue(hi)
	for i, d := range dst {
		code := start + uint32(i)
		if code > end {
			break
		}
		cm.chars[cmapKey(len(lo), code)] = decodeUTF16BE(d)
	}
}

// codeWidth returns the byte length of the code starting at b.
func (cm *toUnicodeCMap) codeWidth(b []byte, fallback int) int {
	for _, sp := range cm.spaces {
		if sp.width > len(b) {
			break
		}
		if v := codeValue(b[:sp.width]); v >= sp.lo && v <= sp.hi {
			return sp.width
		}
	}
	return min(fallback, len(b))
}

// decode maps raw through the CMap. Codes missing from a composite font's
// CMap are dropped; a simple font falls back to the byte's Latin-1 value.
// It reports false when nothing in raw could be mapped.
func (cm *toUnicodeCMap) decode(raw []byte, composite bool) (string, bool) {
	fallback := 1
	if composite {
		fallback = 2
	}
	var sb strings.Builder
	mapped := false
	for i := 0; i < len(raw); {
		w := cm.codeWidth(raw[i:], fallback)
		if text, ok := cm.chars[cmapKey(w, codeValue(raw[i:i+w]))]; ok {
			sb.WriteString(text)
			mapped = true
		} else if !composite {
			for _, b := range raw[i : i+w] {
				sb.WriteRune(rune(b))
			}
			mapped = true
		}
		i += w
	}
	return sb.String(), mapped
}

func utf16BEUnits(b []byte) []uint16 {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return units
}
