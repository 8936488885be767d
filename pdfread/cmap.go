package pdfread

import (
	"bytes"
	"strings"
	"unicode/utf16"
)

// ToUnicode returns the glyph code to text mapping of a font's ToUnicode
// CMap, or nil when the font has none.
func (doc *Document) ToUnicode(font Dict) (map[uint32]string, error) {
	obj, ok := font["ToUnicode"]
	if !ok {
		return nil, nil
	}
	resolved := doc.Resolve(obj)
	if resolved.Kind != KindStream {
		return nil, nil
	}
	data, err := DecodeStream(resolved.Dict, resolved.Stream)
	if err != nil {
		return nil, err
	}
	return ParseToUnicode(data), nil
}

// ParseToUnicode reads the bfchar and bfrange sections of a ToUnicode CMap.
func ParseToUnicode(data []byte) map[uint32]string {
	m := make(map[uint32]string)
	inChar, inRange := false, false
	for _, raw := range bytes.Split(data, []byte("\n")) {
		line := strings.TrimSpace(string(raw))
		switch {
		case strings.HasSuffix(line, "beginbfchar"):
			inChar = true
		case line == "endbfchar":
			inChar = false
		case strings.HasSuffix(line, "beginbfrange"):
			inRange = true
		case line == "endbfrange":
			inRange = false
		case inChar:
			tokens := cmapTokens(line)
			if len(tokens) < 2 {
				continue
			}
			m[hexToken(tokens[0])] = utf16Token(tokens[1])
		case inRange:
			parseBFRange(line, m)
		}
	}
	return m
}

// parseBFRange handles both the sequential form low high start and the array
// form low high [dst dst ...].
func parseBFRange(line string, m map[uint32]string) {
	tokens := cmapTokens(line)
	if len(tokens) < 3 {
		return
	}
	low, high := hexToken(tokens[0]), hexToken(tokens[1])
	if high < low || high-low > 0x10000 {
		return
	}
	if strings.HasPrefix(tokens[2], "[") {
		joined := strings.Join(tokens[2:], " ")
		joined = strings.TrimPrefix(joined, "[")
		joined = strings.TrimSuffix(joined, "]")
		dsts := cmapTokens(joined)
		for i, code := 0, low; code <= high && i < len(dsts); code, i = code+1, i+1 {
			m[code] = utf16Token(dsts[i])
		}
		return
	}
	start := []rune(utf16Token(tokens[2]))
	if len(start) == 0 {
		return
	}
	for code := low; code <= high; code++ {
		last := start[len(start)-1] + rune(code-low)
		m[code] = string(start[:len(start)-1]) + string(last)
	}
}

// cmapTokens splits a CMap line into <hex>, [array] and keyword tokens.
func cmapTokens(line string) []string {
	var tokens []string
	i := 0
	for i < len(line) {
		switch {
		case line[i] == ' ' || line[i] == '\t' || line[i] == '\r':
			i++
		case line[i] == '<':
			j := strings.Index(line[i+1:], ">")
			if j < 0 {
				return tokens
			}
			tokens = append(tokens, line[i:i+j+2])
			i += j + 2
		case line[i] == '[':
			j := strings.Index(line[i:], "]")
			if j < 0 {
				tokens = append(tokens, line[i:])
				return tokens
			}
			tokens = append(tokens, line[i:i+j+1])
			i += j + 1
		default:
			j := i
			for j < len(line) && line[j] != ' ' && line[j] != '\t' {
				j++
			}
			tokens = append(tokens, line[i:j])
			i = j
		}
	}
	return tokens
}

func hexToken(s string) uint32 {
	s = strings.Trim(s, "<> ")
	var v uint32
	for i := 0; i < len(s); i++ {
		v = v<<4 | uint32(hexVal(s[i]))
	}
	return v
}

// utf16Token decodes a <...> token as UTF-16BE text.
func utf16Token(s string) string {
	s = strings.Trim(s, "<> ")
	if len(s) == 2 {
		return string(rune(hexVal(s[0])<<4 | hexVal(s[1])))
	}
	var units []uint16
	for i := 0; i+3 < len(s); i += 4 {
		u := uint16(hexVal(s[i]))<<12 | uint16(hexVal(s[i+1]))<<8 |
			uint16(hexVal(s[i+2]))<<4 | uint16(hexVal(s[i+3]))
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// IsType0 reports whether a font dictionary describes a composite font with
// two byte glyph codes.
func IsType0(font Dict) bool {
	subtype, _ := font.NameValue("Subtype")
	return subtype == "Type0"
}
