package services

import (
	"regexp"
	"strconv"
	"strings"
)

// Compiled regex patterns (reused across calls)
var (
	whitespaceRunPattern = regexp.MustCompile(`[\s\p{Zs}]+`)
	// "ABN" or "ACN", a short label such as ": " or " No. ", then up to four
	// (ABN) or three (ACN) space-separated digit groups.
	registrationNumberPattern = regexp.MustCompile(
		`ABN[^\d()]{0,20}?\d+(?:\s+\d+){0,3}|ACN[^\d()]{0,20}?\d+(?:\s+\d+){0,2}`,
	)
)

// ExtractLines normalizes raw document text into the line list shared by
// every party heuristic. Blank lines are dropped; each remaining line has
// literal escape sequences decoded, is trimmed, has BETWEEN/AND lowered,
// internal whitespace collapsed and ABN/ACN numbers parenthesized.
//
// A line that mentions ABN or ACN without a recognisable number is dropped.
func ExtractLines(rawText string) []string {
	lines := []string{}
	for _, raw := range strings.Split(rawText, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}

		line := strings.TrimSpace(decodeEscapes(raw))
		line = strings.ReplaceAll(line, "BETWEEN", "between")
		line = strings.ReplaceAll(line, "AND", "and")
		line = whitespaceRunPattern.ReplaceAllString(line, " ")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		protected, ok := parenthesizeRegistrationNumbers(line)
		if !ok {
			continue
		}
		lines = append(lines, protected)
	}
	return lines
}

// parenthesizeRegistrationNumbers wraps "ABN ..." and "ACN ..." numbers in
// parentheses so the defined-term extractor can recognise and skip them.
// ok is false when the line names ABN/ACN but carries no number for either.
func parenthesizeRegistrationNumbers(line string) (string, bool) {
	if strings.Contains(line, "(ABN") || strings.Contains(line, "(ACN") {
		return line, true
	}

	if !strings.Contains(line, "ABN") && !strings.Contains(line, "ACN") {
		return line, true
	}

	// One alternation so a label between "ABN" and a later "ACN" number is
	// wrapped once instead of nesting parentheses.
	if !registrationNumberPattern.MatchString(line) {
		return line, false
	}
	return registrationNumberPattern.ReplaceAllString(line, "($0)"), true
}

// decodeEscapes decodes literal backslash escape sequences that survive in
// text exported from other systems (\n, \t, \", \xHH, \uXXXX including
// surrogate pairs). Unknown escapes are kept verbatim.
func decodeEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		ch := s[i]
		if ch != '\\' || i+1 >= len(s) {
			b.WriteByte(ch)
			i++
			continue
		}

		esc := s[i+1]
		switch esc {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case '\'':
			b.WriteByte('\'')
		case 'x':
			if i+4 <= len(s) {
				if v, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
					// Single bytes are read as Latin-1 so the result stays valid UTF-8.
					b.WriteRune(rune(v))
					i += 4
					continue
				}
			}
			b.WriteString(s[i : i+2])
		case 'u':
			if r, width, ok := decodeUnicodeEscape(s, i); ok {
				b.WriteRune(r)
				i += width
				continue
			}
			b.WriteString(s[i : i+2])
		default:
			// Unknown escape; keep it (lenient)
			b.WriteString(s[i : i+2])
		}
		i += 2
	}
	return b.String()
}

// decodeUnicodeEscape decodes \uXXXX at s[i:], combining a following low
// surrogate when present. width is the number of bytes consumed.
func decodeUnicodeEscape(s string, i int) (r rune, width int, ok bool) {
	if i+6 > len(s) {
		return 0, 0, false
	}
	u, err := strconv.ParseUint(s[i+2:i+6], 16, 16)
	if err != nil {
		return 0, 0, false
	}
	codePoint := rune(u)

	// High surrogate (D800-DBFF) followed by low surrogate (DC00-DFFF)
	if codePoint >= 0xD800 && codePoint <= 0xDBFF && i+12 <= len(s) && s[i+6] == '\\' && s[i+7] == 'u' {
		if u2, err := strconv.ParseUint(s[i+8:i+12], 16, 16); err == nil {
			low := rune(u2)
			if low >= 0xDC00 && low <= 0xDFFF {
				return 0x10000 + (codePoint-0xD800)*0x400 + (low - 0xDC00), 12, true
			}
		}
	}
	return codePoint, 6, true
}
