package docpipe

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractText decodes a plain text upload. Content is passed through
// unchanged apart from line endings; bytes that are not valid UTF-8 are
// read as Windows-1252, the usual encoding of legacy office exports.
func extractText(data []byte) (string, []Section) {
	text := normalizeLineEndings(decodeText(data))
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return firstLine(text), []Section{{
		Text: text,
		Type: "paragraph",
	}}
}

func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		decoded, _ = charmap.ISO8859_1.NewDecoder().Bytes(data)
	}
	return string(decoded)
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	if utf8.RuneCountInString(text) > 200 {
		text = string([]rune(text)[:200])
	}
	return text
}
