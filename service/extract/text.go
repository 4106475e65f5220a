package extract

import "unicode/utf8"

// extractText decodes plain text content. Valid UTF-8 passes through;
// anything else is decoded as latin-1 so single-byte legacy files
// still yield usable tokens.
func extractText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes), nil
}
