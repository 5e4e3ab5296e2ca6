package extract

import (
	"bytes"
	"unicode/utf8"
)

// extractPlain returns the file content as a string. Bytes that do not form
// valid UTF-8 are replaced with U+FFFD so downstream chunking and indexing
// always see well-formed text.
func extractPlain(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	return string(bytes.ToValidUTF8(content, []byte("�"))), nil
}
