package extract

import (
	"io"
	"unicode/utf8"
)

// plainDecoder returns content unchanged. Invalid UTF-8 is an error, not replaced.
type plainDecoder struct{}

func (plainDecoder) Decode(r io.ReaderAt, size int64) (string, error) {
	content, err := readAll(r, size)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(content) {
		return "", ErrInvalidUTF8
	}
	return string(content), nil
}
