package source

import (
	"bufio"
	"bytes"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a buffered reader positioned after a leading UTF-8 byte
// order mark, if r starts with one.
func SkipBOM(r io.Reader) *bufio.Reader {
	br := bufio.NewReaderSize(r, 64*1024)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
