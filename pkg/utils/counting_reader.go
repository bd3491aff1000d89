package utils

import "io"

// CountingReader wraps an io.Reader and tracks how many bytes have been
// read through it, so a parser can attach a byte offset to a CodecError
// without the caller threading a position value through every call.
type CountingReader struct {
	R io.Reader
	N int64
}

func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{R: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}

// Offset returns the number of bytes read so far.
func (c *CountingReader) Offset() int64 {
	return c.N
}
