package chat

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ChunkDecoder turns raw transport chunks into text. A multi-byte character
// split across two chunks is held back until its remaining bytes arrive.
// Invalid bytes become U+FFFD instead of failing the stream.
type ChunkDecoder struct {
	t       transform.Transformer
	pending []byte
}

// NewChunkDecoder returns a decoder for a UTF-8 stream.
func NewChunkDecoder() *ChunkDecoder {
	return &ChunkDecoder{t: unicode.UTF8.NewDecoder()}
}

// Decode decodes the next chunk in arrival order.
func (d *ChunkDecoder) Decode(chunk []byte) string {
	return d.run(chunk, false)
}

// Flush decodes whatever is still held back at end of stream. An incomplete
// trailing character is emitted as U+FFFD.
func (d *ChunkDecoder) Flush() string {
	return d.run(nil, true)
}

func (d *ChunkDecoder) run(chunk []byte, atEOF bool) string {
	src := make([]byte, 0, len(d.pending)+len(chunk))
	src = append(src, d.pending...)
	src = append(src, chunk...)
	d.pending = d.pending[:0]
	if len(src) == 0 {
		return ""
	}

	// One invalid byte expands to a three-byte replacement character.
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	out := make([]byte, 0, len(src))
	for len(src) > 0 {
		nDst, nSrc, err := d.t.Transform(dst, src, atEOF)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]

		switch err {
		case nil, transform.ErrShortDst:
		case transform.ErrShortSrc:
			d.pending = append(d.pending, src...)
			return string(out)
		default:
			out = utf8.AppendRune(out, utf8.RuneError)
			if nSrc == 0 {
				src = src[1:]
			}
		}
	}
	return string(out)
}

// Reset discards any held-back bytes.
func (d *ChunkDecoder) Reset() {
	d.pending = d.pending[:0]
	d.t.Reset()
}
