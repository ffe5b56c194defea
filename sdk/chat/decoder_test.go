package chat_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

func TestChunkDecoder(t *testing.T) {
	t.Run("multi-byte characters split across chunks", func(t *testing.T) {
		text := "héllo → 世界 🥜"
		raw := []byte(text)

		for size := 1; size <= len(raw); size++ {
			d := chat.NewChunkDecoder()
			var out strings.Builder
			for i := 0; i < len(raw); i += size {
				end := min(i+size, len(raw))
				out.WriteString(d.Decode(raw[i:end]))
			}
			out.WriteString(d.Flush())
			assert.Equal(t, text, out.String(), "chunk size %d", size)
		}
	})

	t.Run("partial character is held back", func(t *testing.T) {
		d := chat.NewChunkDecoder()
		arrow := []byte("→")

		assert.Equal(t, "a", d.Decode(append([]byte("a"), arrow[:1]...)))
		assert.Equal(t, "", d.Decode(arrow[1:2]))
		assert.Equal(t, "→b", d.Decode(append(arrow[2:], 'b')))
	})

	t.Run("invalid bytes become replacement characters", func(t *testing.T) {
		d := chat.NewChunkDecoder()
		out := d.Decode([]byte{'a', 0xff, 'b'})
		assert.Equal(t, "a\uFFFDb", out)
	})

	t.Run("dangling bytes at end of stream", func(t *testing.T) {
		d := chat.NewChunkDecoder()
		arrow := []byte("→")
		assert.Equal(t, "x", d.Decode(append([]byte("x"), arrow[:2]...)))
		tail := d.Flush()
		assert.Contains(t, tail, "\uFFFD")
		assert.True(t, utf8.ValidString(tail))
		assert.Equal(t, "", d.Flush())
	})

	t.Run("reset drops held bytes", func(t *testing.T) {
		d := chat.NewChunkDecoder()
		d.Decode([]byte("→")[:1])
		d.Reset()
		assert.Equal(t, "ok", d.Decode([]byte("ok")))
		assert.Equal(t, "", d.Flush())
	})
}
