package sandbox

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// cappedBuffer keeps at most limit bytes and silently discards the rest, so a
// chatty program can keep writing without growing memory.
type cappedBuffer struct {
	buf        bytes.Buffer
	limit      int
	overflowed bool
}

// captureLimit is the byte budget that still holds maxChars+1 characters of
// any encoding, enough to tell whether truncation is needed.
func captureLimit(maxChars int) int {
	return (maxChars + 1) * utf8.UTFMax
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.overflowed = len(p) > 0 || b.overflowed
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.overflowed = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

// String returns the captured text with each invalid byte replaced by U+FFFD.
func (b *cappedBuffer) String() string {
	return lossyString(b.buf.Bytes())
}

func lossyString(p []byte) string {
	if utf8.Valid(p) {
		return string(p)
	}

	var sb strings.Builder
	sb.Grow(len(p) + len(p)/2)
	for len(p) > 0 {
		r, size := utf8.DecodeRune(p)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
		} else {
			sb.Write(p[:size])
		}
		p = p[size:]
	}
	return sb.String()
}

// Overflowed reports whether any bytes were discarded.
func (b *cappedBuffer) Overflowed() bool {
	return b.overflowed
}
