package sandbox

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCappedBuffer(t *testing.T) {
	t.Run("WithinLimit", func(t *testing.T) {
		buf := newCappedBuffer(10)
		n, err := buf.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "hello", buf.String())
		assert.False(t, buf.Overflowed())
	})

	t.Run("ExactLimit", func(t *testing.T) {
		buf := newCappedBuffer(5)
		_, _ = buf.Write([]byte("hello"))
		assert.False(t, buf.Overflowed())
		_, _ = buf.Write(nil)
		assert.False(t, buf.Overflowed())
	})

	t.Run("Overflow", func(t *testing.T) {
		buf := newCappedBuffer(4)
		n, err := io.Copy(buf, strings.NewReader(strings.Repeat("z", 1<<16)))
		require.NoError(t, err)
		assert.Equal(t, int64(1<<16), n)
		assert.Equal(t, "zzzz", buf.String())
		assert.True(t, buf.Overflowed())
	})

	t.Run("SplitRuneIsReplaced", func(t *testing.T) {
		buf := newCappedBuffer(2)
		_, _ = buf.Write([]byte("aé"))
		assert.Equal(t, "a\uFFFD", buf.String())
		assert.True(t, buf.Overflowed())
	})
}

func TestLossyString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Valid", "héllo", "héllo"},
		{"Empty", "", ""},
		{"EveryInvalidByte", "\xff\xfe\xfd", "\uFFFD\uFFFD\uFFFD"},
		{"Mixed", "a\xffb\xffc", "a\uFFFDb\uFFFDc"},
		{"TruncatedSequence", "x\xe2\x82", "x\uFFFD\uFFFD"},
		{"EncodedReplacementKept", "\uFFFD\xff", "\uFFFD\uFFFD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lossyString([]byte(tt.in)))
		})
	}
}

func TestCaptureLimit(t *testing.T) {
	assert.Equal(t, 4004, captureLimit(1000))
	assert.Equal(t, 4, captureLimit(0))
}
