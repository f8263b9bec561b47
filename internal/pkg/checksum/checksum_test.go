package checksum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sha256("hello world")
const helloWorldSum = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func TestDigestKnownVector(t *testing.T) {
	d := New()
	_, err := d.Write([]byte("hello world"))
	require.NoError(t, err)

	assert.Equal(t, helloWorldSum, d.HexSum())
}

func TestDigestChunkedWritesMatchSinglePass(t *testing.T) {
	whole := New()
	_, err := whole.Write([]byte("hello world"))
	require.NoError(t, err)

	chunked := New()
	for _, chunk := range []string{"hel", "lo ", "wor", "ld"} {
		_, err := chunked.Write([]byte(chunk))
		require.NoError(t, err)
	}

	assert.Equal(t, whole.HexSum(), chunked.HexSum())
}

func TestDigestEmpty(t *testing.T) {
	// sha256 of the empty string
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		New().HexSum())
}

func TestFileMatchesStreamDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	sum, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, helloWorldSum, sum)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "nope.bin"))
	assert.Error(t, err)
}
