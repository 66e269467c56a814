package iox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "plates", "model.tflite")

	n, err := WriteFileAtomic(dst, strings.NewReader("weights"))
	require.NoError(t, err)
	require.EqualValues(t, 7, n)
	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "weights", string(raw))

	// A failed copy leaves neither the target nor the temp file behind
	failed := filepath.Join(dir, "faces", "model.tflite")
	_, err = WriteFileAtomic(failed, failingReader{})
	require.Error(t, err)
	require.NoFileExists(t, failed)
	require.NoFileExists(t, failed+".tmp")
}
