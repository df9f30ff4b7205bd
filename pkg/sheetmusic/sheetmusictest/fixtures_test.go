package sheetmusictest

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPdfBytes(t *testing.T) {
	data := PdfBytes(t, "Nocturne")
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestUpload(t *testing.T) {
	upload := Upload(t, "nocturne.pdf", "Nocturne")
	assert.Equal(t, "nocturne.pdf", upload.FileName)
	assert.Equal(t, "application/pdf", upload.ContentType)

	data, err := io.ReadAll(upload.Reader)
	require.NoError(t, err)
	assert.Equal(t, upload.Size, int64(len(data)))
}
