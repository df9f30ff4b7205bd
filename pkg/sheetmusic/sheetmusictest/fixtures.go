// Package sheetmusictest provides fixtures for tests of sheet music
// components.
package sheetmusictest

import (
	"bytes"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/require"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
)

// PdfBytes renders a one page PDF showing title
func PdfBytes(t testing.TB, title string) []byte {
	t.Helper()

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle(title, true)
	doc.AddPage()
	doc.SetFont("Helvetica", "B", 16)
	doc.Cell(40, 10, title)

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

// Upload wraps a rendered PDF as an upload payload named fileName
func Upload(t testing.TB, fileName, title string) sheetmusic.FileUpload {
	t.Helper()

	data := PdfBytes(t, title)
	return sheetmusic.FileUpload{
		FileName:    fileName,
		ContentType: sheetmusic.DefaultPdfContentType,
		Size:        int64(len(data)),
		Reader:      bytes.NewReader(data),
	}
}
