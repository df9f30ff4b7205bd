package sheetmusic

import (
	"context"
	"io"
)

// Service defines the main interface of the sheet music catalog
type Service interface {
	// Sheet music operations
	CreateSheetMusic(ctx context.Context, req CreateSheetMusicRequest, member Member) (*SheetMusicResponse, error)
	FindAllSheetMusic(ctx context.Context, page PageRequest) (*Page[SheetMusicSummary], error)
	FindSheetMusic(ctx context.Context, id int64) (*SheetMusicResponse, error)
	SearchTitleSheetMusic(ctx context.Context, page PageRequest, title string) (*Page[SheetMusicSummary], error)
	SearchWriterSheetMusic(ctx context.Context, page PageRequest, writer string) (*Page[SheetMusicSummary], error)
	EditSheetMusic(ctx context.Context, id int64, member Member, req EditSheetMusicRequest) (*SheetMusicResponse, error)
	DeleteSheetMusic(ctx context.Context, id int64, member Member) error

	// Pdf download
	DownloadPdf(ctx context.Context, sheetMusicID, pdfID int64) (io.ReadCloser, *PdfResponse, error)

	// DownloadObject copies the resource at url into a local file named after
	// it, replacing any existing file, and returns the local path.
	DownloadObject(ctx context.Context, url string) (string, error)
}
