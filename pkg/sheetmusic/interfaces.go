package sheetmusic

import (
	"context"
	"io"
	"time"
)

// Repository defines the interface for sheet music persistence
type Repository interface {
	// Save inserts the record when its ID is zero, assigning ids to it and
	// its pdfs. Otherwise it updates title and writer and syncs the pdf rows:
	// pdfs without an id are inserted, rows no longer attached are deleted.
	Save(ctx context.Context, sheetMusic *SheetMusic) error

	// FindByID loads a record with its pdfs. Returns ErrSheetMusicNotFound.
	FindByID(ctx context.Context, id int64) (*SheetMusic, error)

	FindAll(ctx context.Context, page PageRequest) (*Page[*SheetMusic], error)
	FindAllByTitleContaining(ctx context.Context, title string, page PageRequest) (*Page[*SheetMusic], error)
	FindAllByWriterContaining(ctx context.Context, writer string, page PageRequest) (*Page[*SheetMusic], error)

	// DeleteByID removes a record and its pdf rows.
	DeleteByID(ctx context.Context, id int64) error
}

// PdfRepository defines the interface for pdf attachment lookups
type PdfRepository interface {
	FindAllBySheetMusic(ctx context.Context, sheetMusicID int64) ([]*Pdf, error)
}

// Transactor runs fn inside one transaction. Repositories called with the
// context handed to fn take part in it. The transaction commits when fn
// returns nil and rolls back otherwise.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// FileStore defines the interface for pdf blob storage backends
type FileStore interface {
	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete deletes content. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// GetDownloadURL returns a URL for downloading content
	GetDownloadURL(ctx context.Context, key string, downloadFilename string) (string, error)
}

// UploadParams contains parameters for uploading a blob
type UploadParams struct {
	Key      string
	MimeType string
}

// ResourceLoader resolves a storage URL to a readable resource
type ResourceLoader interface {
	GetResource(ctx context.Context, url string) (Resource, error)
}

// Resource is a named, readable byte stream
type Resource interface {
	Filename() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// EventSink defines the interface for sheet music lifecycle notifications
type EventSink interface {
	// SheetMusicCreated is fired after a record and its uploads are stored
	SheetMusicCreated(ctx context.Context, sheetMusic *SheetMusic) error

	// SheetMusicUpdated is fired after an edit completes
	SheetMusicUpdated(ctx context.Context, sheetMusic *SheetMusic, result PdfUpdatedResult) error

	// SheetMusicDeleted is fired after a record is deleted
	SheetMusicDeleted(ctx context.Context, sheetMusicID int64) error
}

// Event is the serializable form of a lifecycle notification
type Event struct {
	Type         string    `json:"type"`
	SheetMusicID int64     `json:"sheet_music_id"`
	OwnerID      int64     `json:"owner_id,omitempty"`
	Title        string    `json:"title,omitempty"`
	AddedPdfs    []string  `json:"added_pdfs,omitempty"`
	DeletedPdfs  []string  `json:"deleted_pdfs,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Event types
const (
	EventSheetMusicCreated = "sheet_music.created"
	EventSheetMusicUpdated = "sheet_music.updated"
	EventSheetMusicDeleted = "sheet_music.deleted"
)

// NewCreatedEvent describes a created record
func NewCreatedEvent(sheetMusic *SheetMusic) Event {
	return Event{
		Type:         EventSheetMusicCreated,
		SheetMusicID: sheetMusic.ID,
		OwnerID:      sheetMusic.Owner.ID,
		Title:        sheetMusic.Title,
		AddedPdfs:    uniqueNames(sheetMusic.Pdfs),
		OccurredAt:   time.Now().UTC(),
	}
}

// NewUpdatedEvent describes an edit
func NewUpdatedEvent(sheetMusic *SheetMusic, result PdfUpdatedResult) Event {
	return Event{
		Type:         EventSheetMusicUpdated,
		SheetMusicID: sheetMusic.ID,
		OwnerID:      sheetMusic.Owner.ID,
		Title:        sheetMusic.Title,
		AddedPdfs:    uniqueNames(result.AddedPdfs),
		DeletedPdfs:  uniqueNames(result.DeletedPdfs),
		OccurredAt:   time.Now().UTC(),
	}
}

// NewDeletedEvent describes a deleted record
func NewDeletedEvent(sheetMusicID int64) Event {
	return Event{
		Type:         EventSheetMusicDeleted,
		SheetMusicID: sheetMusicID,
		OccurredAt:   time.Now().UTC(),
	}
}

func uniqueNames(pdfs []*Pdf) []string {
	if len(pdfs) == 0 {
		return nil
	}
	names := make([]string, 0, len(pdfs))
	for _, pdf := range pdfs {
		names = append(names, pdf.UniqueName)
	}
	return names
}
