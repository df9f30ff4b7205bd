package sheetmusic

import (
	"io"
	"time"

	"github.com/tendant/sheetmusic/pkg/sheetmusic/objectkey"
)

// DefaultPdfContentType is used for uploads that do not carry a content type.
const DefaultPdfContentType = "application/pdf"

// Member is the identity owning a sheet-music record. It is provided by an
// external identity subsystem and only referenced here.
type Member struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// SheetMusic is a catalogued piece of sheet music with its attached PDFs.
type SheetMusic struct {
	ID        int64     `json:"id"`
	Owner     Member    `json:"owner"`
	Title     string    `json:"title"`
	Writer    string    `json:"writer"`
	Pdfs      []*Pdf    `json:"pdfs,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Pdf is one PDF attachment of a SheetMusic. UniqueName is the object store
// key of its bytes and never changes after construction.
type Pdf struct {
	ID           int64     `json:"id"`
	SheetMusicID int64     `json:"sheet_music_id"`
	OriginalName string    `json:"original_name"`
	UniqueName   string    `json:"unique_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// FileUpload is an uploaded file payload.
type FileUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// PdfUpdatedResult describes what an edit changed. AddedPdfs[i] was created
// for AddedFiles[i].
type PdfUpdatedResult struct {
	AddedFiles  []FileUpload
	AddedPdfs   []*Pdf
	DeletedPdfs []*Pdf
}

// NewPdf creates a Pdf for an uploaded file, generating its unique name.
func NewPdf(originalName string, keys objectkey.Generator) *Pdf {
	return &Pdf{
		OriginalName: originalName,
		UniqueName:   keys.GenerateKey(originalName),
		CreatedAt:    time.Now().UTC(),
	}
}

// NewSheetMusic creates an unsaved SheetMusic owned by member with one Pdf per
// upload, in upload order.
func NewSheetMusic(member Member, title, writer string, uploads []FileUpload, keys objectkey.Generator) *SheetMusic {
	now := time.Now().UTC()
	return &SheetMusic{
		Owner:     member,
		Title:     title,
		Writer:    writer,
		Pdfs:      newPdfs(uploads, keys),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OwnedBy reports whether member owns the record. Members are compared by ID.
func (s *SheetMusic) OwnedBy(member Member) bool {
	return s.Owner.ID == member.ID
}

// Update applies an edit request to the record and returns the Pdf diff.
// Deleted ids that are not attached to the record are ignored.
func (s *SheetMusic) Update(req EditSheetMusicRequest, keys objectkey.Generator) PdfUpdatedResult {
	s.Title = req.Title
	s.Writer = req.Writer
	s.UpdatedAt = time.Now().UTC()

	result := PdfUpdatedResult{
		AddedFiles:  req.AddedPdfs,
		AddedPdfs:   newPdfs(req.AddedPdfs, keys),
		DeletedPdfs: s.findPdfs(req.DeletedPdfIDs),
	}

	s.removePdfs(result.DeletedPdfs)
	for _, pdf := range result.AddedPdfs {
		pdf.SheetMusicID = s.ID
		s.Pdfs = append(s.Pdfs, pdf)
	}

	return result
}

// FindPdf returns the attached Pdf with the given id.
func (s *SheetMusic) FindPdf(id int64) (*Pdf, bool) {
	for _, pdf := range s.Pdfs {
		if pdf.ID == id {
			return pdf, true
		}
	}
	return nil, false
}

func (s *SheetMusic) findPdfs(ids []int64) []*Pdf {
	var found []*Pdf
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		if pdf, ok := s.FindPdf(id); ok {
			found = append(found, pdf)
		}
	}
	return found
}

func (s *SheetMusic) removePdfs(pdfs []*Pdf) {
	if len(pdfs) == 0 {
		return
	}
	removed := make(map[int64]bool, len(pdfs))
	for _, pdf := range pdfs {
		removed[pdf.ID] = true
	}
	kept := s.Pdfs[:0]
	for _, pdf := range s.Pdfs {
		if !removed[pdf.ID] {
			kept = append(kept, pdf)
		}
	}
	s.Pdfs = kept
}

func newPdfs(uploads []FileUpload, keys objectkey.Generator) []*Pdf {
	pdfs := make([]*Pdf, 0, len(uploads))
	for _, upload := range uploads {
		pdfs = append(pdfs, NewPdf(upload.FileName, keys))
	}
	return pdfs
}
