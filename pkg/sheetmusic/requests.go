package sheetmusic

import "time"

// Request/Response DTOs

// CreateSheetMusicRequest contains parameters for creating sheet music
type CreateSheetMusicRequest struct {
	Title  string
	Writer string
	Pdfs   []FileUpload
}

// EditSheetMusicRequest contains parameters for editing sheet music.
// DeletedPdfIDs lists attached pdfs to remove, AddedPdfs the new uploads.
type EditSheetMusicRequest struct {
	Title         string
	Writer        string
	AddedPdfs     []FileUpload
	DeletedPdfIDs []int64
}

// SheetMusicSummary is the list and search shape of a record
type SheetMusicSummary struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Writer     string    `json:"writer"`
	OwnerEmail string    `json:"owner_email"`
	CreatedAt  time.Time `json:"created_at"`
}

// SheetMusicResponse is the detail shape of a record
type SheetMusicResponse struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title"`
	Writer    string        `json:"writer"`
	Owner     Member        `json:"owner"`
	Pdfs      []PdfResponse `json:"pdfs"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// PdfResponse is the detail shape of an attachment
type PdfResponse struct {
	ID           int64  `json:"id"`
	OriginalName string `json:"original_name"`
	UniqueName   string `json:"unique_name"`
	DownloadURL  string `json:"download_url,omitempty"`
}

// ToSummary maps a record to its list shape
func ToSummary(s *SheetMusic) SheetMusicSummary {
	return SheetMusicSummary{
		ID:         s.ID,
		Title:      s.Title,
		Writer:     s.Writer,
		OwnerEmail: s.Owner.Email,
		CreatedAt:  s.CreatedAt,
	}
}

// ToResponse maps a record to its detail shape without download URLs
func ToResponse(s *SheetMusic) *SheetMusicResponse {
	pdfs := make([]PdfResponse, 0, len(s.Pdfs))
	for _, pdf := range s.Pdfs {
		pdfs = append(pdfs, ToPdfResponse(pdf))
	}
	return &SheetMusicResponse{
		ID:        s.ID,
		Title:     s.Title,
		Writer:    s.Writer,
		Owner:     s.Owner,
		Pdfs:      pdfs,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// ToPdfResponse maps an attachment
func ToPdfResponse(p *Pdf) PdfResponse {
	return PdfResponse{
		ID:           p.ID,
		OriginalName: p.OriginalName,
		UniqueName:   p.UniqueName,
	}
}
