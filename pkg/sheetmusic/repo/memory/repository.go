package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tendant/sheetmusic/pkg/sheetmusic"
)

type txKey struct{}

// Repository implements sheetmusic.Repository, sheetmusic.PdfRepository and
// sheetmusic.Transactor using in-memory storage. Transactions are serialized
// and roll back by restoring a snapshot.
type Repository struct {
	mu         sync.RWMutex
	txMu       sync.Mutex
	sheetMusic map[int64]*sheetmusic.SheetMusic
	nextID     int64
	nextPdfID  int64
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		sheetMusic: make(map[int64]*sheetmusic.SheetMusic),
	}
}

type snapshot struct {
	sheetMusic map[int64]*sheetmusic.SheetMusic
	nextID     int64
	nextPdfID  int64
}

// WithinTransaction runs fn with exclusive write access. Calls nested in a
// running transaction join it.
func (r *Repository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	saved := r.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		r.restore(saved)
		return err
	}
	return nil
}

// Sheet music operations

func (r *Repository) Save(ctx context.Context, s *sheetmusic.SheetMusic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == 0 {
		r.nextID++
		s.ID = r.nextID
		r.assignPdfIDs(s)
		r.sheetMusic[s.ID] = copySheetMusic(s)
		return nil
	}

	stored, exists := r.sheetMusic[s.ID]
	if !exists {
		return sheetmusic.ErrSheetMusicNotFound
	}

	r.assignPdfIDs(s)
	updated := copySheetMusic(s)
	updated.Owner = stored.Owner
	updated.CreatedAt = stored.CreatedAt
	if updated.UpdatedAt.IsZero() {
		updated.UpdatedAt = time.Now().UTC()
	}
	r.sheetMusic[s.ID] = updated
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*sheetmusic.SheetMusic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sheetMusic[id]
	if !exists {
		return nil, sheetmusic.ErrSheetMusicNotFound
	}
	return copySheetMusic(s), nil
}

func (r *Repository) FindAll(ctx context.Context, page sheetmusic.PageRequest) (*sheetmusic.Page[*sheetmusic.SheetMusic], error) {
	return r.find(page, func(*sheetmusic.SheetMusic) bool { return true }), nil
}

func (r *Repository) FindAllByTitleContaining(ctx context.Context, title string, page sheetmusic.PageRequest) (*sheetmusic.Page[*sheetmusic.SheetMusic], error) {
	return r.find(page, func(s *sheetmusic.SheetMusic) bool {
		return strings.Contains(s.Title, title)
	}), nil
}

func (r *Repository) FindAllByWriterContaining(ctx context.Context, writer string, page sheetmusic.PageRequest) (*sheetmusic.Page[*sheetmusic.SheetMusic], error) {
	return r.find(page, func(s *sheetmusic.SheetMusic) bool {
		return strings.Contains(s.Writer, writer)
	}), nil
}

func (r *Repository) DeleteByID(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sheetMusic[id]; !exists {
		return sheetmusic.ErrSheetMusicNotFound
	}
	delete(r.sheetMusic, id)
	return nil
}

// Pdf operations

func (r *Repository) FindAllBySheetMusic(ctx context.Context, sheetMusicID int64) ([]*sheetmusic.Pdf, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sheetMusic[sheetMusicID]
	if !exists {
		return []*sheetmusic.Pdf{}, nil
	}
	return copyPdfs(s.Pdfs), nil
}

// Helper methods

func (r *Repository) find(page sheetmusic.PageRequest, match func(*sheetmusic.SheetMusic) bool) *sheetmusic.Page[*sheetmusic.SheetMusic] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*sheetmusic.SheetMusic
	for _, s := range r.sheetMusic {
		if match(s) {
			matched = append(matched, s)
		}
	}

	// Sort by id ascending
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ID < matched[j].ID
	})

	page = page.Normalize()
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}

	content := make([]*sheetmusic.SheetMusic, 0, end-start)
	for _, s := range matched[start:end] {
		content = append(content, copySheetMusic(s))
	}
	return sheetmusic.NewPage(content, page, int64(len(matched)))
}

func (r *Repository) assignPdfIDs(s *sheetmusic.SheetMusic) {
	for _, pdf := range s.Pdfs {
		if pdf.ID == 0 {
			r.nextPdfID++
			pdf.ID = r.nextPdfID
		}
		pdf.SheetMusicID = s.ID
	}
}

func (r *Repository) snapshot() snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	saved := snapshot{
		sheetMusic: make(map[int64]*sheetmusic.SheetMusic, len(r.sheetMusic)),
		nextID:     r.nextID,
		nextPdfID:  r.nextPdfID,
	}
	for id, s := range r.sheetMusic {
		saved.sheetMusic[id] = copySheetMusic(s)
	}
	return saved
}

func (r *Repository) restore(saved snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sheetMusic = saved.sheetMusic
	r.nextID = saved.nextID
	r.nextPdfID = saved.nextPdfID
}

func copySheetMusic(s *sheetmusic.SheetMusic) *sheetmusic.SheetMusic {
	c := *s
	c.Pdfs = copyPdfs(s.Pdfs)
	return &c
}

func copyPdfs(pdfs []*sheetmusic.Pdf) []*sheetmusic.Pdf {
	copied := make([]*sheetmusic.Pdf, 0, len(pdfs))
	for _, pdf := range pdfs {
		p := *pdf
		copied = append(copied, &p)
	}
	return copied
}
