package sheetmusic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tendant/sheetmusic/pkg/sheetmusic/objectkey"
)

// service implements the Service interface
type service struct {
	repository  Repository
	pdfs        PdfRepository
	transactor  Transactor
	fileStore   FileStore
	loader      ResourceLoader
	eventSink   EventSink
	keys        objectkey.Generator
	logger      *slog.Logger
	downloadDir string
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service. When the repository
// also implements PdfRepository or Transactor it is used for those as well,
// unless they are set explicitly.
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithPdfRepository sets the pdf repository for the service
func WithPdfRepository(repo PdfRepository) Option {
	return func(s *service) {
		s.pdfs = repo
	}
}

// WithTransactor sets the transaction manager for the service
func WithTransactor(tx Transactor) Option {
	return func(s *service) {
		s.transactor = tx
	}
}

// WithFileStore sets the pdf blob store
func WithFileStore(store FileStore) Option {
	return func(s *service) {
		s.fileStore = store
	}
}

// WithResourceLoader sets the loader used by DownloadObject
func WithResourceLoader(loader ResourceLoader) Option {
	return func(s *service) {
		s.loader = loader
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithKeyGenerator sets the generator of pdf unique names
func WithKeyGenerator(keys objectkey.Generator) Option {
	return func(s *service) {
		s.keys = keys
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithDownloadDir sets the directory DownloadObject writes into
func WithDownloadDir(dir string) Option {
	return func(s *service) {
		s.downloadDir = dir
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		downloadDir: ".",
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.fileStore == nil {
		return nil, fmt.Errorf("file store is required")
	}

	if s.pdfs == nil {
		pdfs, ok := s.repository.(PdfRepository)
		if !ok {
			return nil, fmt.Errorf("pdf repository is required")
		}
		s.pdfs = pdfs
	}
	if s.transactor == nil {
		if tx, ok := s.repository.(Transactor); ok {
			s.transactor = tx
		} else {
			s.transactor = NoopTransactor{}
		}
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.keys == nil {
		s.keys = objectkey.NewUUIDGenerator()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// Sheet music operations

func (s *service) CreateSheetMusic(ctx context.Context, req CreateSheetMusicRequest, member Member) (*SheetMusicResponse, error) {
	sheetMusic := NewSheetMusic(member, req.Title, req.Writer, req.Pdfs, s.keys)

	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.repository.Save(ctx, sheetMusic)
	})
	if err != nil {
		return nil, &SheetMusicError{ID: sheetMusic.ID, Op: "create", Err: err}
	}

	// The row is committed; a failed upload leaves it pointing at a missing blob.
	if err := s.uploadPdfs(ctx, sheetMusic.Pdfs, req.Pdfs); err != nil {
		return nil, err
	}

	if err := s.eventSink.SheetMusicCreated(ctx, sheetMusic); err != nil {
		s.logger.Warn("event sink failed", "event", EventSheetMusicCreated, "sheet_music_id", sheetMusic.ID, "err", err)
	}

	return ToResponse(sheetMusic), nil
}

func (s *service) FindAllSheetMusic(ctx context.Context, page PageRequest) (*Page[SheetMusicSummary], error) {
	return s.findPage(ctx, "find_all", func(ctx context.Context) (*Page[*SheetMusic], error) {
		return s.repository.FindAll(ctx, page)
	})
}

func (s *service) FindSheetMusic(ctx context.Context, id int64) (*SheetMusicResponse, error) {
	sheetMusic, err := s.load(ctx, id)
	if err != nil {
		return nil, &SheetMusicError{ID: id, Op: "find", Err: err}
	}

	response := ToResponse(sheetMusic)
	s.attachDownloadURLs(ctx, response)
	return response, nil
}

func (s *service) SearchTitleSheetMusic(ctx context.Context, page PageRequest, title string) (*Page[SheetMusicSummary], error) {
	return s.findPage(ctx, "search_title", func(ctx context.Context) (*Page[*SheetMusic], error) {
		return s.repository.FindAllByTitleContaining(ctx, title, page)
	})
}

func (s *service) SearchWriterSheetMusic(ctx context.Context, page PageRequest, writer string) (*Page[SheetMusicSummary], error) {
	return s.findPage(ctx, "search_writer", func(ctx context.Context) (*Page[*SheetMusic], error) {
		return s.repository.FindAllByWriterContaining(ctx, writer, page)
	})
}

func (s *service) EditSheetMusic(ctx context.Context, id int64, member Member, req EditSheetMusicRequest) (*SheetMusicResponse, error) {
	var (
		sheetMusic *SheetMusic
		result     PdfUpdatedResult
	)

	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		found, err := s.repository.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !found.OwnedBy(member) {
			return ErrOwnershipMismatch
		}

		result = found.Update(req, s.keys)
		if err := s.repository.Save(ctx, found); err != nil {
			return err
		}
		sheetMusic = found
		return nil
	})
	if err != nil {
		return nil, &SheetMusicError{ID: id, Op: "edit", Err: err}
	}

	if err := s.uploadPdfs(ctx, result.AddedPdfs, result.AddedFiles); err != nil {
		return nil, err
	}
	deleteErr := s.deletePdfs(ctx, result.DeletedPdfs)

	if err := s.eventSink.SheetMusicUpdated(ctx, sheetMusic, result); err != nil {
		s.logger.Warn("event sink failed", "event", EventSheetMusicUpdated, "sheet_music_id", id, "err", err)
	}

	// The edit is committed; removed blobs that could not be deleted are reported.
	if deleteErr != nil {
		return nil, &SheetMusicError{ID: id, Op: "edit", Err: deleteErr}
	}
	return ToResponse(sheetMusic), nil
}

func (s *service) DeleteSheetMusic(ctx context.Context, id int64, member Member) error {
	var deleteErr error
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		found, err := s.repository.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !found.OwnedBy(member) {
			return ErrOwnershipMismatch
		}

		pdfs, err := s.pdfs.FindAllBySheetMusic(ctx, found.ID)
		if err != nil {
			return err
		}
		// Blob failures do not keep the row; they are returned after commit.
		deleteErr = s.deletePdfs(ctx, pdfs)

		return s.repository.DeleteByID(ctx, found.ID)
	})
	if err != nil {
		return &SheetMusicError{ID: id, Op: "delete", Err: err}
	}

	if err := s.eventSink.SheetMusicDeleted(ctx, id); err != nil {
		s.logger.Warn("event sink failed", "event", EventSheetMusicDeleted, "sheet_music_id", id, "err", err)
	}

	if deleteErr != nil {
		return &SheetMusicError{ID: id, Op: "delete", Err: deleteErr}
	}
	return nil
}

// Pdf download

func (s *service) DownloadPdf(ctx context.Context, sheetMusicID, pdfID int64) (io.ReadCloser, *PdfResponse, error) {
	sheetMusic, err := s.load(ctx, sheetMusicID)
	if err != nil {
		return nil, nil, &SheetMusicError{ID: sheetMusicID, Op: "download_pdf", Err: err}
	}

	pdf, ok := sheetMusic.FindPdf(pdfID)
	if !ok {
		return nil, nil, &SheetMusicError{
			ID:  sheetMusicID,
			Op:  "download_pdf",
			Err: fmt.Errorf("%w: %d", ErrPdfNotFound, pdfID),
		}
	}

	reader, err := s.fileStore.Download(ctx, pdf.UniqueName)
	if err != nil {
		return nil, nil, &StorageError{Key: pdf.UniqueName, Op: "download", Err: err}
	}

	response := ToPdfResponse(pdf)
	return reader, &response, nil
}

// Helper methods

func (s *service) load(ctx context.Context, id int64) (*SheetMusic, error) {
	var sheetMusic *SheetMusic
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		found, err := s.repository.FindByID(ctx, id)
		if err != nil {
			return err
		}
		sheetMusic = found
		return nil
	})
	return sheetMusic, err
}

func (s *service) findPage(ctx context.Context, op string, find func(ctx context.Context) (*Page[*SheetMusic], error)) (*Page[SheetMusicSummary], error) {
	var page *Page[*SheetMusic]
	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		found, err := find(ctx)
		if err != nil {
			return err
		}
		page = found
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return MapPage(page, ToSummary), nil
}

// uploadPdfs uploads files[i] under pdfs[i].UniqueName, stopping at the
// first failure.
func (s *service) uploadPdfs(ctx context.Context, pdfs []*Pdf, files []FileUpload) error {
	if len(pdfs) != len(files) {
		return fmt.Errorf("upload: %d pdfs for %d files", len(pdfs), len(files))
	}

	for i, pdf := range pdfs {
		file := files[i]
		if file.Reader == nil {
			return &StorageError{Key: pdf.UniqueName, Op: "upload", Err: errors.New("missing file content")}
		}

		mimeType := file.ContentType
		if mimeType == "" {
			mimeType = DefaultPdfContentType
		}

		params := UploadParams{Key: pdf.UniqueName, MimeType: mimeType}
		if err := s.fileStore.UploadWithParams(ctx, file.Reader, params); err != nil {
			return &StorageError{Key: pdf.UniqueName, Op: "upload", Err: err}
		}
	}
	return nil
}

// deletePdfs deletes the blobs of pdfs. Every blob is attempted; the
// failures are joined, one StorageError per key.
func (s *service) deletePdfs(ctx context.Context, pdfs []*Pdf) error {
	var errs []error
	for _, pdf := range pdfs {
		if err := s.fileStore.Delete(ctx, pdf.UniqueName); err != nil {
			s.logger.Warn("failed to delete pdf blob",
				"sheet_music_id", pdf.SheetMusicID,
				"pdf_id", pdf.ID,
				"key", pdf.UniqueName,
				"err", err)
			errs = append(errs, &StorageError{Key: pdf.UniqueName, Op: "delete", Err: err})
		}
	}
	return errors.Join(errs...)
}

func (s *service) attachDownloadURLs(ctx context.Context, response *SheetMusicResponse) {
	for i := range response.Pdfs {
		pdf := &response.Pdfs[i]
		url, err := s.fileStore.GetDownloadURL(ctx, pdf.UniqueName, pdf.OriginalName)
		if err != nil {
			s.logger.Debug("no download url for pdf", "key", pdf.UniqueName, "err", err)
			continue
		}
		pdf.DownloadURL = url
	}
}
