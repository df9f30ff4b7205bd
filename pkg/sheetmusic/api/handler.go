package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
)

// maxUploadMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const maxUploadMemory = 32 << 20

// SheetMusicHandler handles HTTP requests for the sheet music catalog
type SheetMusicHandler struct {
	service sheetmusic.Service
	auth    *jwtauth.JWTAuth
	limiter *RateLimiter
	logger  *slog.Logger
}

// HandlerOption configures a SheetMusicHandler
type HandlerOption func(*SheetMusicHandler)

// WithRateLimiter limits the mutating routes per client
func WithRateLimiter(limiter *RateLimiter) HandlerOption {
	return func(h *SheetMusicHandler) {
		h.limiter = limiter
	}
}

// WithHandlerLogger sets the logger used for failed requests
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *SheetMusicHandler) {
		h.logger = logger
	}
}

// NewSheetMusicHandler creates a handler. auth verifies the bearer tokens of
// the mutating routes.
func NewSheetMusicHandler(service sheetmusic.Service, auth *jwtauth.JWTAuth, opts ...HandlerOption) *SheetMusicHandler {
	h := &SheetMusicHandler{
		service: service,
		auth:    auth,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the routes for sheet music
func (h *SheetMusicHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.FindAll)
	r.Get("/search/title", h.SearchTitle)
	r.Get("/search/writer", h.SearchWriter)
	r.Get("/{id}", h.Find)
	r.Get("/{id}/pdfs/{pdfID}", h.DownloadPdf)

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.auth))
		r.Use(Authenticator)
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}

		r.Post("/", h.Create)
		r.Put("/{id}", h.Edit)
		r.Delete("/{id}", h.Delete)
	})

	return r
}

// FindAll lists one page of the catalog
func (h *SheetMusicHandler) FindAll(w http.ResponseWriter, r *http.Request) {
	page, ok := h.pageRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.FindAllSheetMusic(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// SearchTitle lists records whose title contains q
func (h *SheetMusicHandler) SearchTitle(w http.ResponseWriter, r *http.Request) {
	page, ok := h.pageRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.SearchTitleSheetMusic(r.Context(), page, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// SearchWriter lists records whose writer contains q
func (h *SheetMusicHandler) SearchWriter(w http.ResponseWriter, r *http.Request) {
	page, ok := h.pageRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.SearchWriterSheetMusic(r.Context(), page, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Find returns one record with its pdfs
func (h *SheetMusicHandler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.service.FindSheetMusic(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// DownloadPdf streams an attached pdf
func (h *SheetMusicHandler) DownloadPdf(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	pdfID, ok := h.pathID(w, r, "pdfID")
	if !ok {
		return
	}

	reader, pdf, err := h.service.DownloadPdf(r.Context(), id, pdfID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", sheetmusic.DefaultPdfContentType)
	w.Header().Set("Content-Disposition", contentDisposition(pdf.OriginalName))
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("failed to stream pdf", "sheet_music_id", id, "pdf_id", pdfID, "err", err)
	}
}

// Create catalogs a new record from a multipart form with title, writer and
// any number of pdfs parts.
func (h *SheetMusicHandler) Create(w http.ResponseWriter, r *http.Request) {
	member, ok := h.member(w, r)
	if !ok {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, closeFiles, err := openUploads(r.MultipartForm, "pdfs")
	defer closeFiles()
	if err != nil {
		h.writeError(w, r, badRequest(err))
		return
	}

	req := sheetmusic.CreateSheetMusicRequest{
		Title:  r.FormValue("title"),
		Writer: r.FormValue("writer"),
		Pdfs:   files,
	}

	result, err := h.service.CreateSheetMusic(r.Context(), req, member)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("sheet music created", "sheet_music_id", result.ID, "member_id", member.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

// Edit replaces title and writer, removes deletedPdfIds and attaches addedPdfs
func (h *SheetMusicHandler) Edit(w http.ResponseWriter, r *http.Request) {
	member, ok := h.member(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	deleted, err := parseIDs(r.MultipartForm.Value["deletedPdfIds"])
	if err != nil {
		h.writeError(w, r, badRequest(err))
		return
	}

	files, closeFiles, err := openUploads(r.MultipartForm, "addedPdfs")
	defer closeFiles()
	if err != nil {
		h.writeError(w, r, badRequest(err))
		return
	}

	req := sheetmusic.EditSheetMusicRequest{
		Title:         r.FormValue("title"),
		Writer:        r.FormValue("writer"),
		AddedPdfs:     files,
		DeletedPdfIDs: deleted,
	}

	result, err := h.service.EditSheetMusic(r.Context(), id, member, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Delete removes a record and its pdfs
func (h *SheetMusicHandler) Delete(w http.ResponseWriter, r *http.Request) {
	member, ok := h.member(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteSheetMusic(r.Context(), id, member); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("sheet music deleted", "sheet_music_id", id, "member_id", member.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Helpers

func (h *SheetMusicHandler) member(w http.ResponseWriter, r *http.Request) (sheetmusic.Member, bool) {
	member, err := MemberFromContext(r.Context())
	if err != nil {
		h.writeError(w, r, unauthorized(err))
		return sheetmusic.Member{}, false
	}
	return member, true
}

func (h *SheetMusicHandler) pageRequest(w http.ResponseWriter, r *http.Request) (sheetmusic.PageRequest, bool) {
	query := r.URL.Query()
	page, err := queryInt(query.Get("page"))
	if err != nil {
		h.writeError(w, r, badRequest(errors.New("page must be an integer")))
		return sheetmusic.PageRequest{}, false
	}
	size, err := queryInt(query.Get("size"))
	if err != nil {
		h.writeError(w, r, badRequest(errors.New("size must be an integer")))
		return sheetmusic.PageRequest{}, false
	}

	req, err := sheetmusic.NewPageRequest(page, size)
	if err != nil {
		h.writeError(w, r, err)
		return sheetmusic.PageRequest{}, false
	}
	return req, true
}

func (h *SheetMusicHandler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, badRequest(errors.New("invalid "+param+": "+raw)))
		return 0, false
	}
	return id, true
}

func (h *SheetMusicHandler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.writeError(w, r, badRequest(err))
		return false
	}
	return true
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, errors.New("invalid pdf id: " + part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// openUploads opens every file part under field, in form order. The returned
// func closes whatever was opened.
func openUploads(form *multipart.Form, field string) ([]sheetmusic.FileUpload, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	headers := form.File[field]
	uploads := make([]sheetmusic.FileUpload, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, closeAll, err
		}
		opened = append(opened, file)

		contentType := header.Header.Get("Content-Type")
		if contentType == "application/octet-stream" {
			contentType = ""
		}
		uploads = append(uploads, sheetmusic.FileUpload{
			FileName:    header.Filename,
			ContentType: contentType,
			Size:        header.Size,
			Reader:      file,
		})
	}
	return uploads, closeAll, nil
}

// contentDisposition names the attachment, switching to the RFC 2231
// filename* form for names that are not plain ASCII tokens.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
