package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
)

//go:embed schema.sql
var Schema string

// DBTX is satisfied by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// Repository implements sheetmusic.Repository, sheetmusic.PdfRepository and
// sheetmusic.Transactor using SQLite
type Repository struct {
	db *sql.DB
}

// Open opens a SQLite database at path with foreign keys enabled.
// The path can be ":memory:" for an in-memory database.
func Open(path string) (*sql.DB, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	if path == ":memory:" {
		dsn = "file::memory:?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to :memory: is a separate database; transactions also
	// need a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// New creates a new SQLite repository
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the tables if they do not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// WithinTransaction runs fn in a transaction carried by its context.
// Calls nested in a running transaction join it.
func (r *Repository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return handleSQLiteError("begin", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return handleSQLiteError("commit", err)
	}
	return nil
}

func (r *Repository) conn(ctx context.Context) DBTX {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

func handleSQLiteError(operation string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique:
			return fmt.Errorf("pdf unique name already exists")
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("referenced record not found")
		case sqlite3.ErrConstraintNotNull:
			return fmt.Errorf("required field is missing")
		}
		return fmt.Errorf("database error in %s: %s", operation, sqliteErr.Error())
	}

	if errors.Is(err, sql.ErrNoRows) {
		return sheetmusic.ErrSheetMusicNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Sheet music operations

func (r *Repository) Save(ctx context.Context, s *sheetmusic.SheetMusic) error {
	if s.ID == 0 {
		return r.insert(ctx, s)
	}
	return r.update(ctx, s)
}

func (r *Repository) insert(ctx context.Context, s *sheetmusic.SheetMusic) error {
	result, err := r.conn(ctx).ExecContext(ctx, `
		INSERT INTO sheet_music (member_id, member_email, title, writer, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.Owner.ID, s.Owner.Email, s.Title, s.Writer, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return handleSQLiteError("insert_sheet_music", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return handleSQLiteError("insert_sheet_music", err)
	}
	s.ID = id

	return r.insertPdfs(ctx, s)
}

func (r *Repository) update(ctx context.Context, s *sheetmusic.SheetMusic) error {
	db := r.conn(ctx)
	result, err := db.ExecContext(ctx, `
		UPDATE sheet_music SET title = ?, writer = ?, updated_at = ?
		WHERE id = ?`,
		s.Title, s.Writer, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return handleSQLiteError("update_sheet_music", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return handleSQLiteError("update_sheet_music", err)
	} else if n == 0 {
		return sheetmusic.ErrSheetMusicNotFound
	}

	args := []any{s.ID}
	var kept []string
	for _, pdf := range s.Pdfs {
		if pdf.ID != 0 {
			kept = append(kept, "?")
			args = append(args, pdf.ID)
		}
	}

	deleteQuery := `DELETE FROM pdf WHERE sheet_music_id = ?`
	if len(kept) > 0 {
		deleteQuery += ` AND id NOT IN (` + strings.Join(kept, ", ") + `)`
	}
	if _, err := db.ExecContext(ctx, deleteQuery, args...); err != nil {
		return handleSQLiteError("delete_pdfs", err)
	}

	return r.insertPdfs(ctx, s)
}

// insertPdfs inserts the pdfs of s that have no id yet
func (r *Repository) insertPdfs(ctx context.Context, s *sheetmusic.SheetMusic) error {
	db := r.conn(ctx)
	for _, pdf := range s.Pdfs {
		pdf.SheetMusicID = s.ID
		if pdf.ID != 0 {
			continue
		}
		result, err := db.ExecContext(ctx, `
			INSERT INTO pdf (sheet_music_id, original_name, unique_name, created_at)
			VALUES (?, ?, ?, ?)`,
			s.ID, pdf.OriginalName, pdf.UniqueName, pdf.CreatedAt,
		)
		if err != nil {
			return handleSQLiteError("insert_pdf", err)
		}
		if pdf.ID, err = result.LastInsertId(); err != nil {
			return handleSQLiteError("insert_pdf", err)
		}
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*sheetmusic.SheetMusic, error) {
	row := r.conn(ctx).QueryRowContext(ctx, `
		SELECT id, member_id, member_email, title, writer, created_at, updated_at
		FROM sheet_music WHERE id = ?`, id)

	s, err := scanSheetMusic(row)
	if err != nil {
		return nil, handleSQLiteError("find_sheet_music", err)
	}

	if err := r.attachPdfs(ctx, []*sheetmusic.SheetMusic{s}); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) FindAll(ctx context.Context, page sheetmusic.PageRequest) (*sheetmusic.Page[*sheetmusic.SheetMusic], error) {
	return r.findPage(ctx, "", nil, page)
}

// instr is case sensitive and needs no escaping, unlike LIKE in SQLite

func (r *Repository) FindAllByTitleContaining(ctx context.Context, title string, page sheetmusic.PageRequest) (*sheetmusic.Page[*sheetmusic.SheetMusic], error) {
	return r.findPage(ctx, `WHERE instr(title, ?) > 0`, []any{title}, page)
}

func (r *Repository) FindAllByWriterContaining(ctx context.Context, writer string, page sheetmusic.PageRequest) (*sheetmusic.Page[*sheetmusic.SheetMusic], error) {
	return r.findPage(ctx, `WHERE instr(writer, ?) > 0`, []any{writer}, page)
}

func (r *Repository) DeleteByID(ctx context.Context, id int64) error {
	db := r.conn(ctx)

	if _, err := db.ExecContext(ctx, `DELETE FROM pdf WHERE sheet_music_id = ?`, id); err != nil {
		return handleSQLiteError("delete_pdfs", err)
	}

	result, err := db.ExecContext(ctx, `DELETE FROM sheet_music WHERE id = ?`, id)
	if err != nil {
		return handleSQLiteError("delete_sheet_music", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return handleSQLiteError("delete_sheet_music", err)
	} else if n == 0 {
		return sheetmusic.ErrSheetMusicNotFound
	}
	return nil
}

// Pdf operations

func (r *Repository) FindAllBySheetMusic(ctx context.Context, sheetMusicID int64) ([]*sheetmusic.Pdf, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `
		SELECT id, sheet_music_id, original_name, unique_name, created_at
		FROM pdf WHERE sheet_music_id = ? ORDER BY id`, sheetMusicID)
	if err != nil {
		return nil, handleSQLiteError("find_pdfs", err)
	}
	defer rows.Close()

	pdfs := []*sheetmusic.Pdf{}
	for rows.Next() {
		pdf, err := scanPdf(rows)
		if err != nil {
			return nil, handleSQLiteError("scan_pdf", err)
		}
		pdfs = append(pdfs, pdf)
	}
	if err := rows.Err(); err != nil {
		return nil, handleSQLiteError("find_pdfs", err)
	}
	return pdfs, nil
}

// Helper methods

func (r *Repository) findPage(ctx context.Context, where string, args []any, page sheetmusic.PageRequest) (*sheetmusic.Page[*sheetmusic.SheetMusic], error) {
	db := r.conn(ctx)
	page = page.Normalize()

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM sheet_music `+where, args...).Scan(&total); err != nil {
		return nil, handleSQLiteError("count_sheet_music", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, member_id, member_email, title, writer, created_at, updated_at
		FROM sheet_music `+where+`
		ORDER BY id
		LIMIT ? OFFSET ?`, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, handleSQLiteError("find_sheet_music", err)
	}

	var content []*sheetmusic.SheetMusic
	for rows.Next() {
		s, err := scanSheetMusic(rows)
		if err != nil {
			rows.Close()
			return nil, handleSQLiteError("scan_sheet_music", err)
		}
		content = append(content, s)
	}
	// Release the connection before the pdf query
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, handleSQLiteError("find_sheet_music", err)
	}

	if err := r.attachPdfs(ctx, content); err != nil {
		return nil, err
	}
	return sheetmusic.NewPage(content, page, total), nil
}

// attachPdfs loads the pdfs of all records with one query
func (r *Repository) attachPdfs(ctx context.Context, records []*sheetmusic.SheetMusic) error {
	if len(records) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(records))
	args := make([]any, 0, len(records))
	byID := make(map[int64]*sheetmusic.SheetMusic, len(records))
	for _, s := range records {
		s.Pdfs = []*sheetmusic.Pdf{}
		placeholders = append(placeholders, "?")
		args = append(args, s.ID)
		byID[s.ID] = s
	}

	rows, err := r.conn(ctx).QueryContext(ctx, `
		SELECT id, sheet_music_id, original_name, unique_name, created_at
		FROM pdf WHERE sheet_music_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY id`, args...)
	if err != nil {
		return handleSQLiteError("find_pdfs", err)
	}
	defer rows.Close()

	for rows.Next() {
		pdf, err := scanPdf(rows)
		if err != nil {
			return handleSQLiteError("scan_pdf", err)
		}
		if s, ok := byID[pdf.SheetMusicID]; ok {
			s.Pdfs = append(s.Pdfs, pdf)
		}
	}
	if err := rows.Err(); err != nil {
		return handleSQLiteError("find_pdfs", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSheetMusic(row scanner) (*sheetmusic.SheetMusic, error) {
	var s sheetmusic.SheetMusic
	err := row.Scan(&s.ID, &s.Owner.ID, &s.Owner.Email, &s.Title, &s.Writer, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanPdf(row scanner) (*sheetmusic.Pdf, error) {
	var pdf sheetmusic.Pdf
	err := row.Scan(&pdf.ID, &pdf.SheetMusicID, &pdf.OriginalName, &pdf.UniqueName, &pdf.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &pdf, nil
}
