package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
	"github.com/tendant/sheetmusic/pkg/sheetmusic/repo/query"
)

//go:embed schema.sql
var Schema string

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// TxBeginner starts transactions. pgxpool.Pool and pgx.Tx both implement it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type txKey struct{}

// Repository implements sheetmusic.Repository, sheetmusic.PdfRepository and
// sheetmusic.Transactor using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// EnsureSchema creates the tables if they do not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return r.handlePostgresError("ensure_schema", err)
	}
	return nil
}

// WithinTransaction runs fn in a transaction carried by its context.
// Calls nested in a running transaction join it.
func (r *Repository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	beginner, ok := r.db.(TxBeginner)
	if !ok {
		return errors.New("database handle does not support transactions")
	}

	tx, err := beginner.Begin(ctx)
	if err != nil {
		return r.handlePostgresError("begin", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return r.handlePostgresError("commit", err)
	}
	return nil
}

func (r *Repository) conn(ctx context.Context) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return r.db
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "unique_name") {
				return fmt.Errorf("pdf unique name already exists")
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
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
	db := r.conn(ctx)
	err := db.QueryRow(ctx, `
		INSERT INTO sheet_music (member_id, member_email, title, writer, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		s.Owner.ID, s.Owner.Email, s.Title, s.Writer, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return r.handlePostgresError("insert_sheet_music", err)
	}

	return r.insertPdfs(ctx, s)
}

func (r *Repository) update(ctx context.Context, s *sheetmusic.SheetMusic) error {
	db := r.conn(ctx)
	tag, err := db.Exec(ctx, `
		UPDATE sheet_music SET title = $2, writer = $3, updated_at = $4
		WHERE id = $1`,
		s.ID, s.Title, s.Writer, s.UpdatedAt,
	)
	if err != nil {
		return r.handlePostgresError("update_sheet_music", err)
	}
	if tag.RowsAffected() == 0 {
		return sheetmusic.ErrSheetMusicNotFound
	}

	kept := make([]int64, 0, len(s.Pdfs))
	for _, pdf := range s.Pdfs {
		if pdf.ID != 0 {
			kept = append(kept, pdf.ID)
		}
	}
	_, err = db.Exec(ctx, `DELETE FROM pdf WHERE sheet_music_id = $1 AND NOT (id = ANY($2))`, s.ID, kept)
	if err != nil {
		return r.handlePostgresError("delete_pdfs", err)
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
		err := db.QueryRow(ctx, `
			INSERT INTO pdf (sheet_music_id, original_name, unique_name, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			s.ID, pdf.OriginalName, pdf.UniqueName, pdf.CreatedAt,
		).Scan(&pdf.ID)
		if err != nil {
			return r.handlePostgresError("insert_pdf", err)
		}
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*sheetmusic.SheetMusic, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT id, member_id, member_email, title, writer, created_at, updated_at
		FROM sheet_music WHERE id = $1`, id)

	s, err := scanSheetMusic(row)
	if err != nil {
		return nil, r.handlePostgresError("find_sheet_music", err)
	}

	if err := r.attachPdfs(ctx, []*sheetmusic.SheetMusic{s}); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) FindAll(ctx context.Context, page sheetmusic.PageRequest) (*sheetmusic.Page[*sheetmusic.SheetMusic], error) {
	return r.findPage(ctx, "", nil, page)
}

func (r *Repository) FindAllByTitleContaining(ctx context.Context, title string, page sheetmusic.PageRequest) (*sheetmusic.Page[*sheetmusic.SheetMusic], error) {
	return r.findPage(ctx, `WHERE title LIKE $1 ESCAPE '\'`, []interface{}{query.ContainsPattern(title)}, page)
}

func (r *Repository) FindAllByWriterContaining(ctx context.Context, writer string, page sheetmusic.PageRequest) (*sheetmusic.Page[*sheetmusic.SheetMusic], error) {
	return r.findPage(ctx, `WHERE writer LIKE $1 ESCAPE '\'`, []interface{}{query.ContainsPattern(writer)}, page)
}

func (r *Repository) DeleteByID(ctx context.Context, id int64) error {
	db := r.conn(ctx)

	// pdf rows cascade
	tag, err := db.Exec(ctx, `DELETE FROM sheet_music WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete_sheet_music", err)
	}
	if tag.RowsAffected() == 0 {
		return sheetmusic.ErrSheetMusicNotFound
	}
	return nil
}

// Pdf operations

func (r *Repository) FindAllBySheetMusic(ctx context.Context, sheetMusicID int64) ([]*sheetmusic.Pdf, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, sheet_music_id, original_name, unique_name, created_at
		FROM pdf WHERE sheet_music_id = $1 ORDER BY id`, sheetMusicID)
	if err != nil {
		return nil, r.handlePostgresError("find_pdfs", err)
	}
	defer rows.Close()

	pdfs := []*sheetmusic.Pdf{}
	for rows.Next() {
		pdf, err := scanPdf(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan_pdf", err)
		}
		pdfs = append(pdfs, pdf)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("find_pdfs", err)
	}
	return pdfs, nil
}

// Helper methods

// findPage runs a filtered, id-ordered page query. where may reference
// args as $1..$n; limit and offset follow them.
func (r *Repository) findPage(ctx context.Context, where string, args []interface{}, page sheetmusic.PageRequest) (*sheetmusic.Page[*sheetmusic.SheetMusic], error) {
	db := r.conn(ctx)
	page = page.Normalize()

	var total int64
	if err := db.QueryRow(ctx, `SELECT count(*) FROM sheet_music `+where, args...).Scan(&total); err != nil {
		return nil, r.handlePostgresError("count_sheet_music", err)
	}

	n := len(args)
	sql := fmt.Sprintf(`
		SELECT id, member_id, member_email, title, writer, created_at, updated_at
		FROM sheet_music %s
		ORDER BY id
		LIMIT $%d OFFSET $%d`, where, n+1, n+2)

	rows, err := db.Query(ctx, sql, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, r.handlePostgresError("find_sheet_music", err)
	}
	defer rows.Close()

	var content []*sheetmusic.SheetMusic
	for rows.Next() {
		s, err := scanSheetMusic(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan_sheet_music", err)
		}
		content = append(content, s)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("find_sheet_music", err)
	}
	rows.Close()

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

	ids := make([]int64, 0, len(records))
	byID := make(map[int64]*sheetmusic.SheetMusic, len(records))
	for _, s := range records {
		s.Pdfs = []*sheetmusic.Pdf{}
		ids = append(ids, s.ID)
		byID[s.ID] = s
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, sheet_music_id, original_name, unique_name, created_at
		FROM pdf WHERE sheet_music_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return r.handlePostgresError("find_pdfs", err)
	}
	defer rows.Close()

	for rows.Next() {
		pdf, err := scanPdf(rows)
		if err != nil {
			return r.handlePostgresError("scan_pdf", err)
		}
		if s, ok := byID[pdf.SheetMusicID]; ok {
			s.Pdfs = append(s.Pdfs, pdf)
		}
	}
	if err := rows.Err(); err != nil {
		return r.handlePostgresError("find_pdfs", err)
	}
	return nil
}

func scanSheetMusic(row pgx.Row) (*sheetmusic.SheetMusic, error) {
	var s sheetmusic.SheetMusic
	err := row.Scan(&s.ID, &s.Owner.ID, &s.Owner.Email, &s.Title, &s.Writer, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanPdf(row pgx.Row) (*sheetmusic.Pdf, error) {
	var pdf sheetmusic.Pdf
	err := row.Scan(&pdf.ID, &pdf.SheetMusicID, &pdf.OriginalName, &pdf.UniqueName, &pdf.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &pdf, nil
}
