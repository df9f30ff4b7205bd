// Package repotest is a behavioural test suite shared by the repository
// implementations.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
)

// Store is a repository that also serves pdf lookups and transactions
type Store interface {
	sheetmusic.Repository
	sheetmusic.PdfRepository
	sheetmusic.Transactor
}

var uniqueCounter int

// NewSheetMusic builds an unsaved record owned by member 1
func NewSheetMusic(title, writer string, pdfNames ...string) *sheetmusic.SheetMusic {
	now := time.Now().UTC().Truncate(time.Millisecond)
	s := &sheetmusic.SheetMusic{
		Owner:     sheetmusic.Member{ID: 1, Email: "owner@example.com"},
		Title:     title,
		Writer:    writer,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, name := range pdfNames {
		uniqueCounter++
		s.Pdfs = append(s.Pdfs, &sheetmusic.Pdf{
			OriginalName: name,
			UniqueName:   fmt.Sprintf("%d-%d-%s", now.UnixNano(), uniqueCounter, name),
			CreatedAt:    now,
		})
	}
	return s
}

// Run exercises a fresh, empty store returned by newStore for each subtest
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("Save assigns ids", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		s := NewSheetMusic("Nocturne", "Chopin", "a.pdf", "b.pdf")
		require.NoError(t, store.Save(ctx, s))

		assert.NotZero(t, s.ID)
		require.Len(t, s.Pdfs, 2)
		assert.NotZero(t, s.Pdfs[0].ID)
		assert.NotEqual(t, s.Pdfs[0].ID, s.Pdfs[1].ID)
		assert.Equal(t, s.ID, s.Pdfs[1].SheetMusicID)

		found, err := store.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "Nocturne", found.Title)
		assert.Equal(t, "Chopin", found.Writer)
		assert.Equal(t, s.Owner, found.Owner)
		require.Len(t, found.Pdfs, 2)
		assert.Equal(t, "a.pdf", found.Pdfs[0].OriginalName)
		assert.Equal(t, s.Pdfs[0].UniqueName, found.Pdfs[0].UniqueName)
	})

	t.Run("FindByID not found", func(t *testing.T) {
		store := newStore(t)
		_, err := store.FindByID(context.Background(), 424242)
		assert.ErrorIs(t, err, sheetmusic.ErrSheetMusicNotFound)
	})

	t.Run("Save updates and syncs pdfs", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		s := NewSheetMusic("Ballade", "Chopin", "p1.pdf", "p2.pdf")
		require.NoError(t, store.Save(ctx, s))
		removed, kept := s.Pdfs[0], s.Pdfs[1]

		added := NewSheetMusic("", "", "p3.pdf").Pdfs[0]
		s.Title = "Ballade No. 1"
		s.Writer = "F. Chopin"
		s.Pdfs = []*sheetmusic.Pdf{kept, added}
		require.NoError(t, store.Save(ctx, s))
		assert.NotZero(t, added.ID)
		assert.Equal(t, s.ID, added.SheetMusicID)

		found, err := store.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ballade No. 1", found.Title)
		assert.Equal(t, "F. Chopin", found.Writer)
		require.Len(t, found.Pdfs, 2)
		assert.Equal(t, kept.ID, found.Pdfs[0].ID)
		assert.Equal(t, added.ID, found.Pdfs[1].ID)

		pdfs, err := store.FindAllBySheetMusic(ctx, s.ID)
		require.NoError(t, err)
		for _, pdf := range pdfs {
			assert.NotEqual(t, removed.ID, pdf.ID)
		}
	})

	t.Run("Save unknown id", func(t *testing.T) {
		store := newStore(t)
		s := NewSheetMusic("Ghost", "Nobody")
		s.ID = 424242
		assert.ErrorIs(t, store.Save(context.Background(), s), sheetmusic.ErrSheetMusicNotFound)
	})

	t.Run("DeleteByID removes pdf rows", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		s := NewSheetMusic("Waltz", "Chopin", "w1.pdf", "w2.pdf")
		require.NoError(t, store.Save(ctx, s))
		require.NoError(t, store.DeleteByID(ctx, s.ID))

		_, err := store.FindByID(ctx, s.ID)
		assert.ErrorIs(t, err, sheetmusic.ErrSheetMusicNotFound)

		pdfs, err := store.FindAllBySheetMusic(ctx, s.ID)
		require.NoError(t, err)
		assert.Empty(t, pdfs)

		assert.ErrorIs(t, store.DeleteByID(ctx, s.ID), sheetmusic.ErrSheetMusicNotFound)
	})

	t.Run("FindAll pages by id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i := 1; i <= 5; i++ {
			require.NoError(t, store.Save(ctx, NewSheetMusic(fmt.Sprintf("Prelude %d", i), "Bach", "p.pdf")))
		}

		page, err := store.FindAll(ctx, sheetmusic.PageRequest{Page: 0, Size: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.TotalElements)
		assert.Equal(t, 3, page.TotalPages)
		require.Len(t, page.Content, 2)
		assert.Equal(t, "Prelude 1", page.Content[0].Title)
		assert.Len(t, page.Content[0].Pdfs, 1)

		page, err = store.FindAll(ctx, sheetmusic.PageRequest{Page: 2, Size: 2})
		require.NoError(t, err)
		require.Len(t, page.Content, 1)
		assert.Equal(t, "Prelude 5", page.Content[0].Title)

		page, err = store.FindAll(ctx, sheetmusic.PageRequest{Page: 9, Size: 2})
		require.NoError(t, err)
		assert.Empty(t, page.Content)
		assert.Equal(t, int64(5), page.TotalElements)
	})

	t.Run("Search is a case sensitive substring match", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Save(ctx, NewSheetMusic("Nocturne", "Chopin")))
		require.NoError(t, store.Save(ctx, NewSheetMusic("Nocturne in E", "Field")))
		require.NoError(t, store.Save(ctx, NewSheetMusic("100% Blues", "Anon_1")))

		titles := func(page *sheetmusic.Page[*sheetmusic.SheetMusic], err error) []string {
			require.NoError(t, err)
			result := []string{}
			for _, s := range page.Content {
				result = append(result, s.Title)
			}
			return result
		}
		all := sheetmusic.PageRequest{}

		assert.Equal(t, []string{"Nocturne", "Nocturne in E"}, titles(store.FindAllByTitleContaining(ctx, "turn", all)))
		assert.Equal(t, []string{}, titles(store.FindAllByTitleContaining(ctx, "nocturne", all)))
		assert.Equal(t, []string{"Nocturne", "Nocturne in E", "100% Blues"}, titles(store.FindAllByTitleContaining(ctx, "", all)))
		assert.Equal(t, []string{"100% Blues"}, titles(store.FindAllByTitleContaining(ctx, "0%", all)))
		assert.Equal(t, []string{"Nocturne in E"}, titles(store.FindAllByWriterContaining(ctx, "iel", all)))
		assert.Equal(t, []string{"100% Blues"}, titles(store.FindAllByWriterContaining(ctx, "_", all)))
		assert.Equal(t, []string{}, titles(store.FindAllByWriterContaining(ctx, "%x", all)))
	})

	t.Run("Transaction rollback", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		boom := errors.New("boom")

		var id int64
		err := store.WithinTransaction(ctx, func(ctx context.Context) error {
			s := NewSheetMusic("Rolled back", "Liszt", "r.pdf")
			if err := store.Save(ctx, s); err != nil {
				return err
			}
			id = s.ID
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = store.FindByID(ctx, id)
		assert.ErrorIs(t, err, sheetmusic.ErrSheetMusicNotFound)
	})

	t.Run("Transaction commit", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		var id int64
		err := store.WithinTransaction(ctx, func(ctx context.Context) error {
			s := NewSheetMusic("Committed", "Liszt", "c.pdf")
			if err := store.Save(ctx, s); err != nil {
				return err
			}
			id = s.ID

			found, err := store.FindByID(ctx, id)
			if err != nil {
				return err
			}
			assert.Equal(t, "Committed", found.Title)
			return nil
		})
		require.NoError(t, err)

		found, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Len(t, found.Pdfs, 1)
	})
}
