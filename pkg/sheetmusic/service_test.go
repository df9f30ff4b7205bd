package sheetmusic_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/sheetmusic/pkg/sheetmusic"
	"github.com/tendant/sheetmusic/pkg/sheetmusic/objectkey"
	"github.com/tendant/sheetmusic/pkg/sheetmusic/repo/memory"
	"github.com/tendant/sheetmusic/pkg/sheetmusic/sheetmusictest"
	memorystorage "github.com/tendant/sheetmusic/pkg/sheetmusic/storage/memory"
)

var (
	owner    = sheetmusic.Member{ID: 1, Email: "owner@example.com"}
	stranger = sheetmusic.Member{ID: 2, Email: "stranger@example.com"}
)

type uploadCall struct {
	key      string
	data     []byte
	mimeType string
}

// recordingStore records file store calls and can be told to fail them
type recordingStore struct {
	*memorystorage.Backend

	mu         sync.Mutex
	uploads    []uploadCall
	deletes    []string
	failUpload map[string]bool
	failDelete map[string]bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		Backend:    memorystorage.New(),
		failUpload: make(map[string]bool),
		failDelete: make(map[string]bool),
	}
}

func (r *recordingStore) UploadWithParams(ctx context.Context, reader io.Reader, params sheetmusic.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.uploads = append(r.uploads, uploadCall{key: params.Key, data: data, mimeType: params.MimeType})
	fail := r.failUpload[params.Key]
	r.mu.Unlock()

	if fail {
		return errors.New("upload refused")
	}
	return r.Backend.UploadWithParams(ctx, bytes.NewReader(data), params)
}

func (r *recordingStore) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	r.deletes = append(r.deletes, key)
	fail := r.failDelete[key]
	r.mu.Unlock()

	if fail {
		return errors.New("delete refused")
	}
	return r.Backend.Delete(ctx, key)
}

func (r *recordingStore) GetDownloadURL(ctx context.Context, key string, downloadFilename string) (string, error) {
	return "https://files.example.com/" + key, nil
}

func (r *recordingStore) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads = nil
	r.deletes = nil
}

type recordingSink struct {
	events []sheetmusic.Event
}

func (s *recordingSink) SheetMusicCreated(ctx context.Context, sm *sheetmusic.SheetMusic) error {
	s.events = append(s.events, sheetmusic.NewCreatedEvent(sm))
	return nil
}

func (s *recordingSink) SheetMusicUpdated(ctx context.Context, sm *sheetmusic.SheetMusic, result sheetmusic.PdfUpdatedResult) error {
	s.events = append(s.events, sheetmusic.NewUpdatedEvent(sm, result))
	return nil
}

func (s *recordingSink) SheetMusicDeleted(ctx context.Context, id int64) error {
	s.events = append(s.events, sheetmusic.NewDeletedEvent(id))
	return errors.New("sink unavailable")
}

type testEnv struct {
	svc   sheetmusic.Service
	repo  *memory.Repository
	store *recordingStore
	sink  *recordingSink
	logs  *bytes.Buffer
}

func setupTestService(t *testing.T, options ...sheetmusic.Option) *testEnv {
	env := &testEnv{
		repo:  memory.New(),
		store: newRecordingStore(),
		sink:  &recordingSink{},
		logs:  &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(env.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	svc, err := sheetmusic.New(append([]sheetmusic.Option{
		sheetmusic.WithRepository(env.repo),
		sheetmusic.WithFileStore(env.store),
		sheetmusic.WithEventSink(env.sink),
		sheetmusic.WithLogger(logger),
	}, options...)...)
	require.NoError(t, err)
	env.svc = svc
	return env
}

func createNocturne(t *testing.T, env *testEnv, files ...string) *sheetmusic.SheetMusicResponse {
	t.Helper()
	req := sheetmusic.CreateSheetMusicRequest{Title: "Nocturne", Writer: "Chopin"}
	for _, name := range files {
		req.Pdfs = append(req.Pdfs, sheetmusictest.Upload(t, name, name))
	}
	created, err := env.svc.CreateSheetMusic(context.Background(), req, owner)
	require.NoError(t, err)
	env.store.reset()
	return created
}

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []sheetmusic.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []sheetmusic.Option{},
			expectError: true,
		},
		{
			name: "repository without file store should fail",
			options: []sheetmusic.Option{
				sheetmusic.WithRepository(memory.New()),
			},
			expectError: true,
		},
		{
			name: "with repository and file store should succeed",
			options: []sheetmusic.Option{
				sheetmusic.WithRepository(memory.New()),
				sheetmusic.WithFileStore(memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := sheetmusic.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestCreateSheetMusic(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	fileA := sheetmusictest.Upload(t, "fileA.pdf", "Nocturne page A")
	fileB := sheetmusictest.Upload(t, "fileB.pdf", "Nocturne page B")

	created, err := env.svc.CreateSheetMusic(ctx, sheetmusic.CreateSheetMusicRequest{
		Title:  "Nocturne",
		Writer: "Chopin",
		Pdfs:   []sheetmusic.FileUpload{fileA, fileB},
	}, owner)
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, owner, created.Owner)
	require.Len(t, created.Pdfs, 2)
	k1, k2 := created.Pdfs[0].UniqueName, created.Pdfs[1].UniqueName
	assert.NotEqual(t, k1, k2)
	assert.Equal(t, "fileA.pdf", created.Pdfs[0].OriginalName)
	assert.Equal(t, "fileB.pdf", created.Pdfs[1].OriginalName)

	// one upload per key, in input order
	require.Len(t, env.store.uploads, 2)
	assert.Equal(t, k1, env.store.uploads[0].key)
	assert.Equal(t, k2, env.store.uploads[1].key)
	assert.Equal(t, "application/pdf", env.store.uploads[0].mimeType)
	assert.Equal(t, fileA.Size, int64(len(env.store.uploads[0].data)))
	assert.Equal(t, fileB.Size, int64(len(env.store.uploads[1].data)))

	stored, err := env.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Pdfs, 2)

	require.Len(t, env.sink.events, 1)
	assert.Equal(t, sheetmusic.EventSheetMusicCreated, env.sink.events[0].Type)
}

func TestCreateSheetMusic_UniqueNamesAcrossRecords(t *testing.T) {
	env := setupTestService(t)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		created, err := env.svc.CreateSheetMusic(context.Background(), sheetmusic.CreateSheetMusicRequest{
			Title: "Etude",
			Pdfs: []sheetmusic.FileUpload{
				sheetmusictest.Upload(t, "etude.pdf", "a"),
				sheetmusictest.Upload(t, "etude.pdf", "b"),
			},
		}, owner)
		require.NoError(t, err)
		for _, pdf := range created.Pdfs {
			assert.False(t, seen[pdf.UniqueName], "duplicate unique name %s", pdf.UniqueName)
			seen[pdf.UniqueName] = true
		}
	}
	assert.Len(t, seen, 10)
}

func TestCreateSheetMusic_UploadFailureKeepsRecord(t *testing.T) {
	env := setupTestService(t, sheetmusic.WithKeyGenerator(sequentialKeys()))
	env.store.failUpload["key-2"] = true

	_, err := env.svc.CreateSheetMusic(context.Background(), sheetmusic.CreateSheetMusicRequest{
		Title: "Nocturne",
		Pdfs: []sheetmusic.FileUpload{
			sheetmusictest.Upload(t, "a.pdf", "a"),
			sheetmusictest.Upload(t, "b.pdf", "b"),
			sheetmusictest.Upload(t, "c.pdf", "c"),
		},
	}, owner)

	var storageErr *sheetmusic.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "key-2", storageErr.Key)

	// the committed row stays and the first blob is not rolled back
	page, err := env.svc.FindAllSheetMusic(context.Background(), sheetmusic.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.TotalElements)
	assert.Equal(t, []string{"key-1"}, env.store.Keys())
	assert.Len(t, env.store.uploads, 2)
}

func TestFindSheetMusic(t *testing.T) {
	env := setupTestService(t)
	created := createNocturne(t, env, "a.pdf")

	found, err := env.svc.FindSheetMusic(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nocturne", found.Title)
	assert.Equal(t, "Chopin", found.Writer)
	require.Len(t, found.Pdfs, 1)
	assert.Equal(t, "https://files.example.com/"+found.Pdfs[0].UniqueName, found.Pdfs[0].DownloadURL)
}

func TestFindSheetMusic_NotFound(t *testing.T) {
	env := setupTestService(t)
	createNocturne(t, env)

	found, err := env.svc.FindSheetMusic(context.Background(), 999)
	assert.Nil(t, found)
	assert.ErrorIs(t, err, sheetmusic.ErrSheetMusicNotFound)

	var smErr *sheetmusic.SheetMusicError
	require.ErrorAs(t, err, &smErr)
	assert.Equal(t, int64(999), smErr.ID)
}

func TestFindAndSearchSheetMusic(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	for _, r := range []struct{ title, writer string }{
		{"Nocturne", "Chopin"},
		{"Gymnopedie", "Satie"},
		{"Nocturne in E", "Field"},
		{"Clair de Lune", "Debussy"},
	} {
		_, err := env.svc.CreateSheetMusic(ctx, sheetmusic.CreateSheetMusicRequest{Title: r.title, Writer: r.writer}, owner)
		require.NoError(t, err)
	}

	titles := func(page *sheetmusic.Page[sheetmusic.SheetMusicSummary]) []string {
		result := []string{}
		for _, s := range page.Content {
			result = append(result, s.Title)
		}
		return result
	}

	t.Run("find all pages in id order", func(t *testing.T) {
		page, err := env.svc.FindAllSheetMusic(ctx, sheetmusic.PageRequest{Page: 0, Size: 3})
		require.NoError(t, err)
		assert.Equal(t, []string{"Nocturne", "Gymnopedie", "Nocturne in E"}, titles(page))
		assert.Equal(t, int64(4), page.TotalElements)
		assert.Equal(t, "owner@example.com", page.Content[0].OwnerEmail)
	})

	t.Run("search title", func(t *testing.T) {
		page, err := env.svc.SearchTitleSheetMusic(ctx, sheetmusic.PageRequest{}, "Noct")
		require.NoError(t, err)
		assert.Equal(t, []string{"Nocturne", "Nocturne in E"}, titles(page))
	})

	t.Run("search writer", func(t *testing.T) {
		page, err := env.svc.SearchWriterSheetMusic(ctx, sheetmusic.PageRequest{}, "ebus")
		require.NoError(t, err)
		assert.Equal(t, []string{"Clair de Lune"}, titles(page))
	})

	t.Run("empty title search equals find all", func(t *testing.T) {
		for _, req := range []sheetmusic.PageRequest{{Page: 0, Size: 2}, {Page: 1, Size: 2}, {Page: 0, Size: 10}} {
			all, err := env.svc.FindAllSheetMusic(ctx, req)
			require.NoError(t, err)
			searched, err := env.svc.SearchTitleSheetMusic(ctx, req, "")
			require.NoError(t, err)
			assert.Equal(t, all, searched)
		}
	})
}

func TestEditSheetMusic(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	created := createNocturne(t, env, "p1.pdf", "p2.pdf")
	p1, p2 := created.Pdfs[0], created.Pdfs[1]

	edited, err := env.svc.EditSheetMusic(ctx, created.ID, owner, sheetmusic.EditSheetMusicRequest{
		Title:         "Nocturne Op. 9",
		Writer:        "Frederic Chopin",
		DeletedPdfIDs: []int64{p1.ID},
		AddedPdfs:     []sheetmusic.FileUpload{sheetmusictest.Upload(t, "fileC.pdf", "C")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Nocturne Op. 9", edited.Title)
	assert.Equal(t, "Frederic Chopin", edited.Writer)
	require.Len(t, edited.Pdfs, 2)
	assert.Equal(t, p2.ID, edited.Pdfs[0].ID)
	p3 := edited.Pdfs[1]
	assert.Equal(t, "fileC.pdf", p3.OriginalName)
	assert.NotZero(t, p3.ID)

	require.Len(t, env.store.uploads, 1)
	assert.Equal(t, p3.UniqueName, env.store.uploads[0].key)
	assert.Equal(t, []string{p1.UniqueName}, env.store.deletes)

	stored, err := env.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, stored.Pdfs, 2)
	assert.Equal(t, p2.UniqueName, stored.Pdfs[0].UniqueName)
	assert.Equal(t, p3.UniqueName, stored.Pdfs[1].UniqueName)
	assert.ElementsMatch(t, []string{p2.UniqueName, p3.UniqueName}, env.store.Keys())
}

func TestEditSheetMusic_IgnoresUnknownPdfIDs(t *testing.T) {
	env := setupTestService(t)
	a := createNocturne(t, env, "a.pdf")
	b := createNocturne(t, env, "b.pdf")

	edited, err := env.svc.EditSheetMusic(context.Background(), a.ID, owner, sheetmusic.EditSheetMusicRequest{
		Title:         "Nocturne",
		DeletedPdfIDs: []int64{b.Pdfs[0].ID, 12345},
	})
	require.NoError(t, err)
	assert.Len(t, edited.Pdfs, 1)
	assert.Empty(t, env.store.deletes)

	other, err := env.svc.FindSheetMusic(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Len(t, other.Pdfs, 1)
}

func TestEditSheetMusic_NotOwner(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	created := createNocturne(t, env, "p1.pdf", "p2.pdf")

	_, err := env.svc.EditSheetMusic(ctx, created.ID, stranger, sheetmusic.EditSheetMusicRequest{
		Title:         "Hijacked",
		Writer:        "Nobody",
		DeletedPdfIDs: []int64{created.Pdfs[0].ID},
		AddedPdfs:     []sheetmusic.FileUpload{sheetmusictest.Upload(t, "x.pdf", "x")},
	})
	assert.ErrorIs(t, err, sheetmusic.ErrOwnershipMismatch)

	found, err := env.svc.FindSheetMusic(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nocturne", found.Title)
	assert.Equal(t, "Chopin", found.Writer)
	assert.Len(t, found.Pdfs, 2)
	assert.Empty(t, env.store.uploads)
	assert.Empty(t, env.store.deletes)
}

func TestEditSheetMusic_SameEmailDifferentMember(t *testing.T) {
	env := setupTestService(t)
	created := createNocturne(t, env)

	impostor := sheetmusic.Member{ID: 99, Email: owner.Email}
	_, err := env.svc.EditSheetMusic(context.Background(), created.ID, impostor, sheetmusic.EditSheetMusicRequest{Title: "x"})
	assert.ErrorIs(t, err, sheetmusic.ErrOwnershipMismatch)

	err = env.svc.DeleteSheetMusic(context.Background(), created.ID, impostor)
	assert.ErrorIs(t, err, sheetmusic.ErrOwnershipMismatch)
}

func TestEditSheetMusic_NotFound(t *testing.T) {
	env := setupTestService(t)
	_, err := env.svc.EditSheetMusic(context.Background(), 42, owner, sheetmusic.EditSheetMusicRequest{Title: "x"})
	assert.ErrorIs(t, err, sheetmusic.ErrSheetMusicNotFound)
}

func TestEditSheetMusic_DeleteFailureIsReturned(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	created := createNocturne(t, env, "p1.pdf", "p2.pdf")
	p1, p2 := created.Pdfs[0], created.Pdfs[1]
	env.store.failDelete[p1.UniqueName] = true

	_, err := env.svc.EditSheetMusic(ctx, created.ID, owner, sheetmusic.EditSheetMusicRequest{
		Title:         "Nocturne Op. 9",
		DeletedPdfIDs: []int64{p1.ID, p2.ID},
	})
	require.Error(t, err)

	var storageErr *sheetmusic.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "delete", storageErr.Op)
	assert.Equal(t, p1.UniqueName, storageErr.Key)

	// every removed blob is still attempted
	assert.ElementsMatch(t, []string{p1.UniqueName, p2.UniqueName}, env.store.deletes)
	assert.Contains(t, env.logs.String(), "failed to delete pdf blob")

	// the edit itself is committed
	found, err := env.svc.FindSheetMusic(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nocturne Op. 9", found.Title)
	assert.Empty(t, found.Pdfs)
}

func TestDeleteSheetMusic(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	created := createNocturne(t, env, "a.pdf", "b.pdf", "c.pdf")

	require.NoError(t, env.svc.DeleteSheetMusic(ctx, created.ID, owner))

	expected := []string{}
	for _, pdf := range created.Pdfs {
		expected = append(expected, pdf.UniqueName)
	}
	assert.ElementsMatch(t, expected, env.store.deletes)
	assert.Empty(t, env.store.Keys())

	_, err := env.svc.FindSheetMusic(ctx, created.ID)
	assert.ErrorIs(t, err, sheetmusic.ErrSheetMusicNotFound)

	// sink failures do not fail the operation
	assert.Equal(t, sheetmusic.EventSheetMusicDeleted, env.sink.events[len(env.sink.events)-1].Type)
	assert.Contains(t, env.logs.String(), "event sink failed")
}

func TestDeleteSheetMusic_NotOwner(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	created := createNocturne(t, env, "a.pdf")

	err := env.svc.DeleteSheetMusic(ctx, created.ID, stranger)
	assert.ErrorIs(t, err, sheetmusic.ErrOwnershipMismatch)
	assert.Empty(t, env.store.deletes)

	_, err = env.svc.FindSheetMusic(ctx, created.ID)
	assert.NoError(t, err)
}

func TestDeleteSheetMusic_NotFound(t *testing.T) {
	env := setupTestService(t)
	err := env.svc.DeleteSheetMusic(context.Background(), 7, owner)
	assert.ErrorIs(t, err, sheetmusic.ErrSheetMusicNotFound)
}

func TestDeleteSheetMusic_BlobFailureIsReturned(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	created := createNocturne(t, env, "a.pdf", "b.pdf", "c.pdf")
	env.store.failDelete[created.Pdfs[0].UniqueName] = true
	env.store.failDelete[created.Pdfs[2].UniqueName] = true

	err := env.svc.DeleteSheetMusic(ctx, created.ID, owner)
	require.Error(t, err)

	var storageErr *sheetmusic.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "delete", storageErr.Op)
	assert.Contains(t, err.Error(), created.Pdfs[0].UniqueName)
	assert.Contains(t, err.Error(), created.Pdfs[2].UniqueName)
	assert.Len(t, env.store.deletes, 3)

	// the row is deleted regardless
	_, err = env.svc.FindSheetMusic(ctx, created.ID)
	assert.ErrorIs(t, err, sheetmusic.ErrSheetMusicNotFound)
	assert.ElementsMatch(t, []string{created.Pdfs[0].UniqueName, created.Pdfs[2].UniqueName}, env.store.Keys())
}

func TestDownloadPdf(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	created := createNocturne(t, env, "a.pdf")

	reader, pdf, err := env.svc.DownloadPdf(ctx, created.ID, created.Pdfs[0].ID)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, "a.pdf", pdf.OriginalName)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	_, _, err = env.svc.DownloadPdf(ctx, created.ID, 9999)
	assert.ErrorIs(t, err, sheetmusic.ErrPdfNotFound)

	_, _, err = env.svc.DownloadPdf(ctx, 9999, created.Pdfs[0].ID)
	assert.ErrorIs(t, err, sheetmusic.ErrSheetMusicNotFound)
}

type fakeResource struct {
	name string
	data string
	err  error
}

func (r *fakeResource) Filename() string { return r.name }

func (r *fakeResource) Open(ctx context.Context) (io.ReadCloser, error) {
	if r.err != nil {
		return nil, r.err
	}
	return io.NopCloser(strings.NewReader(r.data)), nil
}

type fakeLoader map[string]*fakeResource

func (l fakeLoader) GetResource(ctx context.Context, url string) (sheetmusic.Resource, error) {
	r, ok := l[url]
	if !ok {
		return nil, sheetmusic.ErrResourceNotFound
	}
	return r, nil
}

func TestDownloadObject(t *testing.T) {
	dir := t.TempDir()
	loader := fakeLoader{
		"s3://scores/etude.pdf":   {name: "etude.pdf", data: "%PDF etude"},
		"s3://scores/broken.pdf":  {name: "broken.pdf", err: errors.New("read failed")},
		"s3://scores/nameless":    {name: "/"},
		"s3://scores/a/../up.pdf": {name: "../up.pdf", data: "up"},
	}
	env := setupTestService(t, sheetmusic.WithResourceLoader(loader), sheetmusic.WithDownloadDir(dir))
	ctx := context.Background()

	t.Run("writes and overwrites local file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "etude.pdf"), []byte("stale content that is longer"), 0644))

		path, err := env.svc.DownloadObject(ctx, "s3://scores/etude.pdf")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "etude.pdf"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "%PDF etude", string(data))
	})

	t.Run("keeps only the base name", func(t *testing.T) {
		path, err := env.svc.DownloadObject(ctx, "s3://scores/a/../up.pdf")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "up.pdf"), path)
	})

	t.Run("unknown url", func(t *testing.T) {
		_, err := env.svc.DownloadObject(ctx, "s3://scores/missing.pdf")
		assert.ErrorIs(t, err, sheetmusic.ErrResourceNotFound)
	})

	t.Run("unreadable resource", func(t *testing.T) {
		_, err := env.svc.DownloadObject(ctx, "s3://scores/broken.pdf")
		var resErr *sheetmusic.ResourceError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, "open", resErr.Op)
	})

	t.Run("resource without filename", func(t *testing.T) {
		_, err := env.svc.DownloadObject(ctx, "s3://scores/nameless")
		assert.ErrorIs(t, err, sheetmusic.ErrResourceNotFound)
	})
}

func TestDownloadObject_NoLoader(t *testing.T) {
	env := setupTestService(t)
	_, err := env.svc.DownloadObject(context.Background(), "s3://scores/etude.pdf")
	assert.Error(t, err)
}

func sequentialKeys() objectkey.Generator {
	n := 0
	return objectkey.FuncGenerator(func(originalName string) string {
		n++
		return fmt.Sprintf("key-%d", n)
	})
}
