package files

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lite-drive/internal/config"
	"lite-drive/internal/database"
	"lite-drive/internal/models"
	"lite-drive/internal/preview"
	"lite-drive/internal/quota"
	"lite-drive/internal/storage"
)

const mb = 1024 * 1024

// memDB keeps users and file records in memory and serves both the
// repository and the quota ledger.
type memDB struct {
	mu        sync.Mutex
	users     map[int64]*models.User
	files     map[string]*models.File
	createErr error
	deleteErr error
}

func newMemDB() *memDB {
	return &memDB{users: make(map[int64]*models.User), files: make(map[string]*models.File)}
}

func (db *memDB) addUser(id int64, email string, used, limit float64) Owner {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users[id] = &models.User{ID: id, Email: email, StorageUsedMB: used, StorageLimitMB: limit, IsActive: true}
	return Owner{ID: id, Email: email}
}

func (db *memDB) used(id int64) float64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.users[id].StorageUsedMB
}

func (db *memDB) count() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.files)
}

func (db *memDB) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (db *memDB) ReserveStorage(_ context.Context, id int64, sizeMB float64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok || u.StorageUsedMB+sizeMB > u.StorageLimitMB {
		return false, nil
	}
	u.StorageUsedMB += sizeMB
	return true, nil
}

func (db *memDB) AdjustStorageUsed(_ context.Context, id int64, delta float64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u, ok := db.users[id]; ok {
		u.StorageUsedMB = math.Max(u.StorageUsedMB+delta, 0)
	}
	return nil
}

func (db *memDB) CreateFile(_ context.Context, arg database.CreateFileParams) (*models.File, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.createErr != nil {
		return nil, db.createErr
	}
	f := &models.File{
		ID:               arg.ID,
		OwnerID:          arg.OwnerID,
		Filename:         arg.Filename,
		OriginalFilename: arg.OriginalFilename,
		Path:             arg.Path,
		PreviewPath:      arg.PreviewPath,
		FileType:         arg.FileType,
		SizeMB:           arg.SizeMB,
		MimeType:         arg.MimeType,
		CreatedAt:        time.Now(),
	}
	db.files[f.ID] = f
	cp := *f
	return &cp, nil
}

func (db *memDB) GetFile(_ context.Context, id string, ownerID int64) (*models.File, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	f, ok := db.files[id]
	if !ok || f.OwnerID != ownerID {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (db *memDB) ListFiles(_ context.Context, ownerID int64, limit, offset int) ([]models.File, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := []models.File{}
	for _, f := range db.files {
		if f.OwnerID == ownerID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []models.File{}, nil
	}
	return out[offset:min(len(out), offset+limit)], nil
}

func (db *memDB) DeleteFile(_ context.Context, id string, ownerID int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.deleteErr != nil {
		return false, db.deleteErr
	}
	f, ok := db.files[id]
	if !ok || f.OwnerID != ownerID {
		return false, nil
	}
	delete(db.files, id)
	return true, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (n *recordingNotifier) FileUploaded(_ context.Context, _ int64, f *models.File) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.uploaded = append(n.uploaded, f.ID)
}

func (n *recordingNotifier) FileDeleted(_ context.Context, _ int64, f *models.File) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, f.ID)
}

type failingPreviewer struct {
	*preview.Generator
}

func (failingPreviewer) Generate(context.Context, string, string) (string, error) {
	return "", errors.New("decoder crashed")
}

type testEnv struct {
	db       *memDB
	store    *storage.LocalStorage
	gen      *preview.Generator
	notifier *recordingNotifier
	svc      *Service
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	gen := preview.NewGenerator(config.PreviewConfig{MaxWidth: 200, MaxHeight: 200, Quality: 85, Workers: 2}, store)
	t.Cleanup(gen.Close)

	env := &testEnv{db: newMemDB(), store: store, gen: gen, notifier: &recordingNotifier{}}
	opts = append([]Option{WithNotifier(env.notifier)}, opts...)
	env.svc, err = NewService(env.db, quota.NewLedger(env.db), store, gen, opts...)
	require.NoError(t, err)
	return env
}

// pngOfSize returns a decodable PNG padded to exactly size bytes. Decoders
// stop at the IEND chunk, so the padding is ignored.
func pngOfSize(t *testing.T, w, h, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.LessOrEqual(t, buf.Len(), size)
	buf.Write(make([]byte, size-buf.Len()))
	return buf.Bytes()
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return entries
}

func TestUpload_PNGWithinQuota(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "anna@example.com", 0, 1024)
	data := pngOfSize(t, 800, 600, 5*mb)

	file, err := env.svc.Upload(context.Background(), owner, "holiday.png", int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)

	require.Equal(t, "holiday.png", file.OriginalFilename)
	require.InDelta(t, 5.0, file.SizeMB, 1e-9)
	require.Equal(t, "image", file.FileType)
	require.Equal(t, "image/png", file.MimeType)
	require.Len(t, file.ID, 21)
	require.Equal(t, 1, env.db.count())
	require.InDelta(t, 5.0, env.db.used(1), 1e-9)

	stored, err := os.ReadFile(file.Path)
	require.NoError(t, err)
	require.Equal(t, data, stored)

	require.NotNil(t, file.PreviewPath)
	require.True(t, strings.HasSuffix(*file.PreviewPath, "_preview.jpg"))
	f, err := os.Open(*file.PreviewPath)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	require.LessOrEqual(t, cfg.Width, 200)
	require.LessOrEqual(t, cfg.Height, 200)

	require.Equal(t, []string{file.ID}, env.notifier.uploaded)
}

func TestUpload_QuotaExceededLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "full@example.com", 1020, 1024)
	data := bytes.Repeat([]byte{'x'}, 10*mb)

	_, err := env.svc.Upload(context.Background(), owner, "big.bin", int64(len(data)), bytes.NewReader(data))
	require.ErrorIs(t, err, ErrQuotaExceeded)

	require.Equal(t, 0, env.db.count())
	require.Equal(t, 1020.0, env.db.used(1))
	uploads, err := env.store.UploadDir(owner.Email)
	require.NoError(t, err)
	require.Empty(t, dirEntries(t, uploads))
	require.Empty(t, env.notifier.uploaded)
}

func TestUpload_UnderreportedSizeIsRechecked(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "liar@example.com", 0, 3)
	data := bytes.Repeat([]byte{'x'}, 4*mb)

	_, err := env.svc.Upload(context.Background(), owner, "sneaky.bin", 1, bytes.NewReader(data))
	require.ErrorIs(t, err, ErrQuotaExceeded)

	require.Equal(t, 0, env.db.count())
	require.Equal(t, 0.0, env.db.used(1))
	uploads, err := env.store.UploadDir(owner.Email)
	require.NoError(t, err)
	require.Empty(t, dirEntries(t, uploads))
}

func TestUpload_OverreportedSizeIsSettled(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "generous@example.com", 0, 1024)

	file, err := env.svc.Upload(context.Background(), owner, "small.txt", 10*mb, strings.NewReader("tiny"))
	require.NoError(t, err)
	require.InDelta(t, quota.BytesToMB(4), file.SizeMB, 1e-12)
	require.InDelta(t, quota.BytesToMB(4), env.db.used(1), 1e-12)
}

func TestUpload_PreviewFailureStillSucceeds(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	gen := preview.NewGenerator(config.PreviewConfig{MaxWidth: 200, MaxHeight: 200, Quality: 85, Workers: 1}, store)
	t.Cleanup(gen.Close)

	db := newMemDB()
	owner := db.addUser(1, "p@example.com", 0, 1024)
	svc, err := NewService(db, quota.NewLedger(db), store, failingPreviewer{gen})
	require.NoError(t, err)

	file, err := svc.Upload(context.Background(), owner, "photo.png", 4, strings.NewReader("oops"))
	require.NoError(t, err)
	require.Nil(t, file.PreviewPath)
	require.False(t, file.HasPreview())
	require.Equal(t, 1, db.count())
}

func TestUpload_UndecodableImageHasNoPreview(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "broken@example.com", 0, 1024)

	file, err := env.svc.Upload(context.Background(), owner, "corrupt.jpg", 9, strings.NewReader("not a jpg"))
	require.NoError(t, err)
	require.Nil(t, file.PreviewPath)
	require.Equal(t, "image", file.FileType)
}

func TestUpload_ZipGetsArchiveIcon(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "zip@example.com", 0, 1024)

	file, err := env.svc.Upload(context.Background(), owner, "backup.zip", 4, strings.NewReader("PK\x03\x04"))
	require.NoError(t, err)
	require.Equal(t, "archive", file.FileType)
	require.NotNil(t, file.PreviewPath)
	require.True(t, strings.HasSuffix(*file.PreviewPath, "_preview.png"))

	got, err := os.ReadFile(*file.PreviewPath)
	require.NoError(t, err)
	icon, err := env.gen.Fallback(preview.CategoryArchive)
	require.NoError(t, err)
	require.Equal(t, icon, got, "the preview is the archive icon, not a thumbnail")
}

func TestUpload_RecordFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "rollback@example.com", 0, 1024)
	env.db.createErr = errors.New("connection lost")
	data := pngOfSize(t, 50, 50, mb)

	_, err := env.svc.Upload(context.Background(), owner, "pic.png", int64(len(data)), bytes.NewReader(data))
	require.ErrorIs(t, err, ErrRecordPersistFailed)
	require.NotContains(t, err.Error(), env.store.BasePath())

	require.Equal(t, 0.0, env.db.used(1))
	uploads, err := env.store.UploadDir(owner.Email)
	require.NoError(t, err)
	require.Empty(t, dirEntries(t, uploads))
	previews, err := env.store.PreviewDir(owner.Email)
	require.NoError(t, err)
	require.Empty(t, dirEntries(t, previews))
}

func TestUpload_StorageFailureReleasesReservation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "io@example.com", 0, 1024)

	r := io.MultiReader(strings.NewReader("half"), errReader{})
	_, err := env.svc.Upload(context.Background(), owner, "a.txt", 8, r)
	require.ErrorIs(t, err, ErrStorageWriteFailed)
	require.Equal(t, 0.0, env.db.used(1))
	require.Equal(t, 0, env.db.count())
}

// cancelAtEOF cancels the request context as soon as the body is drained,
// like a client hanging up right after sending the last byte.
type cancelAtEOF struct {
	r      io.Reader
	cancel context.CancelFunc
}

func (c cancelAtEOF) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err == io.EOF {
		c.cancel()
	}
	return n, err
}

func TestUpload_ClientCancelAfterWriteStillCompletes(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "gone@example.com", 0, 1024)
	data := pngOfSize(t, 800, 600, 2*mb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Declared short so the measured size needs a second reservation.
	file, err := env.svc.Upload(ctx, owner, "photo.png", 1, cancelAtEOF{r: bytes.NewReader(data), cancel: cancel})
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	require.Equal(t, "image", file.FileType)
	require.NotNil(t, file.PreviewPath)
	_, err = os.Stat(*file.PreviewPath)
	require.NoError(t, err)
	require.Equal(t, 1, env.db.count())
	require.InDelta(t, 2.0, env.db.used(1), 1e-9)
	require.Equal(t, []string{file.ID}, env.notifier.uploaded)
}

func TestUpload_FilenameLengthLimit(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "long@example.com", 0, 1024)

	tooLong := strings.Repeat("a", MaxFilenameLength-3) + ".txt"
	_, err := env.svc.Upload(context.Background(), owner, tooLong, 1, strings.NewReader("x"))
	require.ErrorIs(t, err, ErrInvalidFilename)
	require.Equal(t, 0.0, env.db.used(1))

	fits := strings.Repeat("é", MaxFilenameLength-4) + ".txt"
	file, err := env.svc.Upload(context.Background(), owner, fits, 1, strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, fits, file.OriginalFilename)

	longExt := "report." + strings.Repeat("x", 240)
	file, err = env.svc.Upload(context.Background(), owner, longExt, 1, strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, longExt, file.OriginalFilename)
	require.Empty(t, filepath.Ext(file.Filename))
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestUpload_InvalidFilename(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "n@example.com", 0, 1024)

	for _, name := range []string{"", "   ", "..", "/"} {
		_, err := env.svc.Upload(context.Background(), owner, name, 1, strings.NewReader("x"))
		require.ErrorIs(t, err, ErrInvalidFilename, name)
	}

	file, err := env.svc.Upload(context.Background(), owner, `C:\Users\me\report.pdf`, 1, strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, "report.pdf", file.OriginalFilename)
	require.Equal(t, "pdf", file.FileType)
}

func TestDelete_RemovesEverything(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "del@example.com", 0, 1024)
	data := pngOfSize(t, 300, 300, 2*mb)

	file, err := env.svc.Upload(context.Background(), owner, "pic.png", int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)
	require.NotNil(t, file.PreviewPath)
	require.InDelta(t, 2.0, env.db.used(1), 1e-9)

	require.NoError(t, env.svc.Delete(context.Background(), file.ID, owner.ID))

	_, err = os.Stat(file.Path)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(*file.PreviewPath)
	require.True(t, os.IsNotExist(err))
	require.InDelta(t, 0.0, env.db.used(1), 1e-9)

	_, err = env.svc.Fetch(context.Background(), file.ID, owner.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, env.svc.Delete(context.Background(), file.ID, owner.ID), ErrNotFound)
	require.Equal(t, []string{file.ID}, env.notifier.deleted)
}

func TestDelete_RecordFailureKeepsQuotaDecrement(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "orphan@example.com", 0, 1024)

	file, err := env.svc.Upload(context.Background(), owner, "notes.txt", int64(mb), bytes.NewReader(make([]byte, mb)))
	require.NoError(t, err)

	env.db.deleteErr = errors.New("deadlock detected")
	err = env.svc.Delete(context.Background(), file.ID, owner.ID)
	require.Error(t, err)

	require.InDelta(t, 0.0, env.db.used(1), 1e-9)
	_, err = os.Stat(file.Path)
	require.True(t, os.IsNotExist(err))
}

func TestFetch_ForeignOwnerLooksLikeMissing(t *testing.T) {
	env := newTestEnv(t)
	alice := env.db.addUser(1, "alice@example.com", 0, 1024)
	bob := env.db.addUser(2, "bob@example.com", 0, 1024)

	file, err := env.svc.Upload(context.Background(), alice, "secret.txt", 6, strings.NewReader("secret"))
	require.NoError(t, err)

	_, foreignErr := env.svc.Fetch(context.Background(), file.ID, bob.ID)
	_, missingErr := env.svc.Fetch(context.Background(), "nonexistent-id-000000", bob.ID)
	require.ErrorIs(t, foreignErr, ErrNotFound)
	require.ErrorIs(t, missingErr, ErrNotFound)
	require.Equal(t, missingErr.Error(), foreignErr.Error())

	require.ErrorIs(t, env.svc.Delete(context.Background(), file.ID, bob.ID), ErrNotFound)
	_, err = os.Stat(file.Path)
	require.NoError(t, err, "a foreign delete must not touch the file")
}

func TestOpen(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "open@example.com", 0, 1024)

	file, err := env.svc.Upload(context.Background(), owner, "hello.txt", 5, strings.NewReader("hello"))
	require.NoError(t, err)

	_, rc, err := env.svc.Open(context.Background(), file.ID, owner.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "hello", string(data))

	require.NoError(t, os.Remove(file.Path))
	_, _, err = env.svc.Open(context.Background(), file.ID, owner.ID)
	require.ErrorIs(t, err, ErrStorageReadFailed)
}

func TestPreview_StoredAndFallback(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "prev@example.com", 0, 1024)
	data := pngOfSize(t, 400, 100, 512*1024)

	file, err := env.svc.Upload(context.Background(), owner, "wide.png", int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)

	content, err := env.svc.Preview(context.Background(), file.ID, owner.ID)
	require.NoError(t, err)
	require.True(t, content.Generated)
	require.Equal(t, "image/jpeg", content.ContentType)
	require.NoError(t, content.Body.Close())

	require.NoError(t, os.Remove(*file.PreviewPath))
	content, err = env.svc.Preview(context.Background(), file.ID, owner.ID)
	require.NoError(t, err)
	require.False(t, content.Generated)
	require.Equal(t, "image/png", content.ContentType)
	got, err := io.ReadAll(content.Body)
	require.NoError(t, err)
	icon, err := env.gen.Fallback(preview.CategoryImage)
	require.NoError(t, err)
	require.Equal(t, icon, got)

	_, err = env.svc.Preview(context.Background(), "missing-id-0000000000", owner.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

type cacheKey struct {
	owner, version int64
}

// mapCache versions listings the same way the redis cache does.
type mapCache struct {
	mu          sync.Mutex
	versions    map[int64]int64
	lists       map[cacheKey][]models.File
	invalidated int
}

func newMapCache() *mapCache {
	return &mapCache{versions: make(map[int64]int64), lists: make(map[cacheKey][]models.File)}
}

func (c *mapCache) Get(_ context.Context, id int64) ([]models.File, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.versions[id]
	l, ok := c.lists[cacheKey{id, v}]
	return l, v, ok
}

func (c *mapCache) Set(_ context.Context, id, version int64, files []models.File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[cacheKey{id, version}] = files
}

func (c *mapCache) Invalidate(_ context.Context, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[id]++
	c.invalidated++
}

// stallingRepo reads the listing and then holds it until released.
type stallingRepo struct {
	*memDB
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (r *stallingRepo) ListFiles(ctx context.Context, ownerID int64, limit, offset int) ([]models.File, error) {
	list, err := r.memDB.ListFiles(ctx, ownerID, limit, offset)
	r.once.Do(func() {
		close(r.read)
		<-r.release
	})
	return list, err
}

func TestList_UsesAndInvalidatesCache(t *testing.T) {
	cache := newMapCache()
	env := newTestEnv(t, WithCache(cache))
	owner := env.db.addUser(1, "list@example.com", 0, 1024)

	list, err := env.svc.List(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Empty(t, list)
	_, _, cached := cache.Get(context.Background(), owner.ID)
	require.True(t, cached)

	_, err = env.svc.Upload(context.Background(), owner, "a.txt", 1, strings.NewReader("a"))
	require.NoError(t, err)
	_, _, cached = cache.Get(context.Background(), owner.ID)
	require.False(t, cached, "an upload must drop the cached list")

	list, err = env.svc.List(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestList_SlowReadDoesNotHideConcurrentUpload(t *testing.T) {
	cache := newMapCache()
	env := newTestEnv(t)
	owner := env.db.addUser(1, "race@example.com", 0, 1024)

	repo := &stallingRepo{memDB: env.db, read: make(chan struct{}), release: make(chan struct{})}
	svc, err := NewService(repo, quota.NewLedger(env.db), env.store, env.gen, WithCache(cache))
	require.NoError(t, err)

	type result struct {
		list []models.File
		err  error
	}
	done := make(chan result, 1)
	go func() {
		list, err := svc.List(context.Background(), owner.ID)
		done <- result{list, err}
	}()

	<-repo.read
	file, err := svc.Upload(context.Background(), owner, "late.txt", 1, strings.NewReader("x"))
	require.NoError(t, err)
	close(repo.release)

	stale := <-done
	require.NoError(t, stale.err)
	require.Empty(t, stale.list)

	require.Equal(t, 1, env.db.count())
	list, err := svc.List(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, file.ID, list[0].ID)
}

func TestPurgeOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.db.addUser(1, "purge@example.com", 0, 1024)

	file, err := env.svc.Upload(context.Background(), owner, "a.zip", 1, strings.NewReader("a"))
	require.NoError(t, err)

	require.NoError(t, env.svc.PurgeOwner(context.Background(), owner))
	_, err = os.Stat(file.Path)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Dir(*file.PreviewPath))
	require.True(t, os.IsNotExist(err))
}
