package files

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
	"unicode/utf8"

	"github.com/jaevor/go-nanoid"

	"lite-drive/internal/database"
	"lite-drive/internal/metrics"
	"lite-drive/internal/models"
	"lite-drive/internal/preview"
	"lite-drive/internal/quota"
)

const (
	// MaxListed caps how many records a single listing returns.
	MaxListed = 1000
	// MaxFilenameLength matches the original_filename column.
	MaxFilenameLength = 255
)

type Repository interface {
	CreateFile(ctx context.Context, arg database.CreateFileParams) (*models.File, error)
	GetFile(ctx context.Context, id string, ownerID int64) (*models.File, error)
	ListFiles(ctx context.Context, ownerID int64, limit int, offset int) ([]models.File, error)
	DeleteFile(ctx context.Context, id string, ownerID int64) (bool, error)
}

type Ledger interface {
	Reserve(ctx context.Context, userID int64, sizeMB float64) error
	Commit(ctx context.Context, userID int64, deltaMB float64) error
}

type ContentStore interface {
	Write(ownerEmail, originalName string, r io.Reader) (string, int64, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
	RemoveOwner(ownerEmail string) error
}

type Previewer interface {
	Classify(filename string) preview.Category
	Generate(ctx context.Context, srcPath, ownerEmail string) (string, error)
	Fallback(category preview.Category) ([]byte, error)
}

type Notifier interface {
	FileUploaded(ctx context.Context, ownerID int64, file *models.File)
	FileDeleted(ctx context.Context, ownerID int64, file *models.File)
}

// ListCache holds owner listings. Get reports the version it looked under;
// Set stores a listing under that version and must drop it if Invalidate
// ran in between.
type ListCache interface {
	Get(ctx context.Context, ownerID int64) (files []models.File, version int64, ok bool)
	Set(ctx context.Context, ownerID, version int64, files []models.File)
	Invalidate(ctx context.Context, ownerID int64)
}

// Owner is the authenticated identity the service acts for.
type Owner struct {
	ID    int64
	Email string
}

type Service struct {
	repo     Repository
	ledger   Ledger
	store    ContentStore
	previews Previewer
	notifier Notifier
	cache    ListCache
	logger   *slog.Logger
	newID    func() string
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithCache(c ListCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, ledger Ledger, store ContentStore, previews Previewer, opts ...Option) (*Service, error) {
	newID, err := nanoid.Standard(21)
	if err != nil {
		return nil, err
	}

	s := &Service{
		repo:     repo,
		ledger:   ledger,
		store:    store,
		previews: previews,
		notifier: nopNotifier{},
		cache:    nopCache{},
		logger:   slog.Default(),
		newID:    newID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Upload stores the content of r for owner. declaredSize is the length the
// transport reported and is what the quota is checked against before any
// byte touches the disk; the measured size wins once the write is done.
//
// ctx is only consulted up to the quota check. Once the physical write has
// started the pipeline runs to completion or rolls back regardless of it.
func (s *Service) Upload(ctx context.Context, owner Owner, originalName string, declaredSize int64, r io.Reader) (*models.File, error) {
	name := cleanFilename(originalName)
	if name == "" {
		return nil, ErrInvalidFilename
	}

	reservedMB := quota.BytesToMB(max(declaredSize, 0))
	if err := s.ledger.Reserve(ctx, owner.ID, reservedMB); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	release := func() {
		if err := s.ledger.Commit(ctx, owner.ID, -reservedMB); err != nil {
			s.logger.Error("failed to release quota reservation", "user_id", owner.ID, "error", err)
		}
	}

	path, size, err := s.store.Write(owner.Email, name, r)
	if err != nil {
		release()
		return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailed, err)
	}

	sizeMB := quota.BytesToMB(size)
	if extra := sizeMB - reservedMB; extra > 0 {
		if err := s.ledger.Reserve(ctx, owner.ID, extra); err != nil {
			s.removeQuietly(path)
			release()
			return nil, err
		}
		reservedMB = sizeMB
	}

	category := s.previews.Classify(name)

	var previewPath *string
	if p, err := s.previews.Generate(ctx, path, owner.Email); err != nil {
		metrics.PreviewFailures.WithLabelValues(string(category)).Inc()
		s.logger.Warn(ErrPreviewGenerationFailed.Error(),
			"user_id", owner.ID, "file", filepath.Base(path), "category", category, "error", err)
	} else {
		previewPath = &p
	}

	file, err := s.repo.CreateFile(ctx, database.CreateFileParams{
		ID:               s.newID(),
		OwnerID:          owner.ID,
		Filename:         filepath.Base(path),
		OriginalFilename: name,
		Path:             path,
		PreviewPath:      previewPath,
		FileType:         string(category),
		SizeMB:           sizeMB,
		MimeType:         mimeType(name),
	})
	if err != nil {
		s.removeQuietly(path)
		if previewPath != nil {
			s.removeQuietly(*previewPath)
		}
		release()
		return nil, fmt.Errorf("%w: %v", ErrRecordPersistFailed, err)
	}

	if delta := sizeMB - reservedMB; delta != 0 {
		if err := s.ledger.Commit(ctx, owner.ID, delta); err != nil {
			s.logger.Error("failed to settle quota", "user_id", owner.ID, "error", err)
		}
	}

	metrics.UploadSize.Observe(float64(size))
	s.cache.Invalidate(ctx, owner.ID)
	s.notifier.FileUploaded(ctx, owner.ID, file)

	s.logger.Info("file uploaded", "user_id", owner.ID, "file_id", file.ID, "size_mb", file.SizeMB, "type", file.FileType)
	return file, nil
}

func (s *Service) removeQuietly(path string) {
	if err := s.store.Remove(path); err != nil {
		s.logger.Error("failed to clean up file", "file", filepath.Base(path), "error", err)
	}
}

// Fetch returns the record only when it belongs to ownerID. Foreign and
// unknown ids both yield ErrNotFound.
func (s *Service) Fetch(ctx context.Context, fileID string, ownerID int64) (*models.File, error) {
	file, err := s.repo.GetFile(ctx, fileID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if file == nil {
		return nil, ErrNotFound
	}
	return file, nil
}

// Open returns the record and its bytes. The caller closes the reader.
func (s *Service) Open(ctx context.Context, fileID string, ownerID int64) (*models.File, io.ReadCloser, error) {
	file, err := s.Fetch(ctx, fileID, ownerID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(file.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStorageReadFailed, err)
	}
	return file, rc, nil
}

// Delete removes the bytes, the preview, the quota charge and the record, in
// that order. If the record cannot be deleted afterwards the quota has
// already been released and stays that way.
func (s *Service) Delete(ctx context.Context, fileID string, ownerID int64) error {
	file, err := s.Fetch(ctx, fileID, ownerID)
	if err != nil {
		return err
	}

	if err := s.store.Remove(file.Path); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	if file.PreviewPath != nil {
		if err := s.store.Remove(*file.PreviewPath); err != nil {
			return fmt.Errorf("remove preview: %w", err)
		}
	}

	if err := s.ledger.Commit(ctx, ownerID, -file.SizeMB); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteFile(ctx, file.ID, ownerID)
	if err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}

	cleanupCtx := context.WithoutCancel(ctx)
	s.cache.Invalidate(cleanupCtx, ownerID)
	s.notifier.FileDeleted(cleanupCtx, ownerID, file)

	s.logger.Info("file deleted", "user_id", ownerID, "file_id", file.ID, "size_mb", file.SizeMB)
	return nil
}

func (s *Service) List(ctx context.Context, ownerID int64) ([]models.File, error) {
	cached, version, ok := s.cache.Get(ctx, ownerID)
	if ok {
		return cached, nil
	}
	list, err := s.repo.ListFiles(ctx, ownerID, MaxListed, 0)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	s.cache.Set(ctx, ownerID, version, list)
	return list, nil
}

type PreviewContent struct {
	Body        io.ReadCloser
	ContentType string
	// Generated is false when the category icon is served in place of a
	// stored preview.
	Generated bool
}

// Preview returns the stored preview of the file, or the icon of its
// category when there is none or it has gone missing from disk.
func (s *Service) Preview(ctx context.Context, fileID string, ownerID int64) (*PreviewContent, error) {
	file, err := s.Fetch(ctx, fileID, ownerID)
	if err != nil {
		return nil, err
	}

	if file.PreviewPath != nil {
		rc, err := s.store.Open(*file.PreviewPath)
		if err == nil {
			return &PreviewContent{Body: rc, ContentType: mimeType(*file.PreviewPath), Generated: true}, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrStorageReadFailed, err)
		}
		s.logger.Warn("stored preview is missing", "file_id", file.ID)
	}

	icon, err := s.previews.Fallback(preview.Category(file.FileType))
	if err != nil {
		return nil, fmt.Errorf("render fallback icon: %w", err)
	}
	return &PreviewContent{Body: io.NopCloser(bytes.NewReader(icon)), ContentType: "image/png"}, nil
}

// PurgeOwner removes everything the owner has on disk. Records are expected
// to be gone already through the users foreign key.
func (s *Service) PurgeOwner(ctx context.Context, owner Owner) error {
	if err := s.store.RemoveOwner(owner.Email); err != nil {
		return fmt.Errorf("remove owner content: %w", err)
	}
	s.cache.Invalidate(ctx, owner.ID)
	return nil
}

func cleanFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(filepath.Base(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	if utf8.RuneCountInString(name) > MaxFilenameLength {
		return ""
	}
	return name
}

type nopNotifier struct{}

func (nopNotifier) FileUploaded(context.Context, int64, *models.File) {}
func (nopNotifier) FileDeleted(context.Context, int64, *models.File)  {}

type nopCache struct{}

func (nopCache) Get(context.Context, int64) ([]models.File, int64, bool) { return nil, 0, false }
func (nopCache) Set(context.Context, int64, int64, []models.File)        {}
func (nopCache) Invalidate(context.Context, int64)                       {}
