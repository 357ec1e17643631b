package storage

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

const (
	uploadsDir  = "uploads"
	previewsDir = "previews"

	dirMode  os.FileMode = 0o777
	fileMode os.FileMode = 0o666
)

// LocalStorage keeps every owner's originals under <base>/uploads/<owner> and
// their previews under <base>/previews/<owner>.
type LocalStorage struct {
	basePath string
	now      func() time.Time
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	for _, dir := range []string{basePath, filepath.Join(basePath, uploadsDir), filepath.Join(basePath, previewsDir)} {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
	}
	return &LocalStorage{basePath: basePath, now: time.Now}, nil
}

func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// NormalizeOwner turns an email address into a directory name:
// "jan.kowalski@example.com" becomes "jan_dot_kowalski_at_example_dot_com".
func NormalizeOwner(email string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(email)) {
		switch {
		case r == '@':
			b.WriteString("_at_")
		case r == '.':
			b.WriteString("_dot_")
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return err
	}
	// MkdirAll is subject to the umask.
	return os.Chmod(dir, dirMode)
}

func (ls *LocalStorage) ownerDir(kind, ownerEmail string) (string, error) {
	dir := filepath.Join(ls.basePath, kind, NormalizeOwner(ownerEmail))
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func (ls *LocalStorage) UploadDir(ownerEmail string) (string, error) {
	return ls.ownerDir(uploadsDir, ownerEmail)
}

func (ls *LocalStorage) PreviewDir(ownerEmail string) (string, error) {
	return ls.ownerDir(previewsDir, ownerEmail)
}

// UniqueName builds <YYYYMMDD_HHMMSS>_<8 hex><ext>. The hash mixes the
// nanosecond clock with random bytes so two uploads in the same second differ.
func (ls *LocalStorage) UniqueName(originalName string) (string, error) {
	now := ls.now()

	var seed [16]byte
	binary.BigEndian.PutUint64(seed[:8], uint64(now.UnixNano()))
	if _, err := rand.Read(seed[8:]); err != nil {
		return "", err
	}
	sum := blake2b.Sum256(seed[:])

	return fmt.Sprintf("%s_%s%s", now.Format("20060102_150405"), hex.EncodeToString(sum[:4]), storedExt(originalName)), nil
}

// maxExtLength bounds the extension carried over to the stored name, dot included.
const maxExtLength = 16

// storedExt returns the lowercased extension of name, or "" when it is too
// long or holds anything but ASCII letters and digits.
func storedExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > maxExtLength {
		return ""
	}
	invalid := strings.IndexFunc(ext[1:], func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	if invalid >= 0 {
		return ""
	}
	return ext
}

// Write copies r into a new file in the owner's upload directory and returns
// the path and the number of bytes written. A failed copy leaves nothing behind.
func (ls *LocalStorage) Write(ownerEmail, originalName string, r io.Reader) (string, int64, error) {
	dir, err := ls.UploadDir(ownerEmail)
	if err != nil {
		return "", 0, err
	}

	name, err := ls.UniqueName(originalName)
	if err != nil {
		return "", 0, err
	}
	filePath := filepath.Join(dir, name)

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return "", 0, err
	}

	size, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(filePath, fileMode)
	}
	if err != nil {
		_ = os.Remove(filePath)
		return "", 0, err
	}

	return filePath, size, nil
}

func (ls *LocalStorage) Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s not found: %w", filepath.Base(path), err)
		}
		return nil, err
	}
	return file, nil
}

// Remove deletes path. A file that is already gone is not an error.
func (ls *LocalStorage) Remove(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// RemoveOwner deletes the owner's uploads and previews trees.
func (ls *LocalStorage) RemoveOwner(ownerEmail string) error {
	owner := NormalizeOwner(ownerEmail)
	for _, kind := range []string{uploadsDir, previewsDir} {
		if err := os.RemoveAll(filepath.Join(ls.basePath, kind, owner)); err != nil {
			return err
		}
	}
	return nil
}
