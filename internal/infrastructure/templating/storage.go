package templating

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alexclassroom/woocommerce/internal/domain/templating"
	"go.uber.org/zap"
)

// FileStoreConfig contains configuration for rendered file storage
type FileStoreConfig struct {
	// BasePath is the root directory for rendered files. It must exist.
	BasePath string
	// Logger for operations
	Logger *zap.Logger
}

// FileStore keeps rendered files under {root}/{YYYY-MM}/{file name}
type FileStore struct {
	basePath string
	hooks    templating.Hooks
	logger   *zap.Logger
}

// NewFileStore creates a file store. The root is resolved on every call so
// that a DirectoryFilter hook may change it at runtime.
func NewFileStore(cfg FileStoreConfig, hooks templating.Hooks) *FileStore {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		basePath: cfg.BasePath,
		hooks:    hooks,
		logger:   logger,
	}
}

// Root returns the canonical root directory after the directory hook
func (s *FileStore) Root() (string, error) {
	dir := s.hooks.FilterDirectory(s.basePath)
	root, err := canonicalPath(dir)
	if err != nil {
		return "", templating.NewError(templating.ErrCodeInvalidRootDirectory,
			"The base rendered templates directory doesn't exist: "+dir, err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", templating.NewError(templating.ErrCodeInvalidRootDirectory,
			"The base rendered templates directory doesn't exist: "+dir, err)
	}
	return root, nil
}

// Path returns the location of a rendered file created at createdAt
func (s *FileStore) Path(createdAt time.Time, fileName string) (string, error) {
	root, err := s.Root()
	if err != nil {
		return "", err
	}
	return s.pathIn(root, createdAt, fileName)
}

func (s *FileStore) pathIn(root string, createdAt time.Time, fileName string) (string, error) {
	if fileName == "" || containsDotDot(fileName) || strings.ContainsRune(fileName, '/') || strings.ContainsRune(fileName, filepath.Separator) {
		s.logger.Warn("Blocked invalid rendered file name", zap.String("file_name", fileName))
		return "", templating.Errorf(templating.ErrCodeStorageFailed, "invalid file name: %q", fileName)
	}

	path := filepath.Join(root, templating.PeriodOf(createdAt), fileName)
	abs, err := filepath.Abs(path)
	if err != nil || !isWithin(root, abs) {
		s.logger.Warn("Path escape attempt blocked",
			zap.String("path", path),
			zap.String("root", root),
		)
		return "", templating.Errorf(templating.ErrCodeStorageFailed, "invalid file name: %q", fileName)
	}
	return abs, nil
}

// Create creates a new rendered file, creating the period directory when
// needed. It fails if the file already exists.
func (s *FileStore) Create(ctx context.Context, createdAt time.Time, fileName string) (*FileSink, error) {
	select {
	case <-ctx.Done():
		return nil, templating.NewError(templating.ErrCodeStorageFailed, "operation cancelled", ctx.Err())
	default:
	}

	root, err := s.Root()
	if err != nil {
		return nil, err
	}
	path, err := s.pathIn(root, createdAt, fileName)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, templating.NewError(templating.ErrCodeStorageFailed,
			"Can't create directory for rendered file "+fileName, err)
	}

	// The directory may be a symlink pointing elsewhere.
	realDir, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil || !isWithin(root, filepath.Join(realDir, fileName)) {
		return nil, templating.Errorf(templating.ErrCodeStorageFailed,
			"rendered file path escapes the root directory: %s", fileName)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, templating.NewError(templating.ErrCodeStorageFailed,
			"Can't create file to render template "+fileName, err)
	}

	s.logger.Debug("Rendered file created", zap.String("path", path))
	return newFileSink(file), nil
}

// Open opens a rendered file for reading
func (s *FileStore) Open(createdAt time.Time, fileName string) (io.ReadCloser, error) {
	path, err := s.Path(createdAt, fileName)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, templating.NewError(templating.ErrCodeStorageFailed, "failed to open rendered file", err)
	}
	return file, nil
}

// Remove deletes a rendered file. A missing file is not an error.
func (s *FileStore) Remove(createdAt time.Time, fileName string) error {
	path, err := s.Path(createdAt, fileName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return templating.NewError(templating.ErrCodeStorageFailed, "failed to delete rendered file", err)
	}
	s.logger.Debug("Rendered file deleted", zap.String("path", path))
	return nil
}

// containsDotDot checks if a path contains ".." components
func containsDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}
