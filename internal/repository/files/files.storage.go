// FilePath: internal/repository/files/files.storage.go
package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/repository"
)

const (
	defaultDirPermissions  = 0755
	defaultFilePermissions = 0644
	publicMarkerSuffix     = ".public"
)

// FileConfig holds configuration for the file storage
type FileConfig struct {
	BasePath string
	// PublicBaseURL is where the hub serves BasePath, e.g. http://host/media
	PublicBaseURL string
}

// FileRepo is a repository.BlobStore on the local filesystem. Objects are
// always served by the hub, so Publish only records a marker file next to
// the object.
type FileRepo struct {
	config FileConfig
}

// NewFileRepository creates a new file storage repository
func NewFileRepository(config FileConfig) (*FileRepo, error) {
	if err := createDirectoryIfNotExists(config.BasePath); err != nil {
		return nil, err
	}
	config.PublicBaseURL = strings.TrimRight(config.PublicBaseURL, "/")
	return &FileRepo{config: config}, nil
}

func (r *FileRepo) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	full, err := r.resolve(path)
	if err != nil {
		return "", err
	}
	if err := createDirectoryIfNotExists(filepath.Dir(full)); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, defaultFilePermissions); err != nil {
		return "", errors.NewStorageError("failed to write file", err)
	}

	nuts.L.Infof("[FileRepo] Stored file: %s (%d bytes, %s)", path, len(data), contentType)
	return r.url(path), nil
}

func (r *FileRepo) Copy(ctx context.Context, srcPath, dstPath string) error {
	src, err := r.resolve(srcPath)
	if err != nil {
		return err
	}
	dst, err := r.resolve(dstPath)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError("file not found", repository.ErrNotFound)
		}
		return errors.NewStorageError("failed to open source file", err)
	}
	defer in.Close()

	if err := createDirectoryIfNotExists(filepath.Dir(dst)); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return errors.NewStorageError("failed to create destination file", err)
	}
	defer out.Close()

	if _, err = io.Copy(out, in); err != nil {
		return errors.NewStorageError("failed to copy file", err)
	}
	return nil
}

func (r *FileRepo) Publish(ctx context.Context, path string) (string, error) {
	full, err := r.resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewNotFoundError("file not found", repository.ErrNotFound)
		}
		return "", errors.NewStorageError("failed to stat file", err)
	}
	if err := os.WriteFile(full+publicMarkerSuffix, nil, defaultFilePermissions); err != nil {
		return "", errors.NewStorageError("failed to publish file", err)
	}
	return r.url(path), nil
}

func (r *FileRepo) Delete(ctx context.Context, path string) error {
	full, err := r.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError("file not found", repository.ErrNotFound)
		}
		return errors.NewStorageError("failed to delete file", err)
	}
	_ = os.Remove(full + publicMarkerSuffix)
	return nil
}

// BasePath is the directory the hub serves under its media route.
func (r *FileRepo) BasePath() string {
	return r.config.BasePath
}

func (r *FileRepo) url(path string) string {
	return r.config.PublicBaseURL + "/" + filepath.ToSlash(path)
}

// resolve maps a blob path below BasePath, refusing anything that escapes it.
func (r *FileRepo) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if path == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.NewValidationError("invalid blob path", nil)
	}
	return filepath.Join(r.config.BasePath, clean), nil
}

func createDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		err := os.MkdirAll(path, defaultDirPermissions)
		if err != nil {
			return errors.NewStorageError("failed to create directory", err)
		}
	}
	return nil
}
