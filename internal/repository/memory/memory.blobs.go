package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/repository"
)

type blob struct {
	data        []byte
	contentType string
	public      bool
}

// BlobStore keeps blobs in a map. Deletes can be made to fail per path so
// tests can exercise best-effort cleanup.
type BlobStore struct {
	mu          sync.Mutex
	bucket      string
	blobs       map[string]blob
	failDeletes map[string]bool
	failUploads bool
}

func NewBlobStore(bucket string) *BlobStore {
	return &BlobStore{
		bucket:      bucket,
		blobs:       make(map[string]blob),
		failDeletes: make(map[string]bool),
	}
}

func (b *BlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failUploads {
		return "", errors.NewStorageError("failed to upload blob", fmt.Errorf("upload of %s refused", path))
	}
	b.blobs[path] = blob{data: append([]byte(nil), data...), contentType: contentType}
	return b.url(path), nil
}

func (b *BlobStore) Copy(ctx context.Context, srcPath, dstPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	src, ok := b.blobs[srcPath]
	if !ok {
		return errors.NewNotFoundError("blob not found", repository.ErrNotFound)
	}
	b.blobs[dstPath] = blob{data: append([]byte(nil), src.data...), contentType: src.contentType}
	return nil
}

func (b *BlobStore) Publish(ctx context.Context, path string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.blobs[path]
	if !ok {
		return "", errors.NewNotFoundError("blob not found", repository.ErrNotFound)
	}
	obj.public = true
	b.blobs[path] = obj
	return fmt.Sprintf("memory://%s/public/%s", b.bucket, path), nil
}

func (b *BlobStore) Delete(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDeletes[path] {
		return errors.NewStorageError("failed to delete blob", fmt.Errorf("delete of %s refused", path))
	}
	if _, ok := b.blobs[path]; !ok {
		return errors.NewNotFoundError("blob not found", repository.ErrNotFound)
	}
	delete(b.blobs, path)
	return nil
}

func (b *BlobStore) url(path string) string {
	return fmt.Sprintf("memory://%s/%s", b.bucket, path)
}

// FailDeletes makes Delete fail for the given paths.
func (b *BlobStore) FailDeletes(paths ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range paths {
		b.failDeletes[p] = true
	}
}

// FailUploads makes every Upload fail while set.
func (b *BlobStore) FailUploads(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failUploads = fail
}

func (b *BlobStore) Has(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.blobs[path]
	return ok
}

func (b *BlobStore) IsPublic(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blobs[path].public
}

func (b *BlobStore) Data(path string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.blobs[path].data...)
}

// Paths lists every stored path in lexical order.
func (b *BlobStore) Paths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	paths := make([]string, 0, len(b.blobs))
	for p := range b.blobs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
