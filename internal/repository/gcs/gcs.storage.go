// FilePath: internal/repository/gcs/gcs.storage.go
package gcs

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/repository"
	"google.golang.org/api/option"
)

const (
	downloadTokenKey  = "firebaseStorageDownloadTokens"
	tokenURLTemplate  = "https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s"
	publicURLTemplate = "https://storage.googleapis.com/%s/%s"
)

// BlobStore is a repository.BlobStore on a Google Cloud Storage bucket.
// Uploaded objects carry a download token so the returned URL is readable
// without the object being public.
type BlobStore struct {
	bucketName string
	client     *storage.Client
}

// NewBlobStore connects to GCS. An empty credentialsFile falls back to the
// application default credentials.
func NewBlobStore(ctx context.Context, bucketName, credentialsFile string) (*BlobStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: failed to create client: %w", err)
	}

	nuts.L.Infof("[GCSBlobStore] Using bucket %s", bucketName)
	return &BlobStore{bucketName: bucketName, client: client}, nil
}

func (b *BlobStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	token := uuid.NewString()
	writer := b.client.Bucket(b.bucketName).Object(path).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = map[string]string{downloadTokenKey: token}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return "", errors.NewStorageError("failed to upload object", err)
	}
	if err := writer.Close(); err != nil {
		return "", errors.NewStorageError("failed to finalize upload", err)
	}

	return TokenURL(b.bucketName, path, token), nil
}

func (b *BlobStore) Copy(ctx context.Context, srcPath, dstPath string) error {
	bucket := b.client.Bucket(b.bucketName)
	copier := bucket.Object(dstPath).CopierFrom(bucket.Object(srcPath))
	if _, err := copier.Run(ctx); err != nil {
		return mapObjectError(err, "failed to copy object")
	}
	return nil
}

func (b *BlobStore) Publish(ctx context.Context, path string) (string, error) {
	obj := b.client.Bucket(b.bucketName).Object(path)
	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", mapObjectError(err, "failed to publish object")
	}
	return PublicURL(b.bucketName, path), nil
}

func (b *BlobStore) Delete(ctx context.Context, path string) error {
	if err := b.client.Bucket(b.bucketName).Object(path).Delete(ctx); err != nil {
		return mapObjectError(err, "failed to delete object")
	}
	return nil
}

func (b *BlobStore) Close() error {
	return b.client.Close()
}

// TokenURL is the token-authorized download URL of an object.
func TokenURL(bucket, path, token string) string {
	return fmt.Sprintf(tokenURLTemplate, bucket, url.PathEscape(path), token)
}

// PublicURL is the anonymous URL of a published object.
func PublicURL(bucket, path string) string {
	return fmt.Sprintf(publicURLTemplate, bucket, path)
}

func mapObjectError(err error, msg string) error {
	if stderrors.Is(err, storage.ErrObjectNotExist) {
		return errors.NewNotFoundError("object not found", repository.ErrNotFound)
	}
	return errors.NewStorageError(msg, err)
}
