package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"

	"github.com/Lllllllleong/fieldservice/internal/blobpath"
	"github.com/Lllllllleong/fieldservice/internal/store"
)

// downloadTokenKey is the object metadata entry Firebase Storage reads
// download tokens from.
const downloadTokenKey = "firebaseStorageDownloadTokens"

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// BlobStore is the Cloud Storage implementation of store.BlobStore. Objects
// get a Firebase download token on upload so clients can fetch them by URL.
type BlobStore struct {
	bucket     *storage.BucketHandle
	bucketName string
}

var _ store.BlobStore = (*BlobStore)(nil)

func NewBlobStore(client *storage.Client, bucketName string) *BlobStore {
	return &BlobStore{bucket: client.Bucket(bucketName), bucketName: bucketName}
}

func (b *BlobStore) Upload(ctx context.Context, path string, r io.Reader, opts store.UploadOptions) (string, error) {
	obj := b.bucket.Object(path)
	if opts.CreateOnly {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}

	token := opts.DownloadToken
	if token == "" {
		token = uuid.NewString()
	}
	metadata := maps.Clone(opts.Metadata)
	if metadata == nil {
		metadata = make(map[string]string, 1)
	}
	metadata[downloadTokenKey] = token

	writer := obj.NewWriter(ctx)
	writer.ContentType = opts.ContentType
	writer.Metadata = metadata

	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return "", translateStorageErr(path, err)
	}
	if err := writer.Close(); err != nil {
		return "", translateStorageErr(path, err)
	}
	return blobpath.DownloadURL(b.bucketName, path, token), nil
}

func (b *BlobStore) Delete(ctx context.Context, path string) error {
	if err := b.bucket.Object(path).Delete(ctx); err != nil {
		return translateStorageErr(path, err)
	}
	return nil
}

func (b *BlobStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := b.bucket.Object(path).NewReader(ctx)
	if err != nil {
		return nil, translateStorageErr(path, err)
	}
	return r, nil
}

// ObjectURL builds the download URL of an object uploaded by a client, from
// the token recorded in its metadata.
func ObjectURL(bucket, path string, metadata map[string]string) string {
	return blobpath.DownloadURL(bucket, path, metadata[downloadTokenKey])
}

func translateStorageErr(path string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("object %s: %w", path, store.ErrNotFound)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("object %s: %w", path, store.ErrNotFound)
		case http.StatusPreconditionFailed:
			slog.Warn("Object already exists, refusing to overwrite.", "storagePath", path)
			return fmt.Errorf("object %s: %w", path, store.ErrAlreadyExists)
		}
	}
	return fmt.Errorf("object %s: %w", path, err)
}
