package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/fieldservice/internal/store"
)

// Asset is a local file the user picked. Permission to read it must have
// been granted before it reaches the upload pipeline.
type Asset interface {
	// Name is the file name the source reported, or "" when it has none.
	Name() string
	ContentType() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileAsset reads from the local filesystem.
type FileAsset struct {
	Path string
	Type string
}

func (a FileAsset) Name() string { return filepath.Base(a.Path) }

func (a FileAsset) ContentType() string {
	if a.Type != "" {
		return a.Type
	}
	return mime.TypeByExtension(filepath.Ext(a.Path))
}

func (a FileAsset) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(a.Path)
	if errors.Is(err, fs.ErrPermission) {
		return nil, fmt.Errorf("%s: %w", a.Path, store.ErrPermissionDenied)
	}
	return f, err
}

// BytesAsset is an asset already held in memory.
type BytesAsset struct {
	FileName string
	Type     string
	Data     []byte
}

func (a BytesAsset) Name() string        { return a.FileName }
func (a BytesAsset) ContentType() string { return a.Type }

func (a BytesAsset) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(a.Data)), nil
}

// MultipartAsset wraps a file part of a multipart form upload.
type MultipartAsset struct {
	Header *multipart.FileHeader
}

func (a MultipartAsset) Name() string { return a.Header.Filename }

func (a MultipartAsset) ContentType() string {
	return a.Header.Header.Get("Content-Type")
}

func (a MultipartAsset) Open(ctx context.Context) (io.ReadCloser, error) {
	return a.Header.Open()
}
