package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/Lllllllleong/fieldservice/internal/blobpath"
	"github.com/Lllllllleong/fieldservice/internal/store"
)

// Object is one stored blob.
type Object struct {
	Data  []byte
	Opts  store.UploadOptions
	Token string
}

// Blobs is an in-memory store.BlobStore.
type Blobs struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]Object
	tokens  int

	// FailUpload and FailDelete inject errors by object path.
	FailUpload map[string]error
	FailDelete map[string]error

	Uploads []string
	Deletes []string
}

var _ store.BlobStore = (*Blobs)(nil)

func NewBlobs() *Blobs {
	return &Blobs{
		bucket:     "memory.appspot.com",
		objects:    make(map[string]Object),
		FailUpload: make(map[string]error),
		FailDelete: make(map[string]error),
	}
}

func (b *Blobs) Upload(ctx context.Context, path string, r io.Reader, opts store.UploadOptions) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload body: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.Uploads = append(b.Uploads, path)
	if err := b.FailUpload[path]; err != nil {
		return "", err
	}
	if _, exists := b.objects[path]; exists && opts.CreateOnly {
		return "", fmt.Errorf("object %s: %w", path, store.ErrAlreadyExists)
	}
	token := opts.DownloadToken
	if token == "" {
		b.tokens++
		token = fmt.Sprintf("memory-token-%d", b.tokens)
	}
	b.objects[path] = Object{Data: data, Opts: opts, Token: token}
	return blobpath.DownloadURL(b.bucket, path, token), nil
}

func (b *Blobs) Delete(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Deletes = append(b.Deletes, path)
	if err := b.FailDelete[path]; err != nil {
		return err
	}
	if _, ok := b.objects[path]; !ok {
		return fmt.Errorf("object %s: %w", path, store.ErrNotFound)
	}
	delete(b.objects, path)
	return nil
}

func (b *Blobs) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", path, store.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

// Seed stores an object without recording an upload.
func (b *Blobs) Seed(path string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = Object{Data: data}
}

func (b *Blobs) Object(path string) (Object, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[path]
	return obj, ok
}

func (b *Blobs) Has(path string) bool {
	_, ok := b.Object(path)
	return ok
}

func (b *Blobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// Calls returns how many uploads and deletes were attempted.
func (b *Blobs) Calls() (uploads, deletes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Uploads), len(b.Deletes)
}

// DeletedPaths returns a copy of the attempted deletions.
func (b *Blobs) DeletedPaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.Deletes...)
}
