package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/fieldservice/internal/blobpath"
	"github.com/Lllllllleong/fieldservice/internal/models"
	"github.com/Lllllllleong/fieldservice/internal/store"
)

// Naming selects how uploaded objects are named inside their folder.
type Naming int

const (
	// NameTimestamped produces <timestamp>_<name>. An unnamed asset becomes
	// <timestamp>-photo.jpg when it is alone in the batch and <uuid>.jpg
	// otherwise.
	NameTimestamped Naming = iota
	// NameUnique keeps the asset's name as is, or <uuid>.jpg when it has none.
	NameUnique
)

const progressBuffer = 64

type PipelineConfig struct {
	Concurrency    int
	Naming         Naming
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultPipelineConfig uploads ten at a time with four attempts per asset.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Concurrency:    10,
		Naming:         NameTimestamped,
		MaxRetries:     4,
		InitialBackoff: time.Second,
	}
}

// Pipeline uploads local assets to the blob store.
type Pipeline struct {
	blobs  store.BlobStore
	config PipelineConfig
	now    func() time.Time
	newID  func() string
}

func NewPipeline(blobs store.BlobStore, config PipelineConfig) *Pipeline {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	return &Pipeline{
		blobs:  blobs,
		config: config,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Progress reports the bytes sent so far for one asset of a batch.
type Progress struct {
	Index       int
	StoragePath string
	Sent        int64
	Total       int64
}

// Batch is one running Start call.
type Batch struct {
	progress chan Progress
	done     chan struct{}
	refs     []models.PhotoRef
	err      error
}

// Progress streams byte counts while the batch runs and is closed when it
// settles. Events are dropped rather than stalling uploads when the reader
// falls behind, and a reader may stop consuming at any time.
func (b *Batch) Progress() <-chan Progress { return b.progress }

// Done is closed when every upload has settled.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Wait blocks until the batch settles. It returns every reference in asset
// order, or an error and no references at all.
func (b *Batch) Wait() ([]models.PhotoRef, error) {
	<-b.done
	return b.refs, b.err
}

// Upload runs a batch and waits for it.
func (p *Pipeline) Upload(ctx context.Context, folder string, assets []Asset) ([]models.PhotoRef, error) {
	return p.Start(ctx, folder, assets).Wait()
}

// Start reads every asset, then uploads them all concurrently to
// folder/<name>. The batch succeeds or fails as a whole: if any upload
// fails the objects that did upload are deleted again.
func (p *Pipeline) Start(ctx context.Context, folder string, assets []Asset) *Batch {
	b := &Batch{
		progress: make(chan Progress, progressBuffer),
		done:     make(chan struct{}),
	}
	go func() {
		defer close(b.done)
		defer close(b.progress)
		b.refs, b.err = p.run(ctx, folder, assets, b.emit)
	}()
	return b
}

func (b *Batch) emit(ev Progress) {
	select {
	case b.progress <- ev:
	default:
	}
}

func (p *Pipeline) run(ctx context.Context, folder string, assets []Asset, emit func(Progress)) ([]models.PhotoRef, error) {
	logCtx := slog.With("folder", folder, "assetCount", len(assets))
	if len(assets) == 0 {
		return []models.PhotoRef{}, nil
	}

	// Every asset is read before the first remote call so an unreadable
	// asset aborts the batch with nothing uploaded.
	payloads, err := p.readAll(ctx, assets)
	if err != nil {
		logCtx.Warn("Could not read assets, nothing was uploaded.", "error", err)
		return nil, err
	}

	paths := p.objectPaths(folder, assets)
	refs := make([]models.PhotoRef, len(assets))
	uploaded := make([]bool, len(assets))
	var mu sync.Mutex

	logCtx.Info("Starting concurrent upload of assets.")
	var g errgroup.Group
	g.SetLimit(p.config.Concurrency)
	for i := range assets {
		g.Go(func() error {
			contentType := assets[i].ContentType()
			if contentType == "" {
				contentType = "image/jpeg"
			}
			url, err := p.uploadWithRetry(ctx, paths[i], payloads[i], contentType, func(sent int64) {
				emit(Progress{Index: i, StoragePath: paths[i], Sent: sent, Total: int64(len(payloads[i]))})
			})
			if err != nil {
				return fmt.Errorf("asset %d (%s): %w", i, paths[i], err)
			}
			mu.Lock()
			refs[i] = models.PhotoRef{StoragePath: paths[i], DownloadURL: url}
			uploaded[i] = true
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logCtx.Error("Upload batch failed, removing uploaded siblings.", "error", err)
		p.discard(context.WithoutCancel(ctx), paths, uploaded)
		return nil, err
	}
	logCtx.Info("All assets uploaded successfully.")
	return refs, nil
}

func (p *Pipeline) readAll(ctx context.Context, assets []Asset) ([][]byte, error) {
	payloads := make([][]byte, len(assets))
	var g errgroup.Group
	g.SetLimit(p.config.Concurrency)
	for i, a := range assets {
		g.Go(func() error {
			rc, err := a.Open(ctx)
			if err != nil {
				return fmt.Errorf("asset %d (%s): %w", i, a.Name(), err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return fmt.Errorf("asset %d (%s): failed to read: %w", i, a.Name(), err)
			}
			payloads[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return payloads, nil
}

func (p *Pipeline) objectPaths(folder string, assets []Asset) []string {
	ts := blobpath.Timestamp(p.now())
	paths := make([]string, len(assets))
	seen := make(map[string]bool, len(assets))
	for i, a := range assets {
		name := blobpath.SanitizeFileName(a.Name())
		var file string
		switch {
		case name == "":
			if p.config.Naming == NameTimestamped && len(assets) == 1 {
				file = ts + "-photo.jpg"
			} else {
				file = p.newID() + ".jpg"
			}
		case p.config.Naming == NameUnique:
			file = name
		default:
			file = ts + "_" + name
		}
		path := blobpath.FolderPath(folder, file)
		if seen[path] {
			path = blobpath.FolderPath(folder, p.newID()+".jpg")
		}
		seen[path] = true
		paths[i] = path
	}
	return paths
}

func (p *Pipeline) uploadWithRetry(ctx context.Context, path string, data []byte, contentType string, onSent func(int64)) (string, error) {
	opts := store.UploadOptions{
		ContentType: contentType,
		CreateOnly:  p.config.Naming == NameTimestamped,
	}
	backoff := p.config.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= p.config.MaxRetries; attempt++ {
		r := &progressReader{r: bytes.NewReader(data), onSent: onSent}
		url, err := p.blobs.Upload(ctx, path, r, opts)
		if err == nil {
			return url, nil
		}
		lastErr = err
		if errors.Is(err, store.ErrAlreadyExists) || attempt == p.config.MaxRetries {
			break
		}
		slog.Warn(
			"Upload failed, will retry.",
			"storagePath", path,
			"attempt", attempt,
			"maxRetries", p.config.MaxRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("upload for %s failed: %w", path, lastErr)
}

func (p *Pipeline) discard(ctx context.Context, paths []string, uploaded []bool) {
	for i, ok := range uploaded {
		if !ok {
			continue
		}
		if err := p.blobs.Delete(ctx, paths[i]); err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.Warn("Could not remove uploaded asset of a failed batch.", "storagePath", paths[i], "error", err)
		}
	}
}

type progressReader struct {
	r      io.Reader
	sent   int64
	onSent func(int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.sent += int64(n)
		pr.onSent(pr.sent)
	}
	return n, err
}
