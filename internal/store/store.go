// Package store declares the remote collaborators the services depend on:
// the document store holding tickets and notes, and the blob store holding
// photos and reports.
package store

import (
	"context"
	"errors"
	"io"

	"github.com/Lllllllleong/fieldservice/internal/models"
)

var (
	// ErrNotFound is returned when a document or object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned by a create-only write that hit an existing object.
	ErrAlreadyExists = errors.New("already exists")
	// ErrPermissionDenied is returned when a local asset may not be read.
	ErrPermissionDenied = errors.New("permission denied")
)

// TicketRepository stores tickets in one collection.
type TicketRepository interface {
	// Create assigns the document ID, writes it into the record and returns
	// the stored record.
	Create(ctx context.Context, t models.Ticket) (models.Ticket, error)
	Get(ctx context.Context, id string) (models.Ticket, error)
	// Put writes the full record under t.ID.
	Put(ctx context.Context, t models.Ticket) error
	// Update applies a partial update atomically against the stored ticket
	// and returns the ticket as it was before the update. It returns
	// ErrNotFound for a missing ticket.
	Update(ctx context.Context, id string, patch models.TicketPatch) (models.Ticket, error)
	// Delete succeeds for a ticket that does not exist.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.Ticket, error)
	// Watch delivers the full collection on every remote change until ctx
	// is done, then returns nil.
	Watch(ctx context.Context, fn func([]models.Ticket)) error
}

// NoteRepository stores notes keyed to a ticket by projectId.
type NoteRepository interface {
	Create(ctx context.Context, n models.Note) (models.Note, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Note, error)
	// Delete succeeds for a note that does not exist.
	Delete(ctx context.Context, id string) error
	Watch(ctx context.Context, projectID string, fn func([]models.Note)) error
}

// UploadOptions describe an object write.
type UploadOptions struct {
	ContentType string
	Metadata    map[string]string
	// CreateOnly fails with ErrAlreadyExists instead of overwriting.
	CreateOnly bool
	// DownloadToken reuses an existing download token so URLs already
	// handed out keep working after an overwrite. Empty mints a new one.
	DownloadToken string
}

// BlobStore stores binary objects by path.
type BlobStore interface {
	// Upload writes the object and returns its download URL.
	Upload(ctx context.Context, path string, r io.Reader, opts UploadOptions) (downloadURL string, err error)
	// Delete returns ErrNotFound when the object does not exist.
	Delete(ctx context.Context, path string) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
