package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/fieldservice/internal/blobpath"
	"github.com/Lllllllleong/fieldservice/internal/mirror"
	"github.com/Lllllllleong/fieldservice/internal/models"
	"github.com/Lllllllleong/fieldservice/internal/store"
)

// PendingUploadKey is the Pending key held while photos are added to a ticket.
func PendingUploadKey(ticketID string) string { return "upload:" + ticketID }

// TicketService pairs every local mirror mutation with its remote write.
type TicketService struct {
	tickets store.TicketRepository
	legacy  store.TicketRepository
	notes   store.NoteRepository
	blobs   store.BlobStore
	uploads *Pipeline
	stores  *mirror.Stores
}

// NewTicketService wires the service. legacy may be nil when there is no
// old projects collection to migrate.
func NewTicketService(tickets, legacy store.TicketRepository, notes store.NoteRepository, blobs store.BlobStore, uploads *Pipeline, stores *mirror.Stores) *TicketService {
	return &TicketService{
		tickets: tickets,
		legacy:  legacy,
		notes:   notes,
		blobs:   blobs,
		uploads: uploads,
		stores:  stores,
	}
}

// Create stores a new ticket. Start draft from models.NewTicket.
func (s *TicketService) Create(ctx context.Context, draft models.Ticket) (models.Ticket, error) {
	if draft.Photos == nil {
		draft.Photos = []models.PhotoRef{}
	}
	if draft.Address == "" {
		draft.Address = models.ComposeAddress(draft.Street, draft.Apt, draft.City, draft.State, draft.Zip)
	}
	created, err := s.tickets.Create(ctx, draft)
	if err != nil {
		return models.Ticket{}, err
	}
	s.stores.Tickets.Add(created)
	slog.Info("Ticket created.", "ticketId", created.ID, "address", created.Address)
	return created, nil
}

// Patch applies the update locally, then remotely. When the remote write
// fails the local record is rolled back to what it was before.
func (s *TicketService) Patch(ctx context.Context, ticketID string, patch models.TicketPatch) error {
	_, err := s.update(ctx, ticketID, patch)
	return err
}

// update is Patch returning the remote ticket as it was before the write.
func (s *TicketService) update(ctx context.Context, ticketID string, patch models.TicketPatch) (models.Ticket, error) {
	prev, cached := s.stores.Tickets.Get(ticketID)
	if cached {
		s.stores.Tickets.Patch(ticketID, patch.Apply)
	}
	previous, err := s.tickets.Update(ctx, ticketID, patch)
	if err != nil {
		if cached {
			s.stores.Tickets.Patch(ticketID, func(models.Ticket) models.Ticket { return prev })
		}
		slog.Warn("Ticket update failed, local change rolled back.", "ticketId", ticketID, "error", err)
		return models.Ticket{}, fmt.Errorf("failed to update ticket %s: %w", ticketID, err)
	}
	return previous, nil
}

// AddPhotos uploads the assets into folder and appends them to the ticket's
// photo list. The append is resolved against the stored list, so concurrent
// calls on one ticket all land. If the list cannot be saved the uploaded
// blobs are removed.
func (s *TicketService) AddPhotos(ctx context.Context, ticketID, folder string, assets []Asset) ([]models.PhotoRef, error) {
	end := s.stores.Pending.Begin(PendingUploadKey(ticketID))
	defer end()
	if folder == "" {
		folder = blobpath.ProjectPhotosFolder
	}

	refs, err := s.uploads.Upload(ctx, folder, assets)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return refs, nil
	}

	if err := s.Patch(ctx, ticketID, models.TicketPatch{AppendPhotos: refs}); err != nil {
		s.discard(ctx, ticketID, refs)
		return nil, err
	}
	slog.Info("Photos added to ticket.", "ticketId", ticketID, "photoCount", len(refs))
	return refs, nil
}

// RemovePhoto drops ref from the ticket's photo list and from every room,
// then deletes the blob. A blob that cannot be deleted is logged; the
// reference is gone either way.
func (s *TicketService) RemovePhoto(ctx context.Context, ticketID string, ref models.PhotoRef) error {
	current, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("failed to load ticket %s: %w", ticketID, err)
	}
	if !containsPhoto(current.PhotoRefs(), ref) {
		return fmt.Errorf("photo is not attached to ticket %s: %w", ticketID, store.ErrNotFound)
	}

	if err := s.Patch(ctx, ticketID, models.TicketPatch{RemovePhotos: []models.PhotoRef{ref}}); err != nil {
		return err
	}
	s.discard(ctx, ticketID, []models.PhotoRef{ref})
	return nil
}

// SaveRemediation rewrites the ticket's rooms wholesale. Room photos of the
// replaced data that appear nowhere in the new data or the photo list are
// deleted from the blob store.
func (s *TicketService) SaveRemediation(ctx context.Context, ticketID string, data models.RemediationData) error {
	previous, err := s.update(ctx, ticketID, models.TicketPatch{RemediationData: &data})
	if err != nil {
		return err
	}
	if previous.RemediationData == nil {
		return nil
	}

	kept := data.PhotoRefs()
	kept = append(kept, previous.Photos...)
	var orphaned []models.PhotoRef
	for _, old := range previous.RemediationData.PhotoRefs() {
		if !containsPhoto(kept, old) && !containsPhoto(orphaned, old) {
			orphaned = append(orphaned, old)
		}
	}
	s.discard(ctx, ticketID, orphaned)
	return nil
}

// Subscription is a running live query. Stop tears it down.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func subscribe(ctx context.Context, run func(context.Context) error) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		sub.err = run(ctx)
	}()
	return sub
}

// Stop cancels the subscription, waits for it to exit and returns the error
// that ended it, if any.
func (s *Subscription) Stop() error {
	s.cancel()
	<-s.done
	return s.err
}

// Done is closed once the subscription has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Watch keeps the ticket mirror equal to the remote collection. Every
// snapshot replaces the mirror wholesale, so repeated or late snapshots
// correct themselves.
func (s *TicketService) Watch(ctx context.Context) *Subscription {
	return subscribe(ctx, func(ctx context.Context) error {
		return s.tickets.Watch(ctx, s.stores.Tickets.ReplaceAll)
	})
}

// WatchNotes keeps the note mirror equal to the notes of one ticket.
func (s *TicketService) WatchNotes(ctx context.Context, ticketID string) *Subscription {
	return subscribe(ctx, func(ctx context.Context) error {
		return s.notes.Watch(ctx, ticketID, s.stores.Notes.ReplaceAll)
	})
}

// MigrateLegacyProjects moves every document of the old projects collection
// into tickets under the same ID and deletes the original once the copy is
// written. It returns how many were moved; failures are joined.
func (s *TicketService) MigrateLegacyProjects(ctx context.Context) (int, error) {
	if s.legacy == nil {
		return 0, nil
	}
	projects, err := s.legacy.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list legacy projects: %w", err)
	}

	var errs []error
	moved := 0
	for _, p := range projects {
		logCtx := slog.With("ticketId", p.ID)
		t := p.Clone()
		t.ProjectID = ""
		if t.Photos == nil {
			t.Photos = []models.PhotoRef{}
		}
		if t.Address == "" {
			t.Address = models.ComposeAddress(t.Street, t.Apt, t.City, t.State, t.Zip)
		}
		if err := s.tickets.Put(ctx, t); err != nil {
			logCtx.Error("Failed to copy legacy project.", "error", err)
			errs = append(errs, fmt.Errorf("project %s: %w", p.ID, err))
			continue
		}
		if err := s.legacy.Delete(ctx, p.ID); err != nil {
			logCtx.Error("Copied legacy project but could not delete it.", "error", err)
			errs = append(errs, fmt.Errorf("project %s: %w", p.ID, err))
		}
		s.stores.Tickets.Add(t)
		moved++
	}
	slog.Info("Legacy project migration finished.", "moved", moved, "failed", len(errs))
	return moved, errors.Join(errs...)
}

// discard deletes blobs that are no longer referenced, logging failures.
func (s *TicketService) discard(ctx context.Context, ticketID string, refs []models.PhotoRef) {
	for _, ref := range refs {
		path, err := blobpath.PathOf(ref)
		if err != nil {
			slog.Warn("Cannot resolve blob of removed photo.", "ticketId", ticketID, "ref", ref.DisplayURL(), "error", err)
			continue
		}
		if err := s.blobs.Delete(ctx, path); err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.Warn("Failed to delete blob of removed photo.", "ticketId", ticketID, "storagePath", path, "error", err)
		}
	}
}

func containsPhoto(photos []models.PhotoRef, ref models.PhotoRef) bool {
	for _, p := range photos {
		if p.SameBlob(ref) {
			return true
		}
	}
	return false
}
