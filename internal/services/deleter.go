package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/fieldservice/internal/blobpath"
	"github.com/Lllllllleong/fieldservice/internal/mirror"
	"github.com/Lllllllleong/fieldservice/internal/models"
	"github.com/Lllllllleong/fieldservice/internal/store"
)

// Confirmer asks the user to confirm or cancel a destructive operation.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Confirmed answers every prompt with answer. It is used when the choice
// was made up front, e.g. by the confirm field of an API request.
func Confirmed(answer bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) (bool, error) { return answer, nil })
}

// ItemKind names what a failed deletion item was.
type ItemKind string

const (
	KindNote   ItemKind = "note"
	KindPhoto  ItemKind = "photo"
	KindReport ItemKind = "report"
)

// ItemFailure is one dependent that could not be removed.
type ItemFailure struct {
	Kind ItemKind
	Ref  string
	Err  error
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Kind, f.Ref, f.Err)
}

func (f ItemFailure) Unwrap() error { return f.Err }

// DeleteReport describes what a deletion did.
type DeleteReport struct {
	TicketID string
	// Cancelled is set when the user declined; nothing was touched.
	Cancelled bool
	// Found is false when the ticket document did not exist.
	Found        bool
	NotesDeleted int
	BlobsDeleted int
	Failures     []ItemFailure
}

// Warning joins every item failure, or returns nil for a clean deletion.
func (r *DeleteReport) Warning() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// PendingDeleteKey is the Pending key held while a ticket is being deleted.
func PendingDeleteKey(ticketID string) string { return "delete:" + ticketID }

type DeleterConfig struct {
	Concurrency int
}

// Deleter removes a ticket together with its notes, photos and report.
type Deleter struct {
	tickets store.TicketRepository
	notes   store.NoteRepository
	blobs   store.BlobStore
	stores  *mirror.Stores
	config  DeleterConfig
}

func NewDeleter(tickets store.TicketRepository, notes store.NoteRepository, blobs store.BlobStore, stores *mirror.Stores, config DeleterConfig) *Deleter {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &Deleter{tickets: tickets, notes: notes, blobs: blobs, stores: stores, config: config}
}

// Delete asks for confirmation, then removes the ticket's notes and blobs
// and finally the ticket document. A dependent that fails is recorded in
// the report and does not stop the rest; the returned error is reserved
// for failures that leave the ticket document in place. Deleting a ticket
// that does not exist is not an error.
func (d *Deleter) Delete(ctx context.Context, ticketID string, confirm Confirmer) (*DeleteReport, error) {
	report := &DeleteReport{TicketID: ticketID}
	if ticketID == "" {
		return report, fmt.Errorf("ticketId must be provided")
	}
	logCtx := slog.With("ticketId", ticketID)

	ok, err := confirm.Confirm(ctx, fmt.Sprintf("Delete ticket %s and all of its photos, notes and reports? This cannot be undone.", ticketID))
	if err != nil {
		return report, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		report.Cancelled = true
		logCtx.Info("Deletion cancelled by user.")
		return report, nil
	}

	end := d.stores.Pending.Begin(PendingDeleteKey(ticketID))
	defer end()
	logCtx.Info("Starting cascading deletion.")

	c := &collector{report: report, log: logCtx}
	var g errgroup.Group
	g.SetLimit(d.config.Concurrency)

	// 1. Notes, in the background while the ticket loads.
	notes, err := d.notes.ListByProject(ctx, ticketID)
	if err != nil {
		c.fail(KindNote, "projectId="+ticketID, err)
	}
	for _, n := range notes {
		noteID := n.ID
		g.Go(func() error {
			if err := d.notes.Delete(ctx, noteID); err != nil {
				c.fail(KindNote, noteID, err)
				return nil
			}
			c.noteDeleted(noteID)
			return nil
		})
	}

	// 2. The ticket itself.
	ticket, err := d.tickets.Get(ctx, ticketID)
	if err != nil {
		_ = g.Wait()
		d.dropNotes(c.deletedNotes())
		if errors.Is(err, store.ErrNotFound) {
			logCtx.Info("Ticket already deleted.", "notesDeleted", report.NotesDeleted)
			return report, nil
		}
		logCtx.Error("Failed to load ticket, ticket was not deleted.", "error", err)
		return report, fmt.Errorf("failed to load ticket %s: %w", ticketID, err)
	}
	report.Found = true

	// 3 and 4. Photos and the report file.
	seen := make(map[string]bool)
	for _, ref := range ticket.PhotoRefs() {
		d.deleteBlob(ctx, &g, c, seen, KindPhoto, ref)
	}
	if ref, ok := ticket.Report(); ok {
		d.deleteBlob(ctx, &g, c, seen, KindReport, ref)
	}

	// 5. Everything settles before the root goes.
	_ = g.Wait()
	d.dropNotes(c.deletedNotes())

	// 6. The root document.
	if err := d.tickets.Delete(ctx, ticketID); err != nil {
		logCtx.Error("Failed to delete ticket document.", "error", err)
		return report, fmt.Errorf("failed to delete ticket %s: %w", ticketID, err)
	}

	// 7. Local state.
	d.stores.Tickets.Remove(ticketID)
	if d.stores.CurrentProject.Get() == ticketID {
		if err := d.stores.CurrentProject.Reset(); err != nil {
			logCtx.Warn("Could not clear current project.", "error", err)
		}
	}

	if w := report.Warning(); w != nil {
		logCtx.Warn("Ticket deleted with failures.", "failureCount", len(report.Failures), "notesDeleted", report.NotesDeleted, "blobsDeleted", report.BlobsDeleted, "error", w)
	} else {
		logCtx.Info("Ticket deleted.", "notesDeleted", report.NotesDeleted, "blobsDeleted", report.BlobsDeleted)
	}
	return report, nil
}

func (d *Deleter) deleteBlob(ctx context.Context, g *errgroup.Group, c *collector, seen map[string]bool, kind ItemKind, ref models.PhotoRef) {
	path, err := blobpath.PathOf(ref)
	if err != nil {
		c.fail(kind, ref.DisplayURL(), err)
		return
	}
	if seen[path] {
		return
	}
	seen[path] = true
	g.Go(func() error {
		if err := d.blobs.Delete(ctx, path); err != nil && !errors.Is(err, store.ErrNotFound) {
			c.fail(kind, path, err)
			return nil
		}
		c.blobDeleted()
		return nil
	})
}

func (d *Deleter) dropNotes(ids []string) {
	for _, id := range ids {
		d.stores.Notes.Remove(id)
	}
}

// collector gathers per-item outcomes from concurrent deletions.
type collector struct {
	mu     sync.Mutex
	report *DeleteReport
	notes  []string
	log    *slog.Logger
}

func (c *collector) fail(kind ItemKind, ref string, err error) {
	c.log.Warn("Dependent deletion failed, continuing.", "kind", string(kind), "ref", ref, "error", err)
	c.mu.Lock()
	c.report.Failures = append(c.report.Failures, ItemFailure{Kind: kind, Ref: ref, Err: err})
	c.mu.Unlock()
}

func (c *collector) noteDeleted(id string) {
	c.mu.Lock()
	c.report.NotesDeleted++
	c.notes = append(c.notes, id)
	c.mu.Unlock()
}

func (c *collector) blobDeleted() {
	c.mu.Lock()
	c.report.BlobsDeleted++
	c.mu.Unlock()
}

func (c *collector) deletedNotes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.notes...)
}
