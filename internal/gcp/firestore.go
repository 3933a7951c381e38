package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/fieldservice/internal/models"
	"github.com/Lllllllleong/fieldservice/internal/store"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// TicketStore is the Firestore implementation of store.TicketRepository.
type TicketStore struct {
	client     *firestore.Client
	collection string
}

var _ store.TicketRepository = (*TicketStore)(nil)

func NewTicketStore(client *firestore.Client, collection string) *TicketStore {
	return &TicketStore{client: client, collection: collection}
}

func (s *TicketStore) col() *firestore.CollectionRef {
	return s.client.Collection(s.collection)
}

// Create allocates the document ID first so the record is written once with
// its own ID already in it.
func (s *TicketStore) Create(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	ref := s.col().NewDoc()
	t.ID = ref.ID
	if _, err := ref.Create(ctx, t); err != nil {
		return models.Ticket{}, fmt.Errorf("failed to create ticket: %w", err)
	}
	return t, nil
}

func (s *TicketStore) Get(ctx context.Context, id string) (models.Ticket, error) {
	snap, err := s.col().Doc(id).Get(ctx)
	if err != nil {
		return models.Ticket{}, translateFirestoreErr(fmt.Sprintf("ticket %s", id), err)
	}
	return decodeTicket(snap)
}

func (s *TicketStore) Put(ctx context.Context, t models.Ticket) error {
	if t.ID == "" {
		return fmt.Errorf("ticket has no id")
	}
	if _, err := s.col().Doc(t.ID).Set(ctx, t); err != nil {
		return fmt.Errorf("failed to write ticket %s: %w", t.ID, err)
	}
	return nil
}

// Update writes only the patched fields. It runs in a transaction because a
// change to any address part rewrites the composed address, and photo
// appends and removals rewrite the stored lists; both depend on the fields
// as they are at write time.
func (s *TicketStore) Update(ctx context.Context, id string, patch models.TicketPatch) (models.Ticket, error) {
	ref := s.col().Doc(id)
	var previous models.Ticket
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		current, err := decodeTicket(snap)
		if err != nil {
			return err
		}
		previous = current
		updates := patch.Updates(current)
		if len(updates) == 0 {
			return nil
		}
		return tx.Update(ref, toFirestoreUpdates(updates))
	})
	if err != nil {
		return models.Ticket{}, translateFirestoreErr(fmt.Sprintf("ticket %s", id), err)
	}
	return previous, nil
}

func (s *TicketStore) Delete(ctx context.Context, id string) error {
	if _, err := s.col().Doc(id).Delete(ctx); err != nil {
		return translateFirestoreErr(fmt.Sprintf("ticket %s", id), err)
	}
	return nil
}

func (s *TicketStore) List(ctx context.Context) ([]models.Ticket, error) {
	it := s.col().Documents(ctx)
	defer it.Stop()

	var tickets []models.Ticket
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list tickets: %w", err)
		}
		t, err := decodeTicket(snap)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (s *TicketStore) Watch(ctx context.Context, fn func([]models.Ticket)) error {
	it := s.col().Snapshots(ctx)
	defer it.Stop()

	for {
		qs, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("ticket subscription failed: %w", err)
		}
		docs, err := qs.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("failed to read ticket snapshot: %w", err)
		}
		tickets := make([]models.Ticket, 0, len(docs))
		for _, d := range docs {
			t, err := decodeTicket(d)
			if err != nil {
				return err
			}
			tickets = append(tickets, t)
		}
		fn(tickets)
	}
}

// NoteStore is the Firestore implementation of store.NoteRepository.
type NoteStore struct {
	client     *firestore.Client
	collection string
}

var _ store.NoteRepository = (*NoteStore)(nil)

func NewNoteStore(client *firestore.Client, collection string) *NoteStore {
	return &NoteStore{client: client, collection: collection}
}

func (s *NoteStore) Create(ctx context.Context, n models.Note) (models.Note, error) {
	ref, _, err := s.client.Collection(s.collection).Add(ctx, n)
	if err != nil {
		return models.Note{}, fmt.Errorf("failed to create note: %w", err)
	}
	n.ID = ref.ID
	return n, nil
}

func (s *NoteStore) byProject(projectID string) firestore.Query {
	return s.client.Collection(s.collection).Where("projectId", "==", projectID)
}

func (s *NoteStore) ListByProject(ctx context.Context, projectID string) ([]models.Note, error) {
	it := s.byProject(projectID).Documents(ctx)
	defer it.Stop()

	var notes []models.Note
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query notes for %s: %w", projectID, err)
		}
		n, err := decodeNote(snap)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, nil
}

func (s *NoteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Collection(s.collection).Doc(id).Delete(ctx); err != nil {
		return translateFirestoreErr(fmt.Sprintf("note %s", id), err)
	}
	return nil
}

func (s *NoteStore) Watch(ctx context.Context, projectID string, fn func([]models.Note)) error {
	it := s.byProject(projectID).Snapshots(ctx)
	defer it.Stop()

	for {
		qs, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("note subscription failed: %w", err)
		}
		docs, err := qs.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("failed to read note snapshot: %w", err)
		}
		notes := make([]models.Note, 0, len(docs))
		for _, d := range docs {
			n, err := decodeNote(d)
			if err != nil {
				return err
			}
			notes = append(notes, n)
		}
		fn(notes)
	}
}

func decodeTicket(snap *firestore.DocumentSnapshot) (models.Ticket, error) {
	var t models.Ticket
	if err := snap.DataTo(&t); err != nil {
		return models.Ticket{}, fmt.Errorf("failed to decode ticket %s: %w", snap.Ref.ID, err)
	}
	// Older records never echoed their ID; the document name is authoritative.
	t.ID = snap.Ref.ID
	if t.Photos == nil {
		t.Photos = []models.PhotoRef{}
	}
	return t, nil
}

func decodeNote(snap *firestore.DocumentSnapshot) (models.Note, error) {
	var n models.Note
	if err := snap.DataTo(&n); err != nil {
		return models.Note{}, fmt.Errorf("failed to decode note %s: %w", snap.Ref.ID, err)
	}
	n.ID = snap.Ref.ID
	return n, nil
}

func toFirestoreUpdates(in []models.FieldUpdate) []firestore.Update {
	out := make([]firestore.Update, len(in))
	for i, u := range in {
		out[i] = firestore.Update{Path: u.Path, Value: u.Value}
	}
	return out
}

func translateFirestoreErr(what string, err error) error {
	if status.Code(err) == codes.NotFound || errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
