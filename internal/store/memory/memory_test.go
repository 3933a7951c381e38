package memory

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/fieldservice/internal/models"
	"github.com/Lllllllleong/fieldservice/internal/store"
)

func TestTicketsAssignIDsAndCopy(t *testing.T) {
	s := NewTickets()
	ctx := context.Background()
	draft := models.NewTicket()
	draft.Photos = append(draft.Photos, models.PhotoRef{StoragePath: "projectPhotos/a.jpg"})

	created, err := s.Create(ctx, draft)
	require.NoError(t, err)
	assert.Equal(t, "ticket-1", created.ID)

	created.Photos[0].StoragePath = "mutated"
	got, err := s.Get(ctx, "ticket-1")
	require.NoError(t, err)
	assert.Equal(t, "projectPhotos/a.jpg", got.Photos[0].StoragePath)

	_, err = s.Get(ctx, "ticket-9")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, s.Delete(ctx, "ticket-9"))
}

func TestTicketsUpdateAppliesPatch(t *testing.T) {
	s := NewTickets()
	ctx := context.Background()
	created, err := s.Create(ctx, models.NewTicket())
	require.NoError(t, err)

	previous, err := s.Update(ctx, created.ID, models.TicketPatch{City: models.String("Dover")})
	require.NoError(t, err)
	assert.Empty(t, previous.City)
	got, _ := s.Get(ctx, created.ID)
	assert.Equal(t, "Dover", got.City)
	assert.Equal(t, "Dover", got.Address)

	_, err = s.Update(ctx, "nope", models.TicketPatch{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBlobsCreateOnlyAndNotFound(t *testing.T) {
	b := NewBlobs()
	ctx := context.Background()

	url, err := b.Upload(ctx, "images/a.jpg", bytes.NewReader([]byte("a")), store.UploadOptions{CreateOnly: true})
	require.NoError(t, err)
	assert.Contains(t, url, "images%2Fa.jpg")

	_, err = b.Upload(ctx, "images/a.jpg", bytes.NewReader([]byte("b")), store.UploadOptions{CreateOnly: true})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	rc, err := b.Open(ctx, "images/a.jpg")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	assert.Equal(t, []byte("a"), data)

	require.NoError(t, b.Delete(ctx, "images/a.jpg"))
	assert.ErrorIs(t, b.Delete(ctx, "images/a.jpg"), store.ErrNotFound)
	uploads, deletes := b.Calls()
	assert.Equal(t, 2, uploads)
	assert.Equal(t, 2, deletes)
}

func TestNotesWatchIsScopedToProject(t *testing.T) {
	s := NewNotes()
	ctx, cancel := context.WithCancel(context.Background())

	snapshots := make(chan []models.Note, 8)
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, "t1", func(n []models.Note) { snapshots <- n }) }()

	assert.Empty(t, <-snapshots)
	_, err := s.Create(context.Background(), models.Note{ProjectID: "t1", Text: "hello"})
	require.NoError(t, err)
	got := <-snapshots
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Text)

	_, err = s.Create(context.Background(), models.Note{ProjectID: "t2"})
	require.NoError(t, err)
	assert.Len(t, <-snapshots, 1)

	cancel()
	assert.NoError(t, <-done)
}
