package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/fieldservice/internal/mirror"
	"github.com/Lllllllleong/fieldservice/internal/models"
	"github.com/Lllllllleong/fieldservice/internal/store/memory"
)

type fixture struct {
	tickets *memory.Tickets
	legacy  *memory.Tickets
	notes   *memory.Notes
	blobs   *memory.Blobs
	stores  *mirror.Stores
	uploads *Pipeline
	service *TicketService
	deleter *Deleter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tickets: memory.NewTickets(),
		legacy:  memory.NewTickets(),
		notes:   memory.NewNotes(),
		blobs:   memory.NewBlobs(),
		stores:  mirror.NewStores(t.TempDir()),
	}
	cfg := DefaultPipelineConfig()
	cfg.InitialBackoff = 0
	f.uploads = NewPipeline(f.blobs, cfg)
	f.service = NewTicketService(f.tickets, f.legacy, f.notes, f.blobs, f.uploads, f.stores)
	f.deleter = NewDeleter(f.tickets, f.notes, f.blobs, f.stores, DeleterConfig{Concurrency: 4})
	return f
}

// seedTicket stores t remotely and in the mirror and returns it with its ID.
func (f *fixture) seedTicket(t *testing.T, ticket models.Ticket) models.Ticket {
	t.Helper()
	created, err := f.tickets.Create(context.Background(), ticket)
	require.NoError(t, err)
	f.stores.Tickets.Add(created)
	return created
}

func (f *fixture) seedNote(t *testing.T, ticketID, text string) models.Note {
	t.Helper()
	n, err := f.notes.Create(context.Background(), models.Note{ProjectID: ticketID, Text: text})
	require.NoError(t, err)
	f.stores.Notes.Add(n)
	return n
}
