package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/fieldservice/internal/blobpath"
	"github.com/Lllllllleong/fieldservice/internal/models"
)

func TestDeleteTicketWithoutDependents(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t, models.NewTicket())

	report, err := f.deleter.Delete(context.Background(), ticket.ID, Confirmed(true))
	require.NoError(t, err)

	assert.True(t, report.Found)
	assert.Empty(t, report.Failures)
	assert.Equal(t, []string{ticket.ID}, f.tickets.Deleted)
	uploads, deletes := f.blobs.Calls()
	assert.Zero(t, uploads)
	assert.Zero(t, deletes)
	_, ok := f.stores.Tickets.Get(ticket.ID)
	assert.False(t, ok)
}

func TestDeleteResolvesEveryPhotoForm(t *testing.T) {
	f := newFixture(t)
	draft := models.NewTicket()
	draft.Photos = []models.PhotoRef{
		{StoragePath: "projectPhotos/a.jpg"},
		{URI: "https://firebasestorage.googleapis.com/v0/b/bucket/o/projectPhotos%2Fb.jpg?alt=media"},
	}
	ticket := f.seedTicket(t, draft)
	f.blobs.Seed("projectPhotos/a.jpg", []byte("a"))
	f.blobs.Seed("projectPhotos/b.jpg", []byte("b"))

	report, err := f.deleter.Delete(context.Background(), ticket.ID, Confirmed(true))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"projectPhotos/a.jpg", "projectPhotos/b.jpg"}, f.blobs.DeletedPaths())
	assert.Equal(t, 2, report.BlobsDeleted)
	assert.Zero(t, f.blobs.Len())
}

func TestDeleteRemovesRoomPhotosReportAndNotes(t *testing.T) {
	f := newFixture(t)
	draft := models.NewTicket()
	draft.Photos = []models.PhotoRef{{StoragePath: "projectPhotos/top.jpg"}}
	draft.RemediationData = &models.RemediationData{Rooms: []models.Room{
		{Name: "Kitchen", Photos: []models.PhotoRef{{StoragePath: "images/1-photo.jpg"}}},
		// Same blob as the top-level photo; deleted once.
		{Name: "Hall", Photos: []models.PhotoRef{{StoragePath: "projectPhotos/top.jpg"}}},
	}}
	draft.PDFStoragePath = "reports/1_Main_St.pdf"
	draft.PDFDownloadURL = blobpath.DownloadURL("bucket", "reports/1_Main_St.pdf", "tok")
	ticket := f.seedTicket(t, draft)
	other := f.seedTicket(t, models.NewTicket())

	n1 := f.seedNote(t, ticket.ID, "first visit")
	n2 := f.seedNote(t, ticket.ID, "second visit")
	keep := f.seedNote(t, other.ID, "unrelated")

	require.NoError(t, f.stores.CurrentProject.Set(ticket.ID))

	report, err := f.deleter.Delete(context.Background(), ticket.ID, Confirmed(true))
	require.NoError(t, err)

	assert.Equal(t, 2, report.NotesDeleted)
	assert.Equal(t, 3, report.BlobsDeleted)
	assert.ElementsMatch(t, []string{"projectPhotos/top.jpg", "images/1-photo.jpg", "reports/1_Main_St.pdf"}, f.blobs.DeletedPaths())
	assert.ElementsMatch(t, []string{n1.ID, n2.ID}, f.notes.Deleted)

	_, ok := f.stores.Notes.Get(n1.ID)
	assert.False(t, ok)
	_, ok = f.stores.Notes.Get(keep.ID)
	assert.True(t, ok)
	_, ok = f.stores.Tickets.Get(other.ID)
	assert.True(t, ok)

	assert.Empty(t, f.stores.CurrentProject.Get())
	assert.False(t, f.stores.Pending.Active(PendingDeleteKey(ticket.ID)))
}

func TestDeleteContinuesPastBlobFailure(t *testing.T) {
	f := newFixture(t)
	draft := models.NewTicket()
	draft.Photos = []models.PhotoRef{
		{StoragePath: "projectPhotos/ok.jpg"},
		{StoragePath: "projectPhotos/broken.jpg"},
	}
	ticket := f.seedTicket(t, draft)
	f.blobs.Seed("projectPhotos/ok.jpg", nil)
	f.blobs.FailDelete["projectPhotos/broken.jpg"] = errors.New("backend unavailable")

	report, err := f.deleter.Delete(context.Background(), ticket.ID, Confirmed(true))
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, KindPhoto, report.Failures[0].Kind)
	assert.Equal(t, "projectPhotos/broken.jpg", report.Failures[0].Ref)
	assert.Error(t, report.Warning())

	assert.Zero(t, f.tickets.Len())
	_, ok := f.stores.Tickets.Get(ticket.ID)
	assert.False(t, ok)
}

func TestDeleteTreatsMissingBlobAsDeleted(t *testing.T) {
	f := newFixture(t)
	draft := models.NewTicket()
	draft.Photos = []models.PhotoRef{{StoragePath: "projectPhotos/gone.jpg"}}
	ticket := f.seedTicket(t, draft)

	report, err := f.deleter.Delete(context.Background(), ticket.ID, Confirmed(true))
	require.NoError(t, err)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 1, report.BlobsDeleted)
}

func TestDeleteRecordsMalformedReference(t *testing.T) {
	f := newFixture(t)
	draft := models.NewTicket()
	draft.Photos = []models.PhotoRef{{DownloadURL: "https://example.com/not-a-storage-url.jpg"}}
	ticket := f.seedTicket(t, draft)

	report, err := f.deleter.Delete(context.Background(), ticket.ID, Confirmed(true))
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0], blobpath.ErrMalformedRef)
	_, deletes := f.blobs.Calls()
	assert.Zero(t, deletes)
	assert.Zero(t, f.tickets.Len())
}

func TestDeleteNonexistentTicket(t *testing.T) {
	f := newFixture(t)
	existing := f.seedTicket(t, models.NewTicket())
	before := f.stores.Tickets.List()

	report, err := f.deleter.Delete(context.Background(), "missing", Confirmed(true))
	require.NoError(t, err)

	assert.False(t, report.Found)
	assert.Equal(t, before, f.stores.Tickets.List())
	assert.Equal(t, 1, f.tickets.Len())
	_, ok := f.stores.Tickets.Get(existing.ID)
	assert.True(t, ok)
	assert.Empty(t, f.tickets.Deleted)
}

func TestDeleteNonexistentTicketStillPurgesOrphanNotes(t *testing.T) {
	f := newFixture(t)
	n := f.seedNote(t, "missing", "left behind")

	report, err := f.deleter.Delete(context.Background(), "missing", Confirmed(true))
	require.NoError(t, err)

	assert.Equal(t, 1, report.NotesDeleted)
	assert.Zero(t, f.notes.Len())
	_, ok := f.stores.Notes.Get(n.ID)
	assert.False(t, ok)
}

func TestDeleteCancelledHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	draft := models.NewTicket()
	draft.Photos = []models.PhotoRef{{StoragePath: "projectPhotos/a.jpg"}}
	ticket := f.seedTicket(t, draft)
	f.seedNote(t, ticket.ID, "note")

	var prompt string
	confirm := ConfirmFunc(func(_ context.Context, p string) (bool, error) {
		prompt = p
		return false, nil
	})
	report, err := f.deleter.Delete(context.Background(), ticket.ID, confirm)
	require.NoError(t, err)

	assert.True(t, report.Cancelled)
	assert.Contains(t, prompt, ticket.ID)
	assert.Empty(t, f.tickets.Deleted)
	assert.Empty(t, f.notes.Deleted)
	_, deletes := f.blobs.Calls()
	assert.Zero(t, deletes)
	assert.Equal(t, 1, f.stores.Tickets.Len())
	assert.Equal(t, 1, f.stores.Notes.Len())
}

func TestDeleteConfirmationError(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t, models.NewTicket())
	boom := errors.New("dialog closed")

	_, err := f.deleter.Delete(context.Background(), ticket.ID, ConfirmFunc(func(context.Context, string) (bool, error) {
		return false, boom
	}))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, f.tickets.Len())
}

func TestDeleteNoteFailuresAreRecorded(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t, models.NewTicket())
	bad := f.seedNote(t, ticket.ID, "stuck")
	good := f.seedNote(t, ticket.ID, "fine")
	f.notes.FailDelete[bad.ID] = errors.New("permission denied")

	report, err := f.deleter.Delete(context.Background(), ticket.ID, Confirmed(true))
	require.NoError(t, err)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, KindNote, report.Failures[0].Kind)
	assert.Equal(t, 1, report.NotesDeleted)
	_, ok := f.stores.Notes.Get(bad.ID)
	assert.True(t, ok, "a note that failed to delete stays in the mirror")
	_, ok = f.stores.Notes.Get(good.ID)
	assert.False(t, ok)
	assert.Zero(t, f.tickets.Len())
}

func TestDeleteNoteQueryFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t, models.NewTicket())
	f.notes.FailList = errors.New("index missing")

	report, err := f.deleter.Delete(context.Background(), ticket.ID, Confirmed(true))
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, KindNote, report.Failures[0].Kind)
	assert.Zero(t, f.tickets.Len())
}

func TestDeleteRootFailureKeepsMirror(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t, models.NewTicket())
	f.tickets.FailDelete[ticket.ID] = errors.New("deadline exceeded")

	_, err := f.deleter.Delete(context.Background(), ticket.ID, Confirmed(true))
	require.Error(t, err)

	_, ok := f.stores.Tickets.Get(ticket.ID)
	assert.True(t, ok)
	assert.False(t, f.stores.Pending.Active(PendingDeleteKey(ticket.ID)))
}

func TestDeleteLoadFailureLeavesTicket(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(t, models.NewTicket())
	f.tickets.FailGet[ticket.ID] = errors.New("unavailable")

	_, err := f.deleter.Delete(context.Background(), ticket.ID, Confirmed(true))
	require.Error(t, err)
	assert.Equal(t, 1, f.tickets.Len())
	assert.Empty(t, f.tickets.Deleted)
}

func TestDeleteRequiresID(t *testing.T) {
	f := newFixture(t)
	_, err := f.deleter.Delete(context.Background(), "", Confirmed(true))
	assert.Error(t, err)
}
