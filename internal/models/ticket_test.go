package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicketDefaults(t *testing.T) {
	tk := NewTicket()

	assert.Empty(t, tk.ID)
	assert.NotNil(t, tk.Photos)
	assert.Empty(t, tk.Photos)
	assert.Nil(t, tk.RemediationData)
	assert.False(t, tk.CreatedAt.IsZero())
	assert.False(t, tk.OnSite || tk.InspectionComplete || tk.RemediationRequired || tk.EquipmentOnSite || tk.SiteComplete)
	_, hasReport := tk.Report()
	assert.False(t, hasReport)
}

func TestComposeAddress(t *testing.T) {
	assert.Equal(t, "12 Main St, Apt 4, Springfield, IL 62701", ComposeAddress("12 Main St", "4", "Springfield", "IL", "62701"))
	assert.Equal(t, "12 Main St, Apt 4B, Springfield", ComposeAddress("12 Main St ", "Apt 4B", "Springfield", "", ""))
	assert.Equal(t, "MA", ComposeAddress("", "", "", "MA", ""))
	assert.Equal(t, "", ComposeAddress("", "", "", "", ""))
}

func TestPhotoRefsIncludesRooms(t *testing.T) {
	tk := NewTicket()
	tk.Photos = []PhotoRef{{StoragePath: "projectPhotos/a.jpg"}}
	tk.RemediationData = &RemediationData{Rooms: []Room{
		{Name: "Kitchen", Photos: []PhotoRef{{StoragePath: "rooms/k1.jpg"}, {StoragePath: "rooms/k2.jpg"}}},
		{Name: "Hall"},
		{Name: "Bath", Photos: []PhotoRef{{URI: "gs://b/rooms/b1.jpg"}}},
	}}

	refs := tk.PhotoRefs()
	require.Len(t, refs, 4)
	assert.Equal(t, "projectPhotos/a.jpg", refs[0].StoragePath)
	assert.Equal(t, "rooms/k2.jpg", refs[2].StoragePath)
	assert.Equal(t, "gs://b/rooms/b1.jpg", refs[3].URI)

	refs[0].StoragePath = "changed"
	assert.Equal(t, "projectPhotos/a.jpg", tk.Photos[0].StoragePath, "enumeration must not alias the ticket")
}

func TestReportPrefersAnyForm(t *testing.T) {
	tk := NewTicket()
	tk.PDFURL = "https://firebasestorage.googleapis.com/v0/b/x/o/reports%2Fa.pdf"
	ref, ok := tk.Report()
	require.True(t, ok)
	assert.Equal(t, tk.PDFURL, ref.DisplayURL())
}

func TestCloneIsDeep(t *testing.T) {
	tk := NewTicket()
	tk.Photos = []PhotoRef{{StoragePath: "a"}}
	tk.RemediationData = &RemediationData{Rooms: []Room{{Name: "Kitchen", Measurements: []Measurement{{Description: "drywall", Quantity: 3}}}}}

	c := tk.Clone()
	c.Photos[0].StoragePath = "b"
	c.RemediationData.Rooms[0].Measurements[0].Quantity = 9
	c.RemediationData.Rooms[0].Name = "Den"

	assert.Equal(t, "a", tk.Photos[0].StoragePath)
	assert.Equal(t, 3.0, tk.RemediationData.Rooms[0].Measurements[0].Quantity)
	assert.Equal(t, "Kitchen", tk.RemediationData.Rooms[0].Name)
}

func TestSameBlob(t *testing.T) {
	assert.True(t, PhotoRef{StoragePath: "a", DownloadURL: "x"}.SameBlob(PhotoRef{StoragePath: "a", DownloadURL: "y"}))
	assert.False(t, PhotoRef{StoragePath: "a"}.SameBlob(PhotoRef{StoragePath: "b"}))
	assert.True(t, PhotoRef{URI: "u"}.SameBlob(PhotoRef{DownloadURL: "u"}))
	assert.False(t, PhotoRef{}.SameBlob(PhotoRef{}))
}
