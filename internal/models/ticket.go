package models

import (
	"strings"
	"time"
)

// Ticket is the root record for one job site. It is stored in Firestore under
// tickets/{id}; the document ID is echoed back into the id field on creation.
type Ticket struct {
	ID        string `firestore:"id" json:"id"`
	ProjectID string `firestore:"projectId,omitempty" json:"projectId,omitempty"` // legacy projects/{id} echo

	Street  string `firestore:"street" json:"street"`
	Apt     string `firestore:"apt" json:"apt"`
	City    string `firestore:"city" json:"city"`
	State   string `firestore:"state" json:"state"`
	Zip     string `firestore:"zip" json:"zip"`
	Address string `firestore:"address" json:"address"`

	CustomerName  string `firestore:"customerName" json:"customerName"`
	CustomerPhone string `firestore:"customerPhone" json:"customerPhone"`
	CustomerEmail string `firestore:"customerEmail" json:"customerEmail"`

	// Status flags are independent; any combination is valid.
	OnSite              bool `firestore:"onSite" json:"onSite"`
	InspectionComplete  bool `firestore:"inspectionComplete" json:"inspectionComplete"`
	RemediationRequired bool `firestore:"remediationRequired" json:"remediationRequired"`
	EquipmentOnSite     bool `firestore:"equipmentOnSite" json:"equipmentOnSite"`
	SiteComplete        bool `firestore:"siteComplete" json:"siteComplete"`

	Photos          []PhotoRef       `firestore:"photos" json:"photos"`
	RemediationData *RemediationData `firestore:"remediationData,omitempty" json:"remediationData,omitempty"`

	PDFURL         string `firestore:"pdfUrl,omitempty" json:"pdfUrl,omitempty"`
	PDFDownloadURL string `firestore:"pdfDownloadURL,omitempty" json:"pdfDownloadURL,omitempty"`
	PDFStoragePath string `firestore:"pdfStoragePath,omitempty" json:"pdfStoragePath,omitempty"`

	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// NewTicket returns the canonical starting value for every creation path.
func NewTicket() Ticket {
	return Ticket{
		Photos:    []PhotoRef{},
		CreatedAt: time.Now().UTC(),
	}
}

// Key identifies the ticket inside a mirror store.
func (t Ticket) Key() string { return t.ID }

// ComposeAddress joins the address parts the way they are displayed and used
// for report file names, e.g. "12 Main St, Apt 4, Springfield, IL 62701".
func ComposeAddress(street, apt, city, state, zip string) string {
	var parts []string
	if s := strings.TrimSpace(street); s != "" {
		parts = append(parts, s)
	}
	if a := strings.TrimSpace(apt); a != "" {
		parts = append(parts, "Apt "+strings.TrimPrefix(a, "Apt "))
	}
	if c := strings.TrimSpace(city); c != "" {
		parts = append(parts, c)
	}
	stateZip := strings.TrimSpace(strings.TrimSpace(state) + " " + strings.TrimSpace(zip))
	if stateZip != "" {
		parts = append(parts, stateZip)
	}
	return strings.Join(parts, ", ")
}

// FullAddress returns the stored composed address, recomputing it from the
// parts when it was never written.
func (t Ticket) FullAddress() string {
	if t.Address != "" {
		return t.Address
	}
	return ComposeAddress(t.Street, t.Apt, t.City, t.State, t.Zip)
}

// Clone returns a copy that shares no slices with t.
func (t Ticket) Clone() Ticket {
	c := t
	c.Photos = clonePhotos(t.Photos)
	if t.RemediationData != nil {
		rd := t.RemediationData.Clone()
		c.RemediationData = &rd
	}
	return c
}

// PhotoRefs enumerates every photo reachable from the ticket: the top-level
// list first, then each room's list in room order.
func (t Ticket) PhotoRefs() []PhotoRef {
	refs := clonePhotos(t.Photos)
	if t.RemediationData != nil {
		for _, room := range t.RemediationData.Rooms {
			refs = append(refs, room.Photos...)
		}
	}
	return refs
}

// Report returns the generated report file reference, if any.
func (t Ticket) Report() (FileRef, bool) {
	ref := FileRef{
		StoragePath: t.PDFStoragePath,
		DownloadURL: t.PDFDownloadURL,
		URI:         t.PDFURL,
	}
	return ref, !ref.IsZero()
}

// RemediationData holds the per-room scope of work. It is rewritten wholesale
// every time it is saved.
type RemediationData struct {
	Rooms []Room `firestore:"rooms" json:"rooms"`
}

func (r RemediationData) Clone() RemediationData {
	rooms := make([]Room, len(r.Rooms))
	for i, room := range r.Rooms {
		rooms[i] = Room{
			Name:         room.Name,
			Measurements: append([]Measurement(nil), room.Measurements...),
			Photos:       clonePhotos(room.Photos),
		}
	}
	return RemediationData{Rooms: rooms}
}

// PhotoRefs returns every room photo in room order.
func (r RemediationData) PhotoRefs() []PhotoRef {
	var refs []PhotoRef
	for _, room := range r.Rooms {
		refs = append(refs, room.Photos...)
	}
	return refs
}

type Room struct {
	Name         string        `firestore:"name" json:"name"`
	Measurements []Measurement `firestore:"measurements" json:"measurements"`
	Photos       []PhotoRef    `firestore:"photos,omitempty" json:"photos,omitempty"`
}

type Measurement struct {
	Description string  `firestore:"description" json:"description"`
	Quantity    float64 `firestore:"quantity" json:"quantity"`
}

func clonePhotos(in []PhotoRef) []PhotoRef {
	if in == nil {
		return nil
	}
	return append(make([]PhotoRef, 0, len(in)), in...)
}
