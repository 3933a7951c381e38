package models

import "time"

// Note lives in its own collection (ticketNotes) and points back at its
// ticket through ProjectID.
type Note struct {
	ID        string    `firestore:"-" json:"id"`
	ProjectID string    `firestore:"projectId" json:"projectId"`
	Text      string    `firestore:"text" json:"text"`
	Author    string    `firestore:"author,omitempty" json:"author,omitempty"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

func (n Note) Key() string { return n.ID }
