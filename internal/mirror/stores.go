package mirror

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/Lllllllleong/fieldservice/internal/models"
)

// EquipmentCounts is the number of each drying unit placed on site.
type EquipmentCounts struct {
	Dehumidifiers int `json:"dehumidifiers"`
	AirMovers     int `json:"airMovers"`
	AirScrubbers  int `json:"airScrubbers"`
}

// AccountingAuth is the accounting API session: the company the token was
// issued for and the bearer token itself.
type AccountingAuth struct {
	CompanyID    string    `json:"companyId"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"`
}

func (a AccountingAuth) Valid(now time.Time) bool {
	return a.CompanyID != "" && a.AccessToken != "" && (a.ExpiresAt.IsZero() || now.Before(a.ExpiresAt))
}

// Stores bundles every mirror the app uses. Construct one per process (or
// per test) and pass it to the services that need it.
type Stores struct {
	Tickets *Store[models.Ticket]
	Notes   *Store[models.Note]
	Pending *Pending

	SelectedDate *Value[time.Time]

	Equipment      *Persisted[EquipmentCounts]
	Auth           *Persisted[AccountingAuth]
	CurrentProject *Persisted[string]
}

// NewStores builds the mirrors, loading persisted ones from stateDir.
func NewStores(stateDir string) *Stores {
	return &Stores{
		Tickets:        NewStore[models.Ticket](),
		Notes:          NewStore[models.Note](),
		Pending:        NewPending(),
		SelectedDate:   NewValue(time.Time{}),
		Equipment:      OpenPersisted(filepath.Join(stateDir, "equipment.json"), EquipmentCounts{}),
		Auth:           OpenPersisted(filepath.Join(stateDir, "auth.json"), AccountingAuth{}),
		CurrentProject: OpenPersisted(filepath.Join(stateDir, "project-id.json"), ""),
	}
}

// Reset returns every mirror to its initial state, removing persisted files.
func (s *Stores) Reset() error {
	s.Tickets.Reset()
	s.Notes.Reset()
	s.Pending.Reset()
	s.SelectedDate.Reset()
	return errors.Join(s.Equipment.Reset(), s.Auth.Reset(), s.CurrentProject.Reset())
}
