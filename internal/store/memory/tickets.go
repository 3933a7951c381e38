// Package memory implements the store interfaces in process. Failures can
// be injected per ID or path and every call is recorded, which is what the
// service tests rely on.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Lllllllleong/fieldservice/internal/models"
	"github.com/Lllllllleong/fieldservice/internal/store"
)

// Tickets is an in-memory store.TicketRepository.
type Tickets struct {
	mu       sync.Mutex
	prefix   string
	seq      int
	order    []string
	docs     map[string]models.Ticket
	watchers map[int]func([]models.Ticket)
	nextW    int

	// FailGet, FailUpdate and FailDelete inject errors by ticket ID.
	FailGet    map[string]error
	FailUpdate map[string]error
	FailDelete map[string]error

	Deleted []string
}

var _ store.TicketRepository = (*Tickets)(nil)

func NewTickets() *Tickets {
	return &Tickets{
		prefix:     "ticket",
		docs:       make(map[string]models.Ticket),
		watchers:   make(map[int]func([]models.Ticket)),
		FailGet:    make(map[string]error),
		FailUpdate: make(map[string]error),
		FailDelete: make(map[string]error),
	}
}

func (s *Tickets) Create(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	s.mu.Lock()
	s.seq++
	t.ID = fmt.Sprintf("%s-%d", s.prefix, s.seq)
	s.putLocked(t)
	return t.Clone(), nil
}

func (s *Tickets) Get(ctx context.Context, id string) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailGet[id]; err != nil {
		return models.Ticket{}, err
	}
	t, ok := s.docs[id]
	if !ok {
		return models.Ticket{}, fmt.Errorf("ticket %s: %w", id, store.ErrNotFound)
	}
	return t.Clone(), nil
}

func (s *Tickets) Put(ctx context.Context, t models.Ticket) error {
	if t.ID == "" {
		return fmt.Errorf("ticket has no id")
	}
	s.mu.Lock()
	s.putLocked(t)
	return nil
}

func (s *Tickets) Update(ctx context.Context, id string, patch models.TicketPatch) (models.Ticket, error) {
	s.mu.Lock()
	if err := s.FailUpdate[id]; err != nil {
		s.mu.Unlock()
		return models.Ticket{}, err
	}
	t, ok := s.docs[id]
	if !ok {
		s.mu.Unlock()
		return models.Ticket{}, fmt.Errorf("ticket %s: %w", id, store.ErrNotFound)
	}
	s.putLocked(patch.Apply(t))
	return t.Clone(), nil
}

func (s *Tickets) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if err := s.FailDelete[id]; err != nil {
		s.mu.Unlock()
		return err
	}
	s.Deleted = append(s.Deleted, id)
	if _, ok := s.docs[id]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.docs, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	s.notifyLocked()
	return nil
}

func (s *Tickets) List(ctx context.Context) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

func (s *Tickets) Watch(ctx context.Context, fn func([]models.Ticket)) error {
	s.mu.Lock()
	id := s.nextW
	s.nextW++
	s.watchers[id] = fn
	snap := s.snapshotLocked()
	s.mu.Unlock()

	fn(snap)
	<-ctx.Done()

	s.mu.Lock()
	delete(s.watchers, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored tickets.
func (s *Tickets) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// putLocked stores t and notifies watchers; it releases the lock.
func (s *Tickets) putLocked(t models.Ticket) {
	if _, ok := s.docs[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.docs[t.ID] = t.Clone()
	s.notifyLocked()
}

func (s *Tickets) snapshotLocked() []models.Ticket {
	out := make([]models.Ticket, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id].Clone())
	}
	return out
}

func (s *Tickets) notifyLocked() {
	snap := s.snapshotLocked()
	fns := make([]func([]models.Ticket), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
