package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Lllllllleong/fieldservice/internal/models"
	"github.com/Lllllllleong/fieldservice/internal/store"
)

// Notes is an in-memory store.NoteRepository.
type Notes struct {
	mu       sync.Mutex
	seq      int
	order    []string
	docs     map[string]models.Note
	watchers map[int]noteWatcher
	nextW    int

	// FailList makes ListByProject fail; FailDelete injects errors by note ID.
	FailList   error
	FailDelete map[string]error

	Deleted []string
}

type noteWatcher struct {
	projectID string
	fn        func([]models.Note)
}

var _ store.NoteRepository = (*Notes)(nil)

func NewNotes() *Notes {
	return &Notes{
		docs:       make(map[string]models.Note),
		watchers:   make(map[int]noteWatcher),
		FailDelete: make(map[string]error),
	}
}

func (s *Notes) Create(ctx context.Context, n models.Note) (models.Note, error) {
	s.mu.Lock()
	s.seq++
	n.ID = fmt.Sprintf("note-%d", s.seq)
	s.order = append(s.order, n.ID)
	s.docs[n.ID] = n
	s.notifyLocked()
	return n, nil
}

func (s *Notes) ListByProject(ctx context.Context, projectID string) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailList != nil {
		return nil, s.FailList
	}
	return s.byProjectLocked(projectID), nil
}

func (s *Notes) Delete(ctx context.Context, id string) error {
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

func (s *Notes) Watch(ctx context.Context, projectID string, fn func([]models.Note)) error {
	s.mu.Lock()
	id := s.nextW
	s.nextW++
	s.watchers[id] = noteWatcher{projectID: projectID, fn: fn}
	snap := s.byProjectLocked(projectID)
	s.mu.Unlock()

	fn(snap)
	<-ctx.Done()

	s.mu.Lock()
	delete(s.watchers, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored notes across all tickets.
func (s *Notes) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *Notes) byProjectLocked(projectID string) []models.Note {
	var out []models.Note
	for _, id := range s.order {
		if n := s.docs[id]; n.ProjectID == projectID {
			out = append(out, n)
		}
	}
	return out
}

func (s *Notes) notifyLocked() {
	type delivery struct {
		fn   func([]models.Note)
		snap []models.Note
	}
	ds := make([]delivery, 0, len(s.watchers))
	for _, w := range s.watchers {
		ds = append(ds, delivery{fn: w.fn, snap: s.byProjectLocked(w.projectID)})
	}
	s.mu.Unlock()
	for _, d := range ds {
		d.fn(d.snap)
	}
}
