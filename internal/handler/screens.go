package handler

import (
	"sync"

	"github.com/dukerupert/shoplist/internal/reconcile"
)

// Screens tracks the list views a UI process has open, one per list id.
type Screens struct {
	mu      sync.Mutex
	open    map[int64]*reconcile.List
	newList func() *reconcile.List
}

func NewScreens(newList func() *reconcile.List) *Screens {
	return &Screens{open: make(map[int64]*reconcile.List), newList: newList}
}

// Get returns the open view for id, creating it if needed. created reports
// whether the view is new and still needs a Load.
func (s *Screens) Get(id int64) (l *reconcile.List, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.open[id]; ok {
		return l, false
	}
	l = s.newList()
	s.open[id] = l
	return l, true
}

// Lookup returns the open view for id without creating one.
func (s *Screens) Lookup(id int64) (*reconcile.List, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.open[id]
	return l, ok
}

// Close dismisses the view for id.
func (s *Screens) Close(id int64) bool {
	s.mu.Lock()
	l, ok := s.open[id]
	delete(s.open, id)
	s.mu.Unlock()
	if ok {
		l.Close()
	}
	return ok
}

// CloseAll dismisses every open view.
func (s *Screens) CloseAll() {
	s.mu.Lock()
	open := s.open
	s.open = make(map[int64]*reconcile.List)
	s.mu.Unlock()
	for _, l := range open {
		l.Close()
	}
}

func (s *Screens) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}
