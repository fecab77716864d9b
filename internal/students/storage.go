// Package students tracks the participants of one session and their anonymous
// animal identities.
package students

import (
	"sync"
	"time"
)

type Student struct {
	ID          string
	Name        string // optional display name, never shown to other students
	AnimalIndex int
	AnimalEmoji string
	AnimalName  string
	Level       string // last reported reading level: original, A1, A2, B1
	JoinedAt    time.Time
}

// AnonymousID is the identity shown on the teacher dashboard.
func (s *Student) AnonymousID() string {
	return s.AnimalEmoji + " " + s.AnimalName
}

type Store struct {
	mu       sync.Mutex
	students map[string]*Student
}

func NewStore() *Store {
	return &Store{
		students: make(map[string]*Student),
	}
}

// Add registers a student and assigns the lowest free animal identity.
func (s *Store) Add(id, name string) *Student {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := make(map[int]bool, len(s.students))
	for _, st := range s.students {
		used[st.AnimalIndex] = true
	}
	index := 0
	for used[index] {
		index++
	}

	animal := animalFor(index)
	student := &Student{
		ID:          id,
		Name:        name,
		AnimalIndex: index,
		AnimalEmoji: animal.Emoji,
		AnimalName:  animal.Name,
		Level:       "original",
		JoinedAt:    time.Now(),
	}
	s.students[id] = student
	return student
}

func (s *Store) Get(id string) *Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.students[id]
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[id]; !ok {
		return false
	}
	delete(s.students, id)
	return true
}

func (s *Store) List() []*Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Student, 0, len(s.students))
	for _, st := range s.students {
		list = append(list, st)
	}
	return list
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.students)
}

// SetLevel records the reading level a student is currently using.
func (s *Store) SetLevel(id, level string) *Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.students[id]; ok {
		st.Level = level
		return st
	}
	return nil
}
