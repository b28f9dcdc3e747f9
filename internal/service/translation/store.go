package translation

import (
	"sync"

	"speech-translate-service/internal/models"
)

// store is the in-memory record collection. Ids come from a high-water
// mark, so an id is never handed out twice even after deletes.
type store struct {
	mu      sync.RWMutex
	records []models.TranslationRecord
	lastID  int
}

// add assigns the next id to r, appends it and returns the stored copy.
func (s *store) add(r models.TranslationRecord) models.TranslationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	r.ID = s.lastID
	s.records = append(s.records, r)
	return r
}

func (s *store) list() []models.TranslationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TranslationRecord{}, s.records...)
}

func (s *store) get(id int) (models.TranslationRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(id)
	if i < 0 {
		return models.TranslationRecord{}, false
	}
	return s.records[i], true
}

func (s *store) update(id int, p models.TranslationPatch) (models.TranslationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return models.TranslationRecord{}, false
	}
	s.records[i] = p.Apply(s.records[i])
	return s.records[i], true
}

func (s *store) remove(id int) (models.TranslationRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return models.TranslationRecord{}, false
	}
	r := s.records[i]
	s.records = append(s.records[:i], s.records[i+1:]...)
	return r, true
}

func (s *store) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// index must be called with mu held.
func (s *store) index(id int) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
