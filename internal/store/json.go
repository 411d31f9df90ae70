package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// JSONStore keeps templates in memory and persists them as one JSON array.
type JSONStore struct {
	path string

	mu        sync.RWMutex
	templates []*Template
}

// NewJSONStore loads the templates in path. A missing or unreadable file
// yields an empty store and a logged warning; Persist creates the file.
func NewJSONStore(path string) *JSONStore {
	s := &JSONStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Warning: can't load template file %s, starting with an empty collection: %v", path, err)
		return s
	}
	if err := json.Unmarshal(data, &s.templates); err != nil {
		log.Printf("Warning: can't parse template file %s, starting with an empty collection: %v", path, err)
		s.templates = nil
	}
	return s
}

// Store implements Store.
func (s *JSONStore) Store(t *Template) error {
	if t == nil {
		return ErrNilTemplate
	}
	cp := *t
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.templates = append(s.templates, &cp)
	s.mu.Unlock()

	t.ID = cp.ID
	return nil
}

// CharactersInStrokeRange implements Store.
func (s *JSONStore) CharactersInStrokeRange(strokes Range) ([]*Template, error) {
	return s.filter(nil, strokes), nil
}

// CharactersInRange implements Store.
func (s *JSONStore) CharactersInRange(points, strokes Range) ([]*Template, error) {
	return s.filter(&points, strokes), nil
}

func (s *JSONStore) filter(points *Range, strokes Range) []*Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Template
	for _, t := range s.templates {
		if matches(t, points, strokes) {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of stored templates.
func (s *JSONStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

// Persist writes all templates to the store file via a temporary file and
// rename, so readers never see a partial file.
func (s *JSONStore) Persist() error {
	s.mu.RLock()
	data, err := json.Marshal(s.templates)
	s.mu.RUnlock()
	if err != nil {
		return unavailable("encode templates", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return unavailable("create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return unavailable("write templates", err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable("close temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return unavailable(fmt.Sprintf("replace %s", s.path), err)
	}
	return nil
}

// Close implements io.Closer. A JSONStore holds no open resources.
func (s *JSONStore) Close() error { return nil }
