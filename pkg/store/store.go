// Package store provides in-memory storage for variability models.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lemonberrylabs/nonbool/pkg/model"
	"github.com/lemonberrylabs/nonbool/pkg/types"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// ModelState represents the state of a stored model.
type ModelState string

const (
	ModelActive ModelState = "ACTIVE"
)

// Counters tracks the conversions run against a model.
type Counters struct {
	Conversions int64 `json:"conversions"`
	Failures    int64 `json:"failures"`
}

// Model represents a stored variability model.
type Model struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	State       ModelState `json:"state"`
	RevisionID  string     `json:"revisionId"`
	CreateTime  time.Time  `json:"createTime"`
	UpdateTime  time.Time  `json:"updateTime"`
	Source      string     `json:"source"`
	Counters    Counters   `json:"counters"`

	// Variables and Constants are the lookup tables of the current
	// revision. They are replaced, never modified, on update.
	Variables types.VariableTable `json:"-"`
	Constants types.ConstantTable `json:"-"`
}

// Store is a thread-safe in-memory storage for models.
type Store struct {
	mu     sync.RWMutex
	models map[string]*Model

	revCounter int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		models: make(map[string]*Model),
	}
}

// CreateModel stores a parsed model under id. The returned value is a copy.
func (s *Store) CreateModel(id, source, description string, m *model.Model) (Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := "models/" + id
	if _, exists := s.models[name]; exists {
		return Model{}, fmt.Errorf("model '%s' %w", name, ErrAlreadyExists)
	}

	s.revCounter++
	now := time.Now()
	entry := &Model{
		Name:        name,
		Description: description,
		State:       ModelActive,
		RevisionID:  fmt.Sprintf("%06d-000", s.revCounter),
		CreateTime:  now,
		UpdateTime:  now,
		Source:      source,
		Variables:   m.VariableTable(),
		Constants:   m.ConstantTable(),
	}
	s.models[name] = entry
	return *entry, nil
}

// GetModel retrieves a model by its full name.
func (s *Store) GetModel(name string) (Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.models[name]
	if !ok {
		return Model{}, fmt.Errorf("model '%s' %w", name, ErrNotFound)
	}
	return *entry, nil
}

// ListModels returns all models sorted by name.
func (s *Store) ListModels() []Model {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Model, 0, len(s.models))
	for _, entry := range s.models {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// UpdateModel replaces the source of a model. A nil m keeps the current
// source and only updates a non-empty description.
func (s *Store) UpdateModel(name, source, description string, m *model.Model) (Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.models[name]
	if !ok {
		return Model{}, fmt.Errorf("model '%s' %w", name, ErrNotFound)
	}

	s.revCounter++
	if m != nil {
		entry.Source = source
		entry.Variables = m.VariableTable()
		entry.Constants = m.ConstantTable()
	}
	if description != "" {
		entry.Description = description
	}
	entry.RevisionID = fmt.Sprintf("%06d-000", s.revCounter)
	entry.UpdateTime = time.Now()

	return *entry, nil
}

// DeleteModel removes a model.
func (s *Store) DeleteModel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[name]; !ok {
		return fmt.Errorf("model '%s' %w", name, ErrNotFound)
	}
	delete(s.models, name)
	return nil
}

// RecordConversions adds to the counters of a model. Unknown names are
// ignored; the model may have been deleted while converting.
func (s *Store) RecordConversions(name string, conversions, failures int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.models[name]; ok {
		entry.Counters.Conversions += conversions
		entry.Counters.Failures += failures
	}
}
