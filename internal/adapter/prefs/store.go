package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// entry holds the persisted display preferences for one user
type entry struct {
	ShowBalance bool `yaml:"show_balance"`
	ShowBonus   bool `yaml:"show_bonus"`
}

// Store persists per-user display preferences in a small YAML file.
// Balances default to visible for users with no saved entry; the
// preferences are independent of the balance values themselves and
// survive app restarts. Store implements domain.PreferenceStore.
type Store struct {
	mu      sync.Mutex
	fp      string
	entries map[string]entry
}

// NewStore opens (or creates the directory for) the preference file at fp
func NewStore(fp string) (*Store, error) {
	s := &Store{
		fp:      fp,
		entries: map[string]entry{},
	}
	b, err := os.ReadFile(fp)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read preference file: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
			return nil, fmt.Errorf("failed to create preference directory: %w", err)
		}
		return s, nil
	}
	if err := yaml.Unmarshal(b, &s.entries); err != nil {
		return nil, fmt.Errorf("failed to parse preference file: %w", err)
	}
	return s, nil
}

// ShowBalance reports whether the wallet balance is rendered unmasked
func (s *Store) ShowBalance(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID.String()]
	if !ok {
		return true
	}
	return e.ShowBalance
}

// ShowBonus reports whether the bonus balances are rendered unmasked
func (s *Store) ShowBonus(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID.String()]
	if !ok {
		return true
	}
	return e.ShowBonus
}

// SetShowBalance updates and persists the wallet visibility preference
func (s *Store) SetShowBalance(userID uuid.UUID, show bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID.String()]
	if !ok {
		e = entry{ShowBalance: true, ShowBonus: true}
	}
	e.ShowBalance = show
	s.entries[userID.String()] = e
	return s.flush()
}

// SetShowBonus updates and persists the bonus visibility preference
func (s *Store) SetShowBonus(userID uuid.UUID, show bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID.String()]
	if !ok {
		e = entry{ShowBalance: true, ShowBonus: true}
	}
	e.ShowBonus = show
	s.entries[userID.String()] = e
	return s.flush()
}

// flush writes the preference file atomically. Caller must hold mu.
func (s *Store) flush() error {
	b, err := yaml.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	tmp := s.fp + ".tmp"
	if err := os.WriteFile(tmp, b, 0600); err != nil {
		return fmt.Errorf("failed to write preference file: %w", err)
	}
	if err := os.Rename(tmp, s.fp); err != nil {
		return fmt.Errorf("failed to replace preference file: %w", err)
	}
	return nil
}
