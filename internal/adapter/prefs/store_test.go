package prefs

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_DefaultsToVisible(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := NewStore(fp)
	require.NoError(t, err)

	userID := uuid.New()
	assert.True(t, s.ShowBalance(userID))
	assert.True(t, s.ShowBonus(userID))
}

func TestStore_SurvivesReload(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := NewStore(fp)
	require.NoError(t, err)

	userID := uuid.New()
	require.NoError(t, s.SetShowBalance(userID, false))

	// A fresh store against the same file sees the saved preference
	reloaded, err := NewStore(fp)
	require.NoError(t, err)
	assert.False(t, reloaded.ShowBalance(userID))
	// The bonus preference was never toggled and stays visible
	assert.True(t, reloaded.ShowBonus(userID))
}

func TestStore_PreferencesAreScopedPerUser(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "prefs.yaml")
	s, err := NewStore(fp)
	require.NoError(t, err)

	first := uuid.New()
	second := uuid.New()
	require.NoError(t, s.SetShowBalance(first, false))
	require.NoError(t, s.SetShowBonus(second, false))

	assert.False(t, s.ShowBalance(first))
	assert.True(t, s.ShowBalance(second))
	assert.True(t, s.ShowBonus(first))
	assert.False(t, s.ShowBonus(second))
}

func TestStore_CreatesParentDirectory(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "nested", "dir", "prefs.yaml")
	s, err := NewStore(fp)
	require.NoError(t, err)

	require.NoError(t, s.SetShowBonus(uuid.New(), false))

	_, err = NewStore(fp)
	assert.NoError(t, err)
}
