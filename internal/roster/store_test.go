package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreEmpty(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Active())
	_, ok := s.Roster()
	assert.False(t, ok)
	assert.ErrorIs(t, s.AddDetachment(Detachment{}), ErrNoRoster)
	assert.ErrorIs(t, s.SetValidation(true, nil), ErrNoRoster)
}

func TestStoreSyncReplacesWholesale(t *testing.T) {
	s := NewStore()
	s.SetRoster(sampleRoster())

	// optimistic local change
	require.NoError(t, s.AddDetachment(Detachment{ID: "d2", TemplateID: "tpl2", Name: "Aux", Type: "Auxiliary",
		Slots: map[string]Slot{}}))
	r, _ := s.Roster()
	require.Len(t, r.Detachments, 2)

	// the authoritative answer does not include it
	s.SyncFromResponse(sampleRoster())
	r, _ = s.Roster()
	assert.Len(t, r.Detachments, 1, "stale optimistic state must not survive a sync")
}

func TestStoreSyncResetsValidation(t *testing.T) {
	s := NewStore()
	s.SetRoster(sampleRoster())
	require.NoError(t, s.SetValidation(false, []string{"bad"}))

	snap := sampleRoster()
	snap.Validation = Validation{Known: true, IsValid: true}
	s.SyncFromResponse(snap)

	r, _ := s.Roster()
	assert.False(t, r.Validation.Known, "verdict is unknown until the authority rules again")
}

func TestStoreSyncRecomputesDerivedState(t *testing.T) {
	s := NewStore()
	snap := sampleRoster()
	// snapshot arrives with stale derived fields
	snap.TotalPoints = -1
	snap.Detachments[0].Entries[0].TotalCost = -1
	s.SyncFromResponse(snap)

	r, _ := s.Roster()
	assert.Equal(t, 255, r.TotalPoints)
	assert.Equal(t, 85, r.Detachments[0].Entries[0].TotalCost)
}

func TestStoreRosterReturnsCopy(t *testing.T) {
	s := NewStore()
	s.SetRoster(sampleRoster())

	r1, _ := s.Roster()
	r1.Detachments[0].Entries[0].Quantity = 99

	r2, _ := s.Roster()
	assert.Equal(t, 1, r2.Detachments[0].Entries[0].Quantity)
}

func TestStoreAddRemoveEntry(t *testing.T) {
	s := NewStore()
	s.SetRoster(sampleRoster())

	require.NoError(t, s.AddEntry("d1", Entry{ID: "e3", UnitID: "u3", UnitName: "Centurion",
		Category: "Command", Quantity: 1, BaseCost: 45}))
	r, _ := s.Roster()
	assert.Equal(t, 300, r.TotalPoints)
	assert.Equal(t, 2, r.Detachments[0].Slots["Command"].Filled)

	require.NoError(t, s.RemoveEntry("d1", "e3"))
	r, _ = s.Roster()
	assert.Equal(t, 255, r.TotalPoints)
	assert.Equal(t, 1, r.Detachments[0].Slots["Command"].Filled)

	assert.ErrorIs(t, s.RemoveEntry("d1", "e3"), ErrEntryNotFound)
	assert.ErrorIs(t, s.AddEntry("nope", Entry{}), ErrDetachmentNotFound)
}

func TestStoreUpdateQuantity(t *testing.T) {
	s := NewStore()
	s.SetRoster(sampleRoster())

	require.NoError(t, s.UpdateQuantity("d1", "e2", 20))
	r, _ := s.Roster()
	assert.Equal(t, 340, r.Detachments[0].Entries[1].TotalCost, "(7+10)*20")
	assert.Equal(t, 425, r.TotalPoints)

	assert.ErrorIs(t, s.UpdateQuantity("d1", "missing", 5), ErrEntryNotFound)
}

func TestStoreRemoveDetachment(t *testing.T) {
	s := NewStore()
	s.SetRoster(sampleRoster())

	require.NoError(t, s.RemoveDetachment("d1"))
	r, _ := s.Roster()
	assert.Empty(t, r.Detachments)
	assert.Equal(t, 0, r.TotalPoints)

	assert.ErrorIs(t, s.RemoveDetachment("d1"), ErrDetachmentNotFound)
}

func TestStoreClear(t *testing.T) {
	s := NewStore()
	s.SetRoster(sampleRoster())
	s.ClearRoster()
	assert.False(t, s.Active())
}
