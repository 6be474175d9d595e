package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veletaris/rosterforge/internal/roster"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRoster(id string) roster.Roster {
	r := roster.Roster{
		ID: id, Name: "Test List", PointsLimit: 2500,
		Detachments: []roster.Detachment{{
			ID: "d1", TemplateID: "tpl1", Name: "Battle Group", Type: "Primary",
			Slots: map[string]roster.Slot{"Command": {Min: 1, Max: 2}},
			Entries: []roster.Entry{
				{ID: "e1", UnitID: "u1", UnitName: "Legate", Category: "Command", Quantity: 1, BaseCost: 85},
			},
		}},
	}
	r.Recompute()
	return r
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := openTestStore(t)
	want := sampleRoster("r1")
	require.NoError(t, s.SaveRoster(want))

	got, err := s.LoadRoster("r1")
	require.NoError(t, err)
	assert.Equal(t, want, got, "the whole aggregate survives the JSON column")
}

func TestSaveUpserts(t *testing.T) {
	s := openTestStore(t)
	r := sampleRoster("r1")
	require.NoError(t, s.SaveRoster(r))

	r.Name = "Renamed"
	r.Detachments[0].Entries[0].Quantity = 1
	require.NoError(t, s.SaveRoster(r))

	got, err := s.LoadRoster("r1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	list, err := s.ListRosters()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadRoster("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRoster(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveRoster(sampleRoster("r1")))
	require.NoError(t, s.DeleteRoster("r1"))

	_, err := s.LoadRoster("r1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteRoster("r1"), ErrNotFound)
}

func TestListRosters(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SaveRoster(sampleRoster("r1")))
	require.NoError(t, s.SaveRoster(sampleRoster("r2")))

	list, err := s.ListRosters()
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, row := range list {
		assert.Equal(t, 2500, row.PointsLimit)
		assert.Equal(t, 85, row.TotalPoints)
	}
}
