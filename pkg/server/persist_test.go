package server

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muddy-beach/beachmud/pkg/boltstore"
	"github.com/muddy-beach/beachmud/pkg/game"
)

func openTestStore(t *testing.T) *boltstore.Store {
	t.Helper()
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSeedAndLoadRoomsRoundTrip(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, SeedRooms(store))

	rooms, err := LoadRooms(store, nil)
	require.NoError(t, err)
	require.Len(t, rooms, len(game.DefaultRooms()))

	foyer := rooms["The Foyer"]
	require.NotNil(t, foyer)
	require.Equal(t, "The bathroom", foyer.Connections["west"])

	// The library's book comes back with behavior, not just a name.
	library := rooms["The library"]
	require.NotNil(t, library)
	require.Len(t, library.Items, 1)
	require.Equal(t, "Book", library.Items[0].Name)
	require.Contains(t, library.Items[0].Commands, "read")
}

func TestLoadRoomsEmptyStoreFallsBack(t *testing.T) {
	store := openTestStore(t)

	rooms, err := LoadRooms(store, nil)
	require.NoError(t, err)
	require.Contains(t, rooms, game.DefaultEntryRoom)
}

func TestLoadRoomsSkipsUnknownItems(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.PutRoom(&boltstore.RoomRecord{
		Title:       "The attic",
		Description: "Dusty.",
		Connections: map[string]string{},
		Items:       []string{"Chandelier"},
	}))

	rooms, err := LoadRooms(store, nil)
	require.NoError(t, err)
	require.Empty(t, rooms["The attic"].Items)
}

func TestBoltSaverPersistsCharacter(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.CreateCharacter(&boltstore.Character{
		Name: "Whiskers", AccountName: "alice", LastRoom: "The Foyer",
	}))

	saver := NewBoltSaver(store)
	require.NoError(t, saver.SaveCharacter("Whiskers", "alice", "The library"))

	ch, err := store.GetCharacter("Whiskers")
	require.NoError(t, err)
	require.Equal(t, "The library", ch.LastRoom)
}

func TestBoltSaverRejectsUnknownCharacter(t *testing.T) {
	store := openTestStore(t)
	saver := NewBoltSaver(store)
	require.ErrorIs(t, saver.SaveCharacter("Ghost", "alice", "The Foyer"),
		boltstore.ErrNotFound)
}
