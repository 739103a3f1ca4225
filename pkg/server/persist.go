package server

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muddy-beach/beachmud/pkg/boltstore"
	"github.com/muddy-beach/beachmud/pkg/game"
)

// BoltSaver adapts the bolt store to the world's character persistence
// contract.
type BoltSaver struct {
	store *boltstore.Store
}

// NewBoltSaver wraps a store.
func NewBoltSaver(store *boltstore.Store) *BoltSaver {
	return &BoltSaver{store: store}
}

// SaveCharacter implements game.CharacterSaver.
func (b *BoltSaver) SaveCharacter(name, account, lastRoom string) error {
	return b.store.UpdateCharacter(&boltstore.Character{
		Name:        name,
		AccountName: account,
		LastRoom:    lastRoom,
	})
}

// LoadRooms builds the world's room graph from the bolt store, resolving
// item names against the builtin item table. If the store holds no rooms
// the stock dungeon is used instead.
func LoadRooms(store *boltstore.Store, log *zap.Logger) (map[string]*game.Room, error) {
	if log == nil {
		log = zap.NewNop()
	}

	records, err := store.AllRooms()
	if err != nil {
		return nil, fmt.Errorf("loading rooms: %w", err)
	}
	if len(records) == 0 {
		log.Info("no rooms in store, using stock dungeon")
		return game.DefaultRooms(), nil
	}

	rooms := make(map[string]*game.Room, len(records))
	for _, rec := range records {
		room := game.NewRoom(rec.Title, rec.Description, rec.Connections)
		for _, itemName := range rec.Items {
			item := game.BuiltinItem(itemName)
			if item == nil {
				log.Warn("unknown item in room definition",
					zap.String("room", rec.Title), zap.String("item", itemName))
				continue
			}
			room.AddItem(item)
		}
		rooms[rec.Title] = room
	}
	log.Info("rooms loaded from store", zap.Int("count", len(rooms)))
	return rooms, nil
}

// SeedRooms writes the stock dungeon's definitions into the store,
// overwriting rooms with the same titles.
func SeedRooms(store *boltstore.Store) error {
	for title, room := range game.DefaultRooms() {
		items := make([]string, 0, len(room.Items))
		for _, item := range room.Items {
			items = append(items, item.Name)
		}
		rec := &boltstore.RoomRecord{
			Title:       title,
			Description: room.Description,
			Connections: room.Connections,
			Items:       items,
		}
		if err := store.PutRoom(rec); err != nil {
			return fmt.Errorf("seeding room %q: %w", title, err)
		}
	}
	return nil
}
