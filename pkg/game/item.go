package game

import "sort"

// ItemHandler runs an item-specific command for a player.
type ItemHandler func(w *World, p *Player, item *Item, args []string)

// Item is an interactable object in a room. Items declare their own command
// table, so a room's contents can extend what a player standing there can
// type; dispatch is an explicit name lookup, never reflection.
type Item struct {
	Name             string
	EntryDescription string
	Commands         map[string]ItemHandler

	// OnPlayerEnter fires when a player enters the room holding this item.
	OnPlayerEnter func(w *World, p *Player, item *Item)
}

// NewItem constructs an item with a fresh command table.
func NewItem(name, entryDescription string) *Item {
	return &Item{
		Name:             name,
		EntryDescription: entryDescription,
		Commands:         make(map[string]ItemHandler),
	}
}

// AddCommand registers a command on this item.
func (it *Item) AddCommand(name string, h ItemHandler) {
	it.Commands[name] = h
}

// CommandNames returns the item's command names sorted for stable display.
func (it *Item) CommandNames() []string {
	names := make([]string, 0, len(it.Commands))
	for name := range it.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
