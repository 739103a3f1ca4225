package game

// DefaultEntryRoom is where players begin when they have no saved room.
const DefaultEntryRoom = "The Foyer"

// BuiltinItem constructs a stock item by name. Room definitions persist item
// names only; behavior lives here. Returns nil for unknown names.
func BuiltinItem(name string) *Item {
	switch name {
	case "Book":
		book := NewItem("Book", "There is an open <+item>book<-item> sitting in the corner.")
		book.AddCommand("read", func(w *World, p *Player, item *Item, args []string) {
			p.Output("The pages are full of reliable sources. You feel marginally better informed.")
		})
		return book
	default:
		return nil
	}
}

// DefaultRooms builds the stock dungeon.
func DefaultRooms() map[string]*Room {
	rooms := map[string]*Room{
		"The Foyer": NewRoom(
			"The Foyer",
			"Welcome to the bustling foyer!<br><br>* The bathroom is west.<br>* The library is north.",
			map[string]string{"west": "The bathroom", "north": "The library"},
		),
		"The bathroom": NewRoom(
			"The bathroom",
			"You enter the bathroom with a solemn heart. It smells like toilet, and looks like toilets.<br>"+
				"The only pleasant sight here is the mirror on the wall; rather, the face within it.<br><br>"+
				"You look beautiful today.<br><br>"+
				"* The foyer is east.<br>",
			map[string]string{"east": "The Foyer"},
		),
		"The library": NewRoom(
			"The library",
			"This room appears to be some sort of ancient, physical website. It's filled with reliable sources.<br><br>"+
				"* The foyer is south.<br>",
			map[string]string{"south": "The Foyer"},
			BuiltinItem("Book"),
		),
	}
	return rooms
}
