package game

import (
	"fmt"
	"strings"

	"github.com/muddy-beach/beachmud/pkg/events"
)

// Room is an area of the dungeon with directed exits to other rooms.
// A connection from A to B does not imply one from B to A.
type Room struct {
	Title       string
	Description string
	Connections map[string]string // direction -> destination room title
	Items       []*Item

	// Updater runs once per tick for room-local scheduled events. Nil means
	// the room has none.
	Updater func(w *World, r *Room)
}

// NewRoom constructs a room. The item slice is always freshly allocated per
// room; sharing one backing slice across rooms was a bug in an earlier
// incarnation of this dungeon and must never come back.
func NewRoom(title, description string, connections map[string]string, items ...*Item) *Room {
	room := &Room{
		Title:       title,
		Description: description,
		Connections: connections,
		Items:       make([]*Item, 0, len(items)),
	}
	if room.Connections == nil {
		room.Connections = make(map[string]string)
	}
	room.Items = append(room.Items, items...)
	return room
}

// Update runs room-local scheduled events for one tick.
func (r *Room) Update(w *World) {
	if r.Updater != nil {
		r.Updater(w, r)
	}
}

// TryGo resolves a direction to the destination room, or nil when the exit
// does not exist.
func (r *Room) TryGo(w *World, direction string) *Room {
	dest, ok := r.Connections[direction]
	if !ok {
		return nil
	}
	return w.Rooms[dest]
}

// OnEnter announces a player's arrival and shows them the room.
func (r *Room) OnEnter(w *World, p *Player) {
	r.BroadcastExcept(w, p, events.Event{
		Type:   events.EvMove,
		Source: p.Name,
		Room:   r.Title,
		Text:   fmt.Sprintf("<+action><+player>%s<-player> entered the room.<-action>", p.Name),
	})
	r.ShowTo(w, p)
	for _, item := range r.Items {
		if item.OnPlayerEnter != nil {
			item.OnPlayerEnter(w, p, item)
		}
	}
}

// OnExit announces a player's departure in the given direction.
func (r *Room) OnExit(w *World, p *Player, direction string) {
	r.BroadcastExcept(w, p, events.Event{
		Type:   events.EvMove,
		Source: p.Name,
		Room:   r.Title,
		Text:   fmt.Sprintf("<+action><+player>%s<-player> went %s<-action>", p.Name, direction),
	})
}

// ShowTo renders the room for one player: title, description, item entry
// descriptions with their usable commands, and other players present.
func (r *Room) ShowTo(w *World, p *Player) {
	p.Output("<+room_title>" + r.Title + "<-room_title>")

	var sb strings.Builder
	sb.WriteString("<+room_info>")
	sb.WriteString(r.Description)
	sb.WriteString("<br><br>")

	for _, item := range r.Items {
		if item.EntryDescription == "" {
			continue
		}
		names := item.CommandNames()
		if len(names) > 0 {
			sb.WriteString(fmt.Sprintf("* %s (<+command>%s<-command>)<br>",
				item.EntryDescription, strings.Join(names, "<-command>, <+command>")))
		} else {
			sb.WriteString(fmt.Sprintf("* %s<br>", item.EntryDescription))
		}
	}

	for _, other := range w.PlayersInRoom(r) {
		if other != p {
			sb.WriteString(fmt.Sprintf("* <+player>%s<-player> is here.<br>", other.Name))
		}
	}

	sb.WriteString("<-room_info>")
	p.Output(sb.String())
}

// Broadcast emits an event to every player in this room.
func (r *Room) Broadcast(w *World, ev events.Event) {
	r.BroadcastExcept(w, nil, ev)
}

// BroadcastExcept emits an event to every player in this room except one.
func (r *Room) BroadcastExcept(w *World, except *Player, ev events.Event) {
	var names []string
	for _, p := range w.PlayersInRoom(r) {
		if p != except {
			names = append(names, p.Name)
		}
	}
	ev.Room = r.Title
	w.Bus.EmitToPlayers(names, ev)
}

// AddItem places an item in the room.
func (r *Room) AddItem(item *Item) {
	r.Items = append(r.Items, item)
}

// RemoveItem takes an item out of the room.
func (r *Room) RemoveItem(item *Item) {
	for i, it := range r.Items {
		if it == item {
			r.Items = append(r.Items[:i], r.Items[i+1:]...)
			return
		}
	}
}
