package game

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/muddy-beach/beachmud/pkg/events"
)

// Player is an in-game character bound 1:1 to a live session. The world owns
// the player; the player holds a non-owning reference to its room.
type Player struct {
	Name        string
	AccountName string
	Room        *Room
	Inventory   []*Item
	Commands    map[string]Command
	Client      Client

	world     *World
	lastInput time.Time
}

// NewPlayer creates a player in the given room with the default command table.
func NewPlayer(w *World, name, accountName string, room *Room, client Client) *Player {
	return &Player{
		Name:        name,
		AccountName: accountName,
		Room:        room,
		Inventory:   make([]*Item, 0),
		Commands:    defaultCommands(),
		Client:      client,
		world:       w,
		lastInput:   time.Now(),
	}
}

// Output delivers game text to this player through the event bus.
func (p *Player) Output(text string) {
	p.world.Bus.Emit(events.Event{
		Type:   events.EvText,
		Player: p.Name,
		Text:   text,
	})
}

// Update runs per-tick player upkeep.
func (p *Player) Update(w *World) {
	// No timed effects yet. Idle players just sit; no timeout-based expiry.
}

// ProcessInput validates and dispatches one line of player input. Called
// only from the tick thread.
func (p *Player) ProcessInput(w *World, line string) {
	line = strings.TrimSpace(html.EscapeString(line))
	if line == "" {
		return
	}
	p.lastInput = time.Now()

	parts := strings.Fields(line)
	name := strings.ToLower(parts[0])
	args := parts[1:]

	if cmd, ok := p.Commands[name]; ok {
		if cmd.NumArgs >= 0 && len(args) != cmd.NumArgs {
			p.Output(fmt.Sprintf("Invalid input. Example usage: '%s'", cmd.Example))
			return
		}
		cmd.Handler(w, p, args)
		return
	}

	// Items in the room can declare extra commands.
	for _, item := range p.Room.Items {
		if h, ok := item.Commands[name]; ok {
			h(w, p, item, args)
			return
		}
	}

	p.Output(fmt.Sprintf("Unknown command: %s", name))
}

// AddCommand extends the player's dispatch table if the name is free.
func (p *Player) AddCommand(cmd Command) {
	if _, exists := p.Commands[cmd.Name]; !exists {
		p.Commands[cmd.Name] = cmd
	}
}

// AddToInventory gives the player an item.
func (p *Player) AddToInventory(item *Item) {
	p.Inventory = append(p.Inventory, item)
}

// RemoveFromInventory takes an item from the player.
func (p *Player) RemoveFromInventory(item *Item) {
	for i, it := range p.Inventory {
		if it == item {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
			return
		}
	}
}
