package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/muddy-beach/beachmud/pkg/events"
)

// CommandHandler executes one player command with its arguments.
type CommandHandler func(w *World, p *Player, args []string)

// Command is one entry in a player's dispatch table.
type Command struct {
	Name    string
	Handler CommandHandler
	Usage   string
	Example string
	// NumArgs is the exact argument count required, or -1 for variadic.
	NumArgs int
}

// defaultCommands builds the dispatch table every player starts with.
// Items in the player's room can extend it with their own commands.
func defaultCommands() map[string]Command {
	return map[string]Command{
		"help": {
			Name:    "help",
			Handler: cmdHelp,
			Usage:   "Get a list of all usable commands",
			Example: "help",
			NumArgs: 0,
		},
		"look": {
			Name:    "look",
			Handler: cmdLook,
			Usage:   "Re-assess your surroundings",
			Example: "look",
			NumArgs: 0,
		},
		"say": {
			Name:    "say",
			Handler: cmdSay,
			Usage:   "Say something to the current room",
			Example: "say Hello, I'm a doofhead.",
			NumArgs: -1,
		},
		"go": {
			Name:    "go",
			Handler: cmdGo,
			Usage:   "<north, east, south, west> Go to another room",
			Example: "go west",
			NumArgs: 1,
		},
		"who": {
			Name:    "who",
			Handler: cmdWho,
			Usage:   "See who else is in the dungeon",
			Example: "who",
			NumArgs: 0,
		},
		"save": {
			Name:    "save",
			Handler: cmdSave,
			Usage:   "Save your character",
			Example: "save",
			NumArgs: 0,
		},
		"quit": {
			Name:    "quit",
			Handler: cmdQuit,
			Usage:   "Leave the game",
			Example: "quit",
			NumArgs: 0,
		},
	}
}

func cmdHelp(w *World, p *Player, args []string) {
	p.Output("You can perform the following commands:")

	names := make([]string, 0, len(p.Commands))
	for name := range p.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := p.Commands[name]
		p.Output(fmt.Sprintf("<b><+item>%s:<-item></b> <i>%s</i>", name, cmd.Usage))
	}
	for _, item := range p.Room.Items {
		for _, name := range item.CommandNames() {
			p.Output(fmt.Sprintf("<b><+item>%s:<-item></b> <i>use the %s</i>", name, item.Name))
		}
	}
}

func cmdLook(w *World, p *Player, args []string) {
	p.Room.ShowTo(w, p)
}

func cmdSay(w *World, p *Player, args []string) {
	if len(args) == 0 {
		p.Output("Usage: say I am beautiful, you are beautiful, we're all beautiful")
		return
	}
	speech := strings.Join(args, " ")
	p.Room.Broadcast(w, events.Event{
		Type:   events.EvSay,
		Source: p.Name,
		Text:   fmt.Sprintf("<+player>%s<-player> says: <+speech>%s<-speech>", p.Name, speech),
	})
}

func cmdGo(w *World, p *Player, args []string) {
	direction := strings.ToLower(args[0])

	dest := p.Room.TryGo(w, direction)
	if dest == nil {
		p.Output("<i>You are unable to go this way.</i>")
		return
	}

	p.Room.OnExit(w, p, direction)
	p.Room = dest
	p.Output(fmt.Sprintf("<i>You enter <+room>%s<-room></i>", dest.Title))
	dest.OnEnter(w, p)
}

func cmdWho(w *World, p *Player, args []string) {
	p.Output(fmt.Sprintf("There are %d adventurers here:", len(w.Players)))
	for _, name := range w.PlayerNames() {
		if name == p.Name {
			p.Output(fmt.Sprintf("* <+player>%s<-player> (you)", name))
		} else {
			p.Output(fmt.Sprintf("* <+player>%s<-player>", name))
		}
	}
}

func cmdSave(w *World, p *Player, args []string) {
	// Persistence failures during gameplay are reported, never fatal.
	if err := w.PersistPlayer(p); err != nil {
		p.Output(fmt.Sprintf("<+info>Saving failed: %v<-info>", err))
		return
	}
	p.Output("<+info>Your character has been saved.<-info>")
}

func cmdQuit(w *World, p *Player, args []string) {
	p.Output("<+info>Farewell, brave adventurer.<-info>")
	if p.Client != nil {
		p.Client.Disconnect("quit")
	}
}
