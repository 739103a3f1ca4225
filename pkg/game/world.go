// Package game holds the authoritative world: rooms, players, items, and the
// single-threaded tick loop that mutates them. All game state is touched
// exclusively by the tick goroutine; the only concurrently shared structure
// is the session intake queue.
package game

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/muddy-beach/beachmud/pkg/events"
)

// DefaultTickInterval is the design-target tick period.
const DefaultTickInterval = 100 * time.Millisecond

// Client is the world's view of one live connection. Implemented by the
// server's Session; the world never sees sockets or crypto.
type Client interface {
	// SessionID is the unique, immutable id assigned at accept time.
	SessionID() uint64
	// Connected reports whether the connection is still live.
	Connected() bool
	// Disconnect cooperatively tears the connection down. Idempotent.
	Disconnect(reason string)
	// Update flushes the client's queued input into the game. Called once
	// per tick, on the tick goroutine only.
	Update(w *World)
	// Player returns the bound player, or nil before character selection.
	Player() *Player
	// AccountName returns the authenticated account, or "" before login.
	AccountName() string
}

// CharacterSaver persists a character's state. The persistence backend's
// internals are not the world's concern.
type CharacterSaver interface {
	SaveCharacter(name, account, lastRoom string) error
}

// World owns the authoritative collections: rooms keyed by unique title,
// active players, active clients (bound to a player or not), and the intake
// queue of newly accepted sessions.
type World struct {
	Rooms     map[string]*Room
	EntryRoom string
	Players   map[string]*Player
	Bus       *events.Bus

	// OnTick, when set, observes each tick's duration (metrics hook).
	OnTick func(elapsed time.Duration)

	clients []Client
	intake  chan Client

	// accountSessions maps account name -> session id, enforcing one live
	// session per account. Tick thread only.
	accountSessions map[string]uint64

	saver CharacterSaver
	log   *zap.Logger
}

// NewWorld creates a world over the given rooms. The intake queue is the
// only structure shared between the accept goroutine and the tick goroutine.
func NewWorld(rooms map[string]*Room, entryRoom string, saver CharacterSaver, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	return &World{
		Rooms:           rooms,
		EntryRoom:       entryRoom,
		Players:         make(map[string]*Player),
		Bus:             events.NewBus(),
		clients:         make([]Client, 0),
		intake:          make(chan Client, 64),
		accountSessions: make(map[string]uint64),
		saver:           saver,
		log:             log,
	}
}

// AddClient hands a freshly accepted session to the world. Called from the
// accept goroutine; the tick loop drains the queue at the top of each tick.
func (w *World) AddClient(c Client) {
	w.intake <- c
}

// Run drives the tick loop until the context is cancelled.
func (w *World) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.log.Info("world running", zap.Duration("tick", interval), zap.Int("rooms", len(w.Rooms)))

	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return
		case <-ticker.C:
			start := time.Now()
			w.Update()
			if w.OnTick != nil {
				w.OnTick(time.Since(start))
			}
		}
	}
}

// Update performs one authoritative tick, in fixed order: drain intake,
// flush client input, update rooms, update players, reap disconnected
// sessions. Exported so tests can drive the loop deterministically.
func (w *World) Update() {
	w.drainIntake()

	for _, c := range w.snapshotClients() {
		c.Update(w)
	}

	for _, room := range w.Rooms {
		room.Update(w)
	}

	for _, p := range w.snapshotPlayers() {
		p.Update(w)
	}

	w.reap()
}

func (w *World) drainIntake() {
	for {
		select {
		case c := <-w.intake:
			w.clients = append(w.clients, c)
			w.log.Info("session joined world", zap.Uint64("session", c.SessionID()))
		default:
			return
		}
	}
}

// snapshotClients copies the active set so a client disconnecting mid-pass
// cannot corrupt iteration.
func (w *World) snapshotClients() []Client {
	snapshot := make([]Client, len(w.clients))
	copy(snapshot, w.clients)
	return snapshot
}

func (w *World) snapshotPlayers() []*Player {
	snapshot := make([]*Player, 0, len(w.Players))
	for _, p := range w.Players {
		snapshot = append(snapshot, p)
	}
	return snapshot
}

// reap removes disconnected sessions: departure broadcast, persist, destroy.
func (w *World) reap() {
	remaining := w.clients[:0]
	reaped := false
	for _, c := range w.clients {
		if c.Connected() {
			remaining = append(remaining, c)
			continue
		}
		w.removeClient(c)
		reaped = true
	}
	w.clients = remaining
	if reaped {
		w.Bus.Cleanup()
	}
}

func (w *World) removeClient(c Client) {
	if acct := c.AccountName(); acct != "" {
		if w.accountSessions[acct] == c.SessionID() {
			delete(w.accountSessions, acct)
		}
	}

	p := c.Player()
	if p == nil {
		w.log.Info("session reaped", zap.Uint64("session", c.SessionID()))
		return
	}

	p.Room.BroadcastExcept(w, p, events.Event{
		Type:   events.EvDepart,
		Source: p.Name,
		Text:   fmt.Sprintf("<+info>%s has left the game.<-info>", p.Name),
	})

	if err := w.PersistPlayer(p); err != nil {
		w.log.Warn("persist on disconnect failed",
			zap.String("player", p.Name), zap.Error(err))
	}

	delete(w.Players, p.Name)
	w.log.Info("player reaped",
		zap.Uint64("session", c.SessionID()), zap.String("player", p.Name))
}

// BindPlayer creates or resumes a character for an authenticated client and
// places it in the world. Binding the same player twice is a no-op returning
// the existing player.
func (w *World) BindPlayer(c Client, name, account, lastRoom string) (*Player, error) {
	if existing, ok := w.Players[name]; ok {
		if existing.Client == c {
			return existing, nil
		}
		return nil, fmt.Errorf("character %q is already in the game", name)
	}

	room := w.Rooms[lastRoom]
	if room == nil {
		room = w.Rooms[w.EntryRoom]
	}
	if room == nil {
		return nil, fmt.Errorf("no room to spawn %q in", name)
	}

	p := NewPlayer(w, name, account, room, c)
	w.Players[name] = p

	w.BroadcastExcept(p, events.Event{
		Type:   events.EvEnter,
		Source: name,
		Text:   fmt.Sprintf("<i><+player>%s<-player> has entered the game!</i>", name),
	})

	p.Output(fmt.Sprintf("<+event>You awaken into this world as <+player>%s.<-player><-event>", name))
	room.OnEnter(w, p)
	p.Output("<+info><i>Type <+command>help<-command> to view your list of commands.</i><-info>")
	p.Output("<+info><i>Type <+command>look<-command> to re-assess your surroundings.</i><-info>")

	return p, nil
}

// ReserveAccount marks an account as bound to a session, failing if another
// live session holds it. Tick thread only.
func (w *World) ReserveAccount(account string, sessionID uint64) error {
	if other, ok := w.accountSessions[account]; ok && other != sessionID {
		return fmt.Errorf("account %q already has an active session", account)
	}
	w.accountSessions[account] = sessionID
	return nil
}

// ReleaseAccount unbinds an account from a session, if that session holds it.
func (w *World) ReleaseAccount(account string, sessionID uint64) {
	if w.accountSessions[account] == sessionID {
		delete(w.accountSessions, account)
	}
}

// PersistPlayer saves a player's character record.
func (w *World) PersistPlayer(p *Player) error {
	if w.saver == nil {
		return nil
	}
	return w.saver.SaveCharacter(p.Name, p.AccountName, p.Room.Title)
}

// PlayersInRoom returns all players currently in the given room.
func (w *World) PlayersInRoom(r *Room) []*Player {
	var players []*Player
	for _, p := range w.Players {
		if p.Room == r {
			players = append(players, p)
		}
	}
	return players
}

// PlayerNames returns all player names, sorted for stable output.
func (w *World) PlayerNames() []string {
	names := make([]string, 0, len(w.Players))
	for name := range w.Players {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Broadcast emits an event to every player in the world.
func (w *World) Broadcast(ev events.Event) {
	w.BroadcastExcept(nil, ev)
}

// BroadcastExcept emits an event to every player except one.
func (w *World) BroadcastExcept(except *Player, ev events.Event) {
	var names []string
	for _, p := range w.Players {
		if p != except {
			names = append(names, p.Name)
		}
	}
	w.Bus.EmitToPlayers(names, ev)
}

// ClientCount reports the active session count (tick thread only).
func (w *World) ClientCount() int {
	return len(w.clients)
}

// shutdown disconnects every session and persists every player.
func (w *World) shutdown() {
	w.log.Info("world shutting down", zap.Int("sessions", len(w.clients)))
	for _, c := range w.snapshotClients() {
		c.Disconnect("server shutdown")
	}
	w.reap()
}
