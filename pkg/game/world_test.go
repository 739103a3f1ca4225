package game

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muddy-beach/beachmud/pkg/events"
)

// fakeClient implements Client with an in-memory input queue.
type fakeClient struct {
	id        uint64
	connected bool
	player    *Player
	account   string
	pending   []string
}

func (c *fakeClient) SessionID() uint64   { return c.id }
func (c *fakeClient) Connected() bool     { return c.connected }
func (c *fakeClient) Disconnect(string)   { c.connected = false }
func (c *fakeClient) Player() *Player     { return c.player }
func (c *fakeClient) AccountName() string { return c.account }

func (c *fakeClient) Update(w *World) {
	for _, line := range c.pending {
		if c.player != nil {
			c.player.ProcessInput(w, line)
		}
	}
	c.pending = nil
}

// collector subscribes to the bus and records event text.
type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) Receive(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, ev.Text)
}

func (c *collector) Closed() bool { return false }

func (c *collector) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]string, len(c.lines))
	copy(cp, c.lines)
	return cp
}

func (c *collector) Joined() string {
	return strings.Join(c.Lines(), "\n")
}

// recordingSaver counts SaveCharacter calls.
type recordingSaver struct {
	saves []string
	fail  error
}

func (s *recordingSaver) SaveCharacter(name, account, lastRoom string) error {
	if s.fail != nil {
		return s.fail
	}
	s.saves = append(s.saves, fmt.Sprintf("%s/%s/%s", name, account, lastRoom))
	return nil
}

func newTestWorld(t *testing.T) (*World, *recordingSaver) {
	t.Helper()
	saver := &recordingSaver{}
	w := NewWorld(DefaultRooms(), DefaultEntryRoom, saver, nil)
	return w, saver
}

func join(t *testing.T, w *World, c *fakeClient, name string) (*Player, *collector) {
	t.Helper()
	w.AddClient(c)
	w.Update()

	p, err := w.BindPlayer(c, name, c.account, "")
	require.NoError(t, err)
	c.player = p

	col := &collector{}
	w.Bus.Subscribe(name, col)
	return p, col
}

func TestBindPlayerSpawnsInEntryRoom(t *testing.T) {
	w, _ := newTestWorld(t)
	c := &fakeClient{id: 1, connected: true, account: "bob"}

	p, _ := join(t, w, c, "Beefbork Pastapeef")
	require.Equal(t, DefaultEntryRoom, p.Room.Title)
	require.Len(t, w.Players, 1)
}

func TestBindPlayerTwiceIsNoop(t *testing.T) {
	w, _ := newTestWorld(t)
	c := &fakeClient{id: 1, connected: true, account: "bob"}

	p1, _ := join(t, w, c, "Beefbork")
	p2, err := w.BindPlayer(c, "Beefbork", "bob", "")
	require.NoError(t, err)
	require.Same(t, p1, p2)
	require.Len(t, w.Players, 1)
}

func TestBindPlayerNameInUse(t *testing.T) {
	w, _ := newTestWorld(t)
	c1 := &fakeClient{id: 1, connected: true, account: "bob"}
	c2 := &fakeClient{id: 2, connected: true, account: "alice"}

	join(t, w, c1, "Beefbork")
	w.AddClient(c2)
	w.Update()

	_, err := w.BindPlayer(c2, "Beefbork", "alice", "")
	require.Error(t, err)
}

func TestCommandsProcessedInOrder(t *testing.T) {
	w, _ := newTestWorld(t)
	speaker := &fakeClient{id: 1, connected: true, account: "bob"}
	listener := &fakeClient{id: 2, connected: true, account: "alice"}

	join(t, w, speaker, "Speaker")
	_, heard := join(t, w, listener, "Listener")

	const n = 20
	for i := 0; i < n; i++ {
		speaker.pending = append(speaker.pending, fmt.Sprintf("say message %d", i))
	}
	w.Update()

	var sayLines []string
	for _, line := range heard.Lines() {
		if strings.Contains(line, "says:") {
			sayLines = append(sayLines, line)
		}
	}
	require.Len(t, sayLines, n)
	for i, line := range sayLines {
		require.Contains(t, line, fmt.Sprintf("message %d", i))
	}
}

func TestGoCommandMovesPlayer(t *testing.T) {
	w, _ := newTestWorld(t)
	c := &fakeClient{id: 1, connected: true, account: "bob"}
	p, col := join(t, w, c, "Wanderer")

	c.pending = []string{"go north"}
	w.Update()

	require.Equal(t, "The library", p.Room.Title)
	require.Contains(t, col.Joined(), "You enter")
	require.Contains(t, col.Joined(), "The library")
}

func TestGoCommandNoExit(t *testing.T) {
	w, _ := newTestWorld(t)
	c := &fakeClient{id: 1, connected: true, account: "bob"}
	p, col := join(t, w, c, "Wanderer")

	// The library has no north exit.
	c.pending = []string{"go north", "go north"}
	w.Update()

	require.Equal(t, "The library", p.Room.Title)
	require.Contains(t, col.Joined(), "unable to go this way")
}

func TestUnknownCommand(t *testing.T) {
	w, _ := newTestWorld(t)
	c := &fakeClient{id: 1, connected: true, account: "bob"}
	_, col := join(t, w, c, "Confused")

	c.pending = []string{"frobnicate the doodad"}
	w.Update()

	require.Contains(t, col.Joined(), "Unknown command: frobnicate")
}

func TestWrongArgumentCount(t *testing.T) {
	w, _ := newTestWorld(t)
	c := &fakeClient{id: 1, connected: true, account: "bob"}
	_, col := join(t, w, c, "Clumsy")

	c.pending = []string{"go"}
	w.Update()

	require.Contains(t, col.Joined(), "Example usage")
}

func TestItemCommandDispatch(t *testing.T) {
	w, _ := newTestWorld(t)
	c := &fakeClient{id: 1, connected: true, account: "bob"}
	_, col := join(t, w, c, "Reader")

	c.pending = []string{"go north", "read"}
	w.Update()

	require.Contains(t, col.Joined(), "reliable sources")
}

func TestReapBroadcastsAndPersistsOnce(t *testing.T) {
	w, saver := newTestWorld(t)
	leaver := &fakeClient{id: 1, connected: true, account: "bob"}
	stayer := &fakeClient{id: 2, connected: true, account: "alice"}

	p, _ := join(t, w, leaver, "Leaver")
	_, col := join(t, w, stayer, "Stayer")

	leaver.connected = false
	w.Update()
	// A second tick must not re-reap.
	w.Update()

	require.NotContains(t, w.Players, p.Name)
	require.Equal(t, 1, w.ClientCount())
	require.Equal(t, []string{"Leaver/bob/The Foyer"}, saver.saves)

	departures := 0
	for _, line := range col.Lines() {
		if strings.Contains(line, "has left the game") {
			departures++
		}
	}
	require.Equal(t, 1, departures)
}

func TestReapUnboundSession(t *testing.T) {
	w, saver := newTestWorld(t)
	c := &fakeClient{id: 1, connected: true}

	w.AddClient(c)
	w.Update()
	require.Equal(t, 1, w.ClientCount())

	c.connected = false
	w.Update()
	require.Equal(t, 0, w.ClientCount())
	require.Empty(t, saver.saves)
}

func TestPersistFailureIsReportedNotFatal(t *testing.T) {
	w, saver := newTestWorld(t)
	saver.fail = fmt.Errorf("disk full")

	c := &fakeClient{id: 1, connected: true, account: "bob"}
	_, col := join(t, w, c, "Saver")

	c.pending = []string{"save"}
	w.Update()

	require.Contains(t, col.Joined(), "Saving failed")
	require.True(t, c.connected)
}

func TestAccountReservation(t *testing.T) {
	w, _ := newTestWorld(t)

	require.NoError(t, w.ReserveAccount("bob", 1))
	// Re-reserving from the same session is fine.
	require.NoError(t, w.ReserveAccount("bob", 1))
	require.Error(t, w.ReserveAccount("bob", 2))

	w.ReleaseAccount("bob", 1)
	require.NoError(t, w.ReserveAccount("bob", 2))
}

func TestReapReleasesAccount(t *testing.T) {
	w, _ := newTestWorld(t)
	c := &fakeClient{id: 1, connected: true, account: "bob"}

	require.NoError(t, w.ReserveAccount("bob", c.id))
	join(t, w, c, "Beefbork")

	c.connected = false
	w.Update()

	require.NoError(t, w.ReserveAccount("bob", 99))
}

func TestRoomUpdaterRunsPerTick(t *testing.T) {
	w, _ := newTestWorld(t)
	ticks := 0
	w.Rooms[DefaultEntryRoom].Updater = func(*World, *Room) { ticks++ }

	w.Update()
	w.Update()
	w.Update()
	require.Equal(t, 3, ticks)
}

func TestRoomsDoNotShareItemSlices(t *testing.T) {
	rooms := DefaultRooms()
	foyer := rooms["The Foyer"]
	library := rooms["The library"]

	foyer.AddItem(NewItem("Shell", "A shell."))
	require.Len(t, foyer.Items, 1)
	require.Len(t, library.Items, 1) // the Book only
	require.Equal(t, "Book", library.Items[0].Name)
}
