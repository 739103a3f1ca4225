package server

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/muddy-beach/beachmud/pkg/proto"
)

// startedSession spins up a session over a pipe and completes the handshake
// from the client's side, returning the client conn and the announced key.
func startedSession(t *testing.T, store AccountStore) (*Session, net.Conn, []byte) {
	t.Helper()
	srv, cli := net.Pipe()
	t.Cleanup(func() {
		srv.Close()
		cli.Close()
	})

	auth := NewAuthMachine(store, fastHasher{}, nil)
	s, err := NewSession(7, srv, auth, 64, nil)
	require.NoError(t, err)

	startErr := make(chan error, 1)
	go func() { startErr <- s.Start() }()

	frame, err := proto.ReadFrame(cli)
	require.NoError(t, err)
	hs, key, err := proto.ParseHandshake(frame)
	require.NoError(t, err)
	require.Equal(t, uint64(7), hs.SessionID)
	require.Equal(t, uint64(1), hs.PacketID)

	require.NoError(t, <-startErr)
	return s, cli, key
}

func TestStartSendsHandshake(t *testing.T) {
	_, _, key := startedSession(t, newMemStore())
	require.Len(t, key, proto.KeySize)
}

func TestEncryptedLineReachesInbound(t *testing.T) {
	s, cli, key := startedSession(t, newMemStore())

	frame, err := proto.Encode([]byte("login alice"), key, 7, 1)
	require.NoError(t, err)
	require.NoError(t, proto.WriteFrame(cli, frame))

	select {
	case line := <-s.inbound:
		require.Equal(t, "login alice", line)
	case <-time.After(time.Second):
		t.Fatal("line never reached the inbound queue")
	}
}

func TestInboundCounterAdvances(t *testing.T) {
	s, cli, key := startedSession(t, newMemStore())

	for i, text := range []string{"first", "second", "third"} {
		frame, err := proto.Encode([]byte(text), key, 7, uint64(1+i))
		require.NoError(t, err)
		require.NoError(t, proto.WriteFrame(cli, frame))
	}

	for _, want := range []string{"first", "second", "third"} {
		select {
		case line := <-s.inbound:
			require.Equal(t, want, line)
		case <-time.After(time.Second):
			t.Fatal("inbound queue stalled")
		}
	}
	require.True(t, s.Connected())
}

func TestSequenceViolationDisconnects(t *testing.T) {
	s, cli, key := startedSession(t, newMemStore())

	// Counter 5 when 1 is expected: replayed or dropped traffic.
	frame, err := proto.Encode([]byte("hello"), key, 7, 5)
	require.NoError(t, err)
	require.NoError(t, proto.WriteFrame(cli, frame))

	require.Eventually(t, func() bool { return !s.Connected() },
		time.Second, 10*time.Millisecond)
}

func TestWrongSessionIDDisconnects(t *testing.T) {
	s, cli, key := startedSession(t, newMemStore())

	frame, err := proto.Encode([]byte("hello"), key, 99, 1)
	require.NoError(t, err)
	require.NoError(t, proto.WriteFrame(cli, frame))

	require.Eventually(t, func() bool { return !s.Connected() },
		time.Second, 10*time.Millisecond)
}

func TestGarbageFrameDisconnects(t *testing.T) {
	s, cli, _ := startedSession(t, newMemStore())

	require.NoError(t, proto.WriteFrame(cli, []byte("not an envelope")))

	require.Eventually(t, func() bool { return !s.Connected() },
		time.Second, 10*time.Millisecond)
}

func TestPeerCloseDisconnects(t *testing.T) {
	s, cli, _ := startedSession(t, newMemStore())

	cli.Close()

	require.Eventually(t, func() bool { return !s.Connected() },
		time.Second, 10*time.Millisecond)
}

func TestOutputDeliveredEncrypted(t *testing.T) {
	s, cli, key := startedSession(t, newMemStore())

	s.PushOutput("hello there")

	frame, err := proto.ReadFrame(cli)
	require.NoError(t, err)
	plaintext, err := proto.Decode(frame, key, 7, 1)
	require.NoError(t, err)
	msg, err := proto.ParseServerMessage(plaintext)
	require.NoError(t, err)
	require.Equal(t, proto.MsgOutput, msg.Type)
	require.Equal(t, "hello there", msg.Text)

	// The next packet advances the counter.
	s.PushOutput("again")
	frame, err = proto.ReadFrame(cli)
	require.NoError(t, err)
	_, err = proto.Decode(frame, key, 7, 2)
	require.NoError(t, err)
}

func TestBacklogOverflowDisconnects(t *testing.T) {
	srv, cli := net.Pipe()
	t.Cleanup(func() {
		srv.Close()
		cli.Close()
	})

	auth := NewAuthMachine(newMemStore(), fastHasher{}, nil)
	s, err := NewSession(1, srv, auth, 2, nil)
	require.NoError(t, err)

	// No pumps running: nothing drains the queue.
	s.PushOutput("one")
	s.PushOutput("two")
	require.True(t, s.Connected())
	s.PushOutput("three")
	require.False(t, s.Connected())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	s, _, _ := startedSession(t, newMemStore())

	s.Disconnect("test")
	s.Disconnect("test again")
	require.False(t, s.Connected())
	require.True(t, s.Closed())
}

func TestUpdateRoutesToAuthBeforeBinding(t *testing.T) {
	store := newMemStore()
	w := newTestWorld()
	s := newAuthSession(t, store)

	s.inbound <- "register alice"
	s.Update(w)
	require.Equal(t, StateRegistering, s.auth.State())
}

func TestSessionRegistryIDsAreUniqueAndOrdered(t *testing.T) {
	r := NewSessionRegistry()
	require.Equal(t, uint64(1), r.NextID())
	require.Equal(t, uint64(2), r.NextID())
	require.Equal(t, uint64(3), r.NextID())
}
