package server

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muddy-beach/beachmud/pkg/events"
	"github.com/muddy-beach/beachmud/pkg/game"
	"github.com/muddy-beach/beachmud/pkg/proto"
)

// initialCounter is the packet counter both directions start from; it is
// announced to the client in the handshake's packet_id field.
const initialCounter = 1

// Session represents one live client connection: its socket, session key,
// packet counters, authentication state, and IO queues. Two goroutines pump
// the socket (reader and writer); the tick thread consumes the inbound queue
// and produces the outbound queue. No other state is shared across threads.
type Session struct {
	id  uint64
	key []byte

	conn net.Conn
	log  *zap.Logger

	inbound  chan string
	outbound chan []byte
	done     chan struct{}

	connected atomic.Bool
	closeOnce sync.Once
	downOnce  sync.Once

	// Tick-thread state: authentication machine, bound account and player.
	auth    *AuthMachine
	account string
	player  *game.Player

	// onCommand, when set, is called once per in-game command line.
	onCommand func()
}

// NewSession wraps an accepted connection. The session key is generated here,
// once, and shared with exactly one client via the handshake frame.
func NewSession(id uint64, conn net.Conn, auth *AuthMachine, outputBacklog int, log *zap.Logger) (*Session, error) {
	key, err := proto.NewSessionKey()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if outputBacklog <= 0 {
		outputBacklog = 1024
	}
	s := &Session{
		id:       id,
		key:      key,
		conn:     conn,
		log:      log.With(zap.Uint64("session", id)),
		inbound:  make(chan string, 256),
		outbound: make(chan []byte, outputBacklog),
		done:     make(chan struct{}),
		auth:     auth,
	}
	s.connected.Store(true)
	return s, nil
}

// SessionID implements game.Client.
func (s *Session) SessionID() uint64 { return s.id }

// Connected implements game.Client.
func (s *Session) Connected() bool { return s.connected.Load() }

// Player implements game.Client.
func (s *Session) Player() *game.Player { return s.player }

// AccountName implements game.Client.
func (s *Session) AccountName() string { return s.account }

// Start sends the handshake and spawns the two IO pumps. The handshake is
// the one frame exempt from SecureChannel validation: the client has no key
// until it arrives.
func (s *Session) Start() error {
	hs, err := proto.NewHandshake(s.id, initialCounter, s.key).Marshal()
	if err != nil {
		return err
	}
	if err := proto.WriteFrame(s.conn, hs); err != nil {
		return err
	}

	go s.readerPump()
	go s.writerPump()
	return nil
}

// Disconnect implements game.Client: cooperative, idempotent teardown. Both
// pumps observe the signal and exit; an in-progress blocking read unblocks
// when the writer closes the socket on its way out.
func (s *Session) Disconnect(reason string) {
	s.downOnce.Do(func() {
		s.log.Info("session disconnecting", zap.String("reason", reason))
		s.connected.Store(false)
		close(s.done)
	})
}

// closeConn closes the socket exactly once.
func (s *Session) closeConn() {
	s.closeOnce.Do(func() { s.conn.Close() })
}

// PushOutput queues game text for delivery. Thread-safe, called from the
// tick thread, never blocks: if the client has stopped reading and the
// backlog bound is hit, the session is disconnected rather than letting the
// queue grow without limit.
func (s *Session) PushOutput(text string) {
	payload, err := proto.OutputMessage(text).Marshal()
	if err != nil {
		s.log.Error("marshal output", zap.Error(err))
		return
	}
	s.push(payload)
}

// PushSalt queues a salt message for the login exchange.
func (s *Session) PushSalt(salt []byte) {
	payload, err := proto.SaltMessage(salt).Marshal()
	if err != nil {
		s.log.Error("marshal salt", zap.Error(err))
		return
	}
	s.push(payload)
}

func (s *Session) push(payload []byte) {
	if !s.Connected() {
		return
	}
	select {
	case s.outbound <- payload:
	default:
		s.Disconnect("output backlog exceeded")
	}
}

// Receive implements events.Subscriber: bus events bound for this session's
// player become output text.
func (s *Session) Receive(ev events.Event) {
	if ev.Text != "" {
		s.PushOutput(ev.Text)
	}
}

// Closed implements events.Subscriber.
func (s *Session) Closed() bool { return !s.Connected() }

// Update implements game.Client: flush queued command lines into the game.
// Runs on the tick thread; input is processed strictly in arrival order.
func (s *Session) Update(w *game.World) {
	for {
		select {
		case line := <-s.inbound:
			if s.player != nil {
				if s.onCommand != nil {
					s.onCommand()
				}
				s.player.ProcessInput(w, line)
			} else {
				s.auth.Handle(w, s, line)
			}
		default:
			return
		}
	}
}

// readerPump decodes and validates inbound frames. Any transport or
// protocol failure is fatal to the session: there is no partial recovery
// once framing, sequencing, or crypto state is suspect.
func (s *Session) readerPump() {
	counter := uint64(initialCounter)
	for s.Connected() {
		frame, err := proto.ReadFrame(s.conn)
		if err != nil {
			s.disconnectOnError("read", err)
			return
		}

		plaintext, err := proto.Decode(frame, s.key, s.id, counter)
		if err != nil {
			s.disconnectOnError("decode", err)
			return
		}
		counter++

		select {
		case s.inbound <- string(plaintext):
		case <-s.done:
			return
		}
	}
}

// writerPump encrypts and frames queued output. On shutdown it drains what
// it can, then closes the socket, which also unblocks the reader.
func (s *Session) writerPump() {
	defer s.closeConn()

	counter := uint64(initialCounter)
	for {
		select {
		case payload := <-s.outbound:
			if !s.writePacket(payload, &counter) {
				return
			}
		case <-s.done:
			// Best-effort final flush; the peer may already be gone.
			for {
				select {
				case payload := <-s.outbound:
					if !s.writePacket(payload, &counter) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (s *Session) writePacket(payload []byte, counter *uint64) bool {
	frame, err := proto.Encode(payload, s.key, s.id, *counter)
	if err != nil {
		s.disconnectOnError("encode", err)
		return false
	}
	*counter++
	if err := proto.WriteFrame(s.conn, frame); err != nil {
		s.disconnectOnError("write", err)
		return false
	}
	return true
}

// disconnectOnError classifies a pump error for the log, then disconnects.
func (s *Session) disconnectOnError(op string, err error) {
	switch {
	case errors.Is(err, proto.ErrConnectionClosed):
		s.Disconnect("peer closed connection")
	case errors.Is(err, proto.ErrPartialFrame):
		s.log.Warn("partial frame", zap.String("op", op), zap.Error(err))
		s.Disconnect("partial frame")
	case errors.Is(err, proto.ErrSequence):
		// Flagged distinctly: possible replay attempt or desync bug.
		s.log.Warn("sequence violation", zap.String("op", op), zap.Error(err))
		s.Disconnect("packet sequence violation")
	case errors.Is(err, proto.ErrCrypto):
		s.log.Warn("crypto failure", zap.String("op", op), zap.Error(err))
		s.Disconnect("decrypt failed")
	case errors.Is(err, proto.ErrProtocol):
		s.log.Warn("protocol violation", zap.String("op", op), zap.Error(err))
		s.Disconnect("malformed packet")
	default:
		s.log.Warn("transport error", zap.String("op", op), zap.Error(err))
		s.Disconnect("transport error")
	}
}
