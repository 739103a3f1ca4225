package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muddy-beach/beachmud/pkg/crypt"
	"github.com/muddy-beach/beachmud/pkg/game"
)

// Dispatcher owns the TCP listener and hands each accepted connection a
// fresh session with its own key, counters, and auth machine. The world
// loop runs alongside the accept loop; both stop when the context does.
type Dispatcher struct {
	cfg      *Config
	world    *game.World
	store    AccountStore
	hasher   crypt.Hasher
	registry *SessionRegistry
	metrics  *Metrics
	log      *zap.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewDispatcher wires a dispatcher over an already-built world and store.
func NewDispatcher(cfg *Config, w *game.World, store AccountStore, hasher crypt.Hasher, metrics *Metrics, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		cfg:      cfg,
		world:    w,
		store:    store,
		hasher:   hasher,
		registry: NewSessionRegistry(),
		metrics:  metrics,
		log:      log,
	}
}

// Start listens and serves until the context is cancelled or the listener
// fails. The world tick loop runs in the same group.
func (d *Dispatcher) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", d.cfg.Port))
	if err != nil {
		return fmt.Errorf("listener: %w", err)
	}
	d.mu.Lock()
	d.listener = ln
	d.mu.Unlock()
	d.log.Info("listening", zap.Int("port", d.cfg.Port))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.world.Run(ctx, d.cfg.TickInterval())
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		d.Stop()
		return nil
	})

	g.Go(func() error {
		return d.acceptLoop(ln)
	})

	return g.Wait()
}

// acceptLoop accepts connections until the listener is closed.
func (d *Dispatcher) acceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			d.log.Warn("accept error", zap.Error(err))
			continue
		}
		d.handleConnection(conn)
	}
}

// handleConnection builds and starts one session. The handshake frame goes
// out before the session joins the world, so the client always has the key
// before any game traffic arrives.
func (d *Dispatcher) handleConnection(conn net.Conn) {
	id := d.registry.NextID()
	auth := NewAuthMachine(d.store, d.hasher, d.log)

	sess, err := NewSession(id, conn, auth, d.cfg.MaxOutputBacklog, d.log)
	if err != nil {
		d.log.Warn("session setup failed", zap.Uint64("session", id), zap.Error(err))
		conn.Close()
		return
	}
	if err := sess.Start(); err != nil {
		d.log.Warn("handshake failed",
			zap.Uint64("session", id),
			zap.String("remote", conn.RemoteAddr().String()),
			zap.Error(err))
		conn.Close()
		return
	}

	d.log.Info("new connection",
		zap.Uint64("session", id),
		zap.String("remote", conn.RemoteAddr().String()))
	if d.metrics != nil {
		d.metrics.ConnectionsTotal.Inc()
		sess.onCommand = d.metrics.CommandsTotal.Inc
	}

	sess.PushOutput("Welcome to the dungeon. Commands: 'login <username>' or 'register <username>'")
	d.world.AddClient(sess)
}

// Stop closes the listener; in-flight sessions drain through the world's
// shutdown path.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	ln := d.listener
	d.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
}
