// Package session owns one TCP connection end to end: framing incoming
// bytes into packets, draining a bounded outbox back onto the wire, and
// tracking liveness. Modeled on the GameClient/ClientManager precedent
// (internal/gameserver/client.go, clients.go), generalized from its
// drop-and-disconnect send policy to the blocking backpressure this
// domain requires.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/worldserver/internal/protocol"
)

// ErrClosed is returned by Send/SendContext once the session has closed.
var ErrClosed = errors.New("session: closed")

// Handler processes one decoded frame body for a session. It is invoked
// synchronously from the session's read loop, so a handler that blocks
// stalls reading from the socket; the server's handler only enqueues a
// dispatcher job and returns.
type Handler func(ctx context.Context, s *Session, body []byte)

// Session owns one accepted connection: its socket, a bounded outbox
// drained by a writer goroutine, a reassembly buffer for partial reads,
// and the bookkeeping the liveness monitor and registry need.
type Session struct {
	id   string
	conn net.Conn

	readTimeout  time.Duration
	writeTimeout time.Duration

	outbox    chan []byte
	closeOnce sync.Once
	closed    chan struct{}

	lastActivity atomic.Int64 // unix nano
	connected    atomic.Bool
}

// New wraps conn as a Session identified by id, with an outbox of the
// given capacity. The caller must call Run to start its I/O loops.
func New(id string, conn net.Conn, outboxSize int, readTimeout, writeTimeout time.Duration) *Session {
	s := &Session{
		id:           id,
		conn:         conn,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		outbox:       make(chan []byte, outboxSize),
		closed:       make(chan struct{}),
	}
	s.connected.Store(true)
	s.Touch()
	return s
}

// ID returns the session's opaque token.
func (s *Session) ID() string {
	return s.id
}

// Connected reports whether the session's socket is still open.
func (s *Session) Connected() bool {
	return s.connected.Load()
}

// Touch records current activity, refreshing the liveness deadline.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the unix-nano timestamp of the last observed activity.
func (s *Session) LastActivity() int64 {
	return s.lastActivity.Load()
}

// Send enqueues a frame body for delivery, blocking while the outbox is
// full, unlike the reference drop-and-disconnect policy. It returns
// ErrClosed if the session closes while waiting.
func (s *Session) Send(body []byte) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}
	select {
	case s.outbox <- body:
		return nil
	case <-s.closed:
		return ErrClosed
	}
}

// SendContext is Send with a caller-supplied cancellation, bounding how
// long the caller blocks on a single slow peer.
func (s *Session) SendContext(ctx context.Context, body []byte) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}
	select {
	case s.outbox <- body:
		return nil
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the read and write loops and blocks until both exit, which
// happens on any I/O error, frame error, or explicit Close. handler is
// invoked once per decoded frame body.
func (s *Session) Run(ctx context.Context, handler Handler) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.readLoop(ctx, handler)
	}()
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()

	wg.Wait()
}

func (s *Session) readLoop(ctx context.Context, handler Handler) {
	defer s.Close()

	var pending []byte
	buf := make([]byte, 64*1024)

	for {
		if s.readTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}

		n, err := s.conn.Read(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Debug("session read error", "session", s.id, "error", err)
			}
			return
		}
		s.Touch()
		pending = append(pending, buf[:n]...)

		for {
			body, consumed, ok, ferr := protocol.ExtractFrame(pending)
			if ferr != nil {
				slog.Warn("session protocol error", "session", s.id, "error", ferr)
				return
			}
			if !ok {
				break
			}
			frame := make([]byte, len(body))
			copy(frame, body)
			pending = pending[consumed:]
			handler(ctx, s, frame)
		}
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case body, ok := <-s.outbox:
			if !ok {
				return
			}
			if err := s.writeFrame(body); err != nil {
				slog.Debug("session write error", "session", s.id, "error", err)
				s.Close()
				return
			}
			// Drain any further already-queued frames with net.Buffers so a
			// burst of outgoing packets costs one writev instead of many
			// small writes, same batching idiom as the reference writePump.
			s.drainBatch()
		case <-s.closed:
			return
		}
	}
}

func (s *Session) drainBatch() {
	var bufs net.Buffers
	for {
		select {
		case body, ok := <-s.outbox:
			if !ok {
				s.flush(bufs)
				return
			}
			bufs = append(bufs, protocol.AppendFrame(nil, body))
			if len(bufs) >= 32 {
				s.flush(bufs)
				bufs = nil
			}
		default:
			s.flush(bufs)
			return
		}
	}
}

func (s *Session) flush(bufs net.Buffers) {
	if len(bufs) == 0 {
		return
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := bufs.WriteTo(s.conn); err != nil {
		slog.Debug("session batched write error", "session", s.id, "error", err)
		s.Close()
	}
}

func (s *Session) writeFrame(body []byte) error {
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	framed := protocol.AppendFrame(nil, body)
	if _, err := s.conn.Write(framed); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Close shuts the session down idempotently: closes the socket once and
// unblocks any pending Send calls.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.connected.Store(false)
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

// Done returns a channel closed when the session shuts down.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// RemoteAddr returns the underlying connection's remote address.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}
