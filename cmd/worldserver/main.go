package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/worldserver/internal/auth"
	"github.com/udisondev/worldserver/internal/config"
	"github.com/udisondev/worldserver/internal/dispatch"
	"github.com/udisondev/worldserver/internal/game"
	"github.com/udisondev/worldserver/internal/mapdata"
	"github.com/udisondev/worldserver/internal/model"
	"github.com/udisondev/worldserver/internal/protocol"
	"github.com/udisondev/worldserver/internal/session"
	"github.com/udisondev/worldserver/internal/world"
	"github.com/udisondev/worldserver/internal/worldpool"
)

const ConfigPath = "config/worldserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	path := ConfigPath
	if p := os.Getenv("WORLDSERVER_CONFIG"); p != "" {
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("worldserver starting", "bind", cfg.BindAddress, "port", cfg.Port, "tick_rate", cfg.TickRate)

	descriptor, err := loadDescriptor(cfg.MapDescriptorPath)
	if err != nil {
		return fmt.Errorf("loading map descriptor: %w", err)
	}

	ids := worldpool.NewIDs()
	characters := worldpool.NewCharacters()
	monsters := worldpool.NewMonsters()

	tickPeriod := cfg.TickPeriod()
	gmap := world.NewMap(tickPeriod, cfg.CellSize, characters, monsters)
	spawnMonsters(gmap, ids, monsters, descriptor)

	authenticator := auth.New()
	svc := game.New(authenticator, ids, characters, gmap, cfg.InterestRadius, cfg.ReconnectGrace, cfg.AllowAutoRegister)

	registry := session.NewRegistry(cfg.MaxConnections)
	liveness := session.NewLivenessMonitor(registry, cfg.HeartbeatInterval, cfg.SessionTimeout)

	queue := dispatch.NewQueue()
	pool := dispatch.NewPool(queue, cfg.DispatchWorkers)

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port))
	if err != nil {
		return fmt.Errorf("listening on %s:%d: %w", cfg.BindAddress, cfg.Port, err)
	}
	defer listener.Close()
	slog.Info("listening for game clients", "addr", listener.Addr())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return gmap.Run(gctx)
	})

	g.Go(func() error {
		return pool.Run(gctx)
	})

	g.Go(func() error {
		heartbeat := encodeHeartbeat()
		liveness.Run(gctx, heartbeat)
		return nil
	})

	g.Go(func() error {
		return svc.RunParkSweeper(gctx, cfg.ParkSweepPeriod)
	})

	g.Go(func() error {
		return runBroadcastLoop(gctx, gmap, svc, tickPeriod)
	})

	g.Go(func() error {
		return acceptLoop(gctx, listener, cfg, registry, queue, svc)
	})

	g.Go(func() error {
		<-gctx.Done()
		return listener.Close()
	})

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// acceptLoop accepts connections until ctx is cancelled, wiring each one
// into a Session whose decoded frames are pushed onto queue as priority
// jobs instead of handled inline on the read goroutine.
func acceptLoop(ctx context.Context, listener net.Listener, cfg config.World, registry *session.Registry, queue *dispatch.Queue, svc *game.Service) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		// Best-effort socket tuning; a failure is logged, never fatal.
		if tc, ok := conn.(*net.TCPConn); ok {
			if err := errors.Join(
				tc.SetNoDelay(true),
				tc.SetReadBuffer(64*1024),
				tc.SetWriteBuffer(64*1024),
				tc.SetKeepAliveConfig(net.KeepAliveConfig{Enable: true, Idle: 30 * time.Second, Interval: 10 * time.Second, Count: 3}),
			); err != nil {
				slog.Warn("socket tuning failed", "remote", conn.RemoteAddr(), "error", err)
			}
		}

		if !registry.TryAcquire() {
			slog.Warn("connection refused: at capacity", "remote", conn.RemoteAddr())
			conn.Close()
			continue
		}

		sid := newSessionID()
		s := session.New(sid, conn, cfg.SendQueueSize, cfg.ReadTimeout, cfg.WriteTimeout)
		if err := registry.Register(s); err != nil {
			slog.Error("register session failed", "session", sid, "error", err)
			registry.Release()
			conn.Close()
			continue
		}

		go func() {
			handler := func(hctx context.Context, sess *session.Session, body []byte) {
				queue.Push(buildJob(hctx, sess, body, svc))
			}
			s.Run(ctx, handler)

			registry.Unregister(s.ID())
			registry.Release()
			svc.HandleDisconnect(s)
		}()
	}
}

// buildJob decodes just enough of body to route it to the right
// Service handler at the priority this domain assigns its packet kind,
// so a burst of snapshot traffic never delays a pending move or action.
func buildJob(_ context.Context, s *session.Session, body []byte, svc *game.Service) dispatch.Job {
	id, err := protocol.PeekPacketID(body)
	if err != nil {
		slog.Debug("dropping malformed frame", "session", s.ID(), "error", err)
		return dispatch.Job{Priority: 0, Task: func(context.Context) {}}
	}

	r := protocol.NewReader(body)
	_, _ = r.ReadUint16() // the id buildJob just peeked

	switch id {
	case protocol.PacketLoginRequest:
		return dispatch.Job{Priority: 50, Task: func(ctx context.Context) {
			req, err := protocol.DecodeLoginRequest(r)
			if err != nil {
				slog.Debug("decode LoginRequest", "session", s.ID(), "error", err)
				return
			}
			svc.HandleLogin(s, req)
		}}
	case protocol.PacketReconnectRequest:
		return dispatch.Job{Priority: 50, Task: func(ctx context.Context) {
			req, err := protocol.DecodeReconnectRequest(r)
			if err != nil {
				slog.Debug("decode ReconnectRequest", "session", s.ID(), "error", err)
				return
			}
			svc.HandleReconnect(s, req)
		}}
	case protocol.PacketMoveRequest:
		return dispatch.Job{Priority: 100, Task: func(ctx context.Context) {
			req, err := protocol.DecodeMoveRequest(r)
			if err != nil {
				slog.Debug("decode MoveRequest", "session", s.ID(), "error", err)
				return
			}
			svc.HandleMove(s, req)
		}}
	case protocol.PacketHeartbeat:
		return dispatch.Job{Priority: -50, Task: func(ctx context.Context) { s.Touch() }}
	default:
		slog.Debug("unrouted packet id", "session", s.ID(), "id", id)
		return dispatch.Job{Priority: 0, Task: func(context.Context) {}}
	}
}

// runBroadcastLoop calls Service.BroadcastDeltas once per tick, after
// the map's own tick loop has had a chance to integrate movement and AI
// for that period.
func runBroadcastLoop(ctx context.Context, gmap *world.Map, svc *game.Service, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			svc.BroadcastDeltas(gmap.EntityIDs(), gmap.Locate)
		}
	}
}

// spawnMonsters rents and adds one monster per count at every spawn
// point in descriptor. Respawn after death is left unimplemented; see
// the TODO on Map's tick.
func spawnMonsters(gmap *world.Map, ids *worldpool.IDs, monsters *worldpool.Monsters, descriptor mapdata.Descriptor) {
	count := 0
	for _, sp := range descriptor.Spawns {
		for i := int32(0); i < sp.Count; i++ {
			loc := model.Location{X: sp.X, Y: sp.Y, Z: sp.Z}
			mo := monsters.Rent(ids.NextMonsterID(), loc, sp.MaxHP, sp.Damage, sp.Level, sp.MoveSpeed, sp.DetectRange, sp.AttackRange, sp.Patrol, sp.PatrolRadius)
			gmap.AddMonster(mo)
			count++
		}
	}
	slog.Info("monsters spawned", "count", count, "map", descriptor.Name)
}

func loadDescriptor(path string) (mapdata.Descriptor, error) {
	if path == "" {
		return mapdata.Default(), nil
	}
	return mapdata.Load(path)
}

func encodeHeartbeat() []byte {
	w := protocol.GetWriter()
	protocol.Heartbeat{}.Encode(w)
	body := append([]byte(nil), w.Bytes()...)
	w.Put()
	return body
}

var sessionSeq int64

func newSessionID() string {
	sessionSeq++
	return fmt.Sprintf("sid-%d-%d", time.Now().UnixNano(), sessionSeq)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
