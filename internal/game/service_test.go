package game

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/worldserver/internal/auth"
	"github.com/udisondev/worldserver/internal/model"
	"github.com/udisondev/worldserver/internal/protocol"
	"github.com/udisondev/worldserver/internal/session"
	"github.com/udisondev/worldserver/internal/world"
	"github.com/udisondev/worldserver/internal/worldpool"
)

func newTestService(t *testing.T) (*Service, *world.Map) {
	t.Helper()
	a := auth.New()
	require.NoError(t, a.Register("alice", "hunter2"))
	m := world.NewMap(50*time.Millisecond, 10, worldpool.NewCharacters(), worldpool.NewMonsters())
	svc := New(a, worldpool.NewIDs(), worldpool.NewCharacters(), m, 50, 30*time.Millisecond, false)
	return svc, m
}

func newRunningPipeSession(t *testing.T, id string) (*session.Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	s := session.New(id, server, 8, time.Second, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { s.Run(ctx, func(context.Context, *session.Session, []byte) {}) }()

	return s, client
}

func readPacketID(t *testing.T, client net.Conn) uint16 {
	t.Helper()
	lenBuf := make([]byte, 4)
	_, err := readFull(client, lenBuf)
	require.NoError(t, err, "read length prefix")

	n := int32(lenBuf[0]) | int32(lenBuf[1])<<8 | int32(lenBuf[2])<<16 | int32(lenBuf[3])<<24
	body := make([]byte, n)
	_, err = readFull(client, body)
	require.NoError(t, err, "read body")

	id, err := protocol.PeekPacketID(body)
	require.NoError(t, err)
	return id
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestHandleLoginSendsSnapshotThenLoginResponse(t *testing.T) {
	svc, _ := newTestService(t)
	s, client := newRunningPipeSession(t, "sid-1")
	defer client.Close()

	svc.HandleLogin(s, protocol.LoginRequest{Username: "alice", Password: "hunter2"})

	require.Equal(t, protocol.PacketObjectSnapshot, readPacketID(t, client), "first packet should be the initial snapshot")
	require.Equal(t, protocol.PacketLoginResponse, readPacketID(t, client), "second packet should be the login response")
}

func TestHandleLoginRejectsBadCredentials(t *testing.T) {
	svc, m := newTestService(t)
	s, client := newRunningPipeSession(t, "sid-1")
	defer client.Close()

	svc.HandleLogin(s, protocol.LoginRequest{Username: "alice", Password: "wrong"})

	require.Equal(t, protocol.PacketLoginResponse, readPacketID(t, client))
	_, ok := m.GetBySession("sid-1")
	require.False(t, ok, "a character should not be spawned for a rejected login")
}

func TestHandleMoveSetsCharacterTarget(t *testing.T) {
	svc, m := newTestService(t)
	s, client := newRunningPipeSession(t, "sid-1")
	defer client.Close()

	svc.HandleLogin(s, protocol.LoginRequest{Username: "alice", Password: "hunter2"})
	readPacketID(t, client) // snapshot
	readPacketID(t, client) // login response

	svc.HandleMove(s, protocol.MoveRequest{TargetX: 42, TargetY: 0, TargetZ: 7})

	ch, ok := m.GetBySession("sid-1")
	require.True(t, ok, "expected a character for sid-1")

	x, _, z, moving := ch.MoveTarget()
	require.True(t, moving)
	require.Equal(t, float32(42), x)
	require.Equal(t, float32(7), z)
}

func TestHandleDisconnectParksCharacterForGraceWindow(t *testing.T) {
	svc, m := newTestService(t)
	s, client := newRunningPipeSession(t, "sid-1")
	defer client.Close()

	svc.HandleLogin(s, protocol.LoginRequest{Username: "alice", Password: "hunter2"})
	readPacketID(t, client)
	readPacketID(t, client)

	svc.HandleDisconnect(s)

	_, ok := m.GetBySession("sid-1")
	require.False(t, ok, "character should be removed from the live map once parked")

	svc.mu.Lock()
	_, parked := svc.parked["sid-1"]
	svc.mu.Unlock()
	require.True(t, parked, "character should be parked after disconnect")
}

func TestReconnectWithinGraceWindowAdoptsParkedCharacter(t *testing.T) {
	svc, m := newTestService(t)
	s1, client1 := newRunningPipeSession(t, "sid-1")
	defer client1.Close()

	svc.HandleLogin(s1, protocol.LoginRequest{Username: "alice", Password: "hunter2"})
	readPacketID(t, client1)
	readPacketID(t, client1)
	original, ok := m.GetBySession("sid-1")
	require.True(t, ok)
	originalID := original.ID()

	svc.HandleDisconnect(s1)

	s2, client2 := newRunningPipeSession(t, "sid-2")
	defer client2.Close()
	svc.HandleReconnect(s2, protocol.ReconnectRequest{Username: "alice"})

	require.Equal(t, protocol.PacketReconnectResponse, readPacketID(t, client2))

	adopted, ok := m.GetBySession("sid-2")
	require.True(t, ok, "adopted character should be live under the new session")
	require.Equal(t, originalID, adopted.ID(), "reconnect should adopt the parked character, not mint a new one")

	svc.mu.Lock()
	_, stillParked := svc.parked["sid-1"]
	svc.mu.Unlock()
	require.False(t, stillParked, "adopting a parked character should remove it from the park table")
}

func TestReconnectAfterGraceWindowStartsFreshCharacter(t *testing.T) {
	svc, m := newTestService(t)
	s1, client1 := newRunningPipeSession(t, "sid-1")
	defer client1.Close()

	svc.HandleLogin(s1, protocol.LoginRequest{Username: "alice", Password: "hunter2"})
	readPacketID(t, client1)
	readPacketID(t, client1)
	original, ok := m.GetBySession("sid-1")
	require.True(t, ok)
	originalID := original.ID()

	svc.HandleDisconnect(s1)
	svc.sweepParked() // too early: nothing should evict yet
	time.Sleep(40 * time.Millisecond)
	svc.sweepParked() // now past the 30ms grace configured in newTestService

	s2, client2 := newRunningPipeSession(t, "sid-2")
	defer client2.Close()
	svc.HandleReconnect(s2, protocol.ReconnectRequest{Username: "alice"})

	require.Equal(t, protocol.PacketObjectSnapshot, readPacketID(t, client2))
	require.Equal(t, protocol.PacketReconnectResponse, readPacketID(t, client2))

	fresh, ok := m.GetBySession("sid-2")
	require.True(t, ok)
	require.NotEqual(t, originalID, fresh.ID(), "a character evicted past the grace window should not be reused")
}

func TestBroadcastDeltasSpawnsEntityThatEntersViewBecauseViewerMoved(t *testing.T) {
	svc, m := newTestService(t)
	s, client := newRunningPipeSession(t, "sid-1")
	defer client.Close()

	svc.HandleLogin(s, protocol.LoginRequest{Username: "alice", Password: "hunter2"})
	readPacketID(t, client) // snapshot
	readPacketID(t, client) // login response

	ch, ok := m.GetBySession("sid-1")
	require.True(t, ok)

	mo := model.NewMonster(10000, model.Location{X: 100, Y: 0, Z: 0}, 100, 5, 1, 3, 20, 2, false, 0)
	m.AddMonster(mo)

	// The monster sits well outside alice's 50-unit interest radius, so it
	// never spawns into view at login.
	svc.BroadcastDeltas(m.EntityIDs(), m.Locate)

	// alice walks from the origin to (60,0,0): 40 units from the monster,
	// inside the radius, even though the monster itself never moved.
	ch.SetLocation(model.Location{X: 60, Y: 0, Z: 0})
	svc.BroadcastDeltas(m.EntityIDs(), m.Locate)

	require.Equal(t, protocol.PacketObjectSpawn, readPacketID(t, client), "moving into range of a stationary monster should spawn it")
}
