// Package game implements login, reconnect, and movement against the
// world: the glue between a session's packets and the entities a Map
// tracks. Session bookkeeping (token/username indices, the
// disconnect-then-park grace window) is grounded on
// login.SessionManager (internal/login/session_manager.go) and the
// ClientManager register/unregister pattern (internal/gameserver/
// clients.go); the per-tick delta broadcast is this domain's own, built
// on world.StateTracker and world.InterestManager.
package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/worldserver/internal/auth"
	"github.com/udisondev/worldserver/internal/model"
	"github.com/udisondev/worldserver/internal/protocol"
	"github.com/udisondev/worldserver/internal/session"
	"github.com/udisondev/worldserver/internal/world"
	"github.com/udisondev/worldserver/internal/worldpool"
)

const (
	originX, originY, originZ = 0, 0, 0
	startLevel                = 1
	startMaxHP                = 100
	startMoveSpeed            = 5
)

type parkedCharacter struct {
	character    *model.Character
	disconnected time.Time
}

// Service ties authentication, session bookkeeping, and the world map
// together to answer Login/Reconnect/Move requests and keep every
// session's view of nearby entities current.
type Service struct {
	authenticator     *auth.Authenticator
	ids               *worldpool.IDs
	characters        *worldpool.Characters
	gmap              *world.Map
	interestRadius    float32
	reconnectGrace    time.Duration
	allowAutoRegister bool

	mu            sync.Mutex
	sessions      map[string]*session.Session // sid -> session
	tokenToSID    map[string]string
	usernameToSID map[string]string
	parked        map[string]parkedCharacter // old sid -> parked character
}

// New creates a Service backed by authenticator and gmap.
func New(authenticator *auth.Authenticator, ids *worldpool.IDs, characters *worldpool.Characters, gmap *world.Map, interestRadius float32, reconnectGrace time.Duration, allowAutoRegister bool) *Service {
	return &Service{
		authenticator:     authenticator,
		ids:               ids,
		characters:        characters,
		gmap:              gmap,
		interestRadius:    interestRadius,
		reconnectGrace:    reconnectGrace,
		allowAutoRegister: allowAutoRegister,
		sessions:          make(map[string]*session.Session),
		tokenToSID:        make(map[string]string),
		usernameToSID:     make(map[string]string),
		parked:            make(map[string]parkedCharacter),
	}
}

// HandleLogin processes a LoginRequest from s.
func (svc *Service) HandleLogin(s *session.Session, req protocol.LoginRequest) {
	token, err := svc.authenticator.Login(req.Username, req.Password)
	if err != nil && svc.allowAutoRegister {
		if regErr := svc.authenticator.Register(req.Username, req.Password); regErr == nil {
			token, err = svc.authenticator.Login(req.Username, req.Password)
		}
	}
	if err != nil {
		sendPacket(s, protocol.LoginResponse{Success: false, Message: "invalid credentials"})
		return
	}

	loc := model.Location{X: originX, Y: originY, Z: originZ}
	ch := svc.characters.Rent(svc.ids.NextCharacterID(), req.Username, loc, startLevel, startMaxHP, startMoveSpeed, s.ID())

	svc.mu.Lock()
	svc.sessions[s.ID()] = s
	svc.tokenToSID[token] = s.ID()
	svc.usernameToSID[req.Username] = s.ID()
	svc.mu.Unlock()

	svc.spawnCharacter(ch)
	sendPacket(s, protocol.LoginResponse{Success: true, Message: "welcome", Token: token})
}

// HandleReconnect processes a ReconnectRequest from s, adopting a parked
// or still-live character if one can be resolved for the old session.
func (svc *Service) HandleReconnect(s *session.Session, req protocol.ReconnectRequest) {
	oldSID := svc.resolveOldSID(req)

	svc.mu.Lock()
	parked, wasParked := svc.parked[oldSID]
	delete(svc.parked, oldSID)
	svc.mu.Unlock()

	var ch *model.Character
	if wasParked {
		ch = parked.character
	} else if existing, ok := svc.gmap.GetBySession(oldSID); ok {
		ch = existing
	}

	if ch == nil {
		svc.mu.Lock()
		svc.sessions[s.ID()] = s
		svc.usernameToSID[req.Username] = s.ID()
		svc.mu.Unlock()

		loc := model.Location{X: originX, Y: originY, Z: originZ}
		fresh := svc.characters.Rent(svc.ids.NextCharacterID(), req.Username, loc, startLevel, startMaxHP, startMoveSpeed, s.ID())
		svc.spawnCharacter(fresh)
		sendPacket(s, protocol.ReconnectResponse{Success: true, Message: "starting a fresh game", SessionID: s.ID()})
		return
	}

	if wasParked {
		ch.SetSessionID(s.ID())
		svc.gmap.AddCharacter(ch)
	} else {
		ch.SetSessionID(s.ID())
		svc.gmap.RebindSession(oldSID, ch)
	}

	svc.mu.Lock()
	svc.sessions[s.ID()] = s
	svc.usernameToSID[req.Username] = s.ID()
	svc.mu.Unlock()

	svc.reinstallInterest(ch)
	sendPacket(s, protocol.ReconnectResponse{Success: true, Message: "reconnected", SessionID: s.ID()})
}

// HandleMove sets the caller's character's move target; the map's tick
// loop integrates the actual motion.
func (svc *Service) HandleMove(s *session.Session, req protocol.MoveRequest) {
	ch, ok := svc.gmap.GetBySession(s.ID())
	if !ok {
		return
	}
	ch.SetMoveTarget(req.TargetX, req.TargetY, req.TargetZ)
}

// HandleDisconnect parks s's character for the reconnect grace window
// instead of destroying it immediately.
func (svc *Service) HandleDisconnect(s *session.Session) {
	ch, ok := svc.gmap.GetBySession(s.ID())

	svc.mu.Lock()
	delete(svc.sessions, s.ID())
	svc.mu.Unlock()

	if !ok {
		return
	}

	svc.gmap.Interest().RemoveInterestArea(s.ID())
	recipients := excluding(svc.gmap.Interest().ResolveOnDespawn(ch.ID()), s.ID())
	svc.sendTo(recipients, protocol.ObjectDespawn{ID: ch.ID()})

	svc.gmap.RemoveCharacter(ch.ID())
	svc.mu.Lock()
	svc.parked[s.ID()] = parkedCharacter{character: ch, disconnected: time.Now()}
	svc.mu.Unlock()
}

// RunParkSweeper evicts parked characters past the reconnect grace
// window every period, until ctx is cancelled.
func (svc *Service) RunParkSweeper(ctx context.Context, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			svc.sweepParked()
		}
	}
}

func (svc *Service) sweepParked() {
	now := time.Now()

	svc.mu.Lock()
	var expired []*model.Character
	for sid, p := range svc.parked {
		if now.Sub(p.disconnected) > svc.reconnectGrace {
			expired = append(expired, p.character)
			delete(svc.parked, sid)
		}
	}
	svc.mu.Unlock()

	for _, ch := range expired {
		svc.characters.Return(ch)
	}
	if len(expired) > 0 {
		slog.Debug("parked characters evicted", "count", len(expired))
	}
}

type entitySnapshot struct {
	id        uint32
	loc       model.Location
	hp, maxHP int32
	level     int32
	kind      model.Kind
	sessionID string
	isChar    bool
}

// BroadcastDeltas walks every live entity and resolves, for each, who
// can see it now versus who saw it last: newcomers get an ObjectSpawn,
// sessions that lost sight get an ObjectDespawn, and the rest get an
// ObjectUpdate when the state tracker reports a changed field. A
// session's interest area is re-centered on its character's current
// position first, so a client's own view sphere follows it as it walks
// instead of staying pinned to its login spot — without that, an entity
// entering view only because the viewer moved (not because the entity
// itself changed) would never be resolved. Intended to be called once
// per map tick, after positions have been integrated.
func (svc *Service) BroadcastDeltas(ids []uint32, locate func(uint32) (model.Location, int32, int32, int32, model.Kind, bool)) {
	entities := make([]entitySnapshot, 0, len(ids))
	for _, id := range ids {
		loc, hp, maxHP, level, kind, ok := locate(id)
		if !ok {
			continue
		}
		e := entitySnapshot{id: id, loc: loc, hp: hp, maxHP: maxHP, level: level, kind: kind}
		if kind == model.KindCharacter {
			if ch, ok := svc.gmap.GetCharacter(id); ok {
				e.sessionID = ch.SessionID()
				e.isChar = true
				svc.gmap.Interest().SetInterestArea(e.sessionID, loc, svc.interestRadius)
			}
		}
		entities = append(entities, e)
	}

	for _, e := range entities {
		flags, _ := svc.gmap.Tracker().Delta(e.id, world.Snapshot{Location: e.loc, HP: e.hp, Level: e.level})
		entered, stayed, left := svc.gmap.Interest().ResolveTransition(e.id, e.loc)
		if e.isChar {
			entered = excluding(entered, e.sessionID)
			stayed = excluding(stayed, e.sessionID)
			left = excluding(left, e.sessionID)
		}

		if len(entered) > 0 {
			spawn := protocol.ObjectSpawn{ID: e.id, Type: uint8(e.kind), X: e.loc.X, Y: e.loc.Y, Z: e.loc.Z, HP: e.hp, MaxHP: e.maxHP, Level: e.level}
			svc.sendTo(entered, spawn)
		}
		if len(left) > 0 {
			svc.sendTo(left, protocol.ObjectDespawn{ID: e.id})
		}
		if flags != 0 && len(stayed) > 0 {
			update := protocol.ObjectUpdate{ID: e.id, Flags: flags, X: e.loc.X, Y: e.loc.Y, Z: e.loc.Z, HP: e.hp, Level: e.level}
			svc.sendTo(stayed, update)
		}
	}
}

func (svc *Service) spawnCharacter(ch *model.Character) {
	svc.gmap.AddCharacter(ch)

	loc := ch.Location()
	svc.gmap.Interest().SetInterestArea(ch.SessionID(), loc, svc.interestRadius)

	nearby := svc.gmap.GetInRange(loc.X, loc.Y, loc.Z, svc.interestRadius)
	snapshot := protocol.ObjectSnapshot{}
	for _, id := range nearby {
		if id == ch.ID() {
			continue
		}
		if spawn, ok := svc.snapshotEntity(id); ok {
			snapshot.Objects = append(snapshot.Objects, spawn)
		}
	}
	if sess, ok := svc.sessionFor(ch.SessionID()); ok {
		sendPacket(sess, snapshot)
	}

	recipients := svc.gmap.Interest().ResolveOnSpawn(ch.ID(), loc)
	hp, maxHP := ch.HP()
	spawnPacket := protocol.ObjectSpawn{ID: ch.ID(), Type: uint8(model.KindCharacter), X: loc.X, Y: loc.Y, Z: loc.Z, HP: hp, MaxHP: maxHP, Level: ch.Level()}
	svc.sendTo(excluding(recipients, ch.SessionID()), spawnPacket)
}

func (svc *Service) reinstallInterest(ch *model.Character) {
	loc := ch.Location()
	svc.gmap.Interest().SetInterestArea(ch.SessionID(), loc, svc.interestRadius)
	recipients := svc.gmap.Interest().ResolveOnSpawn(ch.ID(), loc)
	hp, maxHP := ch.HP()
	spawnPacket := protocol.ObjectSpawn{ID: ch.ID(), Type: uint8(model.KindCharacter), X: loc.X, Y: loc.Y, Z: loc.Z, HP: hp, MaxHP: maxHP, Level: ch.Level()}
	svc.sendTo(excluding(recipients, ch.SessionID()), spawnPacket)
}

func (svc *Service) snapshotEntity(id uint32) (protocol.ObjectSpawn, bool) {
	if ch, ok := svc.gmap.GetCharacter(id); ok {
		hp, maxHP := ch.HP()
		loc := ch.Location()
		return protocol.ObjectSpawn{ID: id, Type: uint8(model.KindCharacter), X: loc.X, Y: loc.Y, Z: loc.Z, HP: hp, MaxHP: maxHP, Level: ch.Level()}, true
	}
	return protocol.ObjectSpawn{}, false
}

func (svc *Service) sendTo(sids []string, packet interface{ Encode(*protocol.Writer) }) {
	if len(sids) == 0 {
		return
	}
	body := encode(packet)
	for _, sid := range sids {
		if sess, ok := svc.sessionFor(sid); ok {
			if err := sess.Send(append([]byte(nil), body...)); err != nil {
				slog.Debug("broadcast send failed", "session", sid, "error", err)
			}
		}
	}
}

func (svc *Service) sessionFor(sid string) (*session.Session, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	s, ok := svc.sessions[sid]
	return s, ok
}

func (svc *Service) resolveOldSID(req protocol.ReconnectRequest) string {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if username, ok := svc.authenticator.Validate(req.Token); ok && username == req.Username {
		if sid, ok := svc.tokenToSID[req.Token]; ok {
			return sid
		}
	}
	return svc.usernameToSID[req.Username]
}

func excluding(sids []string, exclude string) []string {
	out := make([]string, 0, len(sids))
	for _, sid := range sids {
		if sid != exclude {
			out = append(out, sid)
		}
	}
	return out
}

func encode(packet interface{ Encode(*protocol.Writer) }) []byte {
	w := protocol.GetWriter()
	packet.Encode(w)
	body := append([]byte(nil), w.Bytes()...)
	w.Put()
	return body
}

func sendPacket(s *session.Session, packet interface{ Encode(*protocol.Writer) }) {
	if err := s.Send(encode(packet)); err != nil {
		slog.Debug("packet send failed", "session", s.ID(), "error", err)
	}
}
