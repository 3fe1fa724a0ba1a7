package protocol

import "fmt"

// Packet ids, little-endian uint16 at the start of every frame body.
const (
	PacketLoginRequest      uint16 = 1000
	PacketLoginResponse     uint16 = 1001
	PacketReconnectRequest  uint16 = 1004
	PacketReconnectResponse uint16 = 1005
	PacketMoveRequest       uint16 = 2003
	PacketObjectSpawn       uint16 = 3000
	PacketObjectDespawn     uint16 = 3001
	PacketObjectUpdate      uint16 = 3002
	PacketObjectSnapshot    uint16 = 3003
	PacketHeartbeat         uint16 = 9000
	PacketError             uint16 = 9999
)

// ObjectUpdate flag bits.
const (
	UpdatePosition uint8 = 0x01
	UpdateHP       uint8 = 0x02
	UpdateLevel    uint8 = 0x04
)

// LoginRequest is sent by a client to authenticate.
type LoginRequest struct {
	Username string
	Password string
}

// Encode appends the packet id and body to w.
func (p LoginRequest) Encode(w *Writer) {
	w.WriteUint16(PacketLoginRequest)
	w.WriteString(p.Username)
	w.WriteString(p.Password)
}

// DecodeLoginRequest reads a LoginRequest body (packet id already consumed).
func DecodeLoginRequest(r *Reader) (LoginRequest, error) {
	username, err := r.ReadString()
	if err != nil {
		return LoginRequest{}, fmt.Errorf("LoginRequest.username: %w", err)
	}
	password, err := r.ReadString()
	if err != nil {
		return LoginRequest{}, fmt.Errorf("LoginRequest.password: %w", err)
	}
	return LoginRequest{Username: username, Password: password}, nil
}

// LoginResponse answers a LoginRequest.
type LoginResponse struct {
	Success bool
	Message string
	Token   string
}

func (p LoginResponse) Encode(w *Writer) {
	w.WriteUint16(PacketLoginResponse)
	w.WriteBool(p.Success)
	w.WriteString(p.Message)
	w.WriteString(p.Token)
}

func DecodeLoginResponse(r *Reader) (LoginResponse, error) {
	success, err := r.ReadBool()
	if err != nil {
		return LoginResponse{}, fmt.Errorf("LoginResponse.success: %w", err)
	}
	message, err := r.ReadString()
	if err != nil {
		return LoginResponse{}, fmt.Errorf("LoginResponse.message: %w", err)
	}
	token, err := r.ReadString()
	if err != nil {
		return LoginResponse{}, fmt.Errorf("LoginResponse.token: %w", err)
	}
	return LoginResponse{Success: success, Message: message, Token: token}, nil
}

// ReconnectRequest resumes a parked session after a transport loss.
type ReconnectRequest struct {
	Token    string
	Username string
}

func (p ReconnectRequest) Encode(w *Writer) {
	w.WriteUint16(PacketReconnectRequest)
	w.WriteString(p.Token)
	w.WriteString(p.Username)
}

func DecodeReconnectRequest(r *Reader) (ReconnectRequest, error) {
	token, err := r.ReadString()
	if err != nil {
		return ReconnectRequest{}, fmt.Errorf("ReconnectRequest.token: %w", err)
	}
	username, err := r.ReadString()
	if err != nil {
		return ReconnectRequest{}, fmt.Errorf("ReconnectRequest.username: %w", err)
	}
	return ReconnectRequest{Token: token, Username: username}, nil
}

// ReconnectResponse answers a ReconnectRequest.
type ReconnectResponse struct {
	Success   bool
	Message   string
	SessionID string
}

func (p ReconnectResponse) Encode(w *Writer) {
	w.WriteUint16(PacketReconnectResponse)
	w.WriteBool(p.Success)
	w.WriteString(p.Message)
	w.WriteString(p.SessionID)
}

func DecodeReconnectResponse(r *Reader) (ReconnectResponse, error) {
	success, err := r.ReadBool()
	if err != nil {
		return ReconnectResponse{}, fmt.Errorf("ReconnectResponse.success: %w", err)
	}
	message, err := r.ReadString()
	if err != nil {
		return ReconnectResponse{}, fmt.Errorf("ReconnectResponse.message: %w", err)
	}
	sessionID, err := r.ReadString()
	if err != nil {
		return ReconnectResponse{}, fmt.Errorf("ReconnectResponse.sessionId: %w", err)
	}
	return ReconnectResponse{Success: success, Message: message, SessionID: sessionID}, nil
}

// MoveRequest asks the server to start moving the caller's character
// toward a target position.
type MoveRequest struct {
	TargetX, TargetY, TargetZ float32
}

func (p MoveRequest) Encode(w *Writer) {
	w.WriteUint16(PacketMoveRequest)
	w.WriteFloat32(p.TargetX)
	w.WriteFloat32(p.TargetY)
	w.WriteFloat32(p.TargetZ)
}

func DecodeMoveRequest(r *Reader) (MoveRequest, error) {
	x, err := r.ReadFloat32()
	if err != nil {
		return MoveRequest{}, fmt.Errorf("MoveRequest.targetX: %w", err)
	}
	y, err := r.ReadFloat32()
	if err != nil {
		return MoveRequest{}, fmt.Errorf("MoveRequest.targetY: %w", err)
	}
	z, err := r.ReadFloat32()
	if err != nil {
		return MoveRequest{}, fmt.Errorf("MoveRequest.targetZ: %w", err)
	}
	return MoveRequest{TargetX: x, TargetY: y, TargetZ: z}, nil
}

// ObjectSpawn announces a new entity entering a session's interest area.
type ObjectSpawn struct {
	ID               uint32
	Type             uint8
	X, Y, Z          float32
	HP, MaxHP, Level int32
}

func (p ObjectSpawn) Encode(w *Writer) {
	w.WriteUint16(PacketObjectSpawn)
	w.WriteUint32(p.ID)
	w.WriteByte(p.Type)
	w.WriteFloat32(p.X)
	w.WriteFloat32(p.Y)
	w.WriteFloat32(p.Z)
	w.WriteInt32(p.HP)
	w.WriteInt32(p.MaxHP)
	w.WriteInt32(p.Level)
}

func DecodeObjectSpawn(r *Reader) (ObjectSpawn, error) {
	var p ObjectSpawn
	var err error
	if p.ID, err = r.ReadUint32(); err != nil {
		return p, fmt.Errorf("ObjectSpawn.id: %w", err)
	}
	if p.Type, err = r.ReadByte(); err != nil {
		return p, fmt.Errorf("ObjectSpawn.type: %w", err)
	}
	if p.X, err = r.ReadFloat32(); err != nil {
		return p, fmt.Errorf("ObjectSpawn.x: %w", err)
	}
	if p.Y, err = r.ReadFloat32(); err != nil {
		return p, fmt.Errorf("ObjectSpawn.y: %w", err)
	}
	if p.Z, err = r.ReadFloat32(); err != nil {
		return p, fmt.Errorf("ObjectSpawn.z: %w", err)
	}
	if p.HP, err = r.ReadInt32(); err != nil {
		return p, fmt.Errorf("ObjectSpawn.hp: %w", err)
	}
	if p.MaxHP, err = r.ReadInt32(); err != nil {
		return p, fmt.Errorf("ObjectSpawn.maxHp: %w", err)
	}
	if p.Level, err = r.ReadInt32(); err != nil {
		return p, fmt.Errorf("ObjectSpawn.level: %w", err)
	}
	return p, nil
}

// ObjectDespawn announces an entity leaving a session's interest area.
type ObjectDespawn struct {
	ID uint32
}

func (p ObjectDespawn) Encode(w *Writer) {
	w.WriteUint16(PacketObjectDespawn)
	w.WriteUint32(p.ID)
}

func DecodeObjectDespawn(r *Reader) (ObjectDespawn, error) {
	id, err := r.ReadUint32()
	if err != nil {
		return ObjectDespawn{}, fmt.Errorf("ObjectDespawn.id: %w", err)
	}
	return ObjectDespawn{ID: id}, nil
}

// ObjectUpdate carries only the fields of an entity that changed since
// the last tick a recipient observed it, per Flags.
type ObjectUpdate struct {
	ID        uint32
	Flags     uint8
	X, Y, Z   float32
	HP, Level int32
}

func (p ObjectUpdate) Encode(w *Writer) {
	w.WriteUint16(PacketObjectUpdate)
	w.WriteUint32(p.ID)
	w.WriteByte(p.Flags)
	if p.Flags&UpdatePosition != 0 {
		w.WriteFloat32(p.X)
		w.WriteFloat32(p.Y)
		w.WriteFloat32(p.Z)
	}
	if p.Flags&UpdateHP != 0 {
		w.WriteInt32(p.HP)
	}
	if p.Flags&UpdateLevel != 0 {
		w.WriteInt32(p.Level)
	}
}

func DecodeObjectUpdate(r *Reader) (ObjectUpdate, error) {
	var p ObjectUpdate
	var err error
	if p.ID, err = r.ReadUint32(); err != nil {
		return p, fmt.Errorf("ObjectUpdate.id: %w", err)
	}
	if p.Flags, err = r.ReadByte(); err != nil {
		return p, fmt.Errorf("ObjectUpdate.flags: %w", err)
	}
	if p.Flags&UpdatePosition != 0 {
		if p.X, err = r.ReadFloat32(); err != nil {
			return p, fmt.Errorf("ObjectUpdate.x: %w", err)
		}
		if p.Y, err = r.ReadFloat32(); err != nil {
			return p, fmt.Errorf("ObjectUpdate.y: %w", err)
		}
		if p.Z, err = r.ReadFloat32(); err != nil {
			return p, fmt.Errorf("ObjectUpdate.z: %w", err)
		}
	}
	if p.Flags&UpdateHP != 0 {
		if p.HP, err = r.ReadInt32(); err != nil {
			return p, fmt.Errorf("ObjectUpdate.hp: %w", err)
		}
	}
	if p.Flags&UpdateLevel != 0 {
		if p.Level, err = r.ReadInt32(); err != nil {
			return p, fmt.Errorf("ObjectUpdate.level: %w", err)
		}
	}
	return p, nil
}

// ObjectSnapshot carries every entity within a session's interest area
// at login time, so a joining client doesn't wait a full tick to see
// its surroundings.
type ObjectSnapshot struct {
	Objects []ObjectSpawn
}

func (p ObjectSnapshot) Encode(w *Writer) {
	w.WriteUint16(PacketObjectSnapshot)
	w.WriteInt32(int32(len(p.Objects)))
	for _, o := range p.Objects {
		w.WriteUint32(o.ID)
		w.WriteByte(o.Type)
		w.WriteFloat32(o.X)
		w.WriteFloat32(o.Y)
		w.WriteFloat32(o.Z)
		w.WriteInt32(o.HP)
		w.WriteInt32(o.MaxHP)
		w.WriteInt32(o.Level)
	}
}

func DecodeObjectSnapshot(r *Reader) (ObjectSnapshot, error) {
	count, err := r.ReadInt32()
	if err != nil {
		return ObjectSnapshot{}, fmt.Errorf("ObjectSnapshot.count: %w", err)
	}
	const minObjectSpawnSize = 4 + 1 + 4 + 4 + 4 + 4 + 4 + 4 // id, type, x, y, z, hp, maxHp, level
	if count < 0 || int(count) > r.Remaining()/minObjectSpawnSize {
		return ObjectSnapshot{}, fmt.Errorf("ObjectSnapshot: implausible count %d", count)
	}
	objects := make([]ObjectSpawn, 0, count)
	for i := int32(0); i < count; i++ {
		var o ObjectSpawn
		if o.ID, err = r.ReadUint32(); err != nil {
			return ObjectSnapshot{}, fmt.Errorf("ObjectSnapshot[%d].id: %w", i, err)
		}
		if o.Type, err = r.ReadByte(); err != nil {
			return ObjectSnapshot{}, fmt.Errorf("ObjectSnapshot[%d].type: %w", i, err)
		}
		if o.X, err = r.ReadFloat32(); err != nil {
			return ObjectSnapshot{}, fmt.Errorf("ObjectSnapshot[%d].x: %w", i, err)
		}
		if o.Y, err = r.ReadFloat32(); err != nil {
			return ObjectSnapshot{}, fmt.Errorf("ObjectSnapshot[%d].y: %w", i, err)
		}
		if o.Z, err = r.ReadFloat32(); err != nil {
			return ObjectSnapshot{}, fmt.Errorf("ObjectSnapshot[%d].z: %w", i, err)
		}
		if o.HP, err = r.ReadInt32(); err != nil {
			return ObjectSnapshot{}, fmt.Errorf("ObjectSnapshot[%d].hp: %w", i, err)
		}
		if o.MaxHP, err = r.ReadInt32(); err != nil {
			return ObjectSnapshot{}, fmt.Errorf("ObjectSnapshot[%d].maxHp: %w", i, err)
		}
		if o.Level, err = r.ReadInt32(); err != nil {
			return ObjectSnapshot{}, fmt.Errorf("ObjectSnapshot[%d].level: %w", i, err)
		}
		objects = append(objects, o)
	}
	return ObjectSnapshot{Objects: objects}, nil
}

// Heartbeat carries no body; either peer may send one to refresh liveness.
type Heartbeat struct{}

func (p Heartbeat) Encode(w *Writer) {
	w.WriteUint16(PacketHeartbeat)
}

// ErrorPacket is a free-form diagnostic message. The server does not send
// one when it drops a session; a protocol error closes the connection
// without a reply.
type ErrorPacket struct {
	Message string
}

func (p ErrorPacket) Encode(w *Writer) {
	w.WriteUint16(PacketError)
	w.WriteString(p.Message)
}

func DecodeErrorPacket(r *Reader) (ErrorPacket, error) {
	message, err := r.ReadString()
	if err != nil {
		return ErrorPacket{}, fmt.Errorf("Error.message: %w", err)
	}
	return ErrorPacket{Message: message}, nil
}

// PeekPacketID reads the packet id from the start of a decoded frame body
// without otherwise consuming it.
func PeekPacketID(body []byte) (uint16, error) {
	if len(body) < 2 {
		return 0, fmt.Errorf("protocol: frame body too short for packet id (%d bytes)", len(body))
	}
	return NewReader(body).ReadUint16()
}
