package protocol

import "testing"

func TestLoginRequestRoundTrip(t *testing.T) {
	w := GetWriter()
	defer w.Put()

	want := LoginRequest{Username: "kara", Password: "hunter2"}
	want.Encode(w)

	r := NewReader(w.Bytes())
	id, err := r.ReadUint16()
	if err != nil {
		t.Fatalf("ReadUint16: %v", err)
	}
	if id != PacketLoginRequest {
		t.Fatalf("id = %d, want %d", id, PacketLoginRequest)
	}

	got, err := DecodeLoginRequest(r)
	if err != nil {
		t.Fatalf("DecodeLoginRequest: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestObjectUpdateEncodesOnlyFlaggedFields(t *testing.T) {
	w := GetWriter()
	defer w.Put()

	p := ObjectUpdate{ID: 7, Flags: UpdateHP, HP: 42}
	p.Encode(w)

	r := NewReader(w.Bytes())
	if _, err := r.ReadUint16(); err != nil {
		t.Fatalf("ReadUint16: %v", err)
	}
	got, err := DecodeObjectUpdate(r)
	if err != nil {
		t.Fatalf("DecodeObjectUpdate: %v", err)
	}
	if got.ID != 7 || got.Flags != UpdateHP || got.HP != 42 {
		t.Fatalf("got %+v", got)
	}
	if got.X != 0 || got.Y != 0 || got.Z != 0 || got.Level != 0 {
		t.Fatalf("unflagged fields should be zero-valued: %+v", got)
	}
	if r.Remaining() != 0 {
		t.Fatalf("expected body fully consumed, %d bytes left", r.Remaining())
	}
}

func TestObjectSnapshotRoundTrip(t *testing.T) {
	w := GetWriter()
	defer w.Put()

	want := ObjectSnapshot{Objects: []ObjectSpawn{
		{ID: 1, Type: 0, X: 1, Y: 2, Z: 3, HP: 10, MaxHP: 10, Level: 1},
		{ID: 2, Type: 1, X: -1, Y: 0, Z: 5, HP: 50, MaxHP: 80, Level: 4},
	}}
	want.Encode(w)

	r := NewReader(w.Bytes())
	if _, err := r.ReadUint16(); err != nil {
		t.Fatalf("ReadUint16: %v", err)
	}
	got, err := DecodeObjectSnapshot(r)
	if err != nil {
		t.Fatalf("DecodeObjectSnapshot: %v", err)
	}
	if len(got.Objects) != len(want.Objects) {
		t.Fatalf("got %d objects, want %d", len(got.Objects), len(want.Objects))
	}
	for i := range want.Objects {
		if got.Objects[i] != want.Objects[i] {
			t.Errorf("object %d = %+v, want %+v", i, got.Objects[i], want.Objects[i])
		}
	}
}

func TestStringRoundTripWithMultibyteRunes(t *testing.T) {
	w := GetWriter()
	defer w.Put()

	want := "héllo wörld — 日本語"
	w.WriteString(want)

	r := NewReader(w.Bytes())
	got, err := r.ReadString()
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestReaderErrorsOnTruncatedInput(t *testing.T) {
	w := GetWriter()
	defer w.Put()

	LoginRequest{Username: "a", Password: "b"}.Encode(w)
	body := w.Bytes()

	for n := 0; n < len(body); n++ {
		r := NewReader(body[:n])
		if _, err := r.ReadUint16(); err != nil {
			continue // truncated before id, expected
		}
		if _, err := DecodeLoginRequest(r); err == nil && n < len(body) {
			t.Fatalf("DecodeLoginRequest on %d/%d bytes should have failed", n, len(body))
		}
	}
}

func TestPeekPacketID(t *testing.T) {
	w := GetWriter()
	defer w.Put()
	Heartbeat{}.Encode(w)

	id, err := PeekPacketID(w.Bytes())
	if err != nil {
		t.Fatalf("PeekPacketID: %v", err)
	}
	if id != PacketHeartbeat {
		t.Fatalf("id = %d, want %d", id, PacketHeartbeat)
	}
}
