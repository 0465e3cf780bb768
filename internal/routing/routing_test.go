package routing

import (
	"testing"

	"github.com/oriys/cherami-client-go/types"
)

func TestCalcCRC32Fixture(t *testing.T) {
	got := CalcCRC32([]byte("aaa"))
	want := uint32(4027020077)
	if got != want {
		t.Fatalf("CalcCRC32(\"aaa\") = %d, want %d", got, want)
	}
}

func TestCalcMD5(t *testing.T) {
	a := CalcMD5([]byte("hello"))
	b := CalcMD5([]byte("hello"))
	if a != b {
		t.Fatalf("CalcMD5 not deterministic: %x != %x", a, b)
	}
	if a == CalcMD5([]byte("hellp")) {
		t.Fatalf("CalcMD5 collided on distinct input")
	}
}

func TestConnectionKey(t *testing.T) {
	got := ConnectionKey("1.2.3.4", 9000)
	want := "1.2.3.4:9000"
	if got != want {
		t.Fatalf("ConnectionKey = %q, want %q", got, want)
	}
}

func TestStampChecksumCRC32(t *testing.T) {
	msg := &types.PutMessage{Data: []byte("test_msg")}
	StampChecksum(msg, types.ChecksumCRC32IEEE)
	if !msg.HasCRC32 || msg.HasMD5 {
		t.Fatalf("expected only CRC32 stamped, got %+v", msg)
	}
	if msg.CRC32Checksum != CalcCRC32([]byte("test_msg")) {
		t.Fatalf("stamped CRC32 does not match recomputed value")
	}
}

func TestStampChecksumMD5(t *testing.T) {
	msg := &types.PutMessage{Data: []byte("test_msg")}
	StampChecksum(msg, types.ChecksumMD5)
	if !msg.HasMD5 || msg.HasCRC32 {
		t.Fatalf("expected only MD5 stamped, got %+v", msg)
	}
}

func TestStampChecksumNone(t *testing.T) {
	msg := &types.PutMessage{Data: []byte("test_msg")}
	StampChecksum(msg, types.ChecksumNone)
	if msg.HasCRC32 || msg.HasMD5 {
		t.Fatalf("expected no checksum stamped, got %+v", msg)
	}
}

func TestVerifyChecksumRoundTrip(t *testing.T) {
	data := []byte("round-trip-me")
	payload := types.MessagePayload{Data: data, HasCRC32: true, CRC32Checksum: CalcCRC32(data)}
	if !VerifyChecksum(payload) {
		t.Fatalf("expected matching CRC32 to verify")
	}

	corrupted := append([]byte{}, data...)
	corrupted[0] ^= 0xFF
	payload.Data = corrupted
	if VerifyChecksum(payload) {
		t.Fatalf("expected corrupted payload to fail verification")
	}
}

func TestVerifyChecksumNoClaim(t *testing.T) {
	payload := types.MessagePayload{Data: []byte("no checksum here")}
	if !VerifyChecksum(payload) {
		t.Fatalf("expected no-checksum payload to verify true (no claim made)")
	}
}

func TestHostSetDiff(t *testing.T) {
	current := KeySet([]string{"a:1", "b:2", "c:3"})
	desired := KeySet([]string{"b:2", "c:3", "d:4"})

	toAdd, toRemove := HostSetDiff(current, desired)

	if len(toAdd) != 1 || toAdd[0] != "d:4" {
		t.Fatalf("toAdd = %v, want [d:4]", toAdd)
	}
	if len(toRemove) != 1 || toRemove[0] != "a:1" {
		t.Fatalf("toRemove = %v, want [a:1]", toRemove)
	}
}

func TestDeliveryTokenRoundTrip(t *testing.T) {
	token := types.NewDeliveryToken("ack0", "0:0")
	if token.AckID() != "ack0" {
		t.Fatalf("AckID() = %q, want ack0", token.AckID())
	}
	if token.HostPort() != "0:0" {
		t.Fatalf("HostPort() = %q, want 0:0", token.HostPort())
	}
}
