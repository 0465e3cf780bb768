// Package routing holds the pure helper functions every other package
// depends on: connection-key derivation, checksum computation, and
// host-set diffing. None of it touches the network, a queue, or a clock,
// so it is tested with plain unit tests and no fakes.
package routing

import (
	"crypto/md5"
	"hash/crc32"

	"github.com/oriys/cherami-client-go/types"
)

// ConnectionKey returns the canonical "{host}:{port}" key used to index a
// WorkerPool. It is a thin wrapper over types.HostAddress.ConnectionKey so
// callers that only have the pieces (not a HostAddress) can still use it.
func ConnectionKey(host string, port int) string {
	return types.HostAddress{Host: host, Port: port}.ConnectionKey()
}

// CalcCRC32 computes the IEEE CRC32 of data. Go's crc32.ChecksumIEEE
// already returns an unsigned uint32, so unlike the Python reference
// (zlib.crc32() & 0xffffffff) no masking workaround is needed here.
func CalcCRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// CalcMD5 computes the raw 16-byte MD5 digest of data.
func CalcMD5(data []byte) [16]byte {
	return md5.Sum(data)
}

// StampChecksum mutates msg in place, setting exactly one checksum field
// according to option. ChecksumNone (or any unrecognized option) leaves
// the message with neither field set, matching spec.md §4.1: "any other
// option produces no checksum."
func StampChecksum(msg *types.PutMessage, option types.ChecksumOption) {
	switch option {
	case types.ChecksumCRC32IEEE:
		msg.CRC32Checksum = CalcCRC32(msg.Data)
		msg.HasCRC32 = true
	case types.ChecksumMD5:
		msg.MD5Checksum = CalcMD5(msg.Data)
		msg.HasMD5 = true
	}
}

// VerifyChecksum recomputes whichever checksum field is present on payload
// and compares it against the data. Returns true when there is no checksum
// field to check (no claim is being made) and when the payload has no data,
// matching spec.md §4.8.
func VerifyChecksum(payload types.MessagePayload) bool {
	if len(payload.Data) == 0 {
		return true
	}
	if payload.HasCRC32 {
		return CalcCRC32(payload.Data) == payload.CRC32Checksum
	}
	if payload.HasMD5 {
		return CalcMD5(payload.Data) == payload.MD5Checksum
	}
	return true
}

// HostSetDiff computes the set-difference both ways between the currently
// fanned-out connection keys and the desired set, returning disjoint
// to-add / to-remove sets.
func HostSetDiff(current, desired map[string]struct{}) (toAdd, toRemove []string) {
	for key := range desired {
		if _, ok := current[key]; !ok {
			toAdd = append(toAdd, key)
		}
	}
	for key := range current {
		if _, ok := desired[key]; !ok {
			toRemove = append(toRemove, key)
		}
	}
	return toAdd, toRemove
}

// KeySet converts a slice of connection keys into a set for use with
// HostSetDiff.
func KeySet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
