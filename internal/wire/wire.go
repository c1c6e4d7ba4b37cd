// Package wire frames cache entries for byte-store transport. The frame
// carries the expiry metadata a plain byte store cannot keep, so lazy
// expiry holds even on backends without per-entry TTL.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version   byte = 1
	kindEntry byte = 1
)

var (
	ErrCorrupt = errors.New("wire: corrupt entry")
	magic4     = [...]byte{'E', 'X', 'C', 'A'}
)

// Frame is one cache entry on the wire.
type Frame struct {
	CreatedAt time.Time
	ExpiresAt time.Time // zero => never expires
	Payload   []byte
}

// Expired reports whether the frame's deadline has passed. The boundary
// is inclusive: ExpiresAt == now is expired.
func (f Frame) Expired(now time.Time) bool {
	return !f.ExpiresAt.IsZero() && !f.ExpiresAt.After(now)
}

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Layout: magic(4) | ver(1) | kind(1) | created(u64 be, unix nanos) |
// expires(u64 be, unix nanos; 0 = never) | vlen(u32 be) | payload(vlen)
func EncodeEntry(f Frame) []byte {
	var buf bytes.Buffer
	buf.Grow(4 + 1 + 1 + 8 + 8 + 4 + len(f.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], uint64(f.CreatedAt.UnixNano()))
	buf.Write(u8[:])

	var exp uint64
	if !f.ExpiresAt.IsZero() {
		exp = uint64(f.ExpiresAt.UnixNano())
	}
	binary.BigEndian.PutUint64(u8[:], exp)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(f.Payload)))
	buf.Write(u4[:])

	buf.Write(f.Payload)
	return buf.Bytes()
}

func DecodeEntry(b []byte) (Frame, error) {
	const hdr = 4 + 1 + 1 + 8 + 8 + 4
	if len(b) < hdr || !hasMagic(b) || b[4] != version || b[5] != kindEntry {
		return Frame{}, ErrCorrupt
	}

	off := 6

	created := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8

	exp := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	// Exact-length check: short buffers and trailing garbage are both
	// corrupt, never a best-effort decode. Overflow-safe on 32-bit.
	if vlen < 0 || vlen != len(b)-off {
		return Frame{}, ErrCorrupt
	}

	f := Frame{
		CreatedAt: time.Unix(0, created),
		Payload:   b[off : off+vlen],
	}
	if exp != 0 {
		f.ExpiresAt = time.Unix(0, int64(exp))
	}
	return f, nil
}
