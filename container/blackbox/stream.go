/*
NAME
  stream.go - a lazy byte/bit cursor over an in-memory Blackbox log region.

DESCRIPTION
  See Readme.md

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package blackbox

import "github.com/pkg/errors"

// ErrEndOfStream is returned by any read that would cross the end of the
// mapped region. It is the only error a caller should expect at a clean
// session or file boundary.
var ErrEndOfStream = errors.New("blackbox: end of stream")

// ByteStream is a forward cursor over a byte slice with single-byte peek,
// multi-byte little-endian reads, bit-level reads, and mark/rewind support
// for resynchronization. It has no goroutine safety of its own; see the
// package-level concurrency note in session.go.
type ByteStream struct {
	data []byte
	pos  int

	bitBuf   uint64
	bitCount uint
}

// NewByteStream wraps data (the "mapped region" of spec.md §4.1) in a
// ByteStream. data is not copied; the caller must not mutate it while the
// stream is in use.
func NewByteStream(data []byte) *ByteStream {
	return &ByteStream{data: data}
}

// Pos returns the current byte offset into the underlying region. It is
// equivalent to Mark, provided as a more readable name for diagnostics.
func (s *ByteStream) Pos() int { return s.pos }

// Len returns the total length of the underlying region.
func (s *ByteStream) Len() int { return len(s.data) }

// EOF reports whether the cursor has reached the end of the region.
func (s *ByteStream) EOF() bool { return s.pos >= len(s.data) }

// Peek returns the next byte without consuming it.
func (s *ByteStream) Peek() (byte, error) {
	if s.pos >= len(s.data) {
		return 0, ErrEndOfStream
	}
	return s.data[s.pos], nil
}

// ReadByte implements io.ByteReader and varint.Reader. Bit-level reads must
// not be in progress (not byte aligned) when this is called; it reads the
// next whole byte and ignores any bits left in the bit buffer. Callers of
// ByteStream are expected to only interleave ReadBits with byte reads at
// byte boundaries, as spec.md §4.1 requires of its users.
func (s *ByteStream) ReadByte() (byte, error) {
	if s.pos >= len(s.data) {
		return 0, ErrEndOfStream
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// ReadU16LE reads a little-endian unsigned 16-bit integer.
func (s *ByteStream) ReadU16LE() (uint16, error) {
	if s.pos+2 > len(s.data) {
		return 0, ErrEndOfStream
	}
	v := uint16(s.data[s.pos]) | uint16(s.data[s.pos+1])<<8
	s.pos += 2
	return v, nil
}

// ReadS16LE reads a little-endian signed 16-bit integer.
func (s *ByteStream) ReadS16LE() (int16, error) {
	v, err := s.ReadU16LE()
	return int16(v), err
}

// ReadU32LE reads a little-endian unsigned 32-bit integer.
func (s *ByteStream) ReadU32LE() (uint32, error) {
	if s.pos+4 > len(s.data) {
		return 0, ErrEndOfStream
	}
	v := uint32(s.data[s.pos]) | uint32(s.data[s.pos+1])<<8 |
		uint32(s.data[s.pos+2])<<16 | uint32(s.data[s.pos+3])<<24
	s.pos += 4
	return v, nil
}

// ReadBits reads n bits (1 <= n <= 32), MSB first, maintaining an internal
// bit buffer that is refilled a byte at a time from the underlying region.
// Callers must only interleave ReadBits calls with byte-oriented reads when
// the bit buffer is empty (ByteAligned returns true); the frame decoder
// guarantees this.
func (s *ByteStream) ReadBits(n int) (uint32, error) {
	if n < 1 || n > 32 {
		return 0, errors.Errorf("blackbox: ReadBits(%d) out of range", n)
	}
	for s.bitCount < uint(n) {
		if s.pos >= len(s.data) {
			return 0, ErrEndOfStream
		}
		s.bitBuf = s.bitBuf<<8 | uint64(s.data[s.pos])
		s.pos++
		s.bitCount += 8
	}
	shift := s.bitCount - uint(n)
	v := uint32((s.bitBuf >> shift) & ((1 << uint(n)) - 1))
	s.bitCount -= uint(n)
	return v, nil
}

// ByteAligned reports whether the bit buffer is empty, i.e. the next read
// may safely be byte-oriented.
func (s *ByteStream) ByteAligned() bool { return s.bitCount == 0 }

// align discards any partially-consumed bit buffer so that the next read is
// byte-oriented. It is used when a frame transitions from a bit-packed
// group encoding back to byte encodings without having consumed a whole
// number of bytes (which should not normally happen for well-formed
// frames, but guards against a corrupt one looping forever).
func (s *ByteStream) align() {
	s.bitBuf = 0
	s.bitCount = 0
}

// Mark returns an opaque cursor position that can later be passed to
// Rewind to back the stream up, e.g. after a frame fails validation.
func (s *ByteStream) Mark() int { return s.pos }

// Rewind resets the cursor to a position previously returned by Mark and
// clears any partially-read bit buffer.
func (s *ByteStream) Rewind(mark int) {
	s.pos = mark
	s.align()
}

// Since returns the number of bytes consumed since mark.
func (s *ByteStream) Since(mark int) int { return s.pos - mark }

// Slice returns the underlying bytes between two cursor positions, without
// copying. Used by FrameDecoder to fill Frame.Raw in raw mode.
func (s *ByteStream) Slice(from, to int) []byte { return s.data[from:to] }
