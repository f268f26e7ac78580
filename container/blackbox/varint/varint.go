/*
NAME
  varint.go - decoders for the variable-length integer encodings used by
  the Blackbox frame format.

DESCRIPTION
  See Readme.md

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package varint provides pure decoders for the nine field encodings used by
// the Blackbox flight-log frame format: plain and zig-zag variable-length
// bytes, a 14-bit negative form, three bit-packed tag-prefixed groups, and
// unsigned/signed Elias-delta codes. None of the decoders retain state
// between calls; all state lives in the Reader the caller supplies.
package varint

import "github.com/pkg/errors"

// Encoding identifies one of the nine wire encodings a field column may use.
// Values match the tag numbers used internally by Blackbox-producing
// firmwares; tags 2, 4 and 5 are reserved and never appear in a
// FrameDefinition.
type Encoding int

const (
	SignedVB      Encoding = 0  // byte-wise variable length, zig-zag signed
	UnsignedVB    Encoding = 1  // byte-wise variable length, unsigned
	Neg14Bit      Encoding = 3  // 14-bit little-endian, sign extended
	Tag8_8SVB     Encoding = 6  // one tag byte selects 8 optional SIGNED_VB fields
	Tag2_3S32     Encoding = 7  // 2-bit header selects width class for 3 signed values
	Tag8_4S16     Encoding = 8  // 8-bit header selects per-value width for 4 signed values
	Null          Encoding = 9  // zero fields consumed, decodes to 0
	EliasDeltaU32 Encoding = 10 // unsigned Elias-delta code
	EliasDeltaS32 Encoding = 11 // signed Elias-delta code via zig-zag
)

// Reader is the minimal byte/bit source the decoders in this package need.
// container/blackbox.ByteStream satisfies this interface.
type Reader interface {
	ReadByte() (byte, error)
	ReadBits(n int) (uint32, error)
}

// Errors returned by the decoders in this package.
var (
	// ErrOverflow is returned when a variable-length value would need more
	// than 64 bits to represent, which can only happen against corrupt or
	// truncated input.
	ErrOverflow = errors.New("varint: value overflows 64 bits")
)

// zigZagDecode maps the non-negative wire value back to a signed one:
// 0,1,2,3,4 -> 0,-1,1,-2,2 ...
func zigZagDecode(u uint64) int64 {
	return int64(u>>1) ^ -(int64(u) & 1)
}

// DecodeUnsignedVB reads a byte-wise variable-length unsigned integer: the
// low 7 bits of each byte are payload, LSB-first, and the high bit marks
// continuation.
func DecodeUnsignedVB(r Reader) (uint64, error) {
	var result uint64
	for shift := uint(0); shift < 64; shift += 7 {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, ErrOverflow
}

// DecodeSignedVB is DecodeUnsignedVB followed by zig-zag decoding.
func DecodeSignedVB(r Reader) (int64, error) {
	u, err := DecodeUnsignedVB(r)
	if err != nil {
		return 0, err
	}
	return zigZagDecode(u), nil
}

// signExtend returns the value of the low n bits of v, interpreted as a
// two's-complement signed integer of width n.
func signExtend(v uint32, n uint) int64 {
	shift := 32 - n
	return int64(int32(v<<shift) >> shift)
}

// DecodeNeg14Bit reads 14 bits, little-endian (a low byte, then the low 6
// bits of a second byte), and sign extends a negative result.
func DecodeNeg14Bit(r Reader) (int64, error) {
	lo, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	hi, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	v := uint32(lo) | uint32(hi&0x3f)<<8
	return signExtend(v, 14), nil
}

// DecodeTag8_8SVB decodes up to 8 signed values in one go: a tag byte is
// read first, and each of its bits (LSB first) indicates whether the
// corresponding value follows as a SIGNED_VB (1) or is absent, i.e. zero
// (0). count must be between 1 and 8; it is used when fewer than 8 field
// columns remain in the frame.
func DecodeTag8_8SVB(r Reader, count int) ([]int64, error) {
	if count < 1 || count > 8 {
		return nil, errors.Errorf("varint: TAG8_8SVB count %d out of range", count)
	}
	header, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	out := make([]int64, count)
	for i := 0; i < count; i++ {
		if header&(1<<uint(i)) != 0 {
			v, err := DecodeSignedVB(r)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
	}
	return out, nil
}

// DecodeTag2_3S32 decodes 3 signed values packed behind a 2-bit width
// selector in the top bits of a leading byte. The selector chooses between
// 2, 4 or 6-bit fields packed three to a group, or (selector 3) an
// independent 2-bit width class per value allowing 0/8/16/32-bit fields.
func DecodeTag2_3S32(r Reader) ([3]int64, error) {
	var out [3]int64
	lead, err := r.ReadByte()
	if err != nil {
		return out, err
	}
	switch lead >> 6 {
	case 0: // three 2-bit fields packed into the low 6 bits.
		out[0] = signExtend(uint32(lead>>4)&0x03, 2)
		out[1] = signExtend(uint32(lead>>2)&0x03, 2)
		out[2] = signExtend(uint32(lead)&0x03, 2)
	case 1: // two 4-bit fields in the low nibble of lead, then a second byte.
		out[0] = signExtend(uint32(lead)&0x0f, 4)
		b, err := r.ReadByte()
		if err != nil {
			return out, err
		}
		out[1] = signExtend(uint32(b>>4), 4)
		out[2] = signExtend(uint32(b)&0x0f, 4)
	case 2: // three 6-bit fields, one byte each (low 6 bits of lead, then two more bytes).
		out[0] = signExtend(uint32(lead)&0x3f, 6)
		for i := 1; i < 3; i++ {
			b, err := r.ReadByte()
			if err != nil {
				return out, err
			}
			out[i] = signExtend(uint32(b)&0x3f, 6)
		}
	case 3: // per-value width selector (0/8/16/32 bits), selectors packed in low 6 bits of lead.
		selectors := [3]uint8{(lead >> 4) & 0x03, (lead >> 2) & 0x03, lead & 0x03}
		for i, sel := range selectors {
			v, err := decodeWidthSelected32(r, sel)
			if err != nil {
				return out, err
			}
			out[i] = v
		}
	}
	return out, nil
}

// decodeWidthSelected32 reads a little-endian signed value whose width is
// chosen by a 2-bit selector: 0 -> absent (0), 1 -> 8 bits, 2 -> 16 bits,
// 3 -> 32 bits.
func decodeWidthSelected32(r Reader, sel uint8) (int64, error) {
	switch sel {
	case 0:
		return 0, nil
	case 1:
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return signExtend(uint32(b), 8), nil
	case 2:
		b0, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		b1, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return signExtend(uint32(b0)|uint32(b1)<<8, 16), nil
	default: // 3: 32 bits, low byte first.
		var v uint32
		for i := uint(0); i < 4; i++ {
			b, err := r.ReadByte()
			if err != nil {
				return 0, err
			}
			v |= uint32(b) << (8 * i)
		}
		return int64(int32(v)), nil
	}
}

// DecodeTag8_4S16 decodes 4 signed values behind an 8-bit header in which
// each 2-bit field (LSB first, 2 bits per value) selects a width: 0 -> 0
// bits (value is 0), 1 -> 4 bits, 2 -> 8 bits, 3 -> 16 bits. 4-bit values
// are packed two to a byte.
func DecodeTag8_4S16(r Reader) ([4]int64, error) {
	var out [4]int64
	header, err := r.ReadByte()
	if err != nil {
		return out, err
	}
	var pendingNibble *uint8
	for i := 0; i < 4; i++ {
		sel := (header >> uint(i*2)) & 0x03
		switch sel {
		case 0:
			out[i] = 0
		case 1:
			if pendingNibble != nil {
				out[i] = signExtend(uint32(*pendingNibble)&0x0f, 4)
				pendingNibble = nil
				continue
			}
			b, err := r.ReadByte()
			if err != nil {
				return out, err
			}
			out[i] = signExtend(uint32(b>>4), 4)
			low := b & 0x0f
			pendingNibble = &low
		case 2:
			b, err := r.ReadByte()
			if err != nil {
				return out, err
			}
			out[i] = signExtend(uint32(b), 8)
		case 3:
			b0, err := r.ReadByte()
			if err != nil {
				return out, err
			}
			b1, err := r.ReadByte()
			if err != nil {
				return out, err
			}
			out[i] = signExtend(uint32(b0)|uint32(b1)<<8, 16)
		}
	}
	return out, nil
}

// DecodeNull consumes nothing and always decodes to 0. It exists so that
// NULL appears alongside the other encodings in dispatch tables.
func DecodeNull() int64 { return 0 }

// DecodeEliasDeltaBits reads one canonical Elias-delta coded positive
// integer (N >= 1) from the bit stream: a unary-coded length-of-length
// prefix, the length field itself, then the value's low bits.
func DecodeEliasDeltaBits(r Reader) (uint64, error) {
	var zeros int
	for {
		b, err := r.ReadBits(1)
		if err != nil {
			return 0, err
		}
		if b == 1 {
			break
		}
		zeros++
		if zeros > 31 {
			return 0, ErrOverflow
		}
	}
	length := uint64(1) << uint(zeros)
	if zeros > 0 {
		bits, err := r.ReadBits(zeros)
		if err != nil {
			return 0, err
		}
		length |= uint64(bits)
	}
	if length-1 > 62 {
		return 0, ErrOverflow
	}
	n := uint64(1) << uint(length-1)
	if length > 1 {
		bits, err := r.ReadBits(int(length - 1))
		if err != nil {
			return 0, err
		}
		n |= uint64(bits)
	}
	return n, nil
}

// DecodeEliasDeltaU32 decodes an unsigned Elias-delta value, shifting the
// canonical (>=1) domain down by one so that 0 is representable.
func DecodeEliasDeltaU32(r Reader) (uint32, error) {
	n, err := DecodeEliasDeltaBits(r)
	if err != nil {
		return 0, err
	}
	return uint32(n - 1), nil
}

// DecodeEliasDeltaS32 decodes a signed Elias-delta value: the same shifted
// unsigned domain, zig-zag decoded.
func DecodeEliasDeltaS32(r Reader) (int64, error) {
	n, err := DecodeEliasDeltaBits(r)
	if err != nil {
		return 0, err
	}
	return zigZagDecode(n - 1), nil
}
