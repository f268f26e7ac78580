/*
DESCRIPTION
  varint_test.go provides testing for the integer encodings found in
  varint.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package varint

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// bitSource is a minimal, test-only implementation of Reader backed by an
// in-memory bit buffer, independent of container/blackbox.ByteStream so
// that this package's tests don't need to import its parent.
type bitSource struct {
	bits []byte // one bit per slice element, MSB-first within each byte already expanded
	pos  int
}

func newBitSource(bits []byte) *bitSource { return &bitSource{bits: bits} }

func (s *bitSource) ReadBits(n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		if s.pos >= len(s.bits) {
			return 0, errUnexpectedEOF
		}
		v = v<<1 | uint32(s.bits[s.pos])
		s.pos++
	}
	return v, nil
}

func (s *bitSource) ReadByte() (byte, error) {
	v, err := s.ReadBits(8)
	return byte(v), err
}

var errUnexpectedEOF = errOf("varint test: unexpected EOF")

type errString string

func (e errString) Error() string { return string(e) }
func errOf(s string) error        { return errString(s) }

// bitsOfBytes expands a byte slice into one-bit-per-element form, MSB first.
func bitsOfBytes(bs ...byte) []byte {
	out := make([]byte, 0, len(bs)*8)
	for _, b := range bs {
		for i := 7; i >= 0; i-- {
			out = append(out, (b>>uint(i))&1)
		}
	}
	return out
}

func TestDecodeUnsignedVB(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want uint64
	}{
		{"single byte", bitsOfBytes(0x01), 1},
		{"max single byte", bitsOfBytes(0x7f), 0x7f},
		{"two bytes", bitsOfBytes(0x80|0x01, 0x01), 0x81},
		{"zero", bitsOfBytes(0x00), 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := DecodeUnsignedVB(newBitSource(c.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Errorf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestDecodeSignedVBZigZag(t *testing.T) {
	// Zig-zag domain: 0->0, 1->-1, 2->1, 3->-2, 4->2.
	cases := []struct {
		in   byte
		want int64
	}{
		{0x00, 0},
		{0x01, -1},
		{0x02, 1},
		{0x03, -2},
		{0x04, 2},
	}
	for _, c := range cases {
		got, err := DecodeSignedVB(newBitSource(bitsOfBytes(c.in)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != c.want {
			t.Errorf("DecodeSignedVB(%#x) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestDecodeNeg14Bit(t *testing.T) {
	// 14 bits little-endian: lo byte then 6 bits of hi.
	// Value -1 as 14-bit two's complement is 0x3FFF -> lo=0xFF, hi=0x3F.
	got, err := DecodeNeg14Bit(newBitSource(bitsOfBytes(0xFF, 0x3F)))
	if err != nil {
		t.Fatal(err)
	}
	if got != -1 {
		t.Errorf("got %d, want -1", got)
	}

	// Value 100 fits without sign bit set: lo=100, hi=0.
	got, err = DecodeNeg14Bit(newBitSource(bitsOfBytes(100, 0x00)))
	if err != nil {
		t.Fatal(err)
	}
	if got != 100 {
		t.Errorf("got %d, want 100", got)
	}
}

func TestDecodeTag8_8SVB(t *testing.T) {
	// Header 0b00000101 -> fields 0 and 2 present, rest zero.
	header := byte(0x05)
	field0 := byte(0x02) // zig-zag -> 1
	field2 := byte(0x04) // zig-zag -> 2
	src := newBitSource(bitsOfBytes(header, field0, field2))
	got, err := DecodeTag8_8SVB(src, 8)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{1, 0, 2, 0, 0, 0, 0, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeTag8_8SVBPartialCount(t *testing.T) {
	header := byte(0x01)
	field0 := byte(0x02)
	got, err := DecodeTag8_8SVB(newBitSource(bitsOfBytes(header, field0)), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got length %d, want 3", len(got))
	}
	if got[0] != 1 || got[1] != 0 || got[2] != 0 {
		t.Errorf("got %v", got)
	}
}

func TestDecodeTag2_3S32(t *testing.T) {
	t.Run("2-bit fields", func(t *testing.T) {
		// selector 00, fields -1,1,-2 as 2-bit two's complement: 0b11, 0b01, 0b10
		lead := byte(0b00_11_01_10)
		got, err := DecodeTag2_3S32(newBitSource(bitsOfBytes(lead)))
		if err != nil {
			t.Fatal(err)
		}
		want := [3]int64{-1, 1, -2}
		if got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("32-bit fields", func(t *testing.T) {
		// selector 11, each sub-selector 3 (32-bit) for value[0] only, 0 for others.
		lead := byte(0b11_11_00_00)
		got, err := DecodeTag2_3S32(newBitSource(bitsOfBytes(lead, 0xFF, 0xFF, 0xFF, 0xFF)))
		if err != nil {
			t.Fatal(err)
		}
		want := [3]int64{-1, 0, 0}
		if got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestDecodeTag8_4S16(t *testing.T) {
	// selectors (LSB first, 2 bits each): value0=2(8bit), value1=0, value2=3(16bit), value3=0
	header := byte(0b00_11_00_10)
	v0 := byte(0xFF)       // 8-bit -1
	v2lo, v2hi := byte(0x02), byte(0x00) // 16-bit +2
	got, err := DecodeTag8_4S16(newBitSource(bitsOfBytes(header, v0, v2lo, v2hi)))
	if err != nil {
		t.Fatal(err)
	}
	want := [4]int64{-1, 0, 2, 0}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDecodeNull(t *testing.T) {
	if DecodeNull() != 0 {
		t.Error("DecodeNull must always be 0")
	}
}

func TestEliasDeltaRoundTrip(t *testing.T) {
	for _, want := range []uint64{1, 2, 3, 4, 7, 8, 255, 256, 1000, 1 << 20} {
		bits := encodeEliasDelta(want)
		got, err := DecodeEliasDeltaBits(newBitSource(bits))
		if err != nil {
			t.Fatalf("N=%d: %v", want, err)
		}
		if got != want {
			t.Errorf("N=%d: got %d", want, got)
		}
	}
}

func TestEliasDeltaU32RoundTrip(t *testing.T) {
	for _, want := range []uint32{0, 1, 2, 100, 65535} {
		bits := encodeEliasDelta(uint64(want) + 1)
		got, err := DecodeEliasDeltaU32(newBitSource(bits))
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("want %d, got %d", want, got)
		}
	}
}

func TestEliasDeltaS32RoundTrip(t *testing.T) {
	for _, want := range []int64{0, -1, 1, -2, 1000, -1000} {
		zz := uint64(want<<1) ^ uint64(want>>63)
		bits := encodeEliasDelta(zz + 1)
		got, err := DecodeEliasDeltaS32(newBitSource(bits))
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("want %d, got %d", want, got)
		}
	}
}

// encodeEliasDelta is a test-only encoder mirroring the canonical algorithm,
// used solely to generate bit streams that DecodeEliasDeltaBits must invert.
func encodeEliasDelta(n uint64) []byte {
	if n < 1 {
		panic("elias-delta requires n >= 1")
	}
	l := bitLength(n)
	lb := bitLength(uint64(l))

	var bits []byte
	for i := 0; i < lb-1; i++ {
		bits = append(bits, 0)
	}
	for i := lb - 1; i >= 0; i-- {
		bits = append(bits, byte((l>>uint(i))&1))
	}
	for i := l - 2; i >= 0; i-- {
		bits = append(bits, byte((n>>uint(i))&1))
	}
	return bits
}

func bitLength(n uint64) int {
	l := 0
	for n > 0 {
		l++
		n >>= 1
	}
	return l
}
