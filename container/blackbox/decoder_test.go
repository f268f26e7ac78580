/*
DESCRIPTION
  decoder_test.go provides testing for the frame decoding state machine
  found in decoder.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package blackbox

import "testing"

// buildDecoder constructs a FrameDecoder for a minimal two-field (loop
// iteration, time) main-frame schema: I frames store both fields as plain
// UnsignedVB with no prediction, P frames predict iteration via INCREMENT
// and time via LAST_MAIN_FRAME_TIME, both encoded as SignedVB residuals.
func buildDecoder(t *testing.T) *FrameDecoder {
	t.Helper()
	hp := NewHeaderParser(nil)
	lines := []string{
		"Field I name:loopIteration,time",
		"Field I signed:0,0",
		"Field I predictor:0,0",
		"Field I encoding:1,1",
		"Field P name:loopIteration,time",
		"Field P signed:0,0",
		"Field P predictor:6,10",
		"Field P encoding:0,0",
	}
	for _, l := range lines {
		if err := hp.ParseLine(l); err != nil {
			t.Fatalf("ParseLine(%q): %v", l, err)
		}
	}
	c := defaultConfig()
	return newFrameDecoder(hp, c)
}

// unsignedVB encodes v using the byte-wise variable-length scheme.
func unsignedVB(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			return out
		}
	}
}

// signedVB encodes v using zig-zag followed by unsignedVB.
func signedVB(v int64) []byte {
	u := uint64(v<<1) ^ uint64(v>>63)
	return unsignedVB(u)
}

func TestFrameDecoderIFrame(t *testing.T) {
	fd := buildDecoder(t)

	var data []byte
	data = append(data, 'I')
	data = append(data, unsignedVB(0)...)
	data = append(data, unsignedVB(1000)...)

	r := NewByteStream(data)
	f, err := fd.Next(r)
	if err != nil {
		t.Fatalf("Next: unexpected error: %v", err)
	}
	if f.Kind != FrameIntra {
		t.Errorf("Kind = %v, want FrameIntra", f.Kind)
	}
	if got := f.Values; len(got) != 2 || got[0] != 0 || got[1] != 1000 {
		t.Errorf("Values = %v, want [0 1000]", got)
	}
	if f.Approximate {
		t.Errorf("Approximate = true for a self-contained I frame")
	}
}

func TestFrameDecoderPFrameIncrementAndTime(t *testing.T) {
	fd := buildDecoder(t)

	var data []byte
	data = append(data, 'I')
	data = append(data, unsignedVB(0)...)
	data = append(data, unsignedVB(1000)...)
	data = append(data, 'P')
	data = append(data, signedVB(0)...)   // iteration residual: baseline 0+1+0=1
	data = append(data, signedVB(500)...) // time residual: baseline 1000 + 500 = 1500

	r := NewByteStream(data)
	if _, err := fd.Next(r); err != nil {
		t.Fatalf("decoding I frame: %v", err)
	}
	f, err := fd.Next(r)
	if err != nil {
		t.Fatalf("decoding P frame: %v", err)
	}
	if f.Kind != FramePredicted {
		t.Errorf("Kind = %v, want FramePredicted", f.Kind)
	}
	if f.Values[0] != 1 {
		t.Errorf("loopIteration = %d, want 1", f.Values[0])
	}
	if f.Values[1] != 1500 {
		t.Errorf("time = %d, want 1500", f.Values[1])
	}
}

func TestFrameDecoderOrphanPFrameRejected(t *testing.T) {
	fd := buildDecoder(t)

	var data []byte
	data = append(data, 'P')
	data = append(data, signedVB(0)...)
	data = append(data, signedVB(0)...)

	r := NewByteStream(data)
	_, err := fd.Next(r)
	if err == nil {
		t.Fatalf("expected an error decoding an orphan P frame")
	}
}

func TestFrameDecoderUnknownFrameTypeAndResync(t *testing.T) {
	fd := buildDecoder(t)

	var data []byte
	data = append(data, 'Q') // unrecognized type byte
	data = append(data, 'I')
	data = append(data, unsignedVB(0)...)
	data = append(data, unsignedVB(1000)...)

	r := NewByteStream(data)
	_, err := fd.Next(r)
	if err == nil {
		t.Fatalf("expected an error for an unrecognized frame type byte")
	}
	if !fd.Resync(r) {
		t.Fatalf("Resync: expected to find the following I frame")
	}
	f, err := fd.Next(r)
	if err != nil {
		t.Fatalf("Next after resync: %v", err)
	}
	if f.Kind != FrameIntra {
		t.Errorf("Kind after resync = %v, want FrameIntra", f.Kind)
	}
}

func TestFrameDecoderTimeRollover(t *testing.T) {
	fd := buildDecoder(t)

	var data []byte
	data = append(data, 'I')
	data = append(data, unsignedVB(0)...)
	data = append(data, unsignedVB(4294967000)...)

	r := NewByteStream(data)
	if _, err := fd.Next(r); err != nil {
		t.Fatalf("decoding I frame: %v", err)
	}

	// A second I frame (predictor NONE on both fields) whose raw time value
	// has wrapped past 2^32 down to 204 should be accepted as rollover, not
	// rejected as a desync, and should report a continuous absolute time
	// (4294967000 + 500 == 4294967500, which wraps to 204 as a raw uint32).
	var data2 []byte
	data2 = append(data2, 'I')
	data2 = append(data2, unsignedVB(1)...)
	data2 = append(data2, unsignedVB(204)...)
	r2 := NewByteStream(data2)
	f, err := fd.Next(r2)
	if err != nil {
		t.Fatalf("decoding rolled-over I frame: %v", err)
	}
	want := int64(4294967500)
	if f.Values[1] != want {
		t.Errorf("absolute time after rollover = %d, want %d", f.Values[1], want)
	}
}
