/*
DESCRIPTION
  session_test.go provides testing for log file and session handling
  found in session.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package blackbox

import (
	"bytes"
	"testing"
)

func buildMinimalLog(extra ...[]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(LogStartSentinel + "\n")
	buf.WriteString("H Firmware type:Betaflight\n")
	buf.WriteString("H Field I name:loopIteration,time\n")
	buf.WriteString("H Field I signed:0,0\n")
	buf.WriteString("H Field I predictor:0,0\n")
	buf.WriteString("H Field I encoding:1,1\n")
	buf.WriteString("H Field P name:loopIteration,time\n")
	buf.WriteString("H Field P signed:0,0\n")
	buf.WriteString("H Field P predictor:6,10\n")
	buf.WriteString("H Field P encoding:0,0\n")
	for _, e := range extra {
		buf.Write(e)
	}
	return buf.Bytes()
}

func TestLogFileNoSessions(t *testing.T) {
	lf, err := Open([]byte("not a blackbox log at all"))
	if err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	if lf.SessionCount() != 0 {
		t.Errorf("SessionCount = %d, want 0", lf.SessionCount())
	}
	if _, err := lf.Session(0); err == nil {
		t.Errorf("Session(0) on an empty file: expected an error")
	}
}

func TestLogFileSingleSession(t *testing.T) {
	var iFrame []byte
	iFrame = append(iFrame, 'I')
	iFrame = append(iFrame, unsignedVB(0)...)
	iFrame = append(iFrame, unsignedVB(1000)...)

	var pFrame []byte
	pFrame = append(pFrame, 'P')
	pFrame = append(pFrame, signedVB(0)...)
	pFrame = append(pFrame, signedVB(500)...)

	data := buildMinimalLog(iFrame, pFrame)

	lf, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if lf.SessionCount() != 1 {
		t.Fatalf("SessionCount = %d, want 1", lf.SessionCount())
	}

	session, err := lf.Session(0)
	if err != nil {
		t.Fatalf("Session(0): %v", err)
	}
	if session.Config().Firmware != FirmwareBetaflight {
		t.Errorf("Firmware = %v, want Betaflight", session.Config().Firmware)
	}

	var kinds []FrameKind
	err = session.Parse(func(f Frame) error {
		kinds = append(kinds, f.Kind)
		return nil
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != FrameIntra || kinds[1] != FramePredicted {
		t.Errorf("decoded kinds = %v, want [I P]", kinds)
	}

	stats := session.Statistics()
	if stats.Frames.ValidCount[FrameIntra] != 1 || stats.Frames.ValidCount[FramePredicted] != 1 {
		t.Errorf("ValidCount = %+v, want 1 each of I and P", stats.Frames.ValidCount)
	}
	if len(stats.Frames.DesyncCount) != 0 || len(stats.Frames.CorruptCount) != 0 {
		t.Errorf("expected no desync/corrupt frames, got %+v", stats.Frames)
	}
}

func TestLogFileTwoSessions(t *testing.T) {
	var iFrame []byte
	iFrame = append(iFrame, 'I')
	iFrame = append(iFrame, unsignedVB(0)...)
	iFrame = append(iFrame, unsignedVB(1000)...)

	session1 := buildMinimalLog(iFrame)
	session2 := buildMinimalLog(iFrame)

	data := append(append([]byte{}, session1...), session2...)

	lf, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if lf.SessionCount() != 2 {
		t.Fatalf("SessionCount = %d, want 2", lf.SessionCount())
	}

	for i := 0; i < 2; i++ {
		session, err := lf.Session(i)
		if err != nil {
			t.Fatalf("Session(%d): %v", i, err)
		}
		var count int
		if err := session.Parse(func(Frame) error { count++; return nil }); err != nil {
			t.Fatalf("Parse session %d: %v", i, err)
		}
		if count != 1 {
			t.Errorf("session %d decoded %d frames, want 1", i, count)
		}
	}
}

func TestLogFileCancel(t *testing.T) {
	var iFrame []byte
	iFrame = append(iFrame, 'I')
	iFrame = append(iFrame, unsignedVB(0)...)
	iFrame = append(iFrame, unsignedVB(1000)...)
	var pFrame []byte
	pFrame = append(pFrame, 'P')
	pFrame = append(pFrame, signedVB(0)...)
	pFrame = append(pFrame, signedVB(500)...)

	data := buildMinimalLog(iFrame, pFrame)
	cancelled := false
	lf, err := Open(data, WithCancel(func() bool { return cancelled }))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	session, err := lf.Session(0)
	if err != nil {
		t.Fatalf("Session(0): %v", err)
	}

	var count int
	err = session.Parse(func(Frame) error {
		count++
		cancelled = true
		return nil
	})
	if err != ErrCancelled {
		t.Fatalf("Parse: err = %v, want ErrCancelled", err)
	}
	if count != 1 {
		t.Errorf("decoded %d frames before cancel, want 1", count)
	}
}
