/*
NAME
  events.go - decoding of 'E' event frames.

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

import (
	"math"

	"github.com/ausocean/blackbox/container/blackbox/varint"
)

// EventKind identifies the payload shape of an 'E' frame. Numbering matches
// the reference firmware's public FlightLogEvent enum
// (original_source/src/parser.h), not a value this package invents.
type EventKind int

const (
	EventSyncBeep            EventKind = 0
	EventAutotuneCycleResult EventKind = 11
	EventAutotuneTargets     EventKind = 12
	EventInflightAdjustment  EventKind = 13
	EventLoggingResume       EventKind = 14
	EventDisarm              EventKind = 15
	EventFlightMode          EventKind = 30
	EventLogEnd              EventKind = 255

	// EventUnknown is returned for any event byte not in the modeled subset
	// above; its Payload is nil, no payload bytes are kept, and the frame
	// decoder reports the frame as corrupt.
	EventUnknown EventKind = -1
)

// Event is a single decoded 'E' frame.
type Event struct {
	Kind    EventKind
	Payload interface{} // one of the *Payload types below, or nil
}

// SyncBeepPayload is the payload of an EventSyncBeep event: the main-frame
// time at which a sync beep was commanded.
type SyncBeepPayload struct {
	Time uint32
}

// DisarmPayload is the payload of an EventDisarm event.
type DisarmPayload struct {
	Reason uint32
}

// FlightModePayload is the payload of an EventFlightMode event: the
// current and previous flight-mode and state-flag bitmasks.
type FlightModePayload struct {
	Flags, LastFlags           uint32
	StateFlags, LastStateFlags uint32
}

// InflightAdjustmentPayload is the payload of an EventInflightAdjustment
// event: a pilot-triggered tuning change, either integer or float valued.
type InflightAdjustmentPayload struct {
	AdjustmentFunction uint8
	Float              bool
	IntValue           int32
	FloatValue         float32
}

// LoggingResumePayload is the payload of an EventLoggingResume event,
// marking where in the main-frame timeline logging picked back up after a
// pause.
type LoggingResumePayload struct {
	LogIteration uint32
	CurrentTime  uint32
}

// AutotuneCycleResultPayload is the payload of an EventAutotuneCycleResult
// event, reported once per autotune oscillation cycle.
type AutotuneCycleResultPayload struct {
	Overshot   bool
	TimedOut   bool
	Rising     bool
	DeltaAngle int16
	P, I, D    uint8
}

// AutotuneTargetsPayload is the payload of an EventAutotuneTargets event,
// reporting the angles autotune measured for one axis cycle.
type AutotuneTargetsPayload struct {
	CurrentAngle, TargetAngle                    int16
	TargetAngleAtPeak, FirstPeakAngle, SecondPeak int16
}

// decodeEvent reads one event's type byte and modeled payload from r. An
// unrecognized type byte yields EventUnknown with a nil payload; the
// caller cannot safely continue decoding the stream past an unmodeled
// event without knowing its length, so decodeEvent returning EventUnknown
// is a signal to the frame decoder that it should fall back to resync
// scanning rather than trust subsequent bytes (spec.md §4.6).
func decodeEvent(r *ByteStream) (Event, error) {
	typeByte, err := r.ReadByte()
	if err != nil {
		return Event{}, err
	}
	kind := EventKind(typeByte)

	switch kind {
	case EventAutotuneCycleResult:
		flags, err := r.ReadByte()
		if err != nil {
			return Event{}, err
		}
		delta, err := r.ReadS16LE()
		if err != nil {
			return Event{}, err
		}
		if _, err := r.ReadByte(); err != nil { // unused padding byte
			return Event{}, err
		}
		p, err := r.ReadByte()
		if err != nil {
			return Event{}, err
		}
		i, err := r.ReadByte()
		if err != nil {
			return Event{}, err
		}
		d, err := r.ReadByte()
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: kind, Payload: AutotuneCycleResultPayload{
			Overshot: flags&0x01 != 0, TimedOut: flags&0x02 != 0, Rising: flags&0x04 != 0,
			DeltaAngle: delta, P: p, I: i, D: d,
		}}, nil

	case EventAutotuneTargets:
		current, err := r.ReadS16LE()
		if err != nil {
			return Event{}, err
		}
		target, err := r.ReadS16LE()
		if err != nil {
			return Event{}, err
		}
		targetAtPeak, err := r.ReadS16LE()
		if err != nil {
			return Event{}, err
		}
		firstPeak, err := r.ReadS16LE()
		if err != nil {
			return Event{}, err
		}
		secondPeak, err := r.ReadS16LE()
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: kind, Payload: AutotuneTargetsPayload{
			CurrentAngle: current, TargetAngle: target, TargetAngleAtPeak: targetAtPeak,
			FirstPeakAngle: firstPeak, SecondPeak: secondPeak,
		}}, nil

	case EventSyncBeep:
		t, err := varint.DecodeUnsignedVB(r)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: kind, Payload: SyncBeepPayload{Time: uint32(t)}}, nil

	case EventDisarm:
		reason, err := varint.DecodeUnsignedVB(r)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: kind, Payload: DisarmPayload{Reason: uint32(reason)}}, nil

	case EventFlightMode:
		flags, err := r.ReadU32LE()
		if err != nil {
			return Event{}, err
		}
		lastFlags, err := r.ReadU32LE()
		if err != nil {
			return Event{}, err
		}
		state, err := r.ReadU32LE()
		if err != nil {
			return Event{}, err
		}
		lastState, err := r.ReadU32LE()
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: kind, Payload: FlightModePayload{
			Flags: flags, LastFlags: lastFlags,
			StateFlags: state, LastStateFlags: lastState,
		}}, nil

	case EventInflightAdjustment:
		fn, err := r.ReadByte()
		if err != nil {
			return Event{}, err
		}
		isFloat := fn&0x80 != 0
		fn &^= 0x80
		if isFloat {
			bits, err := r.ReadU32LE()
			if err != nil {
				return Event{}, err
			}
			return Event{Kind: kind, Payload: InflightAdjustmentPayload{
				AdjustmentFunction: fn, Float: true, FloatValue: math.Float32frombits(bits),
			}}, nil
		}
		v, err := varint.DecodeSignedVB(r)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: kind, Payload: InflightAdjustmentPayload{
			AdjustmentFunction: fn, IntValue: int32(v),
		}}, nil

	case EventLoggingResume:
		iter, err := varint.DecodeUnsignedVB(r)
		if err != nil {
			return Event{}, err
		}
		t, err := varint.DecodeUnsignedVB(r)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: kind, Payload: LoggingResumePayload{
			LogIteration: uint32(iter), CurrentTime: uint32(t),
		}}, nil

	case EventLogEnd:
		return Event{Kind: kind}, nil

	default:
		return Event{Kind: EventUnknown}, nil
	}
}

