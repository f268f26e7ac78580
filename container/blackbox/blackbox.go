/*
NAME
  blackbox.go - package-level constants and the frame-type tagged variant.

DESCRIPTION
  See Readme.md

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package blackbox decodes the Blackbox flight-data log format produced by
// Baseflight/Cleanflight/Betaflight multirotor firmwares: a textual header
// describing field layouts followed by a densely packed stream of
// variably-encoded frames. See README / SPEC_FULL.md for the full format
// description.
package blackbox

// Package-wide size limits, carried over from the reference C
// implementation (original_source/src/parser.h).
const (
	// MaxLogsInFile bounds how many concurrent sessions Open will
	// record start offsets for.
	MaxLogsInFile = 1000

	// MaxFields bounds the number of columns any single frame type may
	// define.
	MaxFields = 128

	// MaxMotors and MaxServos bound the motor[]/servo[] well-known field
	// groups in FieldIndexes.
	MaxMotors = 8
	MaxServos = 8

	// FrameMax is the largest plausible byte length of a single frame;
	// anything decoding longer than this is treated as corrupt.
	FrameMax = 256

	// SerialBufferLength is how much data the controller should pre-fill
	// from a character-device input source before parsing begins (spec.md
	// §6).
	SerialBufferLength = 256
)

// LogStartSentinel is the fixed ASCII line that marks the start of a
// logging session within a file. It is the first line any session's header
// begins with.
const LogStartSentinel = "H Product:Blackbox flight data recorder by Nicholas Sherlock"

// FrameKind is the tagged variant used to dispatch on a frame's leading
// type byte (spec.md §9's "formerly keyed by an ASCII byte into a 256-slot
// table becomes a tagged variant").
type FrameKind byte

const (
	FrameIntra     FrameKind = 'I' // full-state ("intra") frame
	FramePredicted FrameKind = 'P' // predicted/delta frame
	FrameSlow      FrameKind = 'S' // slow-changing state frame
	FrameGPS       FrameKind = 'G' // GPS fix frame
	FrameGPSHome   FrameKind = 'H' // GPS home-coordinate frame
	FrameEvent     FrameKind = 'E' // event frame

	// FrameUnknown is never installed as a FrameDefinition key; it is
	// returned by lookups to signal "not a recognized frame-type byte",
	// the catch-all leg of the tagged variant.
	FrameUnknown FrameKind = 0
)

// recognizedFrameKind reports whether b is one of the six frame-type
// letters, returning FrameUnknown otherwise.
func recognizedFrameKind(b byte) FrameKind {
	switch FrameKind(b) {
	case FrameIntra, FramePredicted, FrameSlow, FrameGPS, FrameGPSHome, FrameEvent:
		return FrameKind(b)
	default:
		return FrameUnknown
	}
}

// FirmwareType identifies which firmware produced a log, per spec.md §3.
type FirmwareType int

const (
	FirmwareUnknown FirmwareType = iota
	FirmwareBaseflight
	FirmwareCleanflight
	FirmwareBetaflight
)

func (f FirmwareType) String() string {
	switch f {
	case FirmwareBaseflight:
		return "Baseflight"
	case FirmwareCleanflight:
		return "Cleanflight"
	case FirmwareBetaflight:
		return "Betaflight"
	default:
		return "unknown"
	}
}
