/*
NAME
  errors.go - sentinel errors returned by the blackbox package.

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

// Sentinel errors returned by this package. Frame-level problems
// (ErrUnknownFrameType, ErrCorruptFrame, ErrDesyncFrame) never abort a
// session; they are recovered locally by FrameDecoder and only surface in
// Statistics and the valid flag on a decoded Frame. LogSession.Parse
// returns nil at the end of the stream, ErrCancelled, or the handler's own
// error; ErrNoSession comes from LogFile.Session.
var (
	// ErrMalformedHeader marks a header line that could not be parsed.
	// HeaderParser.ParseLine returns it; LogFile.Session logs and skips such
	// lines rather than failing.
	ErrMalformedHeader = errors.New("blackbox: malformed header line")

	// ErrUnknownFrameType marks a byte at a frame boundary that isn't one of
	// I, P, S, G, H, E.
	ErrUnknownFrameType = errors.New("blackbox: unknown frame type")

	// ErrCorruptFrame marks a frame whose decoded length exceeds FrameMax or
	// whose VarInt fields overflowed.
	ErrCorruptFrame = errors.New("blackbox: corrupt frame")

	// ErrDesyncFrame marks a frame that decoded to the right shape but
	// failed semantic validation (orphan P frame, impossible time jump,
	// non-increasing iteration).
	ErrDesyncFrame = errors.New("blackbox: desynced frame")

	// ErrReferenceMissing marks a frame accepted despite a predictor needing
	// history that doesn't exist yet (e.g. a G frame before any H frame).
	ErrReferenceMissing = errors.New("blackbox: predictor reference missing")

	// ErrNoSession is returned by LogFile.Session when the requested session
	// index does not exist, including for a file with no log-start sentinel
	// at all.
	ErrNoSession = errors.New("blackbox: no session found in file")

	// ErrCancelled is returned by Parse when the caller's cancellation
	// callback reported true.
	ErrCancelled = errors.New("blackbox: parse cancelled")
)
