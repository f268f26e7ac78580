/*
NAME
  decoder.go - the frame decoding state machine.

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
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/blackbox/container/blackbox/varint"
)

// Frame is one frame from the stream, valid or rejected (see Valid). For FrameEvent
// frames, Values is empty and Event carries the payload; for every other
// kind, Event is the zero value and Values holds the frame's columns in
// definition order.
type Frame struct {
	Kind        FrameKind
	Offset      int
	Values      []int64
	Event       Event
	Approximate bool // true if any predictor baseline used missing history
	Raw         []byte

	// Valid reports whether this frame passed validation and was
	// committed to history. Next returns a Frame with Valid false
	// (Values/Event empty, only Kind/Offset populated where known)
	// alongside its error for every recoverable failure, so a caller
	// that wants to observe rejected frames rather than only counting
	// them can do so (spec.md §5, frameReady(valid=false)).
	Valid bool
}

// FrameDecoder turns a header-described byte stream into a sequence of
// Frames, maintaining the history rings the predictors need and rejecting
// frames that fail validation (spec.md §4, §5).
//
// It walks AWAIT_FRAME_TYPE -> DECODE_FIELDS -> VALIDATE -> COMMIT on each
// call to Next, or leaves the stream positioned for the caller to invoke
// Resync after a DISCARD_RESYNC outcome.
type FrameDecoder struct {
	cfg  *SystemConfig
	defs map[FrameKind]*FrameDefinition
	idx  FieldIndexes

	mainHist  *frameHistory
	mainValid bool
	slowHist  *frameHistory
	slowValid bool
	gpsHist   *frameHistory
	gpsValid  bool
	homeHist  *gpsHomeHistory
	homeValid bool

	lastMainTimeRaw   uint32
	lastAbsoluteTime  int64
	lastLoopIteration int64
	skippedFrames     uint32

	log               logging.Logger
	rolloverTolerance int64
	raw               bool

	stats *Statistics
}

// newFrameDecoder builds a FrameDecoder from a completed HeaderParser and
// the session configuration.
func newFrameDecoder(hp *HeaderParser, c *config) *FrameDecoder {
	return &FrameDecoder{
		cfg:  hp.Config(),
		defs: hp.AllDefinitions(),
		idx:  indexAllDefinitions(hp),

		mainHist: newFrameHistory(),
		slowHist: newFrameHistory(),
		gpsHist:  newFrameHistory(),
		homeHist: newGPSHomeHistory(),

		log:               c.log,
		rolloverTolerance: c.rolloverTolerance,
		raw:               c.raw,

		stats: newStatistics(),
	}
}

func indexAllDefinitions(hp *HeaderParser) FieldIndexes {
	fi := newFieldIndexes()
	for kind, def := range hp.AllDefinitions() {
		fi.indexFields(kind, def)
	}
	return fi
}

func (d *FrameDecoder) logWarn(msg string, args ...interface{}) {
	if d.log != nil {
		d.log.Warning(msg, args...)
	}
}

// Statistics returns the running per-session statistics.
func (d *FrameDecoder) Statistics() *Statistics { return d.stats }

// Next decodes and validates the next frame from r. On success it returns
// the decoded Frame. On a recoverable error (ErrUnknownFrameType,
// ErrCorruptFrame, ErrDesyncFrame) the stream is left positioned right
// after the byte that triggered the failure and the caller should invoke
// Resync before calling Next again. ErrEndOfStream is returned once r is
// exhausted.
func (d *FrameDecoder) Next(r *ByteStream) (Frame, error) {
	start := r.Pos()

	typeByte, err := r.ReadByte()
	if err != nil {
		return Frame{}, err
	}
	kind := recognizedFrameKind(typeByte)
	if kind == FrameUnknown {
		d.stats.Frames.CorruptCount[FrameUnknown]++
		d.logWarn("unrecognized frame type byte", "byte", typeByte, "offset", start)
		return Frame{Kind: FrameUnknown, Offset: start}, errors.Wrapf(ErrUnknownFrameType, "byte 0x%02x at offset %d", typeByte, start)
	}

	if kind == FrameEvent {
		return d.decodeEventFrame(r, start)
	}

	def := d.defs[kind]
	if def == nil {
		d.stats.Frames.CorruptCount[kind]++
		return Frame{Kind: kind, Offset: start}, errors.Wrapf(ErrCorruptFrame, "no header definition for frame type %q", kind)
	}

	switch kind {
	case FrameIntra, FramePredicted:
		return d.decodeMainFrame(r, kind, def, start)
	case FrameSlow:
		return d.decodeSlowFrame(r, def, start)
	case FrameGPS:
		return d.decodeGPSFrame(r, def, start)
	case FrameGPSHome:
		return d.decodeGPSHomeFrame(r, def, start)
	default:
		return Frame{Kind: kind, Offset: start}, errors.Wrapf(ErrUnknownFrameType, "unhandled frame kind %q", kind)
	}
}

func (d *FrameDecoder) decodeEventFrame(r *ByteStream, start int) (Frame, error) {
	ev, err := decodeEvent(r)
	if err != nil {
		d.stats.Frames.CorruptCount[FrameEvent]++
		return Frame{Kind: FrameEvent, Offset: start}, errors.Wrap(err, "decoding event frame")
	}
	if ev.Kind == EventUnknown {
		d.stats.Frames.CorruptCount[FrameEvent]++
		d.logWarn("unrecognized event type, cannot determine length", "offset", start)
		return Frame{Kind: FrameEvent, Offset: start}, errors.Wrapf(ErrCorruptFrame, "unrecognized event type at offset %d", start)
	}
	f := Frame{Kind: FrameEvent, Offset: start, Event: ev, Valid: true}
	if d.raw {
		f.Raw = r.Slice(start, r.Pos())
	}
	d.stats.Frames.recordValid(FrameEvent, r.Pos()-start)
	return f, nil
}

// decodeMainFrame decodes an I or P frame. In raw mode (d.raw) the time
// and loop-iteration columns hold undecoded residuals rather than
// absolute values, so the rollover/monotonicity checks below are not
// meaningful there; raw mode is a diagnostic escape hatch and the caller
// is expected to not rely on those checks while using it.
func (d *FrameDecoder) decodeMainFrame(r *ByteStream, kind FrameKind, def *FrameDefinition, start int) (Frame, error) {
	wasValid := d.mainValid
	if kind == FramePredicted && !wasValid {
		// Still consume the bytes so the stream stays byte-aligned for a
		// resync scan, but reject the result: a P frame with no preceding
		// committed main frame has no history to predict from.
		if _, _, err := d.decodeFieldGroup(r, def.Fields, predictorContext{
			cfg: d.cfg, kind: kind, mainValid: false,
			prev: d.mainHist.previous(), prevPrev: d.mainHist.prevPrevious(),
			motor0Col: d.idx.Main.Motor[0], skippedFrames: d.skippedFrames,
			lastMainTime: int64(d.lastMainTimeRaw), raw: d.raw,
		}); err != nil {
			d.stats.Frames.CorruptCount[kind]++
			return Frame{Kind: kind, Offset: start}, errors.Wrap(err, "decoding orphan P frame")
		}
		d.stats.Frames.DesyncCount[kind]++
		return Frame{Kind: kind, Offset: start}, errors.Wrapf(ErrDesyncFrame, "P frame with no prior main frame at offset %d", start)
	}

	ctx := predictorContext{
		cfg: d.cfg, kind: kind, mainValid: wasValid,
		prev: d.mainHist.previous(), prevPrev: d.mainHist.prevPrevious(),
		motor0Col: d.idx.Main.Motor[0], skippedFrames: d.skippedFrames,
		lastMainTime: int64(d.lastMainTimeRaw), raw: d.raw,
	}
	values, approx, err := d.decodeFieldGroup(r, def.Fields, ctx)
	if err != nil {
		d.stats.Frames.CorruptCount[kind]++
		return Frame{Kind: kind, Offset: start}, errors.Wrap(err, "decoding main frame")
	}
	if r.Pos()-start > FrameMax {
		d.stats.Frames.CorruptCount[kind]++
		return Frame{Kind: kind, Offset: start}, errors.Wrapf(ErrCorruptFrame, "frame length exceeds maximum at offset %d", start)
	}

	iterCol := d.idx.Main.LoopIteration
	newIter := d.lastLoopIteration
	if iterCol != absent {
		newIter = values[iterCol]
		if wasValid && newIter <= d.lastLoopIteration {
			d.stats.Frames.DesyncCount[kind]++
			return Frame{Kind: kind, Offset: start}, errors.Wrapf(ErrDesyncFrame, "non-increasing loop iteration at offset %d", start)
		}
	}

	timeCol := d.idx.Main.Time
	var absoluteTime int64
	if timeCol != absent {
		raw32 := uint32(values[timeCol])
		if wasValid {
			// diff is computed with wrapping uint32 subtraction, so it comes
			// out small and positive both for ordinary forward progress and
			// for genuine rollover (spec.md §9 property 8): in the rollover
			// case raw32 < lastMainTimeRaw, and diff == raw32 + 2^32 -
			// lastMainTimeRaw. A true backward jump or corrupt time field
			// instead produces a diff close to 2^32, which the tolerance
			// rejects.
			diff := raw32 - d.lastMainTimeRaw
			if int64(diff) >= d.rolloverTolerance {
				d.stats.Frames.DesyncCount[kind]++
				return Frame{Kind: kind, Offset: start}, errors.Wrapf(ErrDesyncFrame, "implausible time jump at offset %d", start)
			}
			absoluteTime = d.lastAbsoluteTime + int64(diff)
		} else {
			absoluteTime = int64(raw32)
		}
		values[timeCol] = absoluteTime
		d.lastAbsoluteTime = absoluteTime
		d.lastMainTimeRaw = raw32
	}

	if wasValid && iterCol != absent {
		delta := newIter - d.lastLoopIteration
		if delta < 1 {
			delta = 1
		}
		d.skippedFrames = uint32(delta - 1)
	} else {
		d.skippedFrames = 0
	}
	d.lastLoopIteration = newIter

	copy(d.mainHist.staging()[:], values)
	d.mainHist.commit()
	d.mainValid = true

	f := Frame{Kind: kind, Offset: start, Values: values, Approximate: approx, Valid: true}
	if d.raw {
		f.Raw = r.Slice(start, r.Pos())
	}
	d.stats.Frames.recordValid(kind, r.Pos()-start)
	d.stats.recordFrame(kind, def, values)
	return f, nil
}

func (d *FrameDecoder) decodeSlowFrame(r *ByteStream, def *FrameDefinition, start int) (Frame, error) {
	ctx := predictorContext{
		cfg: d.cfg, kind: FrameSlow, mainValid: d.slowValid,
		prev: d.slowHist.previous(), prevPrev: d.slowHist.prevPrevious(),
		motor0Col: absent, raw: d.raw,
	}
	values, approx, err := d.decodeFieldGroup(r, def.Fields, ctx)
	if err != nil {
		d.stats.Frames.CorruptCount[FrameSlow]++
		return Frame{Kind: FrameSlow, Offset: start}, errors.Wrap(err, "decoding slow frame")
	}
	copy(d.slowHist.staging()[:], values)
	d.slowHist.commit()
	d.slowValid = true

	f := Frame{Kind: FrameSlow, Offset: start, Values: values, Approximate: approx, Valid: true}
	if d.raw {
		f.Raw = r.Slice(start, r.Pos())
	}
	d.stats.Frames.recordValid(FrameSlow, r.Pos()-start)
	d.stats.recordFrame(FrameSlow, def, values)
	return f, nil
}

func (d *FrameDecoder) decodeGPSFrame(r *ByteStream, def *FrameDefinition, start int) (Frame, error) {
	values := make([]int64, len(def.Fields))
	ctx := predictorContext{
		cfg: d.cfg, kind: FrameGPS, mainValid: d.gpsValid,
		prev: d.gpsHist.previous(), prevPrev: d.gpsHist.prevPrevious(),
		staging:   values,
		motor0Col: absent, raw: d.raw,
		homeValid: d.homeValid, homeCoord: d.homeHist.previous(), homeCol: absent,
	}
	approxAny := false
	col := 0
	for col < len(values) {
		fieldCtx := ctx
		fieldCtx.col = col
		fieldCtx.homeCol = d.gpsHomeColumnFor(col)
		n, approx, err := d.decodeOneOrGroup(r, def.Fields, col, fieldCtx, values)
		if err != nil {
			d.stats.Frames.CorruptCount[FrameGPS]++
			return Frame{Kind: FrameGPS, Offset: start}, errors.Wrap(err, "decoding GPS frame")
		}
		approxAny = approxAny || approx
		col += n
	}
	copy(d.gpsHist.staging()[:], values)
	d.gpsHist.commit()
	d.gpsValid = true

	f := Frame{Kind: FrameGPS, Offset: start, Values: values, Approximate: approxAny, Valid: true}
	if d.raw {
		f.Raw = r.Slice(start, r.Pos())
	}
	d.stats.Frames.recordValid(FrameGPS, r.Pos()-start)
	d.stats.recordFrame(FrameGPS, def, values)
	return f, nil
}

// gpsHomeColumnFor maps a GPS-frame column index to the matching
// GPS-home column index, when that column is one of the two coordinate
// fields predicted from the logged home position (spec.md §4.4
// HOME_COORD).
func (d *FrameDecoder) gpsHomeColumnFor(col int) int {
	switch col {
	case d.idx.GPS.Coord[0]:
		return d.idx.GPSHome.Coord[0]
	case d.idx.GPS.Coord[1]:
		return d.idx.GPSHome.Coord[1]
	default:
		return absent
	}
}

func (d *FrameDecoder) decodeGPSHomeFrame(r *ByteStream, def *FrameDefinition, start int) (Frame, error) {
	ctx := predictorContext{
		cfg: d.cfg, kind: FrameGPSHome, mainValid: d.homeValid,
		prev: d.homeHist.previous(), prevPrev: d.homeHist.previous(),
		motor0Col: absent, raw: d.raw,
	}
	values, approx, err := d.decodeFieldGroup(r, def.Fields, ctx)
	if err != nil {
		d.stats.Frames.CorruptCount[FrameGPSHome]++
		return Frame{Kind: FrameGPSHome, Offset: start}, errors.Wrap(err, "decoding GPS home frame")
	}
	copy(d.homeHist.staging()[:], values)
	d.homeHist.commit()
	d.homeValid = true

	f := Frame{Kind: FrameGPSHome, Offset: start, Values: values, Approximate: approx, Valid: true}
	if d.raw {
		f.Raw = r.Slice(start, r.Pos())
	}
	d.stats.Frames.recordValid(FrameGPSHome, r.Pos()-start)
	d.stats.recordFrame(FrameGPSHome, def, values)
	return f, nil
}

// decodeFieldGroup decodes every field of fields in order, applying
// tag-group encodings (which consume several columns per wire group) and
// per-column encodings alike.
func (d *FrameDecoder) decodeFieldGroup(r *ByteStream, fields []FieldDef, ctx predictorContext) ([]int64, bool, error) {
	values := make([]int64, len(fields))
	ctx.staging = values
	approxAny := false
	col := 0
	for col < len(fields) {
		fieldCtx := ctx
		fieldCtx.col = col
		n, approx, err := d.decodeOneOrGroup(r, fields, col, fieldCtx, values)
		if err != nil {
			return nil, false, err
		}
		approxAny = approxAny || approx
		col += n
	}
	return values, approxAny, nil
}

// decodeOneOrGroup decodes the tag-group (or single column) starting at
// col and writes the results into values, returning how many columns it
// consumed.
func (d *FrameDecoder) decodeOneOrGroup(r *ByteStream, fields []FieldDef, col int, ctx predictorContext, values []int64) (int, bool, error) {
	remaining := len(fields) - col
	enc := fields[col].Encoding

	switch enc {
	case varint.Tag8_8SVB:
		count := remaining
		if count > 8 {
			count = 8
		}
		residuals, err := varint.DecodeTag8_8SVB(r, count)
		if err != nil {
			return 0, false, err
		}
		return d.applyGroup(fields, col, residuals, ctx, values)

	case varint.Tag2_3S32:
		count := remaining
		if count > 3 {
			count = 3
		}
		residuals, err := varint.DecodeTag2_3S32(r)
		if err != nil {
			return 0, false, err
		}
		return d.applyGroup(fields, col, residuals[:count], ctx, values)

	case varint.Tag8_4S16:
		count := remaining
		if count > 4 {
			count = 4
		}
		residuals, err := varint.DecodeTag8_4S16(r)
		if err != nil {
			return 0, false, err
		}
		return d.applyGroup(fields, col, residuals[:count], ctx, values)

	default:
		residual, err := decodeScalarResidual(r, enc)
		if err != nil {
			return 0, false, err
		}
		base, approx := baseline(fields[col].Predictor, ctx)
		values[col] = base + residual
		return 1, approx, nil
	}
}

func (d *FrameDecoder) applyGroup(fields []FieldDef, col int, residuals []int64, ctx predictorContext, values []int64) (int, bool, error) {
	approxAny := false
	for i, res := range residuals {
		c := col + i
		fctx := ctx
		fctx.col = c
		base, approx := baseline(fields[c].Predictor, fctx)
		values[c] = base + res
		approxAny = approxAny || approx
	}
	return len(residuals), approxAny, nil
}

// decodeScalarResidual decodes the wire representation for a single-column
// encoding into its residual value, to be added to the column's predictor
// baseline.
func decodeScalarResidual(r *ByteStream, enc varint.Encoding) (int64, error) {
	switch enc {
	case varint.SignedVB:
		return varint.DecodeSignedVB(r)
	case varint.UnsignedVB:
		u, err := varint.DecodeUnsignedVB(r)
		return int64(u), err
	case varint.Neg14Bit:
		return varint.DecodeNeg14Bit(r)
	case varint.Null:
		return varint.DecodeNull(), nil
	case varint.EliasDeltaU32:
		u, err := varint.DecodeEliasDeltaU32(r)
		r.align()
		return int64(u), err
	case varint.EliasDeltaS32:
		v, err := varint.DecodeEliasDeltaS32(r)
		r.align()
		return v, err
	default:
		return 0, errors.Errorf("unsupported scalar encoding %d", enc)
	}
}

// Resync advances r past the current frame-type byte and scans forward
// for the next byte that looks like a recognized frame-type letter,
// implementing DISCARD_RESYNC (spec.md §5, §9 open question 4: the exact
// boundary heuristic the reference firmware used is undocumented, so this
// settles for "next recognized letter" rather than attempting to validate
// a full candidate frame before committing to the resync point).
func (d *FrameDecoder) Resync(r *ByteStream) bool {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return false
		}
		if recognizedFrameKind(b) != FrameUnknown {
			r.Rewind(r.Pos() - 1)
			return true
		}
	}
}

// Reset clears all history and validation state. Nothing in this package
// calls it: LogFile.Session builds a new FrameDecoder for every session.
func (d *FrameDecoder) Reset() {
	d.mainHist.reset()
	d.slowHist.reset()
	d.gpsHist.reset()
	d.homeHist.reset()
	d.mainValid, d.slowValid, d.gpsValid, d.homeValid = false, false, false, false
	d.lastMainTimeRaw, d.lastAbsoluteTime = 0, 0
	d.lastLoopIteration, d.skippedFrames = 0, 0
}
