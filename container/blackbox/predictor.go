/*
NAME
  predictor.go - baseline computation for each predictor kind.

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

// PredictorKind selects the rule used to compute a field's baseline value,
// to which the decoded residual is added (spec.md §4.4).
type PredictorKind int

const (
	PredictorNone               PredictorKind = 0
	PredictorPrevious           PredictorKind = 1
	PredictorStraightLine       PredictorKind = 2
	PredictorAverage2           PredictorKind = 3
	PredictorMinThrottle        PredictorKind = 4
	PredictorMotor0             PredictorKind = 5
	PredictorIncrement          PredictorKind = 6
	PredictorHomeCoord          PredictorKind = 7
	Predictor1500               PredictorKind = 8
	PredictorVbatRef            PredictorKind = 9
	PredictorLastMainFrameTime  PredictorKind = 10
	PredictorMinMotor           PredictorKind = 11
)

// predictorContext bundles everything a predictor rule might need to
// compute its baseline for one field of one frame. Not every field is used
// by every kind.
type predictorContext struct {
	cfg  *SystemConfig
	col  int // column index within the frame currently being decoded
	kind FrameKind

	mainValid bool
	prev      *[MaxFields]int64
	prevPrev  *[MaxFields]int64

	// staging holds the current frame's columns as they are decoded so
	// far; MOTOR_0 (spec.md §4.4) reads the in-progress staging value of
	// motor[0], not the previous committed frame's value, so it is
	// distinct from prev/prevPrev above.
	staging []int64

	motor0Col int // column index of main frame's motor[0], or absent

	skippedFrames uint32
	lastMainTime  int64

	homeValid bool
	homeCoord *[MaxFields]int64 // previous committed GPS-home slot
	homeCol   int               // which home-ring column this G column predicts from, or absent

	// raw, when true, skips predictor baseline computation entirely and
	// emits the decoded residual verbatim (spec.md §4.7 "raw" diagnostic
	// mode), rather than baseline + residual.
	raw bool
}

// baseline computes the predictor baseline for ctx.col using kind, and
// reports whether the result is "approximate" (spec.md §4.4: predictors
// that need history which doesn't exist yet reduce to a zero baseline and
// are flagged non-authoritative, i.e. ErrReferenceMissing territory).
func baseline(kind PredictorKind, ctx predictorContext) (int64, bool) {
	if ctx.raw {
		return 0, false
	}

	needsHistory := kind == PredictorPrevious || kind == PredictorStraightLine ||
		kind == PredictorAverage2 || kind == PredictorIncrement ||
		kind == PredictorLastMainFrameTime

	if needsHistory && !ctx.mainValid {
		return 0, true
	}

	switch kind {
	case PredictorNone:
		return 0, false
	case PredictorPrevious:
		return ctx.prev[ctx.col], false
	case PredictorStraightLine:
		return 2*ctx.prev[ctx.col] - ctx.prevPrev[ctx.col], false
	case PredictorAverage2:
		return divRoundToZero(ctx.prev[ctx.col]+ctx.prevPrev[ctx.col], 2), false
	case PredictorMinThrottle:
		return int64(ctx.cfg.MinThrottle), false
	case PredictorMotor0:
		// motor[0]'s own value for this frame, not the previous frame's
		// (spec.md §4.4 MOTOR_0), read from the in-progress staging slice.
		// If motor[0] hasn't been decoded yet at this point in the field
		// order, there is nothing to predict from.
		if ctx.motor0Col == absent || ctx.motor0Col >= len(ctx.staging) || ctx.motor0Col >= ctx.col {
			return 0, true
		}
		return ctx.staging[ctx.motor0Col], false
	case PredictorIncrement:
		return ctx.prev[ctx.col] + 1 + int64(ctx.skippedFrames), false
	case PredictorHomeCoord:
		if !ctx.homeValid || ctx.homeCol == absent {
			return 0, true
		}
		return ctx.homeCoord[ctx.homeCol], false
	case Predictor1500:
		return 1500, false
	case PredictorVbatRef:
		return int64(ctx.cfg.VbatRef), false
	case PredictorLastMainFrameTime:
		return ctx.lastMainTime, false
	case PredictorMinMotor:
		return int64(ctx.cfg.MotorOutputLow), false
	default:
		return 0, true
	}
}

// divRoundToZero divides a by b, rounding the quotient toward zero rather
// than Go's already-toward-zero integer division making this explicit
// where the behavior matters (spec.md §4.4's AVERAGE_2, "rounded toward
// zero").
func divRoundToZero(a, b int64) int64 {
	return a / b
}
