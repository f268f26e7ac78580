/*
NAME
  header.go - textual header parsing into frame definitions and system config.

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
	"strconv"
	"strings"

	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"

	"github.com/ausocean/blackbox/container/blackbox/varint"
)

// FieldDef describes one column of a frame type: its name, its signedness,
// its storage width in bits (informational only; the wire encoding decides
// how many bytes/bits are actually read) and the predictor/encoding pair
// that decodes it (spec.md §4).
type FieldDef struct {
	Name      string
	Signed    bool
	Width     int
	Predictor PredictorKind
	Encoding  varint.Encoding
}

// FrameDefinition is the parsed "I/P/S/G/H Field name/signed/predictor/encoding"
// header group for one frame type.
type FrameDefinition struct {
	Kind   FrameKind
	Fields []FieldDef
}

// PIDValues holds one axis' proportional/integral/derivative/feed-forward
// gains as recorded in the header (distinct from PIDIndexes, which locates
// logged data columns of the same kind).
type PIDValues struct {
	P, I, D, FF int
}

// SystemConfig holds the scalar configuration values parsed from "H
// key:value" header lines: firmware identity, calibration constants and
// rate scalings needed to interpret main/GPS frame fields and to drive
// predictor baselines (spec.md §3, §4.4).
type SystemConfig struct {
	Firmware         FirmwareType
	FirmwareRevision string
	FirmwareDate     string
	DataVersion      int

	IInterval    int
	PNumerator   int
	PDenominator int

	MinThrottle    int
	MaxThrottle    int
	MotorOutputLow int
	MotorOutputHigh int

	RcRate   float64
	YawRate  float64
	Acc1G    int64
	GyroScale float64

	VbatScale             int
	VbatRef               int
	VbatMinCellVoltage    int
	VbatMaxCellVoltage    int
	VbatWarningCellVoltage int

	CurrentMeterOffset int
	CurrentMeterScale  int

	PID [3]PIDValues // indexed by axis: 0=roll, 1=pitch, 2=yaw
}

// newSystemConfig returns a SystemConfig with the defaults the reference
// firmware assumes when a header key is absent (original_source's
// parseHeaderLine default-initialisation of flightLogSysConfig_t).
func newSystemConfig() *SystemConfig {
	return &SystemConfig{
		MotorOutputLow:  1000,
		MotorOutputHigh: 2000,
		Acc1G:           4096,
		VbatScale:       110,
		VbatRef:         4095,
	}
}

// HeaderParser accumulates "H key:value" lines into a SystemConfig and a
// set of FrameDefinitions, one per recognized frame-type letter. Malformed
// lines are logged and skipped rather than treated as fatal, matching
// spec.md §3's "recoverable, not fatal" header-parsing requirement.
type HeaderParser struct {
	log  logging.Logger
	cfg  *SystemConfig
	defs map[FrameKind]*FrameDefinition
}

// NewHeaderParser returns a HeaderParser ready to receive header lines. log
// may be nil, in which case malformed lines are silently skipped.
func NewHeaderParser(log logging.Logger) *HeaderParser {
	return &HeaderParser{
		log:  log,
		cfg:  newSystemConfig(),
		defs: make(map[FrameKind]*FrameDefinition),
	}
}

func (p *HeaderParser) logWarn(msg string, args ...interface{}) {
	if p.log != nil {
		p.log.Warning(msg, args...)
	}
}

// frameDefinitionPrefixes maps a header key's frame-letter prefix (e.g. "I" in
// "Field I name") to the FrameKind it describes.
var frameDefinitionPrefixes = map[string]FrameKind{
	"I": FrameIntra,
	"P": FramePredicted,
	"S": FrameSlow,
	"G": FrameGPS,
	"H": FrameGPSHome,
}

// ParseLine consumes one header line of the form "H key:value" (the leading
// "H " is expected to already have been stripped by the caller, as
// LogSession does when scanning raw bytes). It returns ErrMalformedHeader,
// already logged, for a line it could not interpret; this is never fatal.
func (p *HeaderParser) ParseLine(line string) error {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		p.logWarn("unparsable header line", "line", line)
		return ErrMalformedHeader
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	if frameKind, field, ok := parseFieldDefKey(key); ok {
		return p.applyFieldDefKey(frameKind, field, value)
	}

	if err := p.applyScalarKey(key, value); err != nil {
		p.logWarn("unrecognized header key", "key", key, "value", value, "error", err)
		return errors.Wrap(ErrMalformedHeader, err.Error())
	}
	return nil
}

// The four per-frame-type field-definition header groups, e.g.
// "Field I name", "Field I predictor".
const (
	kwName      = "name"
	kwSigned    = "signed"
	kwPredictor = "predictor"
	kwEncoding  = "encoding"
)

// parseFieldDefKey recognizes "Field <letter> <keyword>" keys.
func parseFieldDefKey(key string) (kind FrameKind, field string, ok bool) {
	parts := strings.Fields(key)
	if len(parts) != 3 || parts[0] != "Field" {
		return 0, "", false
	}
	kind, known := frameDefinitionPrefixes[parts[1]]
	if !known {
		return 0, "", false
	}
	switch parts[2] {
	case kwName, kwSigned, kwPredictor, kwEncoding:
		return kind, parts[2], true
	default:
		return 0, "", false
	}
}

func (p *HeaderParser) frameDef(kind FrameKind) *FrameDefinition {
	def, ok := p.defs[kind]
	if !ok {
		def = &FrameDefinition{Kind: kind}
		p.defs[kind] = def
	}
	return def
}

// applyFieldDefKey applies one comma-separated value list against the
// named column-group of the given frame type. The "name" line always
// arrives first in real logs and establishes the column count; later
// lines must list the same number of values or they're ignored column by
// column past the mismatch.
func (p *HeaderParser) applyFieldDefKey(kind FrameKind, field, value string) error {
	def := p.frameDef(kind)
	values := strings.Split(value, ",")

	switch field {
	case kwName:
		def.Fields = make([]FieldDef, len(values))
		for i, name := range values {
			def.Fields[i].Name = strings.TrimSpace(name)
		}
		return nil
	case kwSigned:
		return p.applyIntColumn(def, values, func(f *FieldDef, v int) { f.Signed = v != 0 })
	case kwPredictor:
		return p.applyIntColumn(def, values, func(f *FieldDef, v int) { f.Predictor = PredictorKind(v) })
	case kwEncoding:
		return p.applyIntColumn(def, values, func(f *FieldDef, v int) { f.Encoding = varint.Encoding(v) })
	}
	return nil
}

func (p *HeaderParser) applyIntColumn(def *FrameDefinition, values []string, set func(*FieldDef, int)) error {
	if len(def.Fields) == 0 {
		def.Fields = make([]FieldDef, len(values))
	}
	n := len(values)
	if n > len(def.Fields) {
		n = len(def.Fields)
	}
	for i := 0; i < n; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(values[i]))
		if err != nil {
			p.logWarn("non-numeric field attribute, skipping column", "column", i, "value", values[i])
			continue
		}
		set(&def.Fields[i], v)
	}
	return nil
}

// applyScalarKey applies a non field-definition "H key:value" line to cfg.
func (p *HeaderParser) applyScalarKey(key, value string) error {
	c := p.cfg
	switch key {
	case "Firmware type":
		switch value {
		case "Baseflight":
			c.Firmware = FirmwareBaseflight
		case "Cleanflight":
			c.Firmware = FirmwareCleanflight
		case "Betaflight":
			c.Firmware = FirmwareBetaflight
		default:
			c.Firmware = FirmwareUnknown
		}
	case "Firmware revision":
		c.FirmwareRevision = value
	case "Firmware date":
		c.FirmwareDate = value
	case "Data version":
		return scanInt(value, &c.DataVersion)
	case "I interval":
		return scanInt(value, &c.IInterval)
	case "P interval":
		return p.parsePInterval(value)
	case "minthrottle":
		return scanInt(value, &c.MinThrottle)
	case "maxthrottle":
		return scanInt(value, &c.MaxThrottle)
	case "motorOutput":
		return p.parseMotorOutput(value)
	case "rcRate":
		return scanFloat(value, &c.RcRate)
	case "yawRate", "yaw_rate":
		return scanFloat(value, &c.YawRate)
	case "acc_1G":
		return scanInt64(value, &c.Acc1G)
	case "gyro.scale":
		return scanFloatHex(value, &c.GyroScale)
	case "vbatscale":
		return scanInt(value, &c.VbatScale)
	case "vbatref":
		return scanInt(value, &c.VbatRef)
	case "vbatcellvoltage":
		return p.parseVbatCellVoltage(value)
	case "currentMeter":
		return p.parseCurrentMeter(value)
	case "rollPID":
		return p.parsePID(0, value)
	case "pitchPID":
		return p.parsePID(1, value)
	case "yawPID":
		return p.parsePID(2, value)
	default:
		return errors.Errorf("unknown key %q", key)
	}
	return nil
}

func (p *HeaderParser) parsePInterval(value string) error {
	num, denom, ok := strings.Cut(value, "/")
	if !ok {
		return scanInt(value, &p.cfg.PNumerator)
	}
	if err := scanInt(strings.TrimSpace(num), &p.cfg.PNumerator); err != nil {
		return err
	}
	return scanInt(strings.TrimSpace(denom), &p.cfg.PDenominator)
}

func (p *HeaderParser) parseMotorOutput(value string) error {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return errors.Errorf("motorOutput wants 2 values, got %d", len(parts))
	}
	if err := scanInt(strings.TrimSpace(parts[0]), &p.cfg.MotorOutputLow); err != nil {
		return err
	}
	return scanInt(strings.TrimSpace(parts[1]), &p.cfg.MotorOutputHigh)
}

func (p *HeaderParser) parseVbatCellVoltage(value string) error {
	parts := strings.Split(value, ",")
	ints := make([]int, 0, 3)
	for _, s := range parts {
		var v int
		if err := scanInt(strings.TrimSpace(s), &v); err != nil {
			return err
		}
		ints = append(ints, v)
	}
	switch len(ints) {
	case 1:
		p.cfg.VbatMaxCellVoltage = ints[0]
	case 3:
		p.cfg.VbatMinCellVoltage, p.cfg.VbatWarningCellVoltage, p.cfg.VbatMaxCellVoltage = ints[0], ints[1], ints[2]
	default:
		return errors.Errorf("vbatcellvoltage wants 1 or 3 values, got %d", len(ints))
	}
	return nil
}

func (p *HeaderParser) parseCurrentMeter(value string) error {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return errors.Errorf("currentMeter wants 2 values, got %d", len(parts))
	}
	if err := scanInt(strings.TrimSpace(parts[0]), &p.cfg.CurrentMeterOffset); err != nil {
		return err
	}
	return scanInt(strings.TrimSpace(parts[1]), &p.cfg.CurrentMeterScale)
}

func (p *HeaderParser) parsePID(axis int, value string) error {
	parts := strings.Split(value, ",")
	if len(parts) < 3 {
		return errors.Errorf("PID line wants at least 3 values, got %d", len(parts))
	}
	vals := make([]int, len(parts))
	for i, s := range parts {
		if err := scanInt(strings.TrimSpace(s), &vals[i]); err != nil {
			return err
		}
	}
	pid := PIDValues{P: vals[0], I: vals[1], D: vals[2]}
	if len(vals) > 3 {
		pid.FF = vals[3]
	}
	p.cfg.PID[axis] = pid
	return nil
}

func scanInt(s string, dst *int) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return errors.Wrapf(err, "parsing %q as int", s)
	}
	*dst = v
	return nil
}

func scanInt64(s string, dst *int64) error {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "parsing %q as int64", s)
	}
	*dst = v
	return nil
}

func scanFloat(s string, dst *float64) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Wrapf(err, "parsing %q as float", s)
	}
	*dst = v
	return nil
}

// scanFloatHex parses the gyro.scale header value, which firmwares encode
// as a hex-float-looking token ("0x3e94197b" style raw IEEE754 bit
// pattern) in some builds and a plain decimal in others.
func scanFloatHex(s string, dst *float64) error {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		bits, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return errors.Wrapf(err, "parsing %q as hex gyro.scale", s)
		}
		*dst = float64(math.Float32frombits(uint32(bits)))
		return nil
	}
	return scanFloat(s, dst)
}

// Config returns the SystemConfig accumulated so far.
func (p *HeaderParser) Config() *SystemConfig { return p.cfg }

// Definitions returns the FrameDefinition parsed so far for kind, or nil if
// no "Field <letter> ..." lines have been seen for it.
func (p *HeaderParser) Definitions(kind FrameKind) *FrameDefinition {
	return p.defs[kind]
}

// AllDefinitions returns every FrameDefinition parsed so far.
func (p *HeaderParser) AllDefinitions() map[FrameKind]*FrameDefinition {
	return p.defs
}
