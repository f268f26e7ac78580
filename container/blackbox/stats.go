/*
NAME
  stats.go - per-session frame and field statistics.

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

import "gonum.org/v1/gonum/stat"

// fieldStatsReservoir bounds how many samples FieldStats keeps for its
// running mean/stddev; beyond this it reports against the reservoir rather
// than the full session, which is acceptable for the summary statistics
// Statistics exists to provide.
const fieldStatsReservoir = 4096

// FrameStats tallies frame-level outcomes across a session, keyed by frame
// type throughout (spec.md §7, `flightLogFrameStatistics_t frame[256]` in
// original_source/src/parser.h).
type FrameStats struct {
	Bytes        map[FrameKind]int
	ValidCount   map[FrameKind]int
	DesyncCount  map[FrameKind]int
	CorruptCount map[FrameKind]int

	// lengthHistogram[kind][n] counts frames of that type whose decoded
	// byte length was n. Index FrameMax is a catch-all for lengths >=
	// FrameMax.
	lengthHistogram map[FrameKind]*[FrameMax + 1]int
}

func newFrameStats() *FrameStats {
	return &FrameStats{
		Bytes:           make(map[FrameKind]int),
		ValidCount:      make(map[FrameKind]int),
		DesyncCount:     make(map[FrameKind]int),
		CorruptCount:    make(map[FrameKind]int),
		lengthHistogram: make(map[FrameKind]*[FrameMax + 1]int),
	}
}

// LengthHistogram returns the decoded-length histogram for one frame type.
// The returned array is a snapshot; mutating it has no effect on s.
func (s *FrameStats) LengthHistogram(kind FrameKind) [FrameMax + 1]int {
	h := s.histogramFor(kind)
	return *h
}

func (s *FrameStats) histogramFor(kind FrameKind) *[FrameMax + 1]int {
	h, ok := s.lengthHistogram[kind]
	if !ok {
		h = &[FrameMax + 1]int{}
		s.lengthHistogram[kind] = h
	}
	return h
}

// Kinds returns every frame kind with at least one recorded outcome
// (valid, desynced, or corrupt), for callers that want to report a
// per-type breakdown without guessing which kinds occurred.
func (s *FrameStats) Kinds() []FrameKind {
	seen := make(map[FrameKind]bool)
	for k := range s.ValidCount {
		seen[k] = true
	}
	for k := range s.DesyncCount {
		seen[k] = true
	}
	for k := range s.CorruptCount {
		seen[k] = true
	}
	kinds := make([]FrameKind, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	return kinds
}

func (s *FrameStats) recordValid(kind FrameKind, length int) {
	s.ValidCount[kind]++
	s.recordLength(kind, length)
}

func (s *FrameStats) recordLength(kind FrameKind, length int) {
	s.Bytes[kind] += length
	if length >= FrameMax {
		length = FrameMax
	}
	if length < 0 {
		length = 0
	}
	s.histogramFor(kind)[length]++
}

// FieldStats accumulates Min/Max and a running mean/stddev for one field
// column across a session, using gonum/stat over a bounded reservoir that
// keeps the first fieldStatsReservoir samples. Min/Max cover every sample.
type FieldStats struct {
	Min, Max int64
	seen     int
	samples  []float64
}

func newFieldStats() *FieldStats {
	return &FieldStats{samples: make([]float64, 0, fieldStatsReservoir)}
}

func (f *FieldStats) observe(v int64) {
	if f.seen == 0 || v < f.Min {
		f.Min = v
	}
	if f.seen == 0 || v > f.Max {
		f.Max = v
	}
	f.seen++
	if len(f.samples) < fieldStatsReservoir {
		f.samples = append(f.samples, float64(v))
	}
}

// Mean returns the sample mean over the retained reservoir.
func (f *FieldStats) Mean() float64 {
	if len(f.samples) == 0 {
		return 0
	}
	return stat.Mean(f.samples, nil)
}

// StdDev returns the sample standard deviation over the retained
// reservoir.
func (f *FieldStats) StdDev() float64 {
	if len(f.samples) < 2 {
		return 0
	}
	return stat.StdDev(f.samples, nil)
}

// Count returns how many samples have been observed in total, which may
// exceed the number actually retained in the reservoir.
func (f *FieldStats) Count() int { return f.seen }

// Statistics is the full set of per-session counters and field
// distributions exposed by LogSession.Statistics (spec.md §7).
type Statistics struct {
	Frames *FrameStats
	Fields map[FrameKind]map[string]*FieldStats
}

func newStatistics() *Statistics {
	return &Statistics{
		Frames: newFrameStats(),
		Fields: make(map[FrameKind]map[string]*FieldStats),
	}
}

func (s *Statistics) fieldStats(kind FrameKind, name string) *FieldStats {
	byName, ok := s.Fields[kind]
	if !ok {
		byName = make(map[string]*FieldStats)
		s.Fields[kind] = byName
	}
	fs, ok := byName[name]
	if !ok {
		fs = newFieldStats()
		byName[name] = fs
	}
	return fs
}

// recordFrame folds one successfully decoded frame's field values into the
// running statistics.
func (s *Statistics) recordFrame(kind FrameKind, def *FrameDefinition, values []int64) {
	if def == nil {
		return
	}
	for i, f := range def.Fields {
		if i >= len(values) {
			break
		}
		s.fieldStats(kind, f.Name).observe(values[i])
	}
}
