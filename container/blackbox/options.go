/*
NAME
  options.go - functional options for LogFile/LogSession construction.

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

import "github.com/ausocean/utils/logging"

// Option configures a LogFile at construction time, following the
// functional-options pattern used throughout the wider codebase for
// optional, defaultable construction parameters.
type Option func(*config) error

type config struct {
	log               logging.Logger
	rolloverTolerance int64
	raw               bool
	cancel            func() bool
}

func defaultConfig() *config {
	return &config{
		rolloverTolerance: 1 << 31,
	}
}

// WithLogger attaches a structured logger; header and frame anomalies are
// reported through it rather than failing the parse.
func WithLogger(log logging.Logger) Option {
	return func(c *config) error {
		c.log = log
		return nil
	}
}

// WithRolloverTolerance overrides the default threshold (1<<31, half the
// 32-bit microsecond time field's range) used to decide whether a main
// frame's time value that is numerically smaller than the previous one
// represents rollover rather than corruption (spec.md §9 open question 1).
func WithRolloverTolerance(n int64) Option {
	return func(c *config) error {
		c.rolloverTolerance = n
		return nil
	}
}

// WithRaw switches the decoder into its diagnostic mode (spec.md §4.7):
// predictor baselines are skipped so each field's decoded residual is
// reported verbatim instead of baseline+residual, and each frame's raw
// byte slice is retained on the decoded Frame value. Off by default, and
// at the cost of extra allocation for the byte slices.
func WithRaw() Option {
	return func(c *config) error {
		c.raw = true
		return nil
	}
}

// WithCancel installs a predicate polled between frames; Parse stops and
// returns ErrCancelled the first time it reports true.
func WithCancel(cancel func() bool) Option {
	return func(c *config) error {
		c.cancel = cancel
		return nil
	}
}
