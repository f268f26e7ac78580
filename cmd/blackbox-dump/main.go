/*
NAME
  blackbox-dump - decode a Blackbox log file end-to-end and report statistics.

DESCRIPTION
  See Readme.md

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Command blackbox-dump parses every session in a Blackbox log file and
// logs a per-session statistics summary, plus each decoded frame when run
// with -verbose. It
// demonstrates the one-shot decode path through container/blackbox.
package main

import (
	"flag"
	"io"
	"os"

	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/blackbox/container/blackbox"
)

const (
	logPath      = "/var/log/blackbox-dump/blackbox-dump.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logSuppress  = true
)

func main() {
	pathPtr := flag.String("path", "", "Path to a Blackbox log file; reads stdin if empty.")
	verbosePtr := flag.Bool("verbose", false, "Log every decoded frame, not just the final summary.")
	tolerancePtr := flag.Int64("rollover-tolerance", 1<<31, "Time rollover detection tolerance.")
	flag.Parse()

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	verbosity := logging.Info
	if *verbosePtr {
		verbosity = logging.Debug
	}
	l := logging.New(verbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)

	var data []byte
	var err error
	if *pathPtr == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(*pathPtr)
	}
	if err != nil {
		l.Fatal("could not read input", "error", err)
	}

	lf, err := blackbox.Open(data,
		blackbox.WithLogger(l),
		blackbox.WithRolloverTolerance(*tolerancePtr),
	)
	if err != nil {
		l.Fatal("could not open log", "error", err)
	}

	l.Info("found sessions", "count", lf.SessionCount())

	for i := 0; i < lf.SessionCount(); i++ {
		dumpSession(l, lf, i, *verbosePtr)
	}
}

func dumpSession(l logging.Logger, lf *blackbox.LogFile, i int, verbose bool) {
	session, err := lf.Session(i)
	if err != nil {
		l.Error("could not open session", "session", i, "error", err)
		return
	}

	cfg := session.Config()
	l.Info("session header parsed",
		"session", i, "firmware", cfg.Firmware.String(),
		"firmwareRevision", cfg.FirmwareRevision, "dataVersion", cfg.DataVersion)

	err = session.Parse(func(f blackbox.Frame) error {
		if verbose {
			l.Debug("frame", "session", i, "kind", string(f.Kind), "offset", f.Offset,
				"valid", f.Valid, "approximate", f.Approximate, "values", f.Values)
		}
		return nil
	})
	if err != nil {
		l.Error("session parse stopped early", "session", i, "error", err)
	}

	stats := session.Statistics()
	var totalBytes, totalDesync, totalCorrupt int
	for _, kind := range stats.Frames.Kinds() {
		totalBytes += stats.Frames.Bytes[kind]
		totalDesync += stats.Frames.DesyncCount[kind]
		totalCorrupt += stats.Frames.CorruptCount[kind]
	}
	l.Info("session statistics",
		"session", i, "bytes", totalBytes,
		"desyncCount", totalDesync, "corruptCount", totalCorrupt)
	for _, kind := range stats.Frames.Kinds() {
		l.Info("frame type count", "session", i, "kind", string(kind),
			"validCount", stats.Frames.ValidCount[kind],
			"bytes", stats.Frames.Bytes[kind],
			"desyncCount", stats.Frames.DesyncCount[kind],
			"corruptCount", stats.Frames.CorruptCount[kind])
	}
}
