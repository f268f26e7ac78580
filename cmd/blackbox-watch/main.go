/*
NAME
  blackbox-watch - tail a growing Blackbox log file as new sessions land.

DESCRIPTION
  See Readme.md

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Command blackbox-watch watches a log file that a flight controller is
// actively writing to over a serial/USB mass-storage link, re-scanning it
// every time new bytes land and reporting each session once, the first time
// its start marker appears; the statistics reported for it cover only the
// bytes present at that moment. It pings systemd's watchdog, if run under
// one, from a separate goroutine on a fixed interval; the pings do not
// depend on decoding making progress.
package main

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/coreos/go-systemd/daemon"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/blackbox/container/blackbox"
)

const (
	logPath      = "/var/log/blackbox-watch/blackbox-watch.log"
	logMaxSize   = 100 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logSuppress  = true

	watchdogInterval = 10 * time.Second
)

func main() {
	pathPtr := flag.String("path", "", "Path to the Blackbox log file to watch.")
	flag.Parse()
	if *pathPtr == "" {
		flag.Usage()
		os.Exit(2)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	l := logging.New(logging.Info, io.MultiWriter(fileLog, os.Stderr), logSuppress)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.Fatal("could not create file watcher", "error", err)
	}
	defer watcher.Close()

	if err := watcher.Add(*pathPtr); err != nil {
		l.Fatal("could not watch path", "path", *pathPtr, "error", err)
	}

	go watchdogLoop(l)

	lastSessionsSeen := 0
	rescan := func() {
		data, err := os.ReadFile(*pathPtr)
		if err != nil {
			l.Error("could not read file", "path", *pathPtr, "error", err)
			return
		}
		lf, err := blackbox.Open(data, blackbox.WithLogger(l))
		if err != nil {
			l.Error("could not open log", "error", err)
			return
		}
		if n := lf.SessionCount(); n > lastSessionsSeen {
			l.Info("new sessions appeared", "total", n, "new", n-lastSessionsSeen)
			for i := lastSessionsSeen; i < n; i++ {
				reportNewSession(l, lf, i)
			}
			lastSessionsSeen = n
		}
	}

	rescan()
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				rescan()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.Error("watcher error", "error", err)
		}
	}
}

func reportNewSession(l logging.Logger, lf *blackbox.LogFile, i int) {
	session, err := lf.Session(i)
	if err != nil {
		l.Error("could not open session", "session", i, "error", err)
		return
	}
	err = session.Parse(func(blackbox.Frame) error { return nil })
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
	l.Info("session complete", "session", i, "bytes", totalBytes,
		"desyncCount", totalDesync, "corruptCount", totalCorrupt)
}

// watchdogLoop pings systemd's watchdog on watchdogInterval if this
// process was started with WatchdogSec set in its unit file; SdNotify is
// a no-op otherwise.
func watchdogLoop(l logging.Logger) {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()
	for range ticker.C {
		if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
			l.Warning("systemd watchdog notify failed", "error", err)
		}
	}
}
