/*
NAME
  session.go - log file scanning and per-session frame iteration.

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
	"bytes"

	"github.com/pkg/errors"
)

// A LogFile is a decompressed in-memory Blackbox log, possibly containing
// several back-to-back logging sessions (spec.md §1: the firmware starts a
// new session, with its own header, each time logging is armed). Open
// scans it once for session boundaries; decoding of each session's frame
// stream happens lazily when the caller asks for it.
//
// LogFile and LogSession are not safe for concurrent use from multiple
// goroutines; callers that want to parse several sessions concurrently
// should give each goroutine its own LogSession obtained from the same
// LogFile, which is safe since LogFile itself is read-only after Open.
type LogFile struct {
	data []byte
	cfg  *config
	spans []sessionSpan
}

// sessionSpan marks the byte range of one session within data: its header
// block starts at headerStart, its frame stream starts at dataStart, and
// runs until end (the next session's headerStart, or len(data)).
type sessionSpan struct {
	headerStart int
	dataStart   int
	end         int
}

// Open scans data for Blackbox logging sessions. data is transparently
// zstd-decompressed first if it appears to be compressed. An error is
// returned only for a decompression failure; a file with no sessions at
// all is not an error here (it surfaces as zero sessions, and as
// ErrNoSession from Session if the caller asks for session 0 anyway).
func Open(data []byte, opts ...Option) (*LogFile, error) {
	c := defaultConfig()
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}

	plain, err := decompressIfNeeded(data)
	if err != nil {
		return nil, err
	}

	return &LogFile{
		data:  plain,
		cfg:   c,
		spans: scanSessions(plain),
	}, nil
}

var sentinelBytes = []byte(LogStartSentinel)

// scanSessions finds every occurrence of LogStartSentinel in data, up to
// MaxLogsInFile, and computes each one's header/data boundary.
func scanSessions(data []byte) []sessionSpan {
	var spans []sessionSpan
	var lastFingerprint uint64
	haveLast := false

	pos := 0
	for len(spans) < MaxLogsInFile {
		rel := bytes.Index(data[pos:], sentinelBytes)
		if rel < 0 {
			break
		}
		start := pos + rel
		dataStart := scanHeaderBlock(data, start)
		fp := headerFingerprint(data[start:dataStart])

		// A sentinel re-occurring with an identical header immediately
		// after the previous one's header block (no frame data between
		// them) is the firmware re-announcing the same session rather
		// than starting a new one; skip it (spec.md §9 open question 2).
		if haveLast && fp == lastFingerprint && len(spans) > 0 && start == spans[len(spans)-1].dataStart {
			pos = dataStart
			continue
		}

		spans = append(spans, sessionSpan{headerStart: start, dataStart: dataStart})
		lastFingerprint, haveLast = fp, true
		pos = dataStart
	}

	for i := range spans {
		if i+1 < len(spans) {
			spans[i].end = spans[i+1].headerStart
		} else {
			spans[i].end = len(data)
		}
	}
	return spans
}

// scanHeaderBlock returns the offset of the first byte after the
// contiguous run of "H ..." lines starting at start. Malformed lines
// within the run (missing a colon, say) are still counted as header
// lines here; HeaderParser.ParseLine is responsible for reporting and
// skipping those individually once real parsing begins.
func scanHeaderBlock(data []byte, start int) int {
	pos := start
	for pos < len(data) {
		nl := bytes.IndexByte(data[pos:], '\n')
		var line []byte
		var next int
		if nl < 0 {
			line = data[pos:]
			next = len(data)
		} else {
			line = data[pos : pos+nl]
			next = pos + nl + 1
		}
		if !bytes.HasPrefix(line, []byte("H ")) {
			return pos
		}
		pos = next
	}
	return pos
}

// SessionCount returns how many logging sessions Open found.
func (lf *LogFile) SessionCount() int { return len(lf.spans) }

// Session returns the i'th session (0-indexed), parsing its header
// immediately. Frame decoding of the session body is still lazy; it
// happens as Parse is called.
func (lf *LogFile) Session(i int) (*LogSession, error) {
	if i < 0 || i >= len(lf.spans) {
		return nil, errors.Wrapf(ErrNoSession, "session index %d out of range (have %d)", i, len(lf.spans))
	}
	span := lf.spans[i]

	hp := NewHeaderParser(lf.cfg.log)
	for _, line := range splitLines(lf.data[span.headerStart:span.dataStart]) {
		line = bytes.TrimPrefix(line, []byte("H "))
		_ = hp.ParseLine(string(line)) // malformed lines are logged and skipped, never fatal
	}

	fd := newFrameDecoder(hp, lf.cfg)
	return &LogSession{
		lf:     lf,
		index:  i,
		hp:     hp,
		fd:     fd,
		stream: NewByteStream(lf.data[span.dataStart:span.end]),
	}, nil
}

func splitLines(b []byte) [][]byte {
	var lines [][]byte
	for len(b) > 0 {
		nl := bytes.IndexByte(b, '\n')
		if nl < 0 {
			lines = append(lines, b)
			break
		}
		lines = append(lines, b[:nl])
		b = b[nl+1:]
	}
	return lines
}

// LogSession is one logging session's parsed header together with a
// FrameDecoder positioned at the start of its frame stream.
type LogSession struct {
	lf     *LogFile
	index  int
	hp     *HeaderParser
	fd     *FrameDecoder
	stream *ByteStream
}

// Config returns the session's parsed system configuration.
func (s *LogSession) Config() *SystemConfig { return s.hp.Config() }

// FrameHandler is called by Parse once per frame, valid or rejected. It
// may return a non-nil error to stop iteration early; that error is then
// returned from Parse unwrapped.
type FrameHandler func(Frame) error

// Parse decodes every frame in the session, invoking handle once per
// frame. Frames that decode and validate successfully are passed with
// Valid true; frames that fail validation or whose type byte is
// unrecognized are still passed, with Valid false and only Kind/Offset
// populated, before Parse skips past them via Resync and continues. Parse
// returns nil at a clean end of stream, ErrCancelled if the WithCancel
// predicate reports true, or whatever error handle returns.
func (s *LogSession) Parse(handle FrameHandler) error {
	for {
		if s.lf.cfg.cancel != nil && s.lf.cfg.cancel() {
			return ErrCancelled
		}

		f, err := s.fd.Next(s.stream)
		if err == ErrEndOfStream {
			return nil
		}
		if err != nil {
			if err := handle(f); err != nil {
				return err
			}
			if !s.fd.Resync(s.stream) {
				return nil
			}
			continue
		}

		if err := handle(f); err != nil {
			return err
		}
	}
}

// Statistics returns the running per-session frame and field statistics.
func (s *LogSession) Statistics() *Statistics { return s.fd.Statistics() }
