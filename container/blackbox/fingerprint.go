/*
NAME
  fingerprint.go - header fingerprinting for duplicate session detection.

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

import "github.com/cespare/xxhash/v2"

// headerFingerprint hashes the raw bytes of one session's header block
// (from its LogStartSentinel line up to, but not including, the first
// non-header byte). Two sessions in the same file with identical
// fingerprints are very likely a firmware quirk that re-emits the sentinel
// mid-stream rather than two genuinely distinct sessions (spec.md §9 open
// question 2); Open uses this to decide whether to treat a
// candidate sentinel as starting a new session.
func headerFingerprint(headerBlock []byte) uint64 {
	return xxhash.Sum64(headerBlock)
}
