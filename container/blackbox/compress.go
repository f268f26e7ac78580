/*
NAME
  compress.go - transparent zstd decompression of log data.

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
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// zstdMagic is the 4-byte frame magic number zstd prepends to every
// compressed stream.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// decompressIfNeeded returns data unchanged unless it begins with the zstd
// frame magic, in which case it returns the fully decompressed contents.
// Log files are occasionally shipped zstd-compressed by ground-station
// tooling that rotates them before upload; this lets Open accept
// either transparently.
func decompressIfNeeded(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "opening zstd reader")
	}
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, errors.Wrap(err, "decompressing zstd log data")
	}
	return out, nil
}
