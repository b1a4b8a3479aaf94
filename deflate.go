// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-gameid.
//
// go-gameid is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-gameid is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-gameid.  If not, see <https://www.gnu.org/licenses/>.

package hpi

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// deflateDecode decompresses a zlib-wrapped deflate (RFC 1950) payload to
// at most uncompressedSize bytes, the selector-2 SQSH mode of spec.md
// §4.2. A stream that ends early yields fewer bytes without an error;
// decodeSQSHChunk checks the length against the chunk header. The
// original engine writes a zlib header and Adler-32 trailer around the
// deflate stream, not raw RFC 1951 deflate.
func deflateDecode(payload []byte, uncompressedSize int) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib: %v", ErrIntegrityFailed, err)
	}
	defer func() { _ = reader.Close() }()

	out := make([]byte, uncompressedSize)
	n, err := io.ReadFull(reader, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w: zlib: %v", ErrIntegrityFailed, err)
	}
	return out[:n], nil
}

// deflateEncode compresses plain into a zlib-wrapped deflate stream at
// the default level.
func deflateEncode(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	if _, err := w.Write(plain); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return buf.Bytes(), nil
}
