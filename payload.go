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
	"encoding/binary"
	"fmt"
)

// chunkSize is the fixed slice width a file body is split into before
// each slice is wrapped as its own SQSH chunk (spec.md §4.4).
const chunkSize = MaxUncompressedChunk

// numChunks returns how many chunkSize slices a body of size bytes
// splits into: ceil(size/chunkSize), which is 0 for an empty body —
// spec.md §4.4's boundary case has no chunk-size table entries and no
// chunks at all for a zero-byte file.
func numChunks(size int) int {
	return (size + chunkSize - 1) / chunkSize
}

// decodeFilePayload reads and reassembles a file's full content. offset
// is the chunk-size table's position within buf (both share the same
// origin — callers translate an absolute file offset to a buf position
// by subtracting HeaderSize before calling); uncompressedSize is the
// information block's declared total size.
func decodeFilePayload(buf []byte, offset int64, uncompressedSize int) ([]byte, error) {
	n := numChunks(uncompressedSize)

	tableEnd := offset + int64(n)*4
	if tableEnd > int64(len(buf)) || offset < 0 {
		return nil, fmt.Errorf("%w: chunk size table at %#x: out of range", ErrOffsetOutOfRange, offset)
	}

	sizes := make([]uint32, n)
	for i := 0; i < n; i++ {
		sizes[i] = binary.LittleEndian.Uint32(buf[offset+int64(i)*4 : offset+int64(i)*4+4])
	}

	out := make([]byte, 0, uncompressedSize)
	pos := tableEnd
	for i, sz := range sizes {
		if pos+int64(sz) > int64(len(buf)) {
			return nil, fmt.Errorf("%w: chunk %d at %#x: declared size %d exceeds archive",
				ErrOffsetOutOfRange, i, pos, sz)
		}
		plain, err := decodeSQSHChunk(buf, pos)
		if err != nil {
			return nil, fmt.Errorf("file payload chunk %d: %w", i, err)
		}
		out = append(out, plain...)
		pos += int64(sz)
	}

	if len(out) != uncompressedSize {
		return nil, fmt.Errorf("%w: payload reassembled to %d bytes, information block declares %d",
			ErrIntegrityFailed, len(out), uncompressedSize)
	}

	return out, nil
}

// encodeFilePayload splits data into chunkSize slices, compresses each
// with mode, and returns the chunk-size table immediately followed by
// the chunks themselves — the exact byte range spec.md §4.4 describes
// as a file's on-disk payload.
func encodeFilePayload(data []byte, mode byte) ([]byte, error) {
	n := numChunks(len(data))
	chunks := make([][]byte, n)

	for i := 0; i < n; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		encoded, err := encodeSQSHChunk(mode, data[start:end])
		if err != nil {
			return nil, fmt.Errorf("file payload chunk %d: %w", i, err)
		}
		chunks[i] = encoded
	}

	table := make([]byte, n*4)
	for i, c := range chunks {
		binary.LittleEndian.PutUint32(table[i*4:i*4+4], uint32(len(c)))
	}

	out := table
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out, nil
}
