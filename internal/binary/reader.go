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

// Package binary provides utilities for reading the little-endian,
// offset-addressed binary structures an HPI archive is built from.
package binary

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxCStringLen bounds a single NUL-terminated name read from an archive,
// so a corrupt or hostile archive missing a terminator cannot force an
// unbounded scan.
const MaxCStringLen = 1 << 16

// ReadAt reads len(buf) bytes from r at offset.
func ReadAt(r io.ReaderAt, offset int64, buf []byte) error {
	if offset < 0 {
		return fmt.Errorf("read at offset %d: negative offset", offset)
	}
	if _, err := r.ReadAt(buf, offset); err != nil {
		return fmt.Errorf("read at offset %#x: %w", offset, err)
	}
	return nil
}

// ReadBytesAt reads n bytes from r at offset.
func ReadBytesAt(r io.ReaderAt, offset int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := ReadAt(r, offset, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadUint8At reads a single byte from r at offset.
func ReadUint8At(r io.ReaderAt, offset int64) (uint8, error) {
	buf := make([]byte, 1)
	if err := ReadAt(r, offset, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint32LEAt reads a little-endian uint32 from r at offset.
func ReadUint32LEAt(r io.ReaderAt, offset int64) (uint32, error) {
	buf := make([]byte, 4)
	if err := ReadAt(r, offset, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ReadCStringAt reads a NUL-terminated ASCII string starting at offset.
// It reads in fixed 64-byte chunks rather than byte-by-byte to avoid pathological
// read-call counts against a slow reader, and refuses to scan past
// MaxCStringLen bytes without finding a terminator.
func ReadCStringAt(r io.ReaderAt, offset int64) (string, error) {
	const chunk = 64
	var acc []byte
	pos := offset
	for len(acc) < MaxCStringLen {
		buf := make([]byte, chunk)
		n, err := r.ReadAt(buf, pos)
		if n > 0 {
			if idx := indexByte(buf[:n], 0); idx >= 0 {
				acc = append(acc, buf[:idx]...)
				return string(acc), nil
			}
			acc = append(acc, buf[:n]...)
			pos += int64(n)
		}
		if err != nil {
			return "", fmt.Errorf("read name at offset %#x: %w", offset, err)
		}
	}
	return "", fmt.Errorf("read name at offset %#x: unterminated after %d bytes", offset, MaxCStringLen)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
