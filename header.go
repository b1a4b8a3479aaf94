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

	hbin "github.com/hpiarchive/hpi/internal/binary"
)

// HeaderSize is the fixed size, in bytes, of the archive header.
const HeaderSize = 20

// MinOffset is the lowest absolute file offset any stored offset may
// legally reference — everything before it belongs to the header.
const MinOffset = HeaderSize

// FormatVersion is the only version tag this codec accepts.
const FormatVersion = 0x00010000

// magic is the literal ASCII bytes "HAPI" at the start of every archive.
var magic = [4]byte{'H', 'A', 'P', 'I'}

// Header is the 20-byte, unobfuscated prefix of every HPI archive.
// Field layout, little-endian, matches spec.md §3 exactly.
type Header struct {
	Size       uint32 // total archive size in bytes
	Key        byte   // obfuscation key byte; 0 means no obfuscation
	RootOffset uint32 // absolute file offset of the root directory node
}

// effectiveKey derives K′ from the raw header key byte K, per spec.md §4.1:
//
//	K′ = ((K >> 6) | (K << 2)) & 0xFF) ⊕ 0xFF
func (h Header) effectiveKey() byte {
	rotated := (h.Key >> 6) | (h.Key << 2)
	return rotated ^ 0xFF
}

// obfuscated reports whether the payload region uses the XOR transform.
func (h Header) obfuscated() bool {
	return h.Key != 0
}

// encodeHeader serializes h into the fixed 20-byte on-disk layout.
func encodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(buf[8:12], h.Size)
	buf[12] = h.Key
	// buf[13:16] reserved, left zero
	binary.LittleEndian.PutUint32(buf[16:20], h.RootOffset)
	return buf
}

// decodeHeader parses and validates the 20-byte header at the start of r.
// archiveSize is the caller-observed physical length of the file, used to
// check the header's declared size invariant (spec.md §3, invariant 2).
func decodeHeader(r readerAt, archiveSize int64) (Header, error) {
	buf, err := hbin.ReadBytesAt(r, 0, HeaderSize)
	if err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}

	var gotMagic [4]byte
	copy(gotMagic[:], buf[0:4])
	if gotMagic != magic {
		return Header{}, &MagicError{Offset: 0, Want: string(magic[:]), Got: gotMagic}
	}

	version := binary.LittleEndian.Uint32(buf[4:8])
	if version != FormatVersion {
		return Header{}, fmt.Errorf("%w: version %#x at offset 0", ErrFormatInvalid, version)
	}

	size := binary.LittleEndian.Uint32(buf[8:12])
	if int64(size) != archiveSize {
		return Header{}, fmt.Errorf("%w: header declares size %d, file is %d bytes",
			ErrFormatInvalid, size, archiveSize)
	}

	h := Header{
		Size:       size,
		Key:        buf[12],
		RootOffset: binary.LittleEndian.Uint32(buf[16:20]),
	}

	if err := checkOffset(int64(h.RootOffset), archiveSize, "root directory offset"); err != nil {
		return Header{}, err
	}

	return h, nil
}

// checkOffset enforces invariant 1 of spec.md §3: every stored offset is
// >= 0x14 and < archive size.
func checkOffset(offset, archiveSize int64, context string) error {
	if offset < MinOffset || offset >= archiveSize {
		return &OffsetError{Offset: offset, Archive: archiveSize, Context: context}
	}
	return nil
}

// readerAt is the minimal capability the codec needs from its input; it
// is satisfied by *os.File, *bytes.Reader, and the in-memory buffers the
// parser and assembler build their sessions around.
type readerAt interface {
	ReadAt(p []byte, off int64) (int, error)
}
