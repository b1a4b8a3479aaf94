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

// Package hpi reads, writes, and validates HPI container files, the
// archive format used by Total Annihilation. It is bit-compatible with
// the original engine: every offset, checksum, LZ77 flag bit, and
// obfuscation position matches what the original engine expects.
package hpi

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy in spec.md §7. Wrap these with
// errors.Is-compatible fmt.Errorf("%w: ...") to attach the offending
// path or offset without losing the category.
var (
	// ErrFormatInvalid indicates a bad magic, unknown compression
	// selector, or a structural field outside its declared bounds.
	ErrFormatInvalid = errors.New("hpi: invalid format")

	// ErrIntegrityFailed indicates an additive checksum mismatch, a
	// decoder that did not produce the declared uncompressed size, or a
	// chunk-size table inconsistent with the uncompressed size.
	ErrIntegrityFailed = errors.New("hpi: integrity check failed")

	// ErrOffsetOutOfRange indicates a stored offset below 0x14 or at or
	// beyond the archive size.
	ErrOffsetOutOfRange = errors.New("hpi: offset out of range")

	// ErrUnsupported indicates a compression selector or feature this
	// build does not implement.
	ErrUnsupported = errors.New("hpi: unsupported feature")

	// ErrValidationFailed indicates an assembler round-trip mismatch
	// against a supplied reference archive.
	ErrValidationFailed = errors.New("hpi: validation against reference failed")

	// ErrNotFound indicates a lookup by archive path matched no entry.
	ErrNotFound = errors.New("hpi: entry not found")
)

// OffsetError annotates ErrOffsetOutOfRange with the offending value and
// the archive bound it violated, matching spec.md §7's requirement that
// every error surface "the offending path or offset".
type OffsetError struct {
	Offset  int64
	Archive int64 // total archive size
	Context string
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("hpi: offset %#x out of range [0x14, %#x) (%s)", e.Offset, e.Archive, e.Context)
}

func (e *OffsetError) Unwrap() error { return ErrOffsetOutOfRange }

// ChecksumError annotates ErrIntegrityFailed with the chunk location and
// the checksum values that disagreed.
type ChecksumError struct {
	ChunkOffset int64
	Want        uint32
	Got         uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("hpi: chunk at %#x: checksum mismatch (stored %#x, computed %#x)",
		e.ChunkOffset, e.Want, e.Got)
}

func (e *ChecksumError) Unwrap() error { return ErrIntegrityFailed }

// MagicError annotates ErrFormatInvalid with the magic bytes that were
// expected versus found at a given offset.
type MagicError struct {
	Offset int64
	Want   string
	Got    [4]byte
}

func (e *MagicError) Error() string {
	return fmt.Sprintf("hpi: bad magic at %#x: want %q, got %q", e.Offset, e.Want, string(e.Got[:]))
}

func (e *MagicError) Unwrap() error { return ErrFormatInvalid }

// ValidationError reports the paths an assembler's reference-archive
// comparison found missing or mismatched (spec.md §6).
type ValidationError struct {
	Missing    []string
	Mismatched []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("hpi: validation failed: %d missing, %d mismatched", len(e.Missing), len(e.Mismatched))
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }
