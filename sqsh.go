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

// sqshMagic is the literal ASCII bytes "SQSH" at the start of every chunk.
var sqshMagic = [4]byte{'S', 'Q', 'S', 'H'}

// SQSH chunk compression selectors (spec.md §3).
const (
	ModeStored  = 0
	ModeLZ77    = 1
	ModeDeflate = 2
)

// MaxUncompressedChunk is the largest uncompressed size a single SQSH
// chunk may declare (spec.md §3, invariant 5).
const MaxUncompressedChunk = 65536

// sqshHeaderSize is the fixed 19-byte header preceding every chunk's payload.
const sqshHeaderSize = 19

// sqshHeader is the parsed 19-byte SQSH chunk header.
type sqshHeader struct {
	Mode             byte
	Obfuscated       bool
	CompressedSize   uint32
	UncompressedSize uint32
	Checksum         uint32
}

// decodeSQSHHeader parses the 19-byte header at the start of buf.
func decodeSQSHHeader(buf []byte, offset int64) (sqshHeader, error) {
	if len(buf) < sqshHeaderSize {
		return sqshHeader{}, fmt.Errorf("%w: chunk at %#x: truncated header", ErrFormatInvalid, offset)
	}

	var gotMagic [4]byte
	copy(gotMagic[:], buf[0:4])
	if gotMagic != sqshMagic {
		return sqshHeader{}, &MagicError{Offset: offset, Want: string(sqshMagic[:]), Got: gotMagic}
	}

	h := sqshHeader{
		Mode:             buf[5],
		Obfuscated:       buf[6] != 0,
		CompressedSize:   binary.LittleEndian.Uint32(buf[7:11]),
		UncompressedSize: binary.LittleEndian.Uint32(buf[11:15]),
		Checksum:         binary.LittleEndian.Uint32(buf[15:19]),
	}

	if h.UncompressedSize > MaxUncompressedChunk {
		return sqshHeader{}, fmt.Errorf("%w: chunk at %#x: uncompressed size %d exceeds %d",
			ErrFormatInvalid, offset, h.UncompressedSize, MaxUncompressedChunk)
	}

	switch h.Mode {
	case ModeStored, ModeLZ77, ModeDeflate:
	default:
		return sqshHeader{}, fmt.Errorf("%w: chunk at %#x: unknown compression selector %d",
			ErrFormatInvalid, offset, h.Mode)
	}

	return h, nil
}

// encodeSQSHHeader serializes h into its fixed 19-byte on-disk form.
func encodeSQSHHeader(h sqshHeader) []byte {
	buf := make([]byte, sqshHeaderSize)
	copy(buf[0:4], sqshMagic[:])
	buf[4] = 0 // reserved
	buf[5] = h.Mode
	if h.Obfuscated {
		buf[6] = 1
	}
	binary.LittleEndian.PutUint32(buf[7:11], h.CompressedSize)
	binary.LittleEndian.PutUint32(buf[11:15], h.UncompressedSize)
	binary.LittleEndian.PutUint32(buf[15:19], h.Checksum)
	return buf
}

// additiveChecksum computes the low 32 bits of the unsigned sum of every
// byte in payload (spec.md §3, "Additive checksum").
func additiveChecksum(payload []byte) uint32 {
	var sum uint32
	for _, b := range payload {
		sum += uint32(b)
	}
	return sum
}

// unobfuscatePayload reverses the optional per-chunk obfuscation flag
// (spec.md §4.2): byte b at index i becomes ((b - (i&0xFF)) ^ (i&0xFF)) & 0xFF.
func unobfuscatePayload(payload []byte) []byte {
	out := make([]byte, len(payload))
	for i, b := range payload {
		k := byte(i & 0xFF)
		out[i] = (b - k) ^ k
	}
	return out
}

// obfuscatePayload applies the same per-chunk transform forward: the
// inverse of unobfuscatePayload. b becomes (b^k) + k, since
// unobfuscate((b^k)+k) = ((((b^k)+k) - k) ^ k) = (b^k)^k = b.
func obfuscatePayload(payload []byte) []byte {
	out := make([]byte, len(payload))
	for i, b := range payload {
		k := byte(i & 0xFF)
		out[i] = (b ^ k) + k
	}
	return out
}

// decodeSQSHChunk decodes one SQSH chunk starting at offset within buf
// (buf must extend at least sqshHeaderSize+CompressedSize bytes past
// offset) and returns exactly UncompressedSize bytes of plaintext.
func decodeSQSHChunk(buf []byte, offset int64) ([]byte, error) {
	header, err := decodeSQSHHeader(buf[offset:], offset)
	if err != nil {
		return nil, err
	}

	payloadStart := offset + sqshHeaderSize
	payloadEnd := payloadStart + int64(header.CompressedSize)
	if payloadEnd > int64(len(buf)) {
		return nil, fmt.Errorf("%w: chunk at %#x: payload of %d bytes exceeds archive",
			ErrFormatInvalid, offset, header.CompressedSize)
	}
	payload := buf[payloadStart:payloadEnd]

	if header.Obfuscated {
		payload = unobfuscatePayload(payload)
	}

	if sum := additiveChecksum(payload); sum != header.Checksum {
		return nil, &ChecksumError{ChunkOffset: offset, Want: header.Checksum, Got: sum}
	}

	plain, err := decompress(header.Mode, payload, int(header.UncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("chunk at %#x: %w", offset, err)
	}
	if uint32(len(plain)) != header.UncompressedSize {
		return nil, fmt.Errorf("%w: chunk at %#x: decoded %d bytes, header declares %d",
			ErrIntegrityFailed, offset, len(plain), header.UncompressedSize)
	}

	return plain, nil
}

// encodeSQSHChunk compresses plain with the requested mode and returns
// the full 19-byte-header-plus-payload on-disk representation.
func encodeSQSHChunk(mode byte, plain []byte) ([]byte, error) {
	if len(plain) > MaxUncompressedChunk {
		return nil, fmt.Errorf("%w: chunk of %d bytes exceeds max %d", ErrFormatInvalid, len(plain), MaxUncompressedChunk)
	}

	payload, err := compress(mode, plain)
	if err != nil {
		return nil, err
	}

	header := sqshHeader{
		Mode:             mode,
		Obfuscated:       false,
		CompressedSize:   uint32(len(payload)),
		UncompressedSize: uint32(len(plain)),
		Checksum:         additiveChecksum(payload),
	}

	out := encodeSQSHHeader(header)
	out = append(out, payload...)
	return out, nil
}

// decompress dispatches to the codec named by mode, expecting exactly
// uncompressedSize bytes of output.
func decompress(mode byte, payload []byte, uncompressedSize int) ([]byte, error) {
	switch mode {
	case ModeStored:
		if len(payload) != uncompressedSize {
			return nil, fmt.Errorf("%w: stored payload is %d bytes, want %d",
				ErrIntegrityFailed, len(payload), uncompressedSize)
		}
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case ModeLZ77:
		return lz77Decode(payload, uncompressedSize)
	case ModeDeflate:
		return deflateDecode(payload, uncompressedSize)
	default:
		return nil, fmt.Errorf("%w: compression selector %d", ErrUnsupported, mode)
	}
}

// compress dispatches to the codec named by mode for encoding.
func compress(mode byte, plain []byte) ([]byte, error) {
	switch mode {
	case ModeStored:
		out := make([]byte, len(plain))
		copy(out, plain)
		return out, nil
	case ModeLZ77:
		return lz77Encode(plain), nil
	case ModeDeflate:
		return deflateEncode(plain)
	default:
		return nil, fmt.Errorf("%w: compression selector %d", ErrUnsupported, mode)
	}
}
