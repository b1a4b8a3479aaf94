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

// treeWriter accumulates the post-header buffer during assembly. Every
// offset it hands out or records is an absolute file offset (buffer
// position + HeaderSize), per spec.md §9's offsets-vs-buffer-indices note.
type treeWriter struct {
	buf  []byte
	mode byte
}

func (w *treeWriter) pos() int64 {
	return int64(len(w.buf)) + HeaderSize
}

func (w *treeWriter) append(b []byte) int64 {
	offset := w.pos()
	w.buf = append(w.buf, b...)
	return offset
}

// writeDirectoryTree performs the two-pass emission of spec.md §4.5 and
// returns the absolute offset at which the root node was written.
func writeDirectoryTree(root *Directory, mode byte) (buf []byte, rootOffset int64, err error) {
	w := &treeWriter{mode: mode}

	if err := w.writePayloads(root); err != nil {
		return nil, 0, err
	}
	rootOffset, err = w.writeDirNode(root)
	if err != nil {
		return nil, 0, err
	}
	return w.buf, rootOffset, nil
}

// writePayloads is Pass 1: depth-first, record each file's chunk-table
// offset and uncompressed size after emitting its payload.
func (w *treeWriter) writePayloads(d *Directory) error {
	dirs, files := sortedChildren(d.Dirs, d.Files)
	for _, f := range files {
		f.Mode = resolveMode(w.mode, f.Data)
		encoded, err := encodeFilePayload(f.Data, f.Mode)
		if err != nil {
			return fmt.Errorf("file %q: %w", f.Name, err)
		}
		f.chunkTableOffset = uint32(w.append(encoded))
		f.uncompressedSize = uint32(len(f.Data))
	}
	for _, sub := range dirs {
		if err := w.writePayloads(sub); err != nil {
			return err
		}
	}
	return nil
}

// writeDirNode is Pass 2, applied recursively: write the 8-byte
// directory header, reserve the entry table, emit each child's name and
// information block, then backfill the entry table.
func (w *treeWriter) writeDirNode(d *Directory) (int64, error) {
	dirs, files := sortedChildren(d.Dirs, d.Files)
	n := len(dirs) + len(files)

	nodeOffset := w.append(make([]byte, 8+9*n))
	binary.LittleEndian.PutUint32(w.bufAt(nodeOffset), uint32(n))
	binary.LittleEndian.PutUint32(w.bufAt(nodeOffset+4), d.dataOffset)

	type childInfo struct {
		nameOffset uint32
		infoOffset uint32
		flags      byte
	}
	children := make([]childInfo, 0, n)

	for _, sub := range dirs {
		nameOffset := w.writeCString(sub.Name)
		infoOffset, err := w.writeDirNode(sub)
		if err != nil {
			return 0, err
		}
		children = append(children, childInfo{uint32(nameOffset), uint32(infoOffset), flagDirectory})
	}
	for _, f := range files {
		nameOffset := w.writeCString(f.Name)
		infoOffset := w.append(make([]byte, 8))
		binary.LittleEndian.PutUint32(w.bufAt(infoOffset), f.chunkTableOffset)
		binary.LittleEndian.PutUint32(w.bufAt(infoOffset+4), f.uncompressedSize)
		flags := byte(0)
		if f.Mode != ModeStored {
			flags = flagCompressed
		}
		children = append(children, childInfo{uint32(nameOffset), uint32(infoOffset), flags})
	}

	entryTable := w.bufAt(nodeOffset + 8)
	for i, c := range children {
		rec := entryTable[i*9 : i*9+9]
		binary.LittleEndian.PutUint32(rec[0:4], c.nameOffset)
		binary.LittleEndian.PutUint32(rec[4:8], c.infoOffset)
		rec[8] = c.flags
	}

	return nodeOffset, nil
}

// writeCString appends name followed by a NUL terminator and returns its
// absolute offset.
func (w *treeWriter) writeCString(name string) int64 {
	b := make([]byte, len(name)+1)
	copy(b, name)
	return w.append(b)
}

// bufAt returns a slice of w.buf starting at absolute file offset
// offset, for in-place field writes into already-reserved space.
func (w *treeWriter) bufAt(offset int64) []byte {
	return w.buf[offset-HeaderSize:]
}

// treeEntry is the parser's lightweight view of one archive entry: just
// enough to decode on demand without re-walking the tree.
type treeEntry struct {
	isDir bool

	// Valid when isDir is true.
	dirOffset int64

	// Valid when isDir is false.
	chunkTableOffset int64
	uncompressedSize int
	compressed       bool
}

// readDirectoryTree parses the directory tree rooted at rootOffset and
// returns a path (forward-slash separated, original case) to entry index.
func readDirectoryTree(buf []byte, rootOffset int64) (map[string]*treeEntry, error) {
	index := make(map[string]*treeEntry)
	visited := make(map[int64]bool)
	if err := readDirNode(buf, rootOffset, "", index, visited); err != nil {
		return nil, err
	}
	return index, nil
}

func readDirNode(buf []byte, offset int64, prefix string, index map[string]*treeEntry, visited map[int64]bool) error {
	if visited[offset] {
		return fmt.Errorf("%w: directory node at %#x: cycle detected", ErrFormatInvalid, offset)
	}
	visited[offset] = true

	archiveSize := int64(len(buf)) + HeaderSize
	if err := checkOffset(offset, archiveSize, "directory node"); err != nil {
		return err
	}

	local := offset - HeaderSize
	if local+8 > int64(len(buf)) {
		return fmt.Errorf("%w: directory node at %#x: truncated header", ErrFormatInvalid, offset)
	}

	n := binary.LittleEndian.Uint32(buf[local : local+4])
	tableStart := local + 8
	tableEnd := tableStart + int64(n)*9
	if tableEnd > int64(len(buf)) {
		return fmt.Errorf("%w: directory node at %#x: entry table of %d entries exceeds archive",
			ErrFormatInvalid, offset, n)
	}

	for i := uint32(0); i < n; i++ {
		rec := buf[tableStart+int64(i)*9 : tableStart+int64(i)*9+9]
		nameOffset := int64(binary.LittleEndian.Uint32(rec[0:4]))
		infoOffset := int64(binary.LittleEndian.Uint32(rec[4:8]))
		flags := rec[8]

		if err := checkOffset(nameOffset, archiveSize, "entry name"); err != nil {
			return err
		}
		if err := checkOffset(infoOffset, archiveSize, "entry information block"); err != nil {
			return err
		}

		name, err := readCString(buf, nameOffset)
		if err != nil {
			return err
		}

		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}

		if flags&flagDirectory != 0 {
			index[path] = &treeEntry{isDir: true, dirOffset: infoOffset}
			if err := readDirNode(buf, infoOffset, path, index, visited); err != nil {
				return err
			}
			continue
		}

		infoLocal := infoOffset - HeaderSize
		if infoLocal+8 > int64(len(buf)) {
			return fmt.Errorf("%w: file information block at %#x: truncated", ErrFormatInvalid, infoOffset)
		}
		chunkTableOffset := int64(binary.LittleEndian.Uint32(buf[infoLocal : infoLocal+4]))
		uncompressedSize := binary.LittleEndian.Uint32(buf[infoLocal+4 : infoLocal+8])

		index[path] = &treeEntry{
			isDir:            false,
			chunkTableOffset: chunkTableOffset,
			uncompressedSize: int(uncompressedSize),
			compressed:       flags&flagCompressed != 0,
		}
	}

	return nil
}

// readCString reads a NUL-terminated name starting at the absolute file
// offset nameOffset within buf (whose position 0 is file offset
// HeaderSize).
func readCString(buf []byte, nameOffset int64) (string, error) {
	local := nameOffset - HeaderSize
	if local < 0 || local >= int64(len(buf)) {
		return "", fmt.Errorf("%w: name at %#x", ErrOffsetOutOfRange, nameOffset)
	}
	end := local
	for end < int64(len(buf)) && buf[end] != 0 {
		end++
	}
	if end >= int64(len(buf)) {
		return "", fmt.Errorf("%w: name at %#x: unterminated", ErrFormatInvalid, nameOffset)
	}
	return string(buf[local:end]), nil
}
