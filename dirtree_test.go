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
	"encoding/binary"
	"testing"
)

func TestDirectoryTreeRoundTrip(t *testing.T) {
	t.Parallel()

	tree := &Directory{
		Files: []*File{
			{Name: "root.txt", Data: []byte("root file")},
		},
		Dirs: []*Directory{
			{
				Name: "subdir",
				Files: []*File{
					{Name: "nested.txt", Data: []byte("Nested file content")},
				},
			},
			{Name: "emptydir"},
		},
	}

	buf, rootOffset, err := writeDirectoryTree(tree, ModeDeflate)
	if err != nil {
		t.Fatalf("writeDirectoryTree() error = %v", err)
	}

	index, err := readDirectoryTree(buf, rootOffset)
	if err != nil {
		t.Fatalf("readDirectoryTree() error = %v", err)
	}

	wantFiles := map[string]string{
		"root.txt":          "root file",
		"subdir/nested.txt": "Nested file content",
	}
	for path, want := range wantFiles {
		e, ok := index[path]
		if !ok {
			t.Fatalf("entry %q missing from index", path)
		}
		if e.isDir {
			t.Fatalf("entry %q: want file, got directory", path)
		}
		got, err := decodeFilePayload(buf, e.chunkTableOffset-HeaderSize, e.uncompressedSize)
		if err != nil {
			t.Fatalf("decodeFilePayload(%q) error = %v", path, err)
		}
		if !bytes.Equal(got, []byte(want)) {
			t.Errorf("entry %q = %q, want %q", path, got, want)
		}
	}

	if e, ok := index["subdir"]; !ok || !e.isDir {
		t.Error("entry \"subdir\" missing or not a directory")
	}
	if e, ok := index["emptydir"]; !ok || !e.isDir {
		t.Error("entry \"emptydir\" missing or not a directory")
	}
}

func TestDirectoryTreeEmptyRoot(t *testing.T) {
	t.Parallel()

	tree := &Directory{}

	buf, rootOffset, err := writeDirectoryTree(tree, ModeStored)
	if err != nil {
		t.Fatalf("writeDirectoryTree() error = %v", err)
	}

	index, err := readDirectoryTree(buf, rootOffset)
	if err != nil {
		t.Fatalf("readDirectoryTree() error = %v", err)
	}
	if len(index) != 0 {
		t.Errorf("empty root tree: got %d entries, want 0", len(index))
	}
}

func TestDirectoryTreeCanonicalOrdering(t *testing.T) {
	t.Parallel()

	// Deliberately out-of-order input; writeDirectoryTree must produce
	// identical bytes regardless of input order (spec.md §8, property 8).
	treeA := &Directory{
		Files: []*File{{Name: "b.txt", Data: []byte("B")}, {Name: "a.txt", Data: []byte("A")}},
		Dirs:  []*Directory{{Name: "z"}, {Name: "m"}},
	}
	treeB := &Directory{
		Files: []*File{{Name: "a.txt", Data: []byte("A")}, {Name: "b.txt", Data: []byte("B")}},
		Dirs:  []*Directory{{Name: "m"}, {Name: "z"}},
	}

	bufA, rootA, errA := writeDirectoryTree(treeA, ModeStored)
	bufB, rootB, errB := writeDirectoryTree(treeB, ModeStored)
	if errA != nil || errB != nil {
		t.Fatalf("writeDirectoryTree() errors: %v, %v", errA, errB)
	}
	if rootA != rootB {
		t.Errorf("root offsets differ: %d vs %d", rootA, rootB)
	}
	if !bytes.Equal(bufA, bufB) {
		t.Error("canonical ordering did not make independently-ordered trees byte-identical")
	}
}

func TestDirectoryTreeCycleDetection(t *testing.T) {
	t.Parallel()

	// A directory node whose single entry points back at itself.
	buf := make([]byte, 8+9)
	// entry count = 1, reserved = 0
	buf[0] = 1
	// entry record: name offset, info offset (= this node itself), flags=dir
	nameOffset := HeaderSize + int64(len(buf))
	buf = append(buf, []byte("self\x00")...)

	rec := buf[8 : 8+9]
	binary.LittleEndian.PutUint32(rec[0:4], uint32(nameOffset))
	binary.LittleEndian.PutUint32(rec[4:8], uint32(HeaderSize)) // points back to offset 0x14, itself
	rec[8] = flagDirectory

	if _, err := readDirectoryTree(buf, HeaderSize); err == nil {
		t.Error("readDirectoryTree() with a self-referencing node: expected cycle error, got nil")
	}
}
