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

import "sort"

// entryFlags bitmask on a directory entry record (spec.md §3).
const (
	flagDirectory  = 0x01
	flagCompressed = 0x02
)

// Directory is an in-memory node of the parsed or to-be-assembled
// directory tree (spec.md §3, "Directory model"). The root directory
// has an empty Name.
type Directory struct {
	Name  string
	Dirs  []*Directory
	Files []*File

	// dataOffset is the reserved, opaque data-section offset carried at
	// O+4 of this node's on-disk representation. Readers ignore its
	// meaning (spec.md §9, open question). The writer emits whatever value
	// the node holds; the parser builds a flat path index rather than
	// Directory nodes, so nothing in this package sets it and assembled
	// archives always carry zero here.
	dataOffset uint32
}

// File is an in-memory leaf node holding a file's full uncompressed
// content.
type File struct {
	Name string
	Data []byte

	// Mode records the concrete compression selector the writer used for
	// this file. writePayloads sets it from the assembler's configured
	// mode (with ModeAuto resolved), overwriting any earlier value, and
	// writeDirNode reads it to set the entry's compressed flag.
	Mode byte

	// chunkTableOffset and uncompressedSize are Pass-1 bookkeeping
	// (spec.md §4.5): the writer records them here after emitting this
	// file's payload, and Pass 2 reads them back to build the
	// information block. Meaningless outside an in-progress write.
	chunkTableOffset uint32
	uncompressedSize uint32
}

// sortedChildren returns dirs and files reordered into the canonical
// write order of spec.md §4.5: all subdirectories first, then all
// files, each group sorted by name. The parser must never assume this
// order on read; only the assembler produces it.
func sortedChildren(dirs []*Directory, files []*File) ([]*Directory, []*File) {
	outDirs := append([]*Directory(nil), dirs...)
	outFiles := append([]*File(nil), files...)
	sort.Slice(outDirs, func(i, j int) bool { return outDirs[i].Name < outDirs[j].Name })
	sort.Slice(outFiles, func(i, j int) bool { return outFiles[i].Name < outFiles[j].Name })
	return outDirs, outFiles
}

// Walk calls fn for every file in the tree, passing its full slash-
// separated path relative to the tree root.
func (d *Directory) Walk(fn func(path string, f *File) error) error {
	return d.walk("", fn)
}

func (d *Directory) walk(prefix string, fn func(path string, f *File) error) error {
	dirs, files := sortedChildren(d.Dirs, d.Files)
	for _, f := range files {
		p := f.Name
		if prefix != "" {
			p = prefix + "/" + f.Name
		}
		if err := fn(p, f); err != nil {
			return err
		}
	}
	for _, sub := range dirs {
		p := sub.Name
		if prefix != "" {
			p = prefix + "/" + sub.Name
		}
		if err := sub.walk(p, fn); err != nil {
			return err
		}
	}
	return nil
}
