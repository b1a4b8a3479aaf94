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
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// ModeAuto asks the assembler to pick stored or deflate per file by
// trying deflate and keeping it only if it is smaller (SPEC_FULL.md §7).
// It is never a valid on-disk SQSH selector; resolveMode always replaces
// it before a chunk is encoded.
const ModeAuto = 0xFF

// resolveMode turns a requested mode (one of ModeStored, ModeLZ77,
// ModeDeflate, or ModeAuto) into a concrete SQSH selector for data.
func resolveMode(requested byte, data []byte) byte {
	if requested != ModeAuto {
		return requested
	}
	if len(data) == 0 {
		return ModeStored
	}
	encoded, err := deflateEncode(data)
	if err != nil || len(encoded) >= len(data) {
		return ModeStored
	}
	return ModeDeflate
}

// AssembleOptions configures one assembly run (spec.md §6, "Assembler inputs").
type AssembleOptions struct {
	// Mode is the compression selector applied to every file: ModeStored,
	// ModeLZ77, ModeDeflate, or ModeAuto.
	Mode byte

	// Key is the obfuscation key byte written to the header; 0 disables
	// obfuscation.
	Key byte

	// Reference, if non-empty, names an existing archive (read through
	// the same afero.Fs passed to Assemble) to validate the assembled
	// tree against.
	Reference string
}

// AssembleResult reports the outcome of a successful Assemble call.
type AssembleResult struct {
	// Archive is the complete on-disk byte representation: header
	// followed by the obfuscated body.
	Archive []byte

	// SHA256 is the digest of Archive.
	SHA256 [32]byte

	// Validation is non-nil when Reference was set and the comparison
	// found missing or mismatched files. It is never returned as an
	// error: per spec.md §6, validation failure is reported, not fatal.
	Validation *ValidationError
}

// Assemble walks root within fsys into a directory model using the
// canonical ordering of spec.md §4.5, emits it as a fresh HPI archive,
// and optionally validates the result against a reference archive.
func Assemble(fsys afero.Fs, root string, opts AssembleOptions) (*AssembleResult, error) {
	tree, err := buildTree(fsys, root)
	if err != nil {
		return nil, err
	}

	body, rootOffset, err := writeDirectoryTree(tree, opts.Mode)
	if err != nil {
		return nil, fmt.Errorf("assemble %q: %w", root, err)
	}

	header := Header{
		Size:       uint32(int64(len(body)) + HeaderSize),
		Key:        opts.Key,
		RootOffset: uint32(rootOffset),
	}

	transformRange(body, header)

	archive := make([]byte, 0, len(body)+HeaderSize)
	archive = append(archive, encodeHeader(header)...)
	archive = append(archive, body...)

	result := &AssembleResult{
		Archive: archive,
		SHA256:  sha256.Sum256(archive),
	}

	if opts.Reference != "" {
		ref, err := OpenFS(fsys, opts.Reference)
		if err != nil {
			return nil, fmt.Errorf("validate against %q: %w", opts.Reference, err)
		}
		result.Validation = validateAgainst(ref, tree)
	}

	return result, nil
}

// buildTree reads dir within fsys into a Directory, recursing into
// subdirectories. Child order within the returned tree is whatever
// ReadDir yields; writeDirectoryTree re-sorts it canonically.
func buildTree(fsys afero.Fs, dir string) (*Directory, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %q: %w", dir, err)
	}

	d := &Directory{}
	for _, info := range infos {
		childPath := filepath.Join(dir, info.Name())
		if info.IsDir() {
			sub, err := buildTree(fsys, childPath)
			if err != nil {
				return nil, err
			}
			sub.Name = info.Name()
			d.Dirs = append(d.Dirs, sub)
			continue
		}

		data, err := afero.ReadFile(fsys, childPath)
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", childPath, err)
		}
		d.Files = append(d.Files, &File{Name: info.Name(), Data: data})
	}
	return d, nil
}

// validateAgainst compares every file in ref against the in-memory tree
// just assembled, per spec.md §4.6: every reference file must be present
// with byte-identical content. Files present only in tree never cause a
// failure; they are also not reported, since ValidationError carries only
// missing and mismatched paths.
func validateAgainst(ref *Parser, tree *Directory) *ValidationError {
	treeFiles := make(map[string][]byte)
	_ = tree.Walk(func(path string, f *File) error {
		treeFiles[path] = f.Data
		return nil
	})

	var missing, mismatched []string
	for _, path := range ref.List() {
		refData, err := ref.Decode(path)
		if err != nil {
			mismatched = append(mismatched, path)
			continue
		}
		data, ok := treeFiles[path]
		if !ok {
			missing = append(missing, path)
			continue
		}
		if !bytes.Equal(data, refData) {
			mismatched = append(mismatched, path)
		}
	}

	if len(missing) == 0 && len(mismatched) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(mismatched)
	return &ValidationError{Missing: missing, Mismatched: mismatched}
}
