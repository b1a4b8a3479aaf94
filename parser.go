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
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	hbin "github.com/hpiarchive/hpi/internal/binary"
)

// decodedChunkCacheSize bounds the number of distinct files a Parser
// keeps fully decoded in memory at once. A session that calls Decode
// repeatedly on the same handful of large files (the common extraction
// pattern) avoids re-running the SQSH/LZ77 pipeline on every call.
const decodedChunkCacheSize = 64

// Parser holds one opened archive's in-memory session (spec.md §5: "An
// archive session ... owns a contiguous in-memory buffer sized to the
// archive"). It is built once by Open and is safe to read from
// concurrently, since all of its state is immutable after construction
// except the decode cache, which golang-lru guards internally.
type Parser struct {
	header Header
	buf    []byte // post-header buffer; position 0 == absolute file offset HeaderSize

	index map[string]*treeEntry // original-case path -> entry
	lower map[string]string     // case-folded path -> original-case path

	cache *lru.Cache[int64, []byte] // chunk-table offset -> decoded bytes
}

// Open parses the archive readable through r, whose total length is
// size.
func Open(r io.ReaderAt, size int64) (*Parser, error) {
	header, err := decodeHeader(r, size)
	if err != nil {
		return nil, err
	}

	buf, err := hbin.ReadBytesAt(r, HeaderSize, int(size-HeaderSize))
	if err != nil {
		return nil, fmt.Errorf("read archive body: %w", err)
	}

	transformRange(buf, header)

	index, err := readDirectoryTree(buf, int64(header.RootOffset))
	if err != nil {
		return nil, err
	}

	lower := make(map[string]string, len(index))
	for p := range index {
		lower[lowerPath(p)] = p
	}

	cache, err := lru.New[int64, []byte](decodedChunkCacheSize)
	if err != nil {
		return nil, fmt.Errorf("build decode cache: %w", err)
	}

	return &Parser{header: header, buf: buf, index: index, lower: lower, cache: cache}, nil
}

// OpenBytes parses an archive already fully loaded into memory.
func OpenBytes(data []byte) (*Parser, error) {
	return Open(bytes.NewReader(data), int64(len(data)))
}

// OpenFS parses the archive at path within fsys.
func OpenFS(fsys afero.Fs, path string) (*Parser, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", path, err)
	}
	return OpenBytes(data)
}

// Header returns the parsed archive header.
func (p *Parser) Header() Header { return p.header }

// List returns every file path in the archive (not directories),
// forward-slash separated and sorted.
func (p *Parser) List() []string {
	entries := p.ListEntries()
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths
}

// EntryInfo is one file's directory-listing summary: its path, declared
// uncompressed size, and whether its directory entry record carries the
// compressed flag.
type EntryInfo struct {
	Path       string
	Size       int
	Compressed bool
}

// ListEntries returns a size/compressed-flag summary for every file in
// the archive (not directories), sorted by path — the structured form
// of the recursive listing spec.md §6 asks a parser to provide.
func (p *Parser) ListEntries() []EntryInfo {
	entries := make([]EntryInfo, 0, len(p.index))
	for path, e := range p.index {
		if e.isDir {
			continue
		}
		entries = append(entries, EntryInfo{Path: path, Size: e.uncompressedSize, Compressed: e.compressed})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// Lookup reports whether archivePath names an entry (case-insensitively,
// per spec.md §6) and whether it is a directory.
func (p *Parser) Lookup(archivePath string) (isDir bool, ok bool) {
	_, e, found := p.resolve(archivePath)
	if !found {
		return false, false
	}
	return e.isDir, true
}

// resolve finds the entry named by archivePath, trying an exact match
// first and falling back to a case-insensitive one.
func (p *Parser) resolve(archivePath string) (string, *treeEntry, bool) {
	if e, ok := p.index[archivePath]; ok {
		return archivePath, e, true
	}
	if orig, ok := p.lower[lowerPath(archivePath)]; ok {
		return orig, p.index[orig], true
	}
	return "", nil, false
}

// Decode returns the full decoded content of the file at archivePath.
func (p *Parser) Decode(archivePath string) ([]byte, error) {
	orig, e, ok := p.resolve(archivePath)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, archivePath)
	}
	if e.isDir {
		return nil, fmt.Errorf("%q is a directory", archivePath)
	}

	if cached, ok := p.cache.Get(e.chunkTableOffset); ok {
		out := make([]byte, len(cached))
		copy(out, cached)
		return out, nil
	}

	data, err := decodeFilePayload(p.buf, e.chunkTableOffset-HeaderSize, e.uncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", orig, err)
	}

	cached := make([]byte, len(data))
	copy(cached, data)
	p.cache.Add(e.chunkTableOffset, cached)

	return data, nil
}

// ExtractEntry decodes the file at archivePath and writes it under
// destRoot within fsys, creating parent directories as needed.
func (p *Parser) ExtractEntry(fsys afero.Fs, archivePath, destRoot string) error {
	data, err := p.Decode(archivePath)
	if err != nil {
		return err
	}

	target, err := safeJoin(destRoot, archivePath)
	if err != nil {
		return err
	}

	if err := fsys.MkdirAll(parentDir(target), 0o755); err != nil {
		return fmt.Errorf("create directories for %q: %w", target, err)
	}
	if err := afero.WriteFile(fsys, target, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", target, err)
	}
	return nil
}

// ExtractAll extracts every file entry under destRoot within fsys.
func (p *Parser) ExtractAll(fsys afero.Fs, destRoot string) error {
	for _, path := range p.List() {
		if err := p.ExtractEntry(fsys, path, destRoot); err != nil {
			return err
		}
	}
	return nil
}

// parentDir returns the directory portion of a forward-slash-joined
// filesystem path produced by safeJoin.
func parentDir(p string) string {
	i := len(p) - 1
	for i >= 0 && p[i] != '/' {
		i--
	}
	if i < 0 {
		return "."
	}
	return p[:i]
}
