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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func writeSourceTree(t *testing.T, fsys afero.Fs, root string) {
	t.Helper()

	files := map[string]string{
		root + "/file1.txt":         "Hello World!",
		root + "/subdir/nested.txt": "Nested file content",
	}
	for path, content := range files {
		if err := fsys.MkdirAll(parentDir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll(%q): %v", path, err)
		}
		if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile(%q): %v", path, err)
		}
	}
}

func TestAssembleAndParseRoundTrip(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeSourceTree(t, fsys, "/src")

	result, err := Assemble(fsys, "/src", AssembleOptions{Mode: ModeDeflate, Key: 0})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if result.Validation != nil {
		t.Fatalf("unexpected validation result with no reference: %+v", result.Validation)
	}

	parser, err := OpenBytes(result.Archive)
	if err != nil {
		t.Fatalf("OpenBytes() error = %v", err)
	}

	data, err := parser.Decode("file1.txt")
	if err != nil {
		t.Fatalf("Decode(file1.txt) error = %v", err)
	}
	if !bytes.Equal(data, []byte("Hello World!")) {
		t.Errorf("Decode(file1.txt) = %q", data)
	}

	data, err = parser.Decode("subdir/nested.txt")
	if err != nil {
		t.Fatalf("Decode(subdir/nested.txt) error = %v", err)
	}
	if !bytes.Equal(data, []byte("Nested file content")) {
		t.Errorf("Decode(subdir/nested.txt) = %q", data)
	}

	// spec.md §8, property 3: parse(assemble(T)) = T as (path -> bytes) maps.
	got := make(map[string]string)
	for _, path := range parser.List() {
		data, err := parser.Decode(path)
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", path, err)
		}
		got[path] = string(data)
	}
	want := map[string]string{
		"file1.txt":         "Hello World!",
		"subdir/nested.txt": "Nested file content",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parsed tree mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleHeaderConsistency(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeSourceTree(t, fsys, "/src")

	result, err := Assemble(fsys, "/src", AssembleOptions{Mode: ModeStored, Key: 99})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	parser, err := OpenBytes(result.Archive)
	if err != nil {
		t.Fatalf("OpenBytes() error = %v", err)
	}

	if int(parser.Header().Size) != len(result.Archive) {
		t.Errorf("header size %d != archive length %d", parser.Header().Size, len(result.Archive))
	}
}

func TestAssembleCanonicalOrderingDeterministic(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeSourceTree(t, fsys, "/src")

	r1, err := Assemble(fsys, "/src", AssembleOptions{Mode: ModeDeflate, Key: 3})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	r2, err := Assemble(fsys, "/src", AssembleOptions{Mode: ModeDeflate, Key: 3})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if !bytes.Equal(r1.Archive, r2.Archive) {
		t.Error("two assemblies of the same tree were not byte-identical")
	}
	if r1.SHA256 != r2.SHA256 {
		t.Error("two assemblies of the same tree produced different digests")
	}
}

func TestAssembleValidationDetectsMismatch(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	writeSourceTree(t, fsys, "/src")

	reference, err := Assemble(fsys, "/src", AssembleOptions{Mode: ModeStored, Key: 0})
	if err != nil {
		t.Fatalf("Assemble() reference error = %v", err)
	}
	if err := afero.WriteFile(fsys, "/reference.hpi", reference.Archive, 0o644); err != nil {
		t.Fatalf("WriteFile(reference.hpi): %v", err)
	}

	// Mutate the source tree so it disagrees with the reference archive.
	if err := afero.WriteFile(fsys, "/src/file1.txt", []byte("changed content"), 0o644); err != nil {
		t.Fatalf("WriteFile(file1.txt): %v", err)
	}
	if err := fsys.Remove("/src/subdir/nested.txt"); err != nil {
		t.Fatalf("Remove(nested.txt): %v", err)
	}

	result, err := Assemble(fsys, "/src", AssembleOptions{Mode: ModeStored, Key: 0, Reference: "/reference.hpi"})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if result.Validation == nil {
		t.Fatal("expected a validation mismatch, got nil")
	}
	if len(result.Validation.Missing) != 1 || result.Validation.Missing[0] != "subdir/nested.txt" {
		t.Errorf("Validation.Missing = %v, want [subdir/nested.txt]", result.Validation.Missing)
	}
	if len(result.Validation.Mismatched) != 1 || result.Validation.Mismatched[0] != "file1.txt" {
		t.Errorf("Validation.Mismatched = %v, want [file1.txt]", result.Validation.Mismatched)
	}
}

func TestAssembleModeAuto(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	if err := fsys.MkdirAll("/src", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := afero.WriteFile(fsys, "/src/compressible.txt", bytes.Repeat([]byte("aaaa"), 1000), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := afero.WriteFile(fsys, "/src/empty.txt", nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	result, err := Assemble(fsys, "/src", AssembleOptions{Mode: ModeAuto, Key: 0})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	parser, err := OpenBytes(result.Archive)
	if err != nil {
		t.Fatalf("OpenBytes() error = %v", err)
	}

	data, err := parser.Decode("compressible.txt")
	if err != nil {
		t.Fatalf("Decode(compressible.txt) error = %v", err)
	}
	if !bytes.Equal(data, bytes.Repeat([]byte("aaaa"), 1000)) {
		t.Error("Decode(compressible.txt) mismatch")
	}

	data, err = parser.Decode("empty.txt")
	if err != nil {
		t.Fatalf("Decode(empty.txt) error = %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Decode(empty.txt) = %d bytes, want 0", len(data))
	}
}
