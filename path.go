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
	"fmt"
	"path"
	"strings"
)

// safeJoin joins an archive-internal path (forward-slash separated,
// arbitrary depth) onto root, rejecting any component that would escape
// root (spec.md §6, "Filesystem contract during extraction").
func safeJoin(root, archivePath string) (string, error) {
	clean := path.Clean("/" + archivePath)
	if clean == "/" {
		return "", fmt.Errorf("%w: empty extraction path", ErrFormatInvalid)
	}
	for _, part := range strings.Split(archivePath, "/") {
		if part == ".." || part == "." {
			return "", fmt.Errorf("%w: path %q escapes destination root", ErrFormatInvalid, archivePath)
		}
	}
	return root + clean, nil
}

// lowerPath returns the case-folded form of an archive path used as a
// lookup key, per spec.md §6's "look up an entry by path (case-insensitive)".
func lowerPath(p string) string {
	return strings.ToLower(p)
}
