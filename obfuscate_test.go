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
)

func TestDeobfuscateInvolution(t *testing.T) {
	t.Parallel()

	for key := 0; key < 256; key++ {
		key := key
		t.Run("", func(t *testing.T) {
			t.Parallel()

			h := Header{Key: byte(key)}
			original := []byte("Hello World! This is a test buffer for the obfuscation transform.")

			buf := append([]byte(nil), original...)
			transformRange(buf, h)
			transformRange(buf, h)

			if !bytes.Equal(buf, original) {
				t.Errorf("key=%d: applying transform twice did not yield identity", key)
			}
		})
	}
}

func TestDeobfuscateIdentityWhenKeyZero(t *testing.T) {
	t.Parallel()

	original := []byte{0x01, 0x02, 0x03, 0xFF}
	buf := append([]byte(nil), original...)
	transformRange(buf, Header{Key: 0})

	if !bytes.Equal(buf, original) {
		t.Error("key=0 must be the identity transform")
	}
}

func TestEffectiveKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  byte
		want byte
	}{
		{0, 0xFF ^ 0},
		{255, 0xFF ^ 0xFF},
	}

	for _, tt := range tests {
		h := Header{Key: tt.key}
		if got := h.effectiveKey(); got != tt.want {
			t.Errorf("effectiveKey(%d) = %#x, want %#x", tt.key, got, tt.want)
		}
	}
}
