// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import "testing"

func TestContentHash(t *testing.T) {
	h1 := ContentHash("Lab 5 covers thermodynamics.")
	h2 := ContentHash("Lab 5 covers thermodynamics.")
	h3 := ContentHash("Lab 6 covers optics.")

	if h1 != h2 {
		t.Errorf("ContentHash() is not stable: %s vs %s", h1, h2)
	}
	if h1 == h3 {
		t.Errorf("ContentHash() collided for different content")
	}
	if len(h1) != 64 {
		t.Errorf("ContentHash() length = %d, want 64 hex characters", len(h1))
	}
}

func TestContentHash_Empty(t *testing.T) {
	// BLAKE2b-256 of the empty input.
	want := "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"
	if got := ContentHash(""); got != want {
		t.Errorf("ContentHash(\"\") = %s, want %s", got, want)
	}
}
