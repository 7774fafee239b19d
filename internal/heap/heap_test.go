// Copyright 2025 Allocproxy Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package heap

import (
	"math/rand"
	"testing"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()
	h := New(1 << 20) // 1MiB arena, plenty for these tests
	if rc := h.Init(); rc != 0 {
		t.Fatalf("Init() = %d, want 0", rc)
	}
	return h
}

func TestInitThenCheckHeap(t *testing.T) {
	h := newTestHeap(t)
	if !h.CheckHeap() {
		t.Fatal("CheckHeap() = false after Init")
	}
}

func TestAllocFreeCheckHeap(t *testing.T) {
	h := newTestHeap(t)
	p := h.Alloc(100)
	if p == nil {
		t.Fatal("Alloc(100) = nil")
	}
	if len(p) != 100 {
		t.Fatalf("len(Alloc(100)) = %d, want 100", len(p))
	}
	h.Free(p)
	if !h.CheckHeap() {
		t.Fatal("CheckHeap() = false after alloc/free round trip")
	}
}

func TestAllocZeroReturnsNil(t *testing.T) {
	h := newTestHeap(t)
	if got := h.Alloc(0); got != nil {
		t.Fatalf("Alloc(0) = %v, want nil", got)
	}
}

func TestFreeNilIsNoop(t *testing.T) {
	h := newTestHeap(t)
	h.Free(nil)
	if !h.CheckHeap() {
		t.Fatal("CheckHeap() = false after Free(nil)")
	}
}

// Two distinct single-byte allocations must be at least MinBlockSize
// apart, since each occupies a full block even though payload is tiny.
func TestTwoAllocsAreWellSeparated(t *testing.T) {
	h := newTestHeap(t)
	p1 := h.Alloc(1)
	p2 := h.Alloc(1)
	if p1 == nil || p2 == nil {
		t.Fatal("expected two successful allocations")
	}
	off1, _ := h.payloadOffset(p1)
	off2, _ := h.payloadOffset(p2)
	diff := off2 - off1
	if diff < 0 {
		diff = -diff
	}
	if diff < MinBlockSize {
		t.Fatalf("|p1-p2| = %d, want >= %d", diff, MinBlockSize)
	}
}

// Freed space should be reused by a subsequent allocation of the same
// size, rather than extending the heap again.
func TestFreedBlockIsReused(t *testing.T) {
	h := newTestHeap(t)

	p1 := h.Alloc(2048)
	if p1 == nil {
		t.Fatal("Alloc(2048) = nil")
	}
	h.Free(p1)
	p2 := h.Alloc(2048)
	if p2 == nil {
		t.Fatal("second Alloc(2048) = nil")
	}

	off1, _ := h.payloadOffset(p1)
	off2, _ := h.payloadOffset(p2)
	if off1 != off2 {
		t.Fatalf("expected reused offset %d, got %d", off1, off2)
	}
}

func TestPayloadSurvivesUntilFreed(t *testing.T) {
	h := newTestHeap(t)
	p := h.Alloc(64)
	for i := range p {
		p[i] = byte(i)
	}
	if !h.CheckHeap() {
		t.Fatal("CheckHeap() = false before mutation check")
	}
	for i := range p {
		if p[i] != byte(i) {
			t.Fatalf("p[%d] = %d, want %d", i, p[i], byte(i))
		}
	}
}

func TestReallocGrowPreservesPrefix(t *testing.T) {
	h := newTestHeap(t)
	p := h.Alloc(16)
	copy(p, []byte("0123456789abcdef"))

	p2 := h.Realloc(p, 64)
	if p2 == nil {
		t.Fatal("Realloc grow = nil")
	}
	if string(p2[:16]) != "0123456789abcdef" {
		t.Fatalf("Realloc grow lost prefix: %q", p2[:16])
	}
}

func TestReallocShrinkPreservesMin(t *testing.T) {
	h := newTestHeap(t)
	p := h.Alloc(64)
	copy(p, []byte("0123456789abcdef"))

	p2 := h.Realloc(p, 8)
	if p2 == nil || len(p2) != 8 {
		t.Fatalf("Realloc shrink = %v", p2)
	}
	if string(p2) != "01234567" {
		t.Fatalf("Realloc shrink = %q, want %q", p2, "01234567")
	}
}

func TestReallocToZeroFrees(t *testing.T) {
	h := newTestHeap(t)
	p := h.Alloc(32)
	if got := h.Realloc(p, 0); got != nil {
		t.Fatalf("Realloc(p, 0) = %v, want nil", got)
	}
	if !h.CheckHeap() {
		t.Fatal("CheckHeap() = false after Realloc-to-zero")
	}
}

func TestReallocNilActsAsAlloc(t *testing.T) {
	h := newTestHeap(t)
	p := h.Realloc(nil, 32)
	if p == nil || len(p) != 32 {
		t.Fatalf("Realloc(nil, 32) = %v", p)
	}
}

func TestCallocZeroesMemory(t *testing.T) {
	h := newTestHeap(t)
	scratch := h.Alloc(64)
	for i := range scratch {
		scratch[i] = 0xFF
	}
	h.Free(scratch)

	p := h.Calloc(8, 8)
	if len(p) != 64 {
		t.Fatalf("len(Calloc(8,8)) = %d, want 64", len(p))
	}
	for i, b := range p {
		if b != 0 {
			t.Fatalf("Calloc byte %d = %#x, want 0", i, b)
		}
	}
}

// Random alloc/free/realloc sequences with per-allocation fill
// patterns: payloads must read back unchanged, live allocations must
// never overlap, and every invariant must hold after every operation.
func TestRandomOpsMaintainInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	h := New(8 << 20)
	if rc := h.Init(); rc != 0 {
		t.Fatalf("Init() = %d, want 0", rc)
	}

	type live struct {
		buf []byte
		pat byte
	}
	var allocs []live

	fill := func(p []byte, pat byte) {
		for i := range p {
			p[i] = pat
		}
	}
	verify := func(a live) {
		for i, b := range a.buf {
			if b != a.pat {
				t.Fatalf("payload byte %d = %#x, want %#x", i, b, a.pat)
			}
		}
	}

	for op := 0; op < 2000; op++ {
		switch r := rng.Intn(10); {
		case r < 5 || len(allocs) == 0:
			size := 1 + rng.Intn(512)
			p := h.Alloc(size)
			if p == nil {
				t.Fatalf("op %d: Alloc(%d) = nil with a roomy arena", op, size)
			}
			pat := byte(rng.Intn(256))
			fill(p, pat)
			allocs = append(allocs, live{buf: p, pat: pat})

		case r < 8:
			i := rng.Intn(len(allocs))
			verify(allocs[i])
			h.Free(allocs[i].buf)
			allocs[i] = allocs[len(allocs)-1]
			allocs = allocs[:len(allocs)-1]

		default:
			i := rng.Intn(len(allocs))
			verify(allocs[i])
			size := 1 + rng.Intn(512)
			p := h.Realloc(allocs[i].buf, size)
			if p == nil {
				t.Fatalf("op %d: Realloc(%d) = nil with a roomy arena", op, size)
			}
			n := len(allocs[i].buf)
			if size < n {
				n = size
			}
			for j := 0; j < n; j++ {
				if p[j] != allocs[i].pat {
					t.Fatalf("op %d: Realloc lost byte %d", op, j)
				}
			}
			pat := byte(rng.Intn(256))
			fill(p, pat)
			allocs[i] = live{buf: p, pat: pat}
		}

		if !h.CheckHeap() {
			t.Fatalf("CheckHeap() = false after op %d", op)
		}
	}

	for _, a := range allocs {
		verify(a)
		h.Free(a.buf)
	}
	if !h.CheckHeap() {
		t.Fatal("CheckHeap() = false after freeing everything")
	}
}

func TestHeapExhaustionReturnsNil(t *testing.T) {
	h := New(4096)
	if rc := h.Init(); rc != 0 {
		t.Fatalf("Init() = %d, want 0", rc)
	}
	var allocs [][]byte
	for {
		p := h.Alloc(256)
		if p == nil {
			break
		}
		allocs = append(allocs, p)
		if len(allocs) > 10000 {
			t.Fatal("Alloc never returned nil under a bounded arena")
		}
	}
	if !h.CheckHeap() {
		t.Fatal("CheckHeap() = false after driving the arena to exhaustion")
	}
}
