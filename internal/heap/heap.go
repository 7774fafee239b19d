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

// Package heap implements an explicit free-list heap allocator over a
// single arena grown monotonically by an in-process sbrk primitive.
// Boundary tags (a header and footer word on every block) make
// coalescing with either neighbor O(1); free blocks thread a doubly
// linked free list through their own payload, so the allocator needs
// no auxiliary storage beyond the arena itself.
//
// A Heap is not safe for concurrent use: like the system-level sbrk it
// models, every exported method assumes the caller serializes access.
package heap

import (
	"errors"
	"unsafe"

	"github.com/cloudwego/gopkg/cache/mempool"
	"github.com/sysheap-dev/allocproxy/internal/logx"
)

const (
	wordSize = 4 // header/footer width, bytes
	overhead = 2 * wordSize

	// MinBlockSize is header(4) + next_free(8) + prev_free(8) + footer(4).
	MinBlockSize = 24

	// DefaultInitChunk is the size of the first block carved out by Init.
	DefaultInitChunk = 2048

	// DefaultMaxArena bounds how far the arena may grow; sbrk fails past it.
	DefaultMaxArena = 64 << 20

	allocBit = uint32(1)
	sizeMask = ^uint32(0x7)
)

// ErrExhausted is returned by sbrk when the arena cannot grow further.
var ErrExhausted = errors.New("heap: arena exhausted")

// Heap owns one contiguous byte arena and the free list threaded
// through it.
type Heap struct {
	arena []byte         // len(arena) is the current heap break
	start unsafe.Pointer // &arena[0]; stable because cap(arena) is reserved once

	prologueEnd int // offset just past the prologue footer
	epilogueHdr int // offset of the epilogue header word

	freeHead int // offset of the first free block's payload, or -1

	initChunk int
	log       *logx.Logger
}

// New reserves maxArenaSize bytes of backing storage (never resized
// after construction, so block addresses never move) and returns an
// uninitialized Heap. Call Init before using it.
func New(maxArenaSize int) *Heap {
	if maxArenaSize <= 0 {
		maxArenaSize = DefaultMaxArena
	}
	backing := mempool.Malloc(maxArenaSize)
	// mempool reserves footer bytes past len(backing) for its own
	// bookkeeping (see cache/mempool.Cap); capping the arena slice at
	// exactly maxArenaSize keeps growth from ever touching them.
	arena := backing[:0:maxArenaSize]
	return &Heap{
		arena:     arena,
		start:     unsafe.Pointer(&backing[0]),
		freeHead:  -1,
		initChunk: DefaultInitChunk,
		log:       logx.New("heap"),
	}
}

// Init grows the heap by one initial chunk, installs the prologue and
// epilogue sentinels, and links a single free block spanning the
// chunk into the (initially empty) free list. Returns 0 on success, -1
// if the arena could not be grown.
func (h *Heap) Init() int {
	h.arena = h.arena[:0]
	h.freeHead = -1

	// 4 words: [padding][prologue header][prologue footer][epilogue header]
	base, err := h.sbrk(4 * wordSize)
	if err != nil {
		return -1
	}
	h.putWord(base, 0) // alignment padding
	h.putWord(base+wordSize, pack(overhead, true))
	h.putWord(base+2*wordSize, pack(overhead, true))
	h.putWord(base+3*wordSize, pack(0, true))

	h.prologueEnd = base + 3*wordSize
	h.epilogueHdr = base + 3*wordSize

	if h.extendHeap(h.initChunk/wordSize) < 0 {
		return -1
	}
	return 0
}

// HeapLo returns the offset of the first real block's header: an
// inclusive lower bound for any payload.
func (h *Heap) HeapLo() int { return h.prologueEnd }

// HeapHi returns the offset of the epilogue header: an exclusive upper
// bound for any live payload.
func (h *Heap) HeapHi() int { return h.epilogueHdr }

// sbrk extends the heap break by n bytes and returns the offset of the
// newly available region, mirroring a process sbrk(n) that returns the
// previous break. Fails if the reserved arena capacity is exhausted.
func (h *Heap) sbrk(n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("heap: sbrk(n) requires n > 0")
	}
	old := len(h.arena)
	if old+n > cap(h.arena) {
		return 0, ErrExhausted
	}
	h.arena = h.arena[:old+n]
	return old, nil
}

func (h *Heap) ptrAt(off int) unsafe.Pointer { return unsafe.Add(h.start, off) }

func (h *Heap) getWord(off int) uint32 { return *(*uint32)(h.ptrAt(off)) }

func (h *Heap) putWord(off int, v uint32) { *(*uint32)(h.ptrAt(off)) = v }

func (h *Heap) getOffset(off int) int { return int(*(*int64)(h.ptrAt(off))) }

func (h *Heap) putOffset(off int, v int) { *(*int64)(h.ptrAt(off)) = int64(v) }

func pack(size int, allocated bool) uint32 {
	w := uint32(size)
	if allocated {
		w |= allocBit
	}
	return w
}

func unpack(word uint32) (size int, allocated bool) {
	return int(word & sizeMask), word&allocBit != 0
}

// payloadOffset recovers the arena offset of a slice previously
// returned by Alloc/Realloc/Calloc by subtracting the arena base from
// the slice's data pointer. Valid because the arena never moves.
func (h *Heap) payloadOffset(p []byte) (int, bool) {
	if len(p) == 0 {
		return 0, false
	}
	dataPtr := uintptr(unsafe.Pointer(&p[0]))
	off := int(dataPtr - uintptr(h.start))
	if off < h.prologueEnd || off >= h.epilogueHdr {
		return 0, false
	}
	return off, true
}

func (h *Heap) sliceAt(off, size int) []byte {
	return unsafe.Slice((*byte)(h.ptrAt(off)), size)
}
