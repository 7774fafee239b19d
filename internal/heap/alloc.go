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

const (
	// findFitLookahead bounds how many additional free blocks are
	// inspected after the first fitting candidate is found.
	findFitLookahead = 200
	// findFitMaxCandidates bounds how many qualifying candidates
	// (including the first) are considered before stopping early.
	findFitMaxCandidates = 8
)

// Alloc returns a payload slice of at least size bytes, or nil if the
// heap cannot be extended to satisfy the request.
func (h *Heap) Alloc(size int) []byte {
	if size <= 0 {
		return nil
	}
	asize := adjustedSize(size)

	bp := h.findFit(asize)
	if bp == nilOffset {
		words := asize / wordSize
		extended := h.extendHeap(maxInt(words, h.initChunk/wordSize))
		if extended == nilOffset {
			return nil
		}
		bp = h.findFit(asize)
		if bp == nilOffset {
			return nil
		}
	}
	h.place(bp, asize)
	return h.sliceAt(bp, size)
}

// adjustedSize computes header+payload+footer rounded to a 16-byte
// multiple, floored at MinBlockSize, per the placement policy.
func adjustedSize(size int) int {
	asize := roundUp(size+overhead, 16)
	if asize < MinBlockSize {
		asize = MinBlockSize
	}
	return asize
}

func roundUp(n, multiple int) int {
	return (n + multiple - 1) / multiple * multiple
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Free marks the block owning p as free and coalesces it with any free
// neighbors. A nil p is a no-op.
func (h *Heap) Free(p []byte) {
	if len(p) == 0 {
		return
	}
	bp, ok := h.payloadOffset(p)
	if !ok {
		return
	}
	size := h.blockSize(bp)
	h.setBlock(bp, size, false)
	h.coalesce(bp)
}

// Realloc resizes the allocation at p to size bytes, preserving
// min(old payload, size) bytes. size==0 behaves like Free(p); p==nil
// behaves like Alloc(size).
func (h *Heap) Realloc(p []byte, size int) []byte {
	if size == 0 {
		h.Free(p)
		return nil
	}
	if len(p) == 0 {
		return h.Alloc(size)
	}
	newP := h.Alloc(size)
	if newP == nil {
		return nil
	}
	n := len(p)
	if size < n {
		n = size
	}
	copy(newP, p[:n])
	h.Free(p)
	return newP
}

// Calloc allocates room for n elements of size bytes each and zeroes
// the result.
func (h *Heap) Calloc(n, size int) []byte {
	p := h.Alloc(n * size)
	if p == nil {
		return nil
	}
	for i := range p {
		p[i] = 0
	}
	return p
}

// findFit scans the free list from its head. The first block large
// enough to satisfy asize becomes the first candidate; from there a
// bounded-lookahead best-fit search continues until it has inspected
// findFitLookahead more free blocks or has seen findFitMaxCandidates
// qualifying blocks in total, whichever comes first. Ties are broken
// by whichever qualifying block was encountered first.
func (h *Heap) findFit(asize int) int {
	best := nilOffset
	bestSize := 0
	candidates := 0
	extra := 0

	for cur := h.freeHead; cur != nilOffset; cur = h.nextFree(cur) {
		sz := h.blockSize(cur)
		if best == nilOffset {
			if sz >= asize {
				best, bestSize, candidates = cur, sz, 1
			}
			continue
		}
		extra++
		if sz >= asize {
			candidates++
			if sz < bestSize {
				best, bestSize = cur, sz
			}
		}
		if extra >= findFitLookahead || candidates >= findFitMaxCandidates {
			break
		}
	}
	return best
}

// place carves asize bytes out of the free block at bp. If the
// remainder would still be a usable block (>= MinBlockSize) it is
// split off and kept free; otherwise the whole block is consumed.
func (h *Heap) place(bp, asize int) {
	csize := h.blockSize(bp)
	h.removeFree(bp)

	if csize-asize >= MinBlockSize {
		h.setBlock(bp, asize, true)
		rem := bp + asize
		h.setBlock(rem, csize-asize, false)
		h.insertFree(rem)
		return
	}
	h.setBlock(bp, csize, true)
}

// coalesce merges bp with any free physical neighbors and re-links the
// result (possibly at a different offset) into the free list. Covers
// the four prev/next allocation-state cases named in the design.
func (h *Heap) coalesce(bp int) int {
	prevBp := h.prevBlkp(bp)
	nextBp := h.nextBlkp(bp)
	prevAlloc := h.blockAlloc(prevBp)
	nextAlloc := h.blockAlloc(nextBp)
	size := h.blockSize(bp)

	switch {
	case prevAlloc && nextAlloc:
		h.insertFree(bp)
		return bp

	case !prevAlloc && nextAlloc:
		h.removeFree(prevBp)
		size += h.blockSize(prevBp)
		bp = prevBp
		h.setBlock(bp, size, false)
		h.insertFree(bp)
		return bp

	case prevAlloc && !nextAlloc:
		h.removeFree(nextBp)
		size += h.blockSize(nextBp)
		h.setBlock(bp, size, false)
		h.insertFree(bp)
		return bp

	default: // both free
		h.removeFree(prevBp)
		h.removeFree(nextBp)
		size += h.blockSize(prevBp) + h.blockSize(nextBp)
		bp = prevBp
		h.setBlock(bp, size, false)
		h.insertFree(bp)
		return bp
	}
}

// extendHeap grows the heap by words (rounded up to even, so the
// result stays 8-byte aligned) and returns the payload offset of the
// new free block, or nilOffset if sbrk failed.
func (h *Heap) extendHeap(words int) int {
	if words%2 != 0 {
		words++
	}
	size := words * wordSize
	if size < MinBlockSize {
		size = MinBlockSize
	}

	base, err := h.sbrk(size)
	if err != nil {
		h.log.Warnf("extendHeap(%d words): %v", words, err)
		return nilOffset
	}

	// base is exactly where the old epilogue header lived: HDRP(base) ==
	// base-wordSize == old len(arena)-wordSize == the prior epilogueHdr.
	bp := base
	h.setBlock(bp, size, false)
	h.epilogueHdr = bp + size - wordSize
	h.putWord(h.epilogueHdr, pack(0, true))

	return h.coalesce(bp)
}
