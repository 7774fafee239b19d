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

// CheckHeap walks both the block list and the free list and reports
// whether every invariant in the design holds. It never mutates heap
// state; on failure it logs a diagnostic describing which invariant
// broke and returns false.
func (h *Heap) CheckHeap() bool {
	ok := true

	heapFree := 0
	for bp := h.prologueEnd + wordSize; !h.isEpilogue(bp); bp = h.nextBlkp(bp) {
		size := h.blockSize(bp)
		alloc := h.blockAlloc(bp)

		hdr := h.getWord(h.hdrp(bp))
		ftr := h.getWord(h.ftrp(bp))
		if hdr != ftr {
			h.log.Errorf("checkheap: block at %d: header %#x != footer %#x", bp, hdr, ftr)
			ok = false
		}

		if size <= 0 || size%8 != 0 || size < MinBlockSize {
			h.log.Errorf("checkheap: block at %d has invalid size %d", bp, size)
			ok = false
		}

		if !alloc {
			heapFree++
			next := h.nextBlkp(bp)
			if !h.isEpilogue(next) && !h.blockAlloc(next) {
				h.log.Errorf("checkheap: adjacent free blocks at %d and %d", bp, next)
				ok = false
			}
		}
	}

	listFree := 0
	for cur := h.freeHead; cur != nilOffset; cur = h.nextFree(cur) {
		listFree++
		if cur < h.HeapLo() || cur >= h.HeapHi() {
			h.log.Errorf("checkheap: free-list member %d out of heap bounds [%d,%d)", cur, h.HeapLo(), h.HeapHi())
			ok = false
		}
		if h.blockAlloc(cur) {
			h.log.Errorf("checkheap: free-list member %d is marked allocated", cur)
			ok = false
		}
		if next := h.nextFree(cur); next != nilOffset {
			if h.prevFree(next) != cur {
				h.log.Errorf("checkheap: free-list link broken between %d and %d", cur, next)
				ok = false
			}
		}
	}

	if heapFree != listFree {
		h.log.Errorf("checkheap: %d free blocks by heap walk, %d by free list", heapFree, listFree)
		ok = false
	}

	return ok
}
