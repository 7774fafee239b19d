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

// All block navigation is expressed in terms of bp, the offset of a
// block's payload (mirrors the classic mm.c convention: headers sit at
// bp-wordSize, footers at bp+size-2*wordSize).

func (h *Heap) hdrp(bp int) int { return bp - wordSize }

func (h *Heap) ftrp(bp int) int { return bp + h.blockSize(bp) - overhead }

func (h *Heap) blockSize(bp int) int {
	size, _ := unpack(h.getWord(h.hdrp(bp)))
	return size
}

func (h *Heap) blockAlloc(bp int) bool {
	_, alloc := unpack(h.getWord(h.hdrp(bp)))
	return alloc
}

// nextBlkp returns the payload offset of the block physically
// following bp. It is always well-defined: the epilogue guarantees
// there is always a "next" header to read, even for the last real
// block.
func (h *Heap) nextBlkp(bp int) int {
	return bp + h.blockSize(bp)
}

// prevBlkp returns the payload offset of the block physically
// preceding bp, using the size recorded in that block's footer (which
// sits immediately before bp's header).
func (h *Heap) prevBlkp(bp int) int {
	prevSize, _ := unpack(h.getWord(bp - overhead))
	return bp - prevSize
}

// setBlock writes matching header and footer words for a block
// starting at bp with the given size and allocated bit.
func (h *Heap) setBlock(bp, size int, allocated bool) {
	word := pack(size, allocated)
	h.putWord(h.hdrp(bp), word)
	h.putWord(bp+size-overhead, word)
}

// isEpilogue reports whether bp is the epilogue sentinel (size 0,
// allocated). Used to stop block-order walks without relying on a null
// comparison that can never be true for an offset-based NEXT_BLKP.
func (h *Heap) isEpilogue(bp int) bool {
	return h.hdrp(bp) == h.epilogueHdr
}
