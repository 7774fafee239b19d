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

// The free list is threaded through free blocks' own payloads: the
// first 8 bytes hold next_free, the next 8 hold prev_free, both stored
// as arena offsets (-1 for "no link") rather than raw pointers. This is
// the arena+index scheme the design notes call out as equivalent to
// raw in-band pointers while staying safe under Go's unsafe rules,
// since the backing arena's address never moves once reserved.
const (
	nextFreeDelta = 0
	prevFreeDelta = 8
	nilOffset     = -1
)

func (h *Heap) nextFree(bp int) int { return h.getOffset(bp + nextFreeDelta) }
func (h *Heap) prevFree(bp int) int { return h.getOffset(bp + prevFreeDelta) }

func (h *Heap) setNextFree(bp, v int) { h.putOffset(bp+nextFreeDelta, v) }
func (h *Heap) setPrevFree(bp, v int) { h.putOffset(bp+prevFreeDelta, v) }

// insertFree links bp in at the head of the free list (LIFO).
func (h *Heap) insertFree(bp int) {
	h.setNextFree(bp, h.freeHead)
	h.setPrevFree(bp, nilOffset)
	if h.freeHead != nilOffset {
		h.setPrevFree(h.freeHead, bp)
	}
	h.freeHead = bp
}

// removeFree unlinks bp from the free list. The four sub-cases named
// in the design (sole member, head, tail, interior) all fall out of
// the same two conditionals: there's no special casing needed as long
// as a missing neighbor is represented by nilOffset on both ends.
func (h *Heap) removeFree(bp int) {
	prev := h.prevFree(bp)
	next := h.nextFree(bp)
	if prev != nilOffset {
		h.setNextFree(prev, next)
	} else {
		h.freeHead = next
	}
	if next != nilOffset {
		h.setPrevFree(next, prev)
	}
}
