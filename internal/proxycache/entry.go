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

package proxycache

// entry is one cached response, linked into the cache's circular list.
// The sentinel node (an entry with an empty uri) never holds data.
// Insertion lands at sentinel.next; recency lives in lastAccess, not in
// list position, so eviction scans the list rather than trusting
// sentinel.prev.
type entry struct {
	uri  string
	data []byte

	// lastAccess is a logical clock tick, not a wall-clock timestamp:
	// two lookups in the same nanosecond would tie under time.Now(),
	// which is exactly the kind of ambiguity find_lru must not have.
	lastAccess uint64

	prev, next *entry
}

func newSentinel() *entry {
	s := &entry{}
	s.prev, s.next = s, s
	return s
}

// unlink removes e from whatever circular list it is threaded into.
// It does not guard against being called on the sentinel, which would
// detach the sentinel from the list.
func (e *entry) unlink() {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
}

// linkAfter inserts e immediately after at (typically the sentinel, to
// put e at the front of the list; recency is tracked by lastAccess).
func (e *entry) linkAfter(at *entry) {
	e.next = at.next
	e.prev = at
	at.next.prev = e
	at.next = e
}
