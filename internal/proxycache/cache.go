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

// Package proxycache implements a bounded, in-memory, concurrency-safe
// cache of proxied HTTP responses keyed by request URI. Eviction is
// pure LRU; readers (Lookup) never block each other and block a
// writer (Insert) only while at least one reader is active, following
// the classic readers-preference discipline: the first reader to
// arrive locks out writers, the last reader to leave releases them.
package proxycache

import (
	"sync"

	"github.com/sysheap-dev/allocproxy/internal/logx"
)

const (
	// MaxTotalBytes bounds the sum of every cached entry's payload.
	MaxTotalBytes = 1049000
	// MaxObjectBytes bounds a single entry; anything larger is never
	// cached, no matter how empty the cache is.
	MaxObjectBytes = 102400
)

// Cache is safe for concurrent use by multiple goroutines.
type Cache struct {
	maxTotal  int
	maxObject int

	writeMu sync.Mutex // held by Insert; held by the first concurrent Lookup
	countMu sync.Mutex // guards readers
	readers int

	lruMu sync.Mutex // guards clock and lastAccess updates
	clock uint64

	index map[string]*entry
	list  *entry // sentinel
	total int

	log *logx.Logger
}

// New returns an empty cache bounded by maxTotal bytes overall and
// maxObject bytes per entry. A zero value for either falls back to the
// package defaults.
func New(maxTotal, maxObject int) *Cache {
	if maxTotal <= 0 {
		maxTotal = MaxTotalBytes
	}
	if maxObject <= 0 {
		maxObject = MaxObjectBytes
	}
	return &Cache{
		maxTotal:  maxTotal,
		maxObject: maxObject,
		index:     make(map[string]*entry),
		list:      newSentinel(),
		log:       logx.New("proxycache"),
	}
}

// Lookup returns the cached bytes for uri and true if present. The
// returned slice aliases the cached entry's storage directly; no copy
// is made, since a subsequent eviction only unlinks the entry from the
// cache's own index and list, leaving the slice's backing array alive
// for as long as the caller holds it.
func (c *Cache) Lookup(uri string) ([]byte, bool) {
	c.enterReader()
	defer c.exitReader()

	e, ok := c.index[uri]
	if !ok {
		return nil, false
	}

	c.lruMu.Lock()
	c.clock++
	e.lastAccess = c.clock
	c.lruMu.Unlock()

	return e.data, true
}

// Insert adds uri/data to the cache, evicting least-recently-used
// entries until there is room. Objects larger than maxObject are
// rejected outright and never touch the cache; Insert reports whether
// the entry was actually stored.
func (c *Cache) Insert(uri string, data []byte) bool {
	if len(data) > c.maxObject || len(data) > c.maxTotal {
		return false
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if old, ok := c.index[uri]; ok {
		c.deleteLocked(old)
	}

	for c.total+len(data) > c.maxTotal {
		lru := c.findLRULocked()
		if lru == nil {
			// Unreachable given the size check above, but guards
			// against ever spinning on an empty list.
			c.log.Warnf("insert(%s): no entry to evict but still over budget", uri)
			return false
		}
		c.deleteLocked(lru)
	}

	c.lruMu.Lock()
	c.clock++
	e := &entry{uri: uri, data: data, lastAccess: c.clock}
	c.lruMu.Unlock()

	e.linkAfter(c.list)
	c.index[uri] = e
	c.total += len(data)
	return true
}

// Delete drops uri from the cache if present.
func (c *Cache) Delete(uri string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if e, ok := c.index[uri]; ok {
		c.deleteLocked(e)
	}
}

// Len reports the number of entries currently cached.
func (c *Cache) Len() int {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return len(c.index)
}

// TotalBytes reports the sum of every cached entry's payload size.
func (c *Cache) TotalBytes() int {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.total
}

func (c *Cache) enterReader() {
	c.countMu.Lock()
	c.readers++
	if c.readers == 1 {
		c.writeMu.Lock()
	}
	c.countMu.Unlock()
}

func (c *Cache) exitReader() {
	c.countMu.Lock()
	c.readers--
	if c.readers == 0 {
		c.writeMu.Unlock()
	}
	c.countMu.Unlock()
}

// findLRULocked linearly scans for the entry with the smallest
// lastAccess tick, or nil if the cache is empty. Entries are not
// relinked on access (Lookup only bumps the tick), so list position
// says nothing about recency. Caller must hold writeMu, which also
// excludes readers, so lastAccess is stable without taking lruMu.
func (c *Cache) findLRULocked() *entry {
	var lru *entry
	for e := c.list.next; e != c.list; e = e.next {
		if lru == nil || e.lastAccess < lru.lastAccess {
			lru = e
		}
	}
	return lru
}

// deleteLocked unlinks e from both the index and the list. Caller must
// hold writeMu.
func (c *Cache) deleteLocked(e *entry) {
	e.unlink()
	delete(c.index, e.uri)
	c.total -= len(e.data)
}
