/*
 * Copyright 2026 uringmerge Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package heap implements a bounded min-heap keyed by borrowed byte-slice
// views and valued by small integers (source indices).
//
// Keys are never copied: the heap holds the []byte headers it is given and
// nothing more. The caller must keep the backing bytes of a pushed key
// alive and unmodified until that entry is popped.
package heap

import (
	"bytes"
	"fmt"
	"unsafe"
)

// entry is one (key, value) pair stored in the backing arena.
type entry struct {
	key   []byte
	value int32
}

// entrySize is the number of bytes one entry occupies in an arena handed
// to SetMemory.
var entrySize = int(unsafe.Sizeof(entry{}))

// Heap is a bounded, array-backed min-heap. The zero value is not usable;
// construct one with New.
//
// Heap is not safe for concurrent use: the merge driver that owns it runs
// as a single thread of control (see package merge).
type Heap struct {
	entries  []entry
	length   int
	capacity int
}

// New creates a Heap with the given capacity and length zero. The Heap is
// not usable for Push/PopMin until SetMemory installs backing storage;
// NeededBytes reports how much is required. This two-phase protocol lets a
// caller pack the heap's storage into a larger arena allocation alongside
// other buffers.
func New(capacity int) *Heap {
	return &Heap{capacity: capacity}
}

// NeededBytes returns the number of bytes SetMemory requires for a Heap of
// the given capacity.
func NeededBytes(capacity int) int {
	return capacity * entrySize
}

// SetMemory installs backing storage for the heap. mem must be at least
// NeededBytes(capacity) bytes. SetMemory may be called only once per Heap.
func (h *Heap) SetMemory(mem []byte) error {
	if h.entries != nil {
		return fmt.Errorf("heap: memory already installed")
	}
	need := NeededBytes(h.capacity)
	if len(mem) < need {
		return fmt.Errorf("heap: buffer too small: need %d bytes, got %d", need, len(mem))
	}
	if h.capacity == 0 {
		h.entries = []entry{}
		return nil
	}
	h.entries = unsafe.Slice((*entry)(unsafe.Pointer(&mem[0])), h.capacity)
	return nil
}

// Capacity returns the maximum number of entries the heap can hold.
func (h *Heap) Capacity() int {
	return h.capacity
}

// Len returns the number of entries currently in the heap.
func (h *Heap) Len() int {
	return h.length
}

// IsEmpty reports whether the heap currently holds no entries.
func (h *Heap) IsEmpty() bool {
	return h.length == 0
}

// compareKeys implements the heap's ordering: bytewise compare over the
// common prefix, then shorter-is-less when one key is a proper prefix of
// the other.
func compareKeys(a, b []byte) int {
	m := len(a)
	if len(b) < m {
		m = len(b)
	}
	if c := bytes.Compare(a[:m], b[:m]); c != 0 {
		return c
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Push inserts key/value into the heap, sifting up to restore the min-heap
// property. It returns false without modifying the heap if the heap is
// already at capacity. The caller must not mutate or free key's backing
// array while it remains in the heap.
func (h *Heap) Push(key []byte, value int32) bool {
	if h.length == h.capacity {
		return false
	}
	h.entries[h.length] = entry{key: key, value: value}
	idx := h.length
	h.length++

	for idx > 0 {
		parent := (idx - 1) / 2
		if compareKeys(h.entries[idx].key, h.entries[parent].key) >= 0 {
			break
		}
		h.entries[idx], h.entries[parent] = h.entries[parent], h.entries[idx]
		idx = parent
	}
	return true
}

// PopMin removes and returns the minimum entry's value and key. If the
// heap is empty it returns (-1, nil) without modifying the heap.
//
// Equal keys are returned in insertion order: the sift-up stop condition
// (">=") never moves a later insert above an equal, earlier one at the
// same level, so ties resolve to whichever source pushed first.
func (h *Heap) PopMin() (int32, []byte) {
	if h.length == 0 {
		return -1, nil
	}
	top := h.entries[0]
	h.length--
	h.entries[0] = h.entries[h.length]
	h.entries[h.length] = entry{} // drop the borrowed key reference

	idx := 0
	for {
		left := 2*idx + 1
		if left >= h.length {
			break
		}
		right := left + 1
		if right < h.length &&
			compareKeys(h.entries[right].key, h.entries[left].key) < 0 &&
			compareKeys(h.entries[right].key, h.entries[idx].key) < 0 {
			h.entries[idx], h.entries[right] = h.entries[right], h.entries[idx]
			idx = right
			continue
		}
		if compareKeys(h.entries[left].key, h.entries[idx].key) < 0 {
			h.entries[idx], h.entries[left] = h.entries[left], h.entries[idx]
			idx = left
			continue
		}
		break
	}
	return top.value, top.key
}
