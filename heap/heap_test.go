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

package heap

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeap(t *testing.T, capacity int) *Heap {
	t.Helper()
	h := New(capacity)
	mem := make([]byte, NeededBytes(capacity))
	require.NoError(t, h.SetMemory(mem))
	return h
}

func TestPushPopScriptedBananaAppleCherry(t *testing.T) {
	// spec.md §8 scenario 3: push banana,apple,cherry then drain.
	h := newHeap(t, 3)
	require.True(t, h.Push([]byte("banana"), 1))
	require.True(t, h.Push([]byte("apple"), 2))
	require.True(t, h.Push([]byte("cherry"), 3))

	v, k := h.PopMin()
	assert.Equal(t, int32(2), v)
	assert.Equal(t, "apple", string(k))

	v, k = h.PopMin()
	assert.Equal(t, int32(1), v)
	assert.Equal(t, "banana", string(k))

	v, k = h.PopMin()
	assert.Equal(t, int32(3), v)
	assert.Equal(t, "cherry", string(k))

	v, k = h.PopMin()
	assert.Equal(t, int32(-1), v)
	assert.Nil(t, k)
}

func TestPushPopScriptedShorterPrefixWins(t *testing.T) {
	// spec.md §8 scenario 4: push pear=1, peach=2, pea=3, pop once -> pea(3).
	h := newHeap(t, 3)
	require.True(t, h.Push([]byte("pear"), 1))
	require.True(t, h.Push([]byte("peach"), 2))
	require.True(t, h.Push([]byte("pea"), 3))

	v, k := h.PopMin()
	assert.Equal(t, int32(3), v)
	assert.Equal(t, "pea", string(k))
}

func TestPushFailsAtCapacity(t *testing.T) {
	h := newHeap(t, 2)
	require.True(t, h.Push([]byte("a"), 0))
	require.True(t, h.Push([]byte("b"), 1))
	assert.False(t, h.Push([]byte("c"), 2))
	assert.Equal(t, 2, h.Len())
}

func TestPopEmptyIsDefined(t *testing.T) {
	h := newHeap(t, 1)
	v, k := h.PopMin()
	assert.Equal(t, int32(-1), v)
	assert.Nil(t, k)
	assert.True(t, h.IsEmpty())
}

func TestEqualKeysPopInInsertionOrder(t *testing.T) {
	h := newHeap(t, 4)
	for i := 0; i < 4; i++ {
		require.True(t, h.Push([]byte("x"), int32(i)))
	}
	for i := 0; i < 4; i++ {
		v, k := h.PopMin()
		assert.Equal(t, int32(i), v)
		assert.Equal(t, "x", string(k))
	}
}

func TestCompareKeysShorterPrefixIsLess(t *testing.T) {
	assert.Negative(t, compareKeys([]byte("ab"), []byte("abc")))
	assert.Positive(t, compareKeys([]byte("abc"), []byte("ab")))
	assert.Zero(t, compareKeys([]byte("abc"), []byte("abc")))
	assert.Negative(t, compareKeys([]byte("aac"), []byte("abc")))
}

func TestPopOrderIsNonDecreasingUnderRandomPushes(t *testing.T) {
	const n = 500
	keys := make([][]byte, n)
	rng := rand.New(rand.NewSource(1))
	h := newHeap(t, n)
	for i := 0; i < n; i++ {
		buf := make([]byte, 1+rng.Intn(6))
		for j := range buf {
			buf[j] = byte('a' + rng.Intn(4))
		}
		keys[i] = buf
		require.True(t, h.Push(buf, int32(i)))
	}

	var prev []byte
	count := 0
	for !h.IsEmpty() {
		_, k := h.PopMin()
		if prev != nil {
			assert.LessOrEqual(t, compareKeys(prev, k), 0)
		}
		prev = k
		count++
	}
	assert.Equal(t, n, count)
}

func TestLenNeverExceedsCapacity(t *testing.T) {
	h := newHeap(t, 3)
	assert.Equal(t, 3, h.Capacity())
	for i := 0; i < 10; i++ {
		h.Push([]byte("k"), int32(i))
		assert.LessOrEqual(t, h.Len(), h.Capacity())
	}
}
