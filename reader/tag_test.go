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

package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagRoundTrip(t *testing.T) {
	cases := []struct {
		op     opKind
		source int
	}{
		{opOpen, 0},
		{opReadHalf0, 0},
		{opReadHalf1, 0},
		{opReadHalf0, 1},
		{opReadHalf1, 41},
		{opOpen, 4096},
	}
	for _, c := range cases {
		tag := packTag(c.op, c.source)
		gotOp, gotSource := unpackTag(tag)
		assert.Equal(t, c.op, gotOp)
		assert.Equal(t, c.source, gotSource)
	}
}

func TestHalfOfAndReadOp(t *testing.T) {
	assert.Equal(t, opReadHalf0, readOp(0))
	assert.Equal(t, opReadHalf1, readOp(1))
	assert.Equal(t, 0, halfOf(opReadHalf0))
	assert.Equal(t, 1, halfOf(opReadHalf1))
}
