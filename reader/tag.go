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

// opKind identifies what a submitted SQE was for, packed into its
// UserData alongside the source index so a completion can be routed
// back without any side table. This is the "user-data tag" of
// spec.md's data model: {file uint32, op enum}.
type opKind uint32

const (
	opOpen      opKind = iota // linked ahead of opReadHalf0; only surfaces a CQE on failure
	opReadHalf0               // read into half-slot 0
	opReadHalf1               // read into half-slot 1
)

func readOp(half int) opKind {
	if half == 0 {
		return opReadHalf0
	}
	return opReadHalf1
}

func halfOf(op opKind) int {
	if op == opReadHalf1 {
		return 1
	}
	return 0
}

func packTag(op opKind, source int) uint64 {
	return uint64(op)<<32 | uint64(uint32(source))
}

func unpackTag(tag uint64) (op opKind, source int) {
	return opKind(tag >> 32), int(int32(uint32(tag)))
}
