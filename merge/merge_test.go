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

package merge

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/uringmerge/reader"
)

func init() {
	// merge's own tests must not depend on io_uring being usable in
	// whatever sandbox runs them; force the backend that's required to
	// be observably identical per spec.md §6.
	newReader = func(opts reader.Options) (reader.Reader, error) {
		return reader.NewSync(opts), nil
	}
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func runMerge(t *testing.T, bufferSize int, files map[string]string, order []string) string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(order))
	for i, name := range order {
		paths[i] = writeFile(t, dir, name, files[name])
	}
	var out bytes.Buffer
	err := Run(context.Background(), &out, Options{Files: paths, BufferSize: bufferSize})
	require.NoError(t, err)
	return strings.ReplaceAll(out.String(), dir+string(filepath.Separator), "")
}

func TestScenario1InterleavedTwoFiles(t *testing.T) {
	got := runMerge(t, 64, map[string]string{
		"a.txt": "apple\nbanana\n",
		"b.txt": "avocado\ncherry\n",
	}, []string{"a.txt", "b.txt"})
	assert.Equal(t, ">>> a.txt\napple\n\n>>> b.txt\navocado\n\n>>> a.txt\nbanana\n\n>>> b.txt\ncherry\n", got)
}

func TestScenario2EqualKeysBreakByPushOrder(t *testing.T) {
	got := runMerge(t, 64, map[string]string{
		"x": "a\n",
		"y": "a\n",
	}, []string{"x", "y"})
	assert.Equal(t, ">>> x\na\n\n>>> y\na\n", got)
}

func TestScenario5MissingFinalNewlineGetsSynthesized(t *testing.T) {
	got := runMerge(t, 64, map[string]string{
		"f1": "line\n",
		"f2": "zzz",
	}, []string{"f1", "f2"})
	assert.Equal(t, ">>> f1\nline\n\n>>> f2\nzzz\n", got)
}

func TestScenario6ThreeMultiBufferFilesInterleaved(t *testing.T) {
	// Each half-slot (4 bytes) is one byte longer than a line (3 bytes),
	// so half-slot boundaries fall inside the second and third line of
	// every file and those lines are assembled across a refill; lines
	// also interleave lexicographically across all three files so every
	// group header reflects an actual source change, never a spurious or
	// missing one.
	const bufSize = 4
	files := map[string]string{
		"f1": "a1\nd1\ng1\nj1\n",
		"f2": "b2\ne2\nh2\nk2\n",
		"f3": "c3\nf3\ni3\nl3\n",
	}
	got := runMerge(t, bufSize, files, []string{"f1", "f2", "f3"})

	want := ">>> f1\na1\n" +
		"\n>>> f2\nb2\n" +
		"\n>>> f3\nc3\n" +
		"\n>>> f1\nd1\n" +
		"\n>>> f2\ne2\n" +
		"\n>>> f3\nf3\n" +
		"\n>>> f1\ng1\n" +
		"\n>>> f2\nh2\n" +
		"\n>>> f3\ni3\n" +
		"\n>>> f1\nj1\n" +
		"\n>>> f2\nk2\n" +
		"\n>>> f3\nl3\n"
	assert.Equal(t, want, got)
}

func TestScenario7FinalUnterminatedLineStillCompetesFairly(t *testing.T) {
	// f1 is exactly one half-slot (5 bytes: "aaa\n" then a lone "z" with no
	// terminator), so the "z" residual is only confirmed to be the file's
	// true, unterminated last line once the *next* read comes back empty.
	// That confirmation must not let it jump the queue ahead of f2's "bbb"
	// line, which sorts earlier.
	const bufSize = 5
	got := runMerge(t, bufSize, map[string]string{
		"f1": "aaa\nz",
		"f2": "bbb\n",
	}, []string{"f1", "f2"})
	assert.Equal(t, ">>> f1\naaa\n\n>>> f2\nbbb\n\n>>> f1\nz\n", got)
}

func TestEmptyFileProducesNoHeaderOrLines(t *testing.T) {
	got := runMerge(t, 64, map[string]string{
		"empty.txt": "",
		"full.txt":  "only\n",
	}, []string{"empty.txt", "full.txt"})
	assert.Equal(t, ">>> full.txt\nonly\n", got)
}

func TestLineLongerThanBufferSpansMultipleHalfSlots(t *testing.T) {
	long := strings.Repeat("q", 50) + "\n"
	got := runMerge(t, 8, map[string]string{
		"one.txt": long,
	}, []string{"one.txt"})
	assert.Equal(t, ">>> one.txt\n"+long, got)
}

func TestLineLongerThanBufferWithoutFinalNewline(t *testing.T) {
	long := strings.Repeat("r", 40)
	got := runMerge(t, 8, map[string]string{
		"one.txt": long,
	}, []string{"one.txt"})
	assert.Equal(t, ">>> one.txt\n"+long+"\n", got)
}

func TestUsageErrorOnNoFiles(t *testing.T) {
	var out bytes.Buffer
	err := Run(context.Background(), &out, Options{Files: nil})
	require.Error(t, err)
}
