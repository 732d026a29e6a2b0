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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func devNull(t *testing.T) *os.File {
	t.Helper()
	f, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestRunNoFilesReturnsUsageExitCode(t *testing.T) {
	out, errOut := devNull(t), devNull(t)
	code := run(nil, out, errOut)
	assert.Equal(t, 64, code)
}

func TestRunHelpFlagReturnsZero(t *testing.T) {
	out, errOut := devNull(t), devNull(t)
	code := run([]string{"-h"}, out, errOut)
	assert.Equal(t, 0, code)
}

func TestRunMissingFileReturnsOpenFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	out, errOut := devNull(t), devNull(t)
	code := run([]string{filepath.Join(dir, "nope.txt")}, out, errOut)
	assert.Equal(t, 2, code)
}

func TestRunMergesFileToStdoutSuccessfully(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o644))

	outPath := filepath.Join(dir, "out.txt")
	out, err := os.Create(outPath)
	require.NoError(t, err)
	errOut := devNull(t)

	code := run([]string{path}, out, errOut)
	require.NoError(t, out.Close())
	assert.Equal(t, 0, code)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, ">>> "+path+"\none\ntwo\n", string(got))
}
