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

// Command uringmerge merges one or more pre-sorted text files into a
// single stream, grouping consecutive lines by source file. It is a thin
// flag/exit-code wrapper around package merge; all merge semantics live
// there.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cloudwego/uringmerge/internal/uringerr"
	"github.com/cloudwego/uringmerge/merge"
)

// ExitError pairs an error with the process exit code it maps to, so main
// can classify once at the top level instead of scattering os.Exit calls
// through the call stack.
type ExitError struct {
	Err  error
	Code int
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

func classify(err error) *ExitError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, uringerr.ErrUsage):
		return &ExitError{Err: err, Code: 64}
	case errors.Is(err, uringerr.ErrOpenFailure):
		return &ExitError{Err: err, Code: 2}
	case errors.Is(err, uringerr.ErrIOFailure):
		return &ExitError{Err: err, Code: 74}
	case errors.Is(err, uringerr.ErrOutOfMemory):
		return &ExitError{Err: err, Code: 69}
	case errors.Is(err, uringerr.ErrCapacityExceeded):
		return &ExitError{Err: err, Code: 70}
	default:
		return &ExitError{Err: err, Code: 74}
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) (code int) {
	logger := log.New(stderr, "uringmerge: ", 0)

	// make() failures surface as panics, not errors; spec.md §7 classifies
	// them as OutOfMemory (exit 69), so the boundary recovers rather than
	// letting the runtime crash dump stand in for that exit code.
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("out of memory: %v", r)
			code = 69
		}
	}()

	fs := flag.NewFlagSet("uringmerge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	bufSize := fs.Int("buffer-size", merge.DefaultBufferSize, "per-source half-slot buffer size in bytes")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [-buffer-size N] file [file ...]\n", fs.Name())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 64
	}

	files := fs.Args()
	if len(files) == 0 {
		fs.Usage()
		return 64
	}

	w := bufio.NewWriter(stdout)
	err := merge.Run(context.Background(), w, merge.Options{
		Files:      files,
		BufferSize: *bufSize,
		Logger:     logger,
	})
	if flushErr := w.Flush(); err == nil {
		err = flushErr
	}

	if ee := classify(err); ee != nil {
		logger.Println(ee.Err)
		return ee.Code
	}
	return 0
}
