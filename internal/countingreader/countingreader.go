/*
 * Copyright 2025 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package countingreader provides an io.Reader which keeps track of the
// number of bytes read from the underlying reader.
package countingreader

import (
	"io"
	"sync/atomic"
)

// Reader counts the bytes read through it.
type Reader struct {
	src       io.Reader
	bytesRead int64
}

// New creates a new Reader reading from src.
func New(src io.Reader) *Reader {
	return &Reader{src: src}
}

// Read reads bytes from the underlying reader.
func (r *Reader) Read(p []byte) (n int, err error) {
	n, err = r.src.Read(p)
	atomic.AddInt64(&r.bytesRead, int64(n))
	return
}

// N gets the number of bytes that have been read so far.
func (r *Reader) N() int64 {
	return atomic.LoadInt64(&r.bytesRead)
}
