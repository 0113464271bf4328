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

package cmdutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nlnwa/warcat"
	"github.com/prometheus/tsdb/fileutil"
	"github.com/zeebo/xxh3"
)

// FileSink writes extracted record content below a root directory. Writes
// go to a temporary file which is atomically renamed into place on commit,
// so aborted extractions never leave partial files behind.
type FileSink struct {
	dir string
}

// NewFileSink creates a FileSink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Create opens a pending file for the given path components. Components
// conflicting with existing files get a ".d" suffix when used as a
// directory, and a final component conflicting with an existing directory
// gets a hash suffix.
func (s *FileSink) Create(components []string) (*PendingFile, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("empty path")
	}

	dir := s.dir
	for _, c := range components[:len(components)-1] {
		p := filepath.Join(dir, c)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			p = filepath.Join(dir, c+".d")
		}
		dir = p
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	final := filepath.Join(dir, components[len(components)-1])
	if info, err := os.Stat(final); err == nil && info.IsDir() {
		final = fmt.Sprintf("%s %016x", final, xxh3.HashString(final))
	}
	if len(final) > warcat.MaxPathLength {
		return nil, fmt.Errorf("path too long: %s", final)
	}

	tmp := final + "." + uuid.New().String()[:8] + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, err
	}
	return &PendingFile{f: f, tmp: tmp, final: final}, nil
}

// PendingFile is a file being extracted. It must be finished with either
// Commit or Abort.
type PendingFile struct {
	f     *os.File
	tmp   string
	final string
}

// Path returns the final path of the file.
func (p *PendingFile) Path() string {
	return p.final
}

func (p *PendingFile) Write(b []byte) (int, error) {
	return p.f.Write(b)
}

// Commit closes the file and moves it into place.
func (p *PendingFile) Commit() error {
	if err := p.f.Close(); err != nil {
		return err
	}
	return fileutil.Rename(p.tmp, p.final)
}

// Abort closes and removes the temporary file.
func (p *PendingFile) Abort() {
	_ = p.f.Close()
	_ = os.Remove(p.tmp)
}
