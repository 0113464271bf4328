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
	log "github.com/sirupsen/logrus"

	"github.com/nlnwa/warcat"
)

// RecordWriter extracts the content of a single record into a file below
// a FileSink.
type RecordWriter struct {
	sink *FileSink
	ex   *warcat.RecordExtractor
	file *PendingFile
}

// NewRecordWriter creates a RecordWriter writing below sink.
func NewRecordWriter(sink *FileSink) *RecordWriter {
	return &RecordWriter{sink: sink}
}

// Begin inspects the record header and reports whether the record has
// extractable content.
func (w *RecordWriter) Begin(h *warcat.Header) (bool, error) {
	w.ex = warcat.NewRecordExtractor()
	w.file = nil
	meta, err := w.ex.ReadHeader(h)
	if err != nil {
		return false, err
	}
	if !meta.HasContent {
		return false, nil
	}
	if meta.IsTruncated {
		log.Warnf("extracting truncated record to %v", meta.PathComponents)
	}
	w.file, err = w.sink.Create(meta.PathComponents)
	if err != nil {
		return false, err
	}
	return true, nil
}

// Data feeds a piece of the record block.
func (w *RecordWriter) Data(p []byte) error {
	msgs, err := w.ex.ExtractData(p)
	if err != nil {
		return err
	}
	return w.write(msgs)
}

// End signals the end of the block, commits the file and returns its
// path, or the empty string when the record had no content.
func (w *RecordWriter) End() (string, error) {
	if w.file == nil {
		return "", nil
	}
	msgs, err := w.ex.FinishBlock()
	if err != nil {
		w.Abort()
		return "", err
	}
	if err := w.write(msgs); err != nil {
		w.Abort()
		return "", err
	}
	path := w.file.Path()
	if err := w.file.Commit(); err != nil {
		return "", err
	}
	w.file = nil
	return path, nil
}

// Abort discards any partially written file.
func (w *RecordWriter) Abort() {
	if w.file != nil {
		w.file.Abort()
		w.file = nil
	}
}

func (w *RecordWriter) write(msgs []*warcat.Message) error {
	for _, m := range msgs {
		if m.ExtractChunk == nil {
			continue
		}
		if _, err := w.file.Write(m.ExtractChunk.Data); err != nil {
			return err
		}
	}
	return nil
}
