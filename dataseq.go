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

package warcat

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// SeqFormat selects the serialization of message sequences.
type SeqFormat uint8

const (
	// JSONSeq is RFC 7464: RS, JSON text, LF.
	JSONSeq SeqFormat = iota
	// JSONL is one JSON text per line.
	JSONL
	// CBORSeq is RFC 8742 concatenated CBOR items.
	CBORSeq
	// CSV is comma separated rows with a leading header row. Write only.
	CSV
)

// recordSeparator frames json-seq items.
const recordSeparator = 0x1E

// SeqFormatFromString parses a sequence format name.
func SeqFormatFromString(s string) (SeqFormat, error) {
	switch strings.ToLower(s) {
	case "", "json-seq":
		return JSONSeq, nil
	case "jsonl":
		return JSONL, nil
	case "cbor-seq":
		return CBORSeq, nil
	case "csv":
		return CSV, nil
	default:
		return JSONSeq, fmt.Errorf("unknown format '%s'", s)
	}
}

// SeqWriter writes a sequence of values in the configured format.
type SeqWriter struct {
	w           *bufio.Writer
	format      SeqFormat
	cborEnc     *cbor.Encoder
	csvW        *csv.Writer
	columns     []string
	wroteHeader bool
}

// NewSeqWriter creates a SeqWriter. For the CSV format the column names
// are written as a header row before the first value.
func NewSeqWriter(w io.Writer, format SeqFormat, columns ...string) *SeqWriter {
	bw := bufio.NewWriter(w)
	sw := &SeqWriter{w: bw, format: format, columns: columns}
	switch format {
	case CBORSeq:
		sw.cborEnc = cbor.NewEncoder(bw)
	case CSV:
		sw.csvW = csv.NewWriter(bw)
	}
	return sw
}

// Put writes one value. For the CSV format the value must be a []string
// row.
func (s *SeqWriter) Put(v interface{}) error {
	switch s.format {
	case JSONSeq:
		if err := s.w.WriteByte(recordSeparator); err != nil {
			return err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := s.w.Write(b); err != nil {
			return err
		}
		return s.w.WriteByte(lf)
	case JSONL:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := s.w.Write(b); err != nil {
			return err
		}
		return s.w.WriteByte(lf)
	case CBORSeq:
		return s.cborEnc.Encode(v)
	case CSV:
		row, ok := v.([]string)
		if !ok {
			return fmt.Errorf("csv format requires string rows, got %T", v)
		}
		if !s.wroteHeader {
			s.wroteHeader = true
			if err := s.csvW.Write(s.columns); err != nil {
				return err
			}
		}
		return s.csvW.Write(row)
	default:
		return fmt.Errorf("unknown sequence format")
	}
}

// Flush writes any buffered output to the underlying writer.
func (s *SeqWriter) Flush() error {
	if s.csvW != nil {
		s.csvW.Flush()
		if err := s.csvW.Error(); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

// SeqReader reads a sequence of values in the configured format. The CSV
// format is not readable.
type SeqReader struct {
	br      *bufio.Reader
	format  SeqFormat
	cborDec *cbor.Decoder
}

// NewSeqReader creates a SeqReader.
func NewSeqReader(r io.Reader, format SeqFormat) (*SeqReader, error) {
	if format == CSV {
		return nil, fmt.Errorf("csv format cannot be read back")
	}
	br := bufio.NewReader(r)
	sr := &SeqReader{br: br, format: format}
	if format == CBORSeq {
		sr.cborDec = cbor.NewDecoder(br)
	}
	return sr, nil
}

// Next reads the next value into v. It returns io.EOF at the end of the
// sequence.
func (s *SeqReader) Next(v interface{}) error {
	switch s.format {
	case JSONSeq, JSONL:
		line, err := s.br.ReadBytes(lf)
		if len(line) == 0 && err != nil {
			return err
		}
		line = bytes.TrimRight(line, "\n")
		line = bytes.TrimLeft(line, string(rune(recordSeparator)))
		if len(bytes.TrimSpace(line)) == 0 {
			if err != nil {
				return io.EOF
			}
			return s.Next(v)
		}
		return json.Unmarshal(line, v)
	case CBORSeq:
		return s.cborDec.Decode(v)
	default:
		return fmt.Errorf("unknown sequence format")
	}
}
