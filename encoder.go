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
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type encodeState uint8

const (
	esHeader encodeState = iota
	esBlock
	esDone
)

// Encoder writes WARC records from a sequence of Messages, producing one
// compression member per record. It is the inverse of Decoder.
type Encoder struct {
	opts      *options
	comp      *compressor
	state     encodeState
	remaining int64
	sums      *blockChecksums
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	o := newOptions(opts...)
	return &Encoder{
		opts:  o,
		comp:  newCompressor(w, o.compression, o.level),
		sums:  newBlockChecksums(),
		state: esHeader,
	}
}

// WriteMessage dispatches an envelope message to the encoder. Metadata
// messages are accepted and ignored; extraction messages are rejected.
func (e *Encoder) WriteMessage(m *Message) error {
	switch {
	case m.Metadata != nil:
		return nil
	case m.Header != nil:
		return e.WriteHeader(m.Header)
	case m.BlockChunk != nil:
		return e.WriteBlock(m.BlockChunk.Data)
	case m.BlockEnd != nil:
		return e.FinishBlock(m.BlockEnd)
	case m.EndOfFile != nil:
		return e.Finish()
	default:
		return fmt.Errorf("warcat: unexpected message %s", m.Kind())
	}
}

// WriteHeader validates and serializes a record header and starts a new
// compression member.
func (e *Encoder) WriteHeader(h *Header) error {
	if e.state != esHeader {
		return errors.New("warcat: header written inside record")
	}
	wf := FieldsFromPairs(h.Fields)

	cl := wf.Get(ContentLength)
	if cl == "" {
		return newProtocolError(InvalidHeader, "missing Content-Length")
	}
	length, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || length < 0 {
		return newProtocolErrorf(InvalidHeader, "invalid Content-Length '%s'", cl)
	}
	for _, nv := range *wf {
		if !isToken([]byte(nv.Name)) {
			return newProtocolErrorf(InvalidHeader, "illegal field name '%s'", nv.Name)
		}
		if strings.ContainsAny(nv.Value, "\r\n") {
			return newProtocolErrorf(InvalidHeader, "field %s contains line break", nv.Name)
		}
	}

	v := h.Version
	if v == "" {
		v = V1_1.String()
	}
	if !strings.HasPrefix(v, "WARC/") {
		v = "WARC/" + v
	}

	if err := e.comp.beginMember(); err != nil {
		return err
	}
	if _, err := io.WriteString(e.comp, v+crlf); err != nil {
		return err
	}
	if _, err := wf.Write(e.comp); err != nil {
		return err
	}
	if _, err := io.WriteString(e.comp, crlf); err != nil {
		return err
	}

	e.remaining = length
	e.sums.reset()
	e.state = esBlock
	return nil
}

// WriteBlock writes block data. Writing more bytes than the declared
// Content-Length is a LengthMismatch error.
func (e *Encoder) WriteBlock(p []byte) error {
	if e.state != esBlock {
		return errors.New("warcat: block data written outside record")
	}
	if int64(len(p)) > e.remaining {
		return newProtocolErrorf(LengthMismatch,
			"block exceeds Content-Length by %d bytes", int64(len(p))-e.remaining)
	}
	if _, err := e.comp.Write(p); err != nil {
		return err
	}
	_, _ = e.sums.Write(p)
	e.remaining -= int64(len(p))
	return nil
}

// FinishBlock verifies the block against the declared length and any
// checksums in end, writes the end of record marker and closes the
// compression member.
func (e *Encoder) FinishBlock(end *BlockEnd) error {
	if e.state != esBlock {
		return errors.New("warcat: block finished outside record")
	}
	if e.remaining != 0 {
		return newProtocolErrorf(LengthMismatch,
			"block ended %d bytes short of Content-Length", e.remaining)
	}
	if end != nil {
		computed := e.sums.end()
		if end.Crc32c != nil && *end.Crc32c != *computed.Crc32c {
			return newProtocolErrorf(ChecksumMismatch,
				"crc32c: expected %08x, computed %08x", *end.Crc32c, *computed.Crc32c)
		}
		if end.Crc32 != nil && *end.Crc32 != *computed.Crc32 {
			return newProtocolErrorf(ChecksumMismatch,
				"crc32: expected %08x, computed %08x", *end.Crc32, *computed.Crc32)
		}
		if end.Xxh3 != nil && *end.Xxh3 != *computed.Xxh3 {
			return newProtocolErrorf(ChecksumMismatch,
				"xxh3: expected %016x, computed %016x", *end.Xxh3, *computed.Xxh3)
		}
	}
	if _, err := io.WriteString(e.comp, crlfcrlf); err != nil {
		return err
	}
	if err := e.comp.endMember(); err != nil {
		return err
	}
	e.state = esHeader
	return nil
}

// Finish terminates the stream. It is an error to finish in the middle of
// a record.
func (e *Encoder) Finish() error {
	if e.state == esBlock {
		return errors.New("warcat: stream finished inside record")
	}
	e.state = esDone
	return nil
}
