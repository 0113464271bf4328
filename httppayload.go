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
	"bytes"
	"strconv"
	"strings"
)

type payloadState uint8

const (
	hpHeader payloadState = iota
	hpFixed
	hpToEnd
	hpChunkSize
	hpChunkData
	hpChunkBoundary
	hpTrailer
	hpExcess
	hpDrain
)

// maxChunkLineLength caps buffered chunk size and trailer lines.
const maxChunkLineLength = 16384

// PayloadExtractor decodes the payload out of an HTTP/1.x message block.
// Block bytes are fed with Write in arbitrary chunks; the extractor
// buffers partial lines so a chunk size line split across writes is
// decoded correctly. The payload is the transfer decoded body; content
// encodings are left as is.
type PayloadExtractor struct {
	state     payloadState
	buf       []byte
	remaining int64
	queue     []*Message
	ended     bool
	lenient   bool
	sums      *blockChecksums

	statusCode int
	proto      string
}

// NewPayloadExtractor creates a PayloadExtractor. By default data after a
// Content-Length delimited body fails the block; set
// WithLenientTrailingBytes to discard it instead.
func NewPayloadExtractor(opts ...Option) *PayloadExtractor {
	o := newOptions(opts...)
	return &PayloadExtractor{
		state:   hpHeader,
		lenient: o.lenientTrailing,
		sums:    newBlockChecksums(),
	}
}

// StatusCode returns the parsed status code, or zero before the header
// has been seen or for request messages.
func (x *PayloadExtractor) StatusCode() int {
	return x.statusCode
}

// Write feeds more block data to the extractor.
func (x *PayloadExtractor) Write(p []byte) (int, error) {
	x.buf = append(x.buf, p...)
	if err := x.process(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Next returns a pending message, if any.
func (x *PayloadExtractor) Next() (*Message, bool) {
	if len(x.queue) == 0 {
		return nil, false
	}
	m := x.queue[0]
	x.queue = x.queue[1:]
	return m, true
}

// Finish signals the end of the block. A final ExtractEnd is produced if
// the body was not already terminated; truncated bodies are tolerated.
func (x *PayloadExtractor) Finish() error {
	x.end()
	x.state = hpDrain
	x.buf = nil
	return nil
}

func (x *PayloadExtractor) emit(m *Message) {
	x.queue = append(x.queue, m)
}

func (x *PayloadExtractor) end() {
	if !x.ended {
		x.ended = true
		x.emit(&Message{ExtractEnd: x.sums.endExtract()})
	}
}

func (x *PayloadExtractor) emitChunk(n int64) {
	data := make([]byte, n)
	copy(data, x.buf[:n])
	x.buf = x.buf[n:]
	_, _ = x.sums.Write(data)
	x.emit(&Message{ExtractChunk: &ExtractChunk{Data: data}})
}

func (x *PayloadExtractor) process() error {
	for {
		switch x.state {
		case hpHeader:
			idx := scanHeaderDeliminator(x.buf)
			if idx < 0 {
				return nil
			}
			head := x.buf[:idx]
			x.buf = x.buf[idx:]
			x.setBodyMode(head)
		case hpFixed:
			if x.remaining == 0 {
				x.end()
				if x.lenient {
					x.state = hpDrain
				} else {
					x.state = hpExcess
				}
				continue
			}
			if len(x.buf) == 0 {
				return nil
			}
			n := x.remaining
			if n > int64(len(x.buf)) {
				n = int64(len(x.buf))
			}
			x.emitChunk(n)
			x.remaining -= n
		case hpToEnd:
			if len(x.buf) == 0 {
				return nil
			}
			x.emitChunk(int64(len(x.buf)))
		case hpChunkSize:
			i := bytes.IndexByte(x.buf, lf)
			if i < 0 {
				if len(x.buf) > maxChunkLineLength {
					return newProtocolError(InvalidHeader, "chunk size line too long")
				}
				return nil
			}
			line := bytes.Trim(x.buf[:i], sphtcrlf)
			x.buf = x.buf[i+1:]
			if len(line) == 0 {
				continue
			}
			// Drop any chunk extensions
			if j := bytes.IndexAny(line, "; \t"); j >= 0 {
				line = line[:j]
			}
			size, err := strconv.ParseInt(string(line), 16, 63)
			if err != nil {
				return newProtocolErrorf(InvalidHeader, "invalid chunk size '%s'", line)
			}
			if size == 0 {
				x.state = hpTrailer
			} else {
				x.remaining = size
				x.state = hpChunkData
			}
		case hpChunkData:
			if len(x.buf) == 0 {
				return nil
			}
			n := x.remaining
			if n > int64(len(x.buf)) {
				n = int64(len(x.buf))
			}
			x.emitChunk(n)
			x.remaining -= n
			if x.remaining == 0 {
				x.state = hpChunkBoundary
			}
		case hpChunkBoundary:
			if len(x.buf) == 0 {
				return nil
			}
			switch x.buf[0] {
			case cr:
				if len(x.buf) < 2 {
					return nil
				}
				if x.buf[1] != lf {
					return newProtocolError(InvalidHeader, "missing chunk boundary")
				}
				x.buf = x.buf[2:]
			case lf:
				x.buf = x.buf[1:]
			default:
				return newProtocolError(InvalidHeader, "missing chunk boundary")
			}
			x.state = hpChunkSize
		case hpTrailer:
			i := bytes.IndexByte(x.buf, lf)
			if i < 0 {
				if len(x.buf) > maxChunkLineLength {
					return newProtocolError(InvalidHeader, "trailer line too long")
				}
				return nil
			}
			line := bytes.Trim(x.buf[:i], sphtcrlf)
			x.buf = x.buf[i+1:]
			if len(line) == 0 {
				x.end()
				x.state = hpDrain
			}
		case hpExcess:
			if len(bytes.Trim(x.buf, sphtcrlf)) > 0 {
				return newProtocolErrorf(LengthMismatch,
					"%d bytes after Content-Length delimited body", len(x.buf))
			}
			x.buf = nil
			return nil
		case hpDrain:
			x.buf = nil
			return nil
		}
	}
}

// setBodyMode parses the start line and fields of the message header and
// selects how the body is framed.
func (x *PayloadExtractor) setBodyMode(head []byte) {
	lines := bytes.Split(head, []byte{lf})
	if len(lines) > 0 {
		x.proto, x.statusCode = parseLenientStatusLine(bytes.Trim(lines[0], sphtcrlf))
	}

	chunked := false
	var contentLength int64 = -1
	for _, l := range lines[1:] {
		l = bytes.TrimRight(l, sphtcrlf)
		j := bytes.IndexByte(l, ':')
		if j < 0 {
			continue
		}
		name := string(bytes.Trim(l[:j], sphtcrlf))
		value := string(bytes.Trim(l[j+1:], sphtcrlf))
		switch {
		case strings.EqualFold(name, "Transfer-Encoding"):
			for _, t := range strings.Split(value, ",") {
				if strings.EqualFold(strings.TrimSpace(t), "chunked") {
					chunked = true
				}
			}
		case strings.EqualFold(name, "Content-Length"):
			if n, err := strconv.ParseInt(value, 10, 64); err == nil && n >= 0 {
				contentLength = n
			}
		}
	}

	switch {
	case chunked:
		x.state = hpChunkSize
	case contentLength >= 0:
		x.remaining = contentLength
		x.state = hpFixed
	default:
		x.state = hpToEnd
	}
}

// parseLenientStatusLine parses an HTTP status line, tolerating a missing
// space between the status code and the reason phrase ("HTTP/1.1 200OK").
// For request lines the returned code is zero.
func parseLenientStatusLine(line []byte) (proto string, code int) {
	s := string(line)
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s, 0
	}
	proto = s[:i]
	if !strings.HasPrefix(proto, "HTTP/") {
		return proto, 0
	}
	rest := strings.TrimLeft(s[i:], " ")
	j := 0
	for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
		j++
	}
	if j > 0 {
		code, _ = strconv.Atoi(rest[:j])
	}
	return proto, code
}
