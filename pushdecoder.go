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
	"errors"
	"io"
	"strconv"
)

// ErrNeedMoreData is returned by push style components when more input
// must be written before another event can be produced.
var ErrNeedMoreData = errors.New("warcat: need more data")

type pushState uint8

const (
	psBegin pushState = iota
	psHeader
	psBlock
	psTrailer
	psDone
)

// PushDecoder decodes identity encoded WARC data fed to it in arbitrary
// chunks. The produced message sequence is independent of how the input
// is split; Next returns ErrNeedMoreData when the buffered input does not
// yet complete the next event.
type PushDecoder struct {
	opts       *options
	parser     *warcfieldsParser
	sums       *blockChecksums
	buf        []byte
	consumed   int64
	closed     bool
	state      pushState
	remaining  int64
	validation *Validation
}

// NewPushDecoder creates a PushDecoder.
func NewPushDecoder(opts ...Option) *PushDecoder {
	o := newOptions(opts...)
	return &PushDecoder{
		opts:       o,
		parser:     &warcfieldsParser{opts: o},
		sums:       newBlockChecksums(),
		validation: &Validation{},
	}
}

// Write feeds more input to the decoder.
func (d *PushDecoder) Write(p []byte) (int, error) {
	if d.closed {
		return 0, errors.New("warcat: write after close")
	}
	d.buf = append(d.buf, p...)
	return len(p), nil
}

// Close signals the end of the input.
func (d *PushDecoder) Close() error {
	d.closed = true
	return nil
}

// Validation returns warnings collected while decoding.
func (d *PushDecoder) Validation() *Validation {
	return d.validation
}

func (d *PushDecoder) consume(n int) {
	d.buf = d.buf[n:]
	d.consumed += int64(n)
}

// Next returns the next message, ErrNeedMoreData when the input buffered
// so far is insufficient, or io.EOF after EndOfFile has been delivered.
func (d *PushDecoder) Next() (*Message, error) {
	switch d.state {
	case psBegin:
		if len(d.buf) == 0 {
			if d.closed {
				d.state = psDone
				return &Message{EndOfFile: &EndOfFile{}}, nil
			}
			return nil, ErrNeedMoreData
		}
		d.state = psHeader
		return &Message{Metadata: &Metadata{File: d.opts.fileName, Position: d.consumed}}, nil
	case psHeader:
		return d.parseHeader()
	case psBlock:
		return d.blockChunk()
	case psTrailer:
		return d.trailer()
	default:
		return nil, io.EOF
	}
}

func (d *PushDecoder) parseHeader() (*Message, error) {
	idx := scanHeaderDeliminator(d.buf)
	if idx < 0 {
		if len(d.buf) > maxHeaderLength {
			return nil, newProtocolError(InvalidHeader, "header exceeds maximum length")
		}
		if d.closed {
			return nil, newProtocolError(InvalidHeader, "input ended inside record header")
		}
		return nil, ErrNeedMoreData
	}

	head := d.buf[:idx]
	eol := bytes.IndexByte(head, lf)
	versionLine := head[:eol+1]
	if !bytes.HasPrefix(versionLine, []byte("WARC/")) {
		return nil, newProtocolError(InvalidVersion, "missing record version")
	}
	pos := &position{}
	pos.incrLineNumber()
	v, err := parseVersionLine(versionLine, d.validation, d.opts, pos)
	if err != nil {
		return nil, err
	}

	wf, err := d.parser.Parse(bufio.NewReader(bytes.NewReader(head[eol+1:])), d.validation, pos)
	if err != nil {
		return nil, err
	}

	length := int64(0)
	if cl := wf.Get(ContentLength); cl != "" {
		length, err = strconv.ParseInt(cl, 10, 64)
		if err != nil || length < 0 {
			return nil, newProtocolErrorf(InvalidHeader, "invalid Content-Length '%s'", cl)
		}
	}

	d.consume(idx)
	d.remaining = length
	d.sums.reset()
	d.state = psBlock
	return &Message{Header: &Header{Version: v.String(), Fields: wf.Pairs()}}, nil
}

func (d *PushDecoder) blockChunk() (*Message, error) {
	if d.remaining == 0 {
		d.state = psTrailer
		return d.trailer()
	}
	if len(d.buf) == 0 {
		if d.closed {
			return nil, newProtocolErrorf(LengthMismatch,
				"record block ended %d bytes short of Content-Length", d.remaining)
		}
		return nil, ErrNeedMoreData
	}
	n := d.remaining
	if n > int64(len(d.buf)) {
		n = int64(len(d.buf))
	}
	data := make([]byte, n)
	copy(data, d.buf[:n])
	d.consume(int(n))
	d.remaining -= n
	_, _ = d.sums.Write(data)
	if d.remaining == 0 {
		d.state = psTrailer
	}
	return &Message{BlockChunk: &BlockChunk{Data: data}}, nil
}

func (d *PushDecoder) trailer() (*Message, error) {
	if len(d.buf) < 4 && !d.closed {
		return nil, ErrNeedMoreData
	}
	switch {
	case bytes.HasPrefix(d.buf, []byte(crlfcrlf)):
		d.consume(4)
	case d.opts.errSyntax < ErrFail && bytes.HasPrefix(d.buf, []byte("\n\n")):
		d.consume(2)
		d.validation.addError(newSyntaxError("missing carriage return in end of record marker", &position{}))
	default:
		return nil, newProtocolError(MissingTrailer, "")
	}
	d.state = psBegin
	return &Message{BlockEnd: d.sums.end()}, nil
}
