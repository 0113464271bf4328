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
	"fmt"
	"io"
	"strconv"

	log "github.com/sirupsen/logrus"
)

type decodeState uint8

const (
	dsBegin decodeState = iota
	dsHeader
	dsBlock
	dsEOF
	dsDone
)

// Decoder reads WARC records from a possibly compressed stream and turns
// them into a sequence of Messages. For every record the caller receives
// Metadata, Header, zero or more BlockChunk and one BlockEnd, and a single
// EndOfFile after the last record.
type Decoder struct {
	opts       *options
	decomp     *decompressor
	br         *bufio.Reader
	parser     *warcfieldsParser
	sums       *blockChecksums
	state      decodeState
	remaining  int64
	buf        []byte
	pos        int64
	aligned    bool
	inMember   bool
	validation *Validation
}

// NewDecoder creates a Decoder reading from r. The compression format is
// detected from the stream unless set with WithCompression.
func NewDecoder(r io.Reader, opts ...Option) (*Decoder, error) {
	o := newOptions(opts...)
	decomp, err := newDecompressor(r, o.compression)
	if err != nil {
		return nil, err
	}
	return &Decoder{
		opts:       o,
		decomp:     decomp,
		br:         bufio.NewReaderSize(decomp, readBufferSize),
		parser:     &warcfieldsParser{opts: o},
		sums:       newBlockChecksums(),
		state:      dsBegin,
		buf:        make([]byte, readBufferSize),
		validation: &Validation{},
	}, nil
}

// Validation returns warnings collected while decoding.
func (d *Decoder) Validation() *Validation {
	return d.validation
}

// Aligned reports whether the most recent record started at a compression
// member boundary. It is always true for identity streams.
func (d *Decoder) Aligned() bool {
	return d.aligned
}

// Compression returns the detected or configured compression format.
func (d *Decoder) Compression() Compression {
	return d.decomp.format
}

// Close releases decompression resources. The underlying reader is not
// closed.
func (d *Decoder) Close() error {
	if d.decomp.zr != nil {
		d.decomp.zr.Close()
	}
	d.state = dsDone
	return nil
}

// Resync skips the rest of a broken record and positions the decoder at
// the next record boundary, so decoding can continue after an error. For
// identity streams the input is scanned for the next record version
// magic; for compressed streams the remainder of the current member is
// discarded and the stream is scanned for the next member magic.
func (d *Decoder) Resync() error {
	if d.state == dsEOF || d.state == dsDone {
		return nil
	}
	// A failure before the header means the boundary itself is bad and
	// must be skipped, a later failure leaves the reader inside the
	// record.
	atBoundary := d.state == dsBegin
	d.state = dsBegin
	d.remaining = 0
	d.sums.reset()

	if d.decomp.format == CompressionNone {
		if atBoundary {
			if _, err := d.br.Discard(1); err != nil {
				return nil
			}
		}
		for {
			magic, err := d.br.Peek(5)
			if bytes.HasPrefix(magic, []byte("WARC/")) {
				return nil
			}
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
			if _, err := d.br.Discard(1); err != nil {
				return err
			}
		}
	}

	if !atBoundary {
		_, _ = io.Copy(io.Discard, d.br)
	}
	d.inMember = false
	return d.decomp.resync(atBoundary)
}

// recordPosition returns the boundary position of the record about to be
// read.
func (d *Decoder) recordPosition() int64 {
	if d.decomp.format == CompressionNone {
		return d.decomp.inputOffset() - int64(d.br.Buffered())
	}
	return d.decomp.memberOffset()
}

// Next returns the next message. It returns io.EOF after the EndOfFile
// message has been delivered.
func (d *Decoder) Next() (*Message, error) {
	switch d.state {
	case dsBegin:
		return d.beginRecord()
	case dsHeader:
		return d.readHeader()
	case dsBlock:
		return d.readBlock()
	case dsEOF:
		d.state = dsDone
		return &Message{EndOfFile: &EndOfFile{}}, nil
	default:
		return nil, io.EOF
	}
}

func (d *Decoder) beginRecord() (*Message, error) {
	d.aligned = true
	if d.inMember {
		if _, err := d.br.Peek(1); err == nil {
			// Data left in the current member: the file does not use
			// record-at-time compression and the next record continues
			// within this member.
			if d.decomp.format != CompressionNone {
				d.aligned = false
				log.Debugf("record continues within member at offset %d", d.pos)
			}
			return d.emitMetadata()
		} else if err != io.EOF {
			return nil, err
		}
	}

	err := d.decomp.nextMember()
	if err == io.EOF {
		d.state = dsEOF
		return d.Next()
	}
	if err != nil {
		return nil, err
	}
	d.br.Reset(d.decomp)
	d.inMember = true
	return d.emitMetadata()
}

func (d *Decoder) emitMetadata() (*Message, error) {
	if d.aligned {
		d.pos = d.recordPosition()
	}
	if err := d.scanRecordStart(); err != nil {
		return nil, err
	}
	d.state = dsHeader
	return &Message{Metadata: &Metadata{File: d.opts.fileName, Position: d.pos}}, nil
}

// scanRecordStart skips garbage between records in identity streams the
// same way lenient readers do. Compressed members must start a record
// exactly at the member boundary.
func (d *Decoder) scanRecordStart() error {
	if d.decomp.format != CompressionNone {
		return nil
	}
	expected := d.pos
	for {
		magic, err := d.br.Peek(5)
		if err != nil {
			if err == io.EOF && len(magic) == 0 {
				return io.ErrUnexpectedEOF
			}
			if err != io.EOF {
				return err
			}
		}
		if bytes.HasPrefix(magic, []byte("WARC/")) {
			break
		}
		if d.opts.errSyntax >= ErrFail {
			return newProtocolError(InvalidVersion, "expected start of record")
		}
		if _, err := d.br.Discard(1); err != nil {
			return err
		}
	}
	d.pos = d.recordPosition()
	if expected != d.pos && d.opts.errSyntax >= ErrWarn {
		d.validation.addError(newSyntaxError(
			fmt.Sprintf("expected start of record at offset: %d, but record was found at offset: %d",
				expected, d.pos), &position{}))
	}
	return nil
}

func (d *Decoder) readHeader() (*Message, error) {
	pos := &position{}

	l := make([]byte, 5)
	if _, err := io.ReadFull(d.br, l); err != nil {
		return nil, newProtocolError(InvalidVersion, "missing record version")
	}
	pos.incrLineNumber()
	if !bytes.Equal(l, []byte("WARC/")) {
		return nil, newProtocolError(InvalidVersion, "missing record version")
	}
	line, err := d.br.ReadBytes('\n')
	if err != nil {
		return nil, newProtocolError(InvalidVersion, "missing record version")
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		switch d.opts.errSyntax {
		case ErrWarn:
			d.validation.addError(newSyntaxError(
				fmt.Sprintf("missing carriage return on line '%s'", bytes.Trim(line, sphtcrlf)), pos))
		case ErrFail:
			return nil, newProtocolError(InvalidVersion,
				fmt.Sprintf("missing carriage return on line '%s'", bytes.Trim(line, sphtcrlf)))
		}
	}
	v, err := parseVersionLine(append([]byte("WARC/"), line...), d.validation, d.opts, pos)
	if err != nil {
		return nil, err
	}

	wf, err := d.parser.Parse(d.br, d.validation, pos)
	if err != nil {
		return nil, err
	}

	length := int64(0)
	if cl := wf.Get(ContentLength); cl != "" {
		length, err = strconv.ParseInt(cl, 10, 64)
		if err != nil || length < 0 {
			return nil, newProtocolErrorf(InvalidHeader, "invalid Content-Length '%s'", cl)
		}
	} else if d.opts.errSpec >= ErrWarn {
		d.validation.addError(newHeaderFieldError(ContentLength, "missing field"))
	}

	d.remaining = length
	d.sums.reset()
	d.state = dsBlock
	return &Message{Header: &Header{Version: v.String(), Fields: wf.Pairs()}}, nil
}

func (d *Decoder) readBlock() (*Message, error) {
	if d.remaining > 0 {
		n := int64(len(d.buf))
		if n > d.remaining {
			n = d.remaining
		}
		read, err := d.br.Read(d.buf[:n])
		if read > 0 {
			d.remaining -= int64(read)
			data := make([]byte, read)
			copy(data, d.buf[:read])
			_, _ = d.sums.Write(data)
			return &Message{BlockChunk: &BlockChunk{Data: data}}, nil
		}
		if err == io.EOF {
			return nil, newProtocolErrorf(LengthMismatch,
				"record block ended %d bytes short of Content-Length", d.remaining)
		}
		if err != nil {
			return nil, err
		}
		return d.readBlock()
	}

	if err := d.readTrailer(); err != nil {
		return nil, err
	}
	d.state = dsBegin
	return &Message{BlockEnd: d.sums.end()}, nil
}

// readTrailer consumes the end of record marker. Exactly four bytes are
// read so the decoder never consumes data belonging to the next record.
func (d *Decoder) readTrailer() error {
	t, err := d.br.Peek(4)
	if err != nil && err != io.EOF {
		return err
	}
	if bytes.Equal(t, []byte(crlfcrlf)) {
		_, _ = d.br.Discard(4)
		return nil
	}
	// Tolerate bare LF line endings in lenient mode
	if d.opts.errSyntax < ErrFail && len(t) >= 2 && t[0] == lf && t[1] == lf {
		_, _ = d.br.Discard(2)
		d.validation.addError(newSyntaxError("missing carriage return in end of record marker", &position{}))
		return nil
	}
	return newProtocolError(MissingTrailer, "")
}
