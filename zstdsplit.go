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
	"fmt"
	"io"
)

type zstdFrameState uint8

const (
	zfsFrameHeader zstdFrameState = iota
	zfsBlock
	zfsDone
)

// zstdFrameReader passes through the bytes of exactly one zstandard frame
// from the underlying reader and then reports io.EOF. The frame structure
// (RFC 8878) is walked block by block so the reader never consumes bytes
// belonging to the next frame.
type zstdFrameReader struct {
	br            *bufio.Reader
	state         zstdFrameState
	pending       []byte
	dataRemaining int
	lastBlock     bool
	hasChecksum   bool
}

func newZstdFrameReader(br *bufio.Reader) *zstdFrameReader {
	return &zstdFrameReader{br: br, state: zfsFrameHeader}
}

func (f *zstdFrameReader) Read(p []byte) (int, error) {
	for {
		if len(f.pending) > 0 {
			n := copy(p, f.pending)
			f.pending = f.pending[n:]
			return n, nil
		}
		if f.dataRemaining > 0 {
			n := len(p)
			if n > f.dataRemaining {
				n = f.dataRemaining
			}
			n, err := f.br.Read(p[:n])
			f.dataRemaining -= n
			if err == io.EOF && f.dataRemaining > 0 {
				err = io.ErrUnexpectedEOF
			}
			if n == 0 && err == nil {
				continue
			}
			return n, err
		}

		switch f.state {
		case zfsFrameHeader:
			if err := f.readFrameHeader(); err != nil {
				return 0, err
			}
		case zfsBlock:
			if f.lastBlock {
				if f.hasChecksum {
					sum := make([]byte, 4)
					if _, err := io.ReadFull(f.br, sum); err != nil {
						return 0, unexpectedEOF(err)
					}
					f.pending = sum
				}
				f.state = zfsDone
				continue
			}
			if err := f.readBlockHeader(); err != nil {
				return 0, err
			}
		case zfsDone:
			return 0, io.EOF
		}
	}
}

// readFrameHeader consumes the frame magic and header and queues the raw
// bytes for the consumer.
func (f *zstdFrameReader) readFrameHeader() error {
	hdr := make([]byte, 5, 18)
	if _, err := io.ReadFull(f.br, hdr); err != nil {
		return unexpectedEOF(err)
	}
	desc := hdr[4]

	fcsFlag := desc >> 6
	singleSegment := desc&0x20 != 0
	f.hasChecksum = desc&0x04 != 0
	dictIDFlag := desc & 0x03

	var extra int
	if !singleSegment {
		extra++ // window descriptor
	}
	extra += []int{0, 1, 2, 4}[dictIDFlag]
	fcsLen := []int{0, 2, 4, 8}[fcsFlag]
	if fcsFlag == 0 && singleSegment {
		fcsLen = 1
	}
	extra += fcsLen

	if extra > 0 {
		rest := make([]byte, extra)
		if _, err := io.ReadFull(f.br, rest); err != nil {
			return unexpectedEOF(err)
		}
		hdr = append(hdr, rest...)
	}
	f.pending = hdr
	f.state = zfsBlock
	return nil
}

// readBlockHeader consumes one three byte block header and queues it,
// arming dataRemaining with the size of the block content.
func (f *zstdFrameReader) readBlockHeader() error {
	hdr := make([]byte, 3)
	if _, err := io.ReadFull(f.br, hdr); err != nil {
		return unexpectedEOF(err)
	}
	v := uint32(hdr[0]) | uint32(hdr[1])<<8 | uint32(hdr[2])<<16
	f.lastBlock = v&1 != 0
	blockType := (v >> 1) & 3
	size := int(v >> 3)

	switch blockType {
	case 0, 2: // raw, compressed
		f.dataRemaining = size
	case 1: // RLE carries a single byte regardless of regenerated size
		f.dataRemaining = 1
	default:
		return fmt.Errorf("warcat: reserved zstd block type")
	}
	f.pending = hdr
	return nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
