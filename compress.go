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
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/nlnwa/warcat/internal/countingreader"
)

// Compression identifies the container format wrapping the records.
type Compression uint8

const (
	// CompressionAuto detects the format from the stream or file name.
	CompressionAuto Compression = iota
	// CompressionNone is an uncompressed stream.
	CompressionNone
	// CompressionGzip is a stream of gzip members, one per record.
	CompressionGzip
	// CompressionZstd is a stream of zstandard frames, one per record,
	// possibly preceded by a dictionary frame.
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionAuto:
		return "auto"
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// CompressionFromString parses a compression format name.
func CompressionFromString(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return CompressionAuto, nil
	case "none":
		return CompressionNone, nil
	case "gzip":
		return CompressionGzip, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return CompressionAuto, fmt.Errorf("unknown compression format '%s'", s)
	}
}

// CompressionFromPath guesses the compression format from a file name.
func CompressionFromPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// CompressionLevel selects the compression effort for written members.
type CompressionLevel uint8

const (
	LevelLow CompressionLevel = iota
	LevelBalanced
	LevelHigh
)

// CompressionLevelFromString parses a compression level name.
func CompressionLevelFromString(s string) (CompressionLevel, error) {
	switch strings.ToLower(s) {
	case "low":
		return LevelLow, nil
	case "", "balanced":
		return LevelBalanced, nil
	case "high":
		return LevelHigh, nil
	default:
		return LevelBalanced, fmt.Errorf("unknown compression level '%s'", s)
	}
}

const (
	zstdFrameMagic      = 0xFD2FB528
	zstdSkippableMin    = 0x184D2A50
	zstdSkippableMax    = 0x184D2A5F
	zstdDictFrameMin    = 0x184D2A5D
	zstdDictMagic       = 0xEC30A437
	maxDictionaryLength = 16 << 20
)

// detectCompression sniffs the format from the first bytes of a stream.
func detectCompression(magic []byte) Compression {
	if len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		return CompressionGzip
	}
	if len(magic) >= 4 {
		m := binary.LittleEndian.Uint32(magic)
		if m == zstdFrameMagic || (m >= zstdSkippableMin && m <= zstdSkippableMax) {
			return CompressionZstd
		}
	}
	return CompressionNone
}

// decompressor reads a stream of compression members. Read returns the
// uncompressed bytes of the current member and io.EOF at the member
// boundary; nextMember advances. Member start offsets are reported in
// compressed input coordinates.
type decompressor struct {
	cr     *countingreader.Reader
	br     *bufio.Reader
	format Compression

	gz    *gzip.Reader
	zr    *zstd.Decoder
	frame *zstdFrameReader

	dict    []byte
	rawDict bool

	memberStart int64
	sawDict     bool
	sawFrame    bool
}

func newDecompressor(r io.Reader, format Compression) (*decompressor, error) {
	cr := countingreader.New(r)
	br := bufio.NewReaderSize(cr, readBufferSize)
	d := &decompressor{cr: cr, br: br, format: format}
	if format == CompressionAuto {
		magic, err := br.Peek(4)
		if err != nil && err != io.EOF {
			return nil, err
		}
		d.format = detectCompression(magic)
	}
	return d, nil
}

// inputOffset is the number of compressed input bytes consumed so far.
func (d *decompressor) inputOffset() int64 {
	return d.cr.N() - int64(d.br.Buffered())
}

// memberOffset is the compressed offset where the current member starts.
func (d *decompressor) memberOffset() int64 {
	return d.memberStart
}

// nextMember positions the decompressor at the start of the next member.
// It returns io.EOF when the input is exhausted. The current member must
// be fully consumed first.
func (d *decompressor) nextMember() error {
	switch d.format {
	case CompressionNone:
		d.memberStart = d.inputOffset()
		_, err := d.br.Peek(1)
		return err
	case CompressionGzip:
		return d.nextGzipMember()
	case CompressionZstd:
		return d.nextZstdMember()
	default:
		return fmt.Errorf("unknown compression format")
	}
}

func (d *decompressor) nextGzipMember() error {
	magic, err := d.br.Peek(2)
	if err == io.EOF {
		if len(magic) == 0 {
			return io.EOF
		}
		return newContainerError(TruncatedMember, d.inputOffset())
	}
	if err != nil {
		return err
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		if detectCompression(magic) != CompressionNone {
			return newContainerError(UnexpectedCompression, d.inputOffset())
		}
		return newContainerError(BadMagic, d.inputOffset())
	}
	d.memberStart = d.inputOffset()
	if d.gz == nil {
		gz, err := gzip.NewReader(d.br)
		if err != nil {
			return newWrappedContainerError(TruncatedMember, d.memberStart, err)
		}
		d.gz = gz
	} else if err := d.gz.Reset(d.br); err != nil {
		return newWrappedContainerError(TruncatedMember, d.memberStart, err)
	}
	d.gz.Multistream(false)
	return nil
}

func (d *decompressor) nextZstdMember() error {
	for {
		magic, err := d.br.Peek(4)
		if err == io.EOF {
			if len(magic) == 0 {
				if d.sawDict && !d.sawFrame {
					return newContainerError(DictionaryWithoutFrame, d.inputOffset())
				}
				return io.EOF
			}
			return newContainerError(TruncatedMember, d.inputOffset())
		}
		if err != nil {
			return err
		}
		m := binary.LittleEndian.Uint32(magic)
		switch {
		case m >= zstdSkippableMin && m <= zstdSkippableMax:
			content, err := d.readSkippableFrame()
			if err != nil {
				return err
			}
			if m >= zstdDictFrameMin && !d.sawFrame {
				if err := d.setDictionary(content); err != nil {
					return err
				}
			}
		case m == zstdFrameMagic:
			d.memberStart = d.inputOffset()
			d.sawFrame = true
			if d.zr == nil {
				opts := []zstd.DOption{
					zstd.WithDecoderConcurrency(1),
					zstd.WithDecoderLowmem(true),
				}
				if d.dict != nil {
					if d.rawDict {
						opts = append(opts, zstd.WithDecoderDictRaw(0, d.dict))
					} else {
						opts = append(opts, zstd.WithDecoderDicts(d.dict))
					}
				}
				zr, err := zstd.NewReader(nil, opts...)
				if err != nil {
					return err
				}
				d.zr = zr
			}
			d.frame = newZstdFrameReader(d.br)
			if err := d.zr.Reset(d.frame); err != nil {
				return err
			}
			return nil
		default:
			if magic[0] == 0x1f && magic[1] == 0x8b {
				return newContainerError(UnexpectedCompression, d.inputOffset())
			}
			return newContainerError(BadMagic, d.inputOffset())
		}
	}
}

// resync scans the compressed stream for the start of the next member.
// skipCurrent discards the byte at the current offset first so a member
// that already failed is not found again.
func (d *decompressor) resync(skipCurrent bool) error {
	if d.format == CompressionNone {
		return nil
	}
	if skipCurrent {
		if _, err := d.br.Discard(1); err != nil {
			return nil
		}
	}
	for {
		magic, err := d.br.Peek(4)
		switch d.format {
		case CompressionGzip:
			if len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b {
				return nil
			}
		case CompressionZstd:
			if len(magic) == 4 {
				m := binary.LittleEndian.Uint32(magic)
				if m == zstdFrameMagic || (m >= zstdSkippableMin && m <= zstdSkippableMax) {
					return nil
				}
			}
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

// readSkippableFrame consumes a skippable frame and returns its content.
func (d *decompressor) readSkippableFrame() ([]byte, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(d.br, hdr[:]); err != nil {
		return nil, newWrappedContainerError(TruncatedMember, d.inputOffset(), err)
	}
	length := binary.LittleEndian.Uint32(hdr[4:8])
	if length > maxDictionaryLength {
		return nil, fmt.Errorf("warcat: skippable frame too large: %d bytes", length)
	}
	content := make([]byte, length)
	if _, err := io.ReadFull(d.br, content); err != nil {
		return nil, newWrappedContainerError(TruncatedMember, d.inputOffset(), err)
	}
	return content, nil
}

// setDictionary installs the dictionary carried in a skippable frame. The
// dictionary may itself be zstd compressed.
func (d *decompressor) setDictionary(content []byte) error {
	if len(content) >= 4 && binary.LittleEndian.Uint32(content) == zstdFrameMagic {
		zr, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxDictionaryLength))
		if err != nil {
			return err
		}
		defer zr.Close()
		content, err = zr.DecodeAll(content, nil)
		if err != nil {
			return fmt.Errorf("warcat: decompressing dictionary: %w", err)
		}
	}
	d.rawDict = !(len(content) >= 4 && binary.LittleEndian.Uint32(content) == zstdDictMagic)
	d.dict = content
	d.sawDict = true
	return nil
}

func (d *decompressor) Read(p []byte) (int, error) {
	switch d.format {
	case CompressionNone:
		return d.br.Read(p)
	case CompressionGzip:
		n, err := d.gz.Read(p)
		if err == io.ErrUnexpectedEOF {
			err = newWrappedContainerError(TruncatedMember, d.memberStart, err)
		}
		return n, err
	case CompressionZstd:
		n, err := d.zr.Read(p)
		if err == io.ErrUnexpectedEOF {
			err = newWrappedContainerError(TruncatedMember, d.memberStart, err)
		}
		return n, err
	default:
		return 0, fmt.Errorf("unknown compression format")
	}
}

// compressor writes a stream of compression members, one per record.
type compressor struct {
	w      io.Writer
	format Compression
	level  CompressionLevel

	gz       *gzip.Writer
	zw       *zstd.Encoder
	inMember bool
}

func newCompressor(w io.Writer, format Compression, level CompressionLevel) *compressor {
	if format == CompressionAuto {
		format = CompressionNone
	}
	return &compressor{w: w, format: format, level: level}
}

func gzipLevel(l CompressionLevel) int {
	switch l {
	case LevelLow:
		return gzip.BestSpeed
	case LevelHigh:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func zstdLevel(l CompressionLevel) zstd.EncoderLevel {
	switch l {
	case LevelLow:
		return zstd.SpeedFastest
	case LevelHigh:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func (c *compressor) beginMember() error {
	switch c.format {
	case CompressionGzip:
		if c.gz == nil {
			gz, err := gzip.NewWriterLevel(c.w, gzipLevel(c.level))
			if err != nil {
				return err
			}
			c.gz = gz
		} else {
			c.gz.Reset(c.w)
		}
	case CompressionZstd:
		if c.zw == nil {
			zw, err := zstd.NewWriter(c.w,
				zstd.WithEncoderLevel(zstdLevel(c.level)),
				zstd.WithEncoderConcurrency(1))
			if err != nil {
				return err
			}
			c.zw = zw
		} else {
			c.zw.Reset(c.w)
		}
	}
	c.inMember = true
	return nil
}

func (c *compressor) Write(p []byte) (int, error) {
	switch c.format {
	case CompressionGzip:
		return c.gz.Write(p)
	case CompressionZstd:
		return c.zw.Write(p)
	default:
		return c.w.Write(p)
	}
}

// endMember flushes and terminates the current member.
func (c *compressor) endMember() error {
	c.inMember = false
	switch c.format {
	case CompressionGzip:
		return c.gz.Close()
	case CompressionZstd:
		return c.zw.Close()
	default:
		return nil
	}
}
