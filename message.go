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

// Metadata announces a record and its position within the input file.
// The position is the compressed offset of the member containing the
// record, or the uncompressed offset for identity streams.
type Metadata struct {
	File     string `json:"file" cbor:"file"`
	Position int64  `json:"position" cbor:"position"`
}

// Header carries the parsed record header. Fields are name value pairs in
// the order they appear in the record.
type Header struct {
	Version string      `json:"version" cbor:"version"`
	Fields  [][2]string `json:"fields" cbor:"fields"`
}

// BlockChunk carries a piece of the record block.
type BlockChunk struct {
	Data []byte `json:"data" cbor:"data"`
}

// BlockEnd terminates a block and carries checksums over the whole block.
type BlockEnd struct {
	Crc32  *uint32 `json:"crc32,omitempty" cbor:"crc32,omitempty"`
	Crc32c *uint32 `json:"crc32c,omitempty" cbor:"crc32c,omitempty"`
	Xxh3   *uint64 `json:"xxh3,omitempty" cbor:"xxh3,omitempty"`
}

// ExtractMetadata announces whether a record has extractable content and
// where it should be placed.
type ExtractMetadata struct {
	HasContent     bool     `json:"has_content" cbor:"has_content"`
	PathComponents []string `json:"file_path_components,omitempty" cbor:"file_path_components,omitempty"`
	IsTruncated    bool     `json:"is_truncated,omitempty" cbor:"is_truncated,omitempty"`
}

// ExtractChunk carries a piece of extracted payload.
type ExtractChunk struct {
	Data []byte `json:"data" cbor:"data"`
}

// ExtractEnd terminates an extracted payload and carries checksums over
// the extracted bytes.
type ExtractEnd struct {
	Crc32  *uint32 `json:"crc32,omitempty" cbor:"crc32,omitempty"`
	Crc32c *uint32 `json:"crc32c,omitempty" cbor:"crc32c,omitempty"`
	Xxh3   *uint64 `json:"xxh3,omitempty" cbor:"xxh3,omitempty"`
}

// EndOfFile terminates the message stream for one input file.
type EndOfFile struct{}

// Message is the envelope passed between the streaming components and
// serialized by the sequence formats. Exactly one field is set.
type Message struct {
	Metadata        *Metadata        `json:"Metadata,omitempty" cbor:"Metadata,omitempty"`
	Header          *Header          `json:"Header,omitempty" cbor:"Header,omitempty"`
	BlockChunk      *BlockChunk      `json:"BlockChunk,omitempty" cbor:"BlockChunk,omitempty"`
	BlockEnd        *BlockEnd        `json:"BlockEnd,omitempty" cbor:"BlockEnd,omitempty"`
	ExtractMetadata *ExtractMetadata `json:"ExtractMetadata,omitempty" cbor:"ExtractMetadata,omitempty"`
	ExtractChunk    *ExtractChunk    `json:"ExtractChunk,omitempty" cbor:"ExtractChunk,omitempty"`
	ExtractEnd      *ExtractEnd      `json:"ExtractEnd,omitempty" cbor:"ExtractEnd,omitempty"`
	EndOfFile       *EndOfFile       `json:"EndOfFile,omitempty" cbor:"EndOfFile,omitempty"`
}

// Kind names the set field, for diagnostics.
func (m *Message) Kind() string {
	switch {
	case m.Metadata != nil:
		return "Metadata"
	case m.Header != nil:
		return "Header"
	case m.BlockChunk != nil:
		return "BlockChunk"
	case m.BlockEnd != nil:
		return "BlockEnd"
	case m.ExtractMetadata != nil:
		return "ExtractMetadata"
	case m.ExtractChunk != nil:
		return "ExtractChunk"
	case m.ExtractEnd != nil:
		return "ExtractEnd"
	case m.EndOfFile != nil:
		return "EndOfFile"
	default:
		return "empty"
	}
}
