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
	"hash"
	"hash/crc32"

	"github.com/zeebo/xxh3"
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// blockChecksums maintains the checksum triple computed over every record
// block. These are transport checksums for the message envelope, not WARC
// digests.
type blockChecksums struct {
	crc32  hash.Hash32
	crc32c hash.Hash32
	xxh3   *xxh3.Hasher
}

func newBlockChecksums() *blockChecksums {
	return &blockChecksums{
		crc32:  crc32.NewIEEE(),
		crc32c: crc32.New(castagnoliTable),
		xxh3:   xxh3.New(),
	}
}

func (c *blockChecksums) Write(p []byte) (int, error) {
	c.crc32.Write(p)
	c.crc32c.Write(p)
	_, _ = c.xxh3.Write(p)
	return len(p), nil
}

func (c *blockChecksums) reset() {
	c.crc32.Reset()
	c.crc32c.Reset()
	c.xxh3.Reset()
}

// end returns the checksums of the bytes written since the last reset.
func (c *blockChecksums) end() *BlockEnd {
	crc := c.crc32.Sum32()
	crcc := c.crc32c.Sum32()
	x := c.xxh3.Sum64()
	return &BlockEnd{Crc32: &crc, Crc32c: &crcc, Xxh3: &x}
}

// endExtract returns the same triple on the extraction form.
func (c *blockChecksums) endExtract() *ExtractEnd {
	crc := c.crc32.Sum32()
	crcc := c.crc32c.Sum32()
	x := c.xxh3.Sum64()
	return &ExtractEnd{Crc32: &crc, Crc32c: &crcc, Xxh3: &x}
}
