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
	"encoding/binary"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCompression(t *testing.T) {
	tests := []struct {
		name  string
		magic []byte
		want  Compression
	}{
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, CompressionGzip},
		{"zstd frame", []byte{0x28, 0xb5, 0x2f, 0xfd}, CompressionZstd},
		{"zstd skippable", []byte{0x50, 0x2a, 0x4d, 0x18}, CompressionZstd},
		{"zstd dictionary", []byte{0x5d, 0x2a, 0x4d, 0x18}, CompressionZstd},
		{"plain", []byte("WARC"), CompressionNone},
		{"short", []byte{0x1f}, CompressionNone},
		{"empty", nil, CompressionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectCompression(tt.magic))
		})
	}
}

func TestCompressionFromPath(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(CompressionGzip, CompressionFromPath("collection.warc.gz"))
	assert.Equal(CompressionZstd, CompressionFromPath("collection.warc.zst"))
	assert.Equal(CompressionZstd, CompressionFromPath("collection.warc.ZSTD"))
	assert.Equal(CompressionNone, CompressionFromPath("collection.warc"))
}

func roundTrip(t *testing.T, compression Compression) {
	assert := assert.New(t)

	b := &bytes.Buffer{}
	enc := NewEncoder(b, WithCompression(compression))
	bodies := []string{"hello", "goodbye cruel world"}
	for _, body := range bodies {
		wf := &WarcFields{}
		wf.Add(WarcType, "resource")
		wf.Add(WarcRecordID, NewRecordID())
		wf.Add(WarcDate, "2017-03-06T04:03:53Z")
		wf.Add(ContentLength, strconv.Itoa(len(body)))

		require.NoError(t, enc.WriteHeader(&Header{Version: "WARC/1.1", Fields: wf.Pairs()}))
		require.NoError(t, enc.WriteBlock([]byte(body)))
		require.NoError(t, enc.FinishBlock(nil))
	}
	require.NoError(t, enc.Finish())

	messages, dec := decodeAll(t, bytes.NewReader(b.Bytes()))
	assert.Equal(compression, dec.Compression())
	assert.True(dec.Validation().Valid())
	assert.True(dec.Aligned())

	var metas []*Metadata
	for _, m := range messages {
		if m.Metadata != nil {
			metas = append(metas, m.Metadata)
		}
	}
	require.Len(t, metas, 2)
	assert.Equal(int64(0), metas[0].Position)
	assert.Greater(metas[1].Position, int64(0))
	for i, body := range bodies {
		assert.Equal(body, blockData(messages, i))
	}
}

func TestRoundTripGzip(t *testing.T) {
	roundTrip(t, CompressionGzip)
}

func TestRoundTripZstd(t *testing.T) {
	roundTrip(t, CompressionZstd)
}

func TestRoundTripIdentity(t *testing.T) {
	roundTrip(t, CompressionNone)
}

func TestGzipOutputMagic(t *testing.T) {
	b := &bytes.Buffer{}
	enc := NewEncoder(b, WithCompression(CompressionGzip))
	wf := &WarcFields{}
	wf.Add(WarcType, "resource")
	wf.Add(ContentLength, "0")
	require.NoError(t, enc.WriteHeader(&Header{Fields: wf.Pairs()}))
	require.NoError(t, enc.FinishBlock(nil))

	out := b.Bytes()
	require.GreaterOrEqual(t, len(out), 2)
	assert.Equal(t, []byte{0x1f, 0x8b}, out[:2])
}

func TestZstdOutputMagic(t *testing.T) {
	b := &bytes.Buffer{}
	enc := NewEncoder(b, WithCompression(CompressionZstd))
	wf := &WarcFields{}
	wf.Add(WarcType, "resource")
	wf.Add(ContentLength, "0")
	require.NoError(t, enc.WriteHeader(&Header{Fields: wf.Pairs()}))
	require.NoError(t, enc.FinishBlock(nil))

	out := b.Bytes()
	require.GreaterOrEqual(t, len(out), 4)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, out[:4])
}

// compressedMember encodes one resource record as a single member.
func compressedMember(t *testing.T, compression Compression, body string) []byte {
	t.Helper()
	b := &bytes.Buffer{}
	enc := NewEncoder(b, WithCompression(compression))
	wf := &WarcFields{}
	wf.Add(WarcType, "resource")
	wf.Add(ContentLength, strconv.Itoa(len(body)))
	require.NoError(t, enc.WriteHeader(&Header{Version: "WARC/1.1", Fields: wf.Pairs()}))
	if body != "" {
		require.NoError(t, enc.WriteBlock([]byte(body)))
	}
	require.NoError(t, enc.FinishBlock(nil))
	require.NoError(t, enc.Finish())
	return b.Bytes()
}

func TestDecoderResyncGzip(t *testing.T) {
	assert := assert.New(t)

	data := append([]byte{}, compressedMember(t, CompressionGzip, "hello")...)
	data = append(data, "not a gzip member"...)
	data = append(data, compressedMember(t, CompressionGzip, "goodbye")...)

	dec, err := NewDecoder(bytes.NewReader(data))
	require.NoError(t, err)
	var bodies []string
	var body strings.Builder
	for {
		m, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			require.NoError(t, dec.Resync())
			body.Reset()
			continue
		}
		switch {
		case m.BlockChunk != nil:
			body.Write(m.BlockChunk.Data)
		case m.BlockEnd != nil:
			bodies = append(bodies, body.String())
			body.Reset()
		}
	}
	assert.Equal([]string{"hello", "goodbye"}, bodies)
}

// skippableFrame wraps content in a zstd skippable frame.
func skippableFrame(magic uint32, content []byte) []byte {
	out := make([]byte, 8, 8+len(content))
	binary.LittleEndian.PutUint32(out[0:4], magic)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(content)))
	return append(out, content...)
}

func TestZstdDictionaryFrame(t *testing.T) {
	dict := []byte("a modest shared history for the frames that follow")
	record := compressedMember(t, CompressionZstd, "hello")

	decode := func(t *testing.T, data []byte) {
		messages, dec := decodeAll(t, bytes.NewReader(data))
		assert.Equal(t, CompressionZstd, dec.Compression())
		assert.Equal(t, "hello", blockData(messages, 0))
		require.NotNil(t, messages[0].Metadata)
		assert.Equal(t, int64(len(data)-len(record)), messages[0].Metadata.Position,
			"record member starts after the dictionary frame")
	}

	t.Run("raw dictionary", func(t *testing.T) {
		decode(t, append(skippableFrame(zstdDictFrameMin, dict), record...))
	})

	t.Run("compressed dictionary", func(t *testing.T) {
		zw, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		compressed := zw.EncodeAll(dict, nil)
		require.NoError(t, zw.Close())
		decode(t, append(skippableFrame(zstdDictFrameMin+1, compressed), record...))
	})
}

func TestZstdDictionaryWithoutFrame(t *testing.T) {
	data := skippableFrame(zstdDictFrameMin, []byte("orphaned dictionary"))

	dec, err := NewDecoder(bytes.NewReader(data))
	require.NoError(t, err)
	for {
		_, err = dec.Next()
		if err != nil {
			break
		}
	}
	var containerError *ContainerError
	require.ErrorAs(t, err, &containerError)
	assert.Equal(t, DictionaryWithoutFrame, containerError.Kind)
}

func TestZstdSkippableFrameTooLarge(t *testing.T) {
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], zstdSkippableMin)
	binary.LittleEndian.PutUint32(hdr[4:8], maxDictionaryLength+1)

	dec, err := NewDecoder(bytes.NewReader(hdr[:]))
	require.NoError(t, err)
	for {
		_, err = dec.Next()
		if err != nil {
			break
		}
	}
	assert.ErrorContains(t, err, "too large")
}

func TestIdentityRoundTripByteIdentical(t *testing.T) {
	data := testResourceRecord + testMetadataRecord

	dec, err := NewDecoder(strings.NewReader(data))
	require.NoError(t, err)
	b := &bytes.Buffer{}
	enc := NewEncoder(b, WithCompression(CompressionNone))
	for {
		m, err := dec.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.NoError(t, enc.WriteMessage(m))
	}
	assert.Equal(t, data, b.String())
}
