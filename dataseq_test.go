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
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqMessages() []*Message {
	return []*Message{
		{Metadata: &Metadata{File: "test.warc", Position: 0}},
		{Header: &Header{Version: "WARC/1.1", Fields: [][2]string{
			{WarcType, "resource"},
			{ContentLength, "5"},
		}}},
		{BlockChunk: &BlockChunk{Data: []byte("hello")}},
		{BlockEnd: &BlockEnd{}},
		{EndOfFile: &EndOfFile{}},
	}
}

func seqRoundTrip(t *testing.T, format SeqFormat) {
	t.Helper()
	assert := assert.New(t)

	b := &bytes.Buffer{}
	sw := NewSeqWriter(b, format)
	want := seqMessages()
	for _, m := range want {
		require.NoError(t, sw.Put(m))
	}
	require.NoError(t, sw.Flush())

	sr, err := NewSeqReader(bytes.NewReader(b.Bytes()), format)
	require.NoError(t, err)
	var got []*Message
	for {
		m := &Message{}
		err := sr.Next(m)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, m)
	}
	require.Len(t, got, len(want))
	assert.Equal("test.warc", got[0].Metadata.File)
	assert.Equal("WARC/1.1", got[1].Header.Version)
	assert.Equal(want[1].Header.Fields, got[1].Header.Fields)
	assert.Equal([]byte("hello"), got[2].BlockChunk.Data)
	assert.NotNil(got[3].BlockEnd)
	assert.NotNil(got[4].EndOfFile)
}

func TestSeqRoundTripJSONSeq(t *testing.T) {
	seqRoundTrip(t, JSONSeq)
}

func TestSeqRoundTripJSONL(t *testing.T) {
	seqRoundTrip(t, JSONL)
}

func TestSeqRoundTripCBORSeq(t *testing.T) {
	seqRoundTrip(t, CBORSeq)
}

func TestSeqWriterJSONSeqFraming(t *testing.T) {
	assert := assert.New(t)

	b := &bytes.Buffer{}
	sw := NewSeqWriter(b, JSONSeq)
	require.NoError(t, sw.Put(&Message{EndOfFile: &EndOfFile{}}))
	require.NoError(t, sw.Flush())

	out := b.Bytes()
	assert.Equal(byte(recordSeparator), out[0])
	assert.Equal(byte('\n'), out[len(out)-1])
	assert.JSONEq(`{"EndOfFile":{}}`, string(out[1:len(out)-1]))
}

func TestSeqWriterJSONL(t *testing.T) {
	b := &bytes.Buffer{}
	sw := NewSeqWriter(b, JSONL)
	require.NoError(t, sw.Put(&Message{EndOfFile: &EndOfFile{}}))
	require.NoError(t, sw.Put(&Message{Metadata: &Metadata{File: "-"}}))
	require.NoError(t, sw.Flush())

	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"EndOfFile":{}}`, lines[0])
}

func TestSeqReaderSkipsBlankLines(t *testing.T) {
	data := "{\"EndOfFile\":{}}\n\n{\"Metadata\":{\"file\":\"-\",\"position\":0}}\n"
	sr, err := NewSeqReader(strings.NewReader(data), JSONL)
	require.NoError(t, err)

	m := &Message{}
	require.NoError(t, sr.Next(m))
	assert.NotNil(t, m.EndOfFile)
	m = &Message{}
	require.NoError(t, sr.Next(m))
	require.NotNil(t, m.Metadata)
	assert.Equal(t, "-", m.Metadata.File)
	assert.Equal(t, io.EOF, sr.Next(&Message{}))
}

func TestSeqWriterCSV(t *testing.T) {
	b := &bytes.Buffer{}
	sw := NewSeqWriter(b, CSV, "position", "type")
	require.NoError(t, sw.Put([]string{"0", "resource"}))
	require.NoError(t, sw.Put([]string{"312", "metadata"}))
	require.NoError(t, sw.Flush())

	assert.Equal(t, "position,type\n0,resource\n312,metadata\n", b.String())
}

func TestSeqWriterCSVRequiresRows(t *testing.T) {
	sw := NewSeqWriter(&bytes.Buffer{}, CSV, "position")
	assert.Error(t, sw.Put(&Message{EndOfFile: &EndOfFile{}}))
}

func TestSeqReaderRejectsCSV(t *testing.T) {
	_, err := NewSeqReader(strings.NewReader(""), CSV)
	assert.Error(t, err)
}

func TestSeqFormatFromString(t *testing.T) {
	tests := []struct {
		in      string
		want    SeqFormat
		wantErr bool
	}{
		{"json-seq", JSONSeq, false},
		{"", JSONSeq, false},
		{"jsonl", JSONL, false},
		{"cbor-seq", CBORSeq, false},
		{"CSV", CSV, false},
		{"xml", JSONSeq, true},
	}
	for _, tt := range tests {
		got, err := SeqFormatFromString(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
