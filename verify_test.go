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
	"strconv"
	"testing"

	"github.com/nlnwa/warcat/internal/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sha1Hello = "sha1:VL2MMHO4YXUKFWV63YHTWSBM3GXKSQ2N"

func verifyFields(recordType, id, body string) *WarcFields {
	wf := &WarcFields{}
	wf.Set(WarcRecordID, id)
	wf.Set(WarcType, recordType)
	wf.Set(WarcDate, "2017-03-06T04:03:53Z")
	wf.Set(WarcTargetURI, "http://example.com/hello.txt")
	wf.Set(ContentLength, strconv.Itoa(len(body)))
	return wf
}

func feedRecord(t *testing.T, v *Verifier, position int64, wf *WarcFields, body string, aligned bool) {
	t.Helper()
	feedRecordIn(t, v, "test.warc", position, wf, body, aligned)
}

func feedRecordIn(t *testing.T, v *Verifier, file string, position int64, wf *WarcFields, body string, aligned bool) {
	t.Helper()
	meta := &Metadata{File: file, Position: position}
	h := &Header{Version: "WARC/1.1", Fields: wf.Pairs()}
	require.NoError(t, v.BeginRecord(meta, h, aligned))
	if body != "" {
		require.NoError(t, v.BlockData([]byte(body)))
	}
	require.NoError(t, v.EndRecord())
}

func problemChecks(problems []Problem) []string {
	var out []string
	for _, p := range problems {
		out = append(out, p.Check)
	}
	return out
}

func TestVerifierCleanRecord(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())

	wf := verifyFields("resource", "<urn:uuid:a>", "hello")
	wf.Set(WarcBlockDigest, sha1Hello)
	feedRecord(t, v, 0, wf, "hello", true)

	require.NoError(t, v.Resolve())
	assert.Empty(t, v.Problems())
}

func TestVerifierBlockDigestMismatch(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())

	wf := verifyFields("resource", "<urn:uuid:a>", "goodbye")
	wf.Set(WarcBlockDigest, sha1Hello)
	feedRecord(t, v, 0, wf, "goodbye", true)

	problems := v.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, CheckBlockDigest, problems[0].Check)
	assert.Equal(t, ProblemDigestMismatch, problems[0].Kind)
	assert.Equal(t, "<urn:uuid:a>", problems[0].RecordID)
}

func TestVerifierPayloadDigest(t *testing.T) {
	block := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello"

	v := NewVerifier(kvstore.NewMemory())
	wf := verifyFields("response", "<urn:uuid:a>", block)
	wf.Set(ContentType, "application/http;msgtype=response")
	wf.Set(WarcPayloadDigest, sha1Hello)
	feedRecord(t, v, 0, wf, block, true)
	assert.Empty(t, v.Problems())

	v = NewVerifier(kvstore.NewMemory())
	wf = verifyFields("response", "<urn:uuid:b>", block)
	wf.Set(ContentType, "application/http;msgtype=response")
	wf.Set(WarcPayloadDigest, "sha1:VL2MMHO4YXUKFWV63YHTWSBM3GXKSQ2M")
	feedRecord(t, v, 0, wf, block, true)

	problems := v.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, CheckPayloadDigest, problems[0].Check)
	assert.Equal(t, ProblemDigestMismatch, problems[0].Kind)
}

func TestVerifierRevisitSkipsPayloadDigest(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())

	// The payload digest of a revisit record describes the original
	// capture, not the revisit block.
	wf := verifyFields("revisit", "<urn:uuid:a>", "")
	wf.Set(WarcProfile, "http://netpreserve.org/warc/1.1/revisit/identical-payload-digest")
	wf.Set(WarcPayloadDigest, sha1Hello)
	feedRecord(t, v, 0, wf, "", true)

	require.NoError(t, v.Resolve())
	assert.Empty(t, v.Problems())
}

func TestVerifierMissingMandatoryFields(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())
	feedRecord(t, v, 0, &WarcFields{}, "", true)

	problems := v.Problems()
	require.Len(t, problems, 4)
	for _, p := range problems {
		assert.Equal(t, CheckMandatoryFields, p.Check)
		assert.Equal(t, ProblemMissingMandatoryField, p.Kind)
	}
}

func TestVerifierUnknownRecordType(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())
	feedRecord(t, v, 0, verifyFields("zombie", "<urn:uuid:a>", ""), "", true)

	assert.Contains(t, problemChecks(v.Problems()), CheckKnownRecordType)
}

func TestVerifierContentType(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())

	wf := verifyFields("warcinfo", "<urn:uuid:a>", "x: y\r\n")
	wf.Set(ContentType, "text/plain")
	feedRecord(t, v, 0, wf, "x: y\r\n", true)

	problems := v.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, CheckContentType, problems[0].Check)
	assert.Equal(t, ProblemSpecViolation, problems[0].Kind)
}

func TestVerifierRevisitRequiresProfile(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())
	feedRecord(t, v, 0, verifyFields("revisit", "<urn:uuid:a>", ""), "", true)

	assert.Contains(t, problemChecks(v.Problems()), CheckProfile)
}

func TestVerifierDuplicateRecordID(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())
	feedRecord(t, v, 0, verifyFields("resource", "<urn:uuid:a>", "hello"), "hello", true)
	feedRecord(t, v, 312, verifyFields("resource", "<urn:uuid:a>", "hello"), "hello", true)

	problems := v.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, CheckDuplicateRecordID, problems[0].Check)
	assert.Equal(t, ProblemDuplicateRecordID, problems[0].Kind)
	assert.Equal(t, int64(312), problems[0].Position)
}

func TestVerifierUnresolvedReference(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())

	wf := verifyFields("metadata", "<urn:uuid:a>", "")
	wf.Set(WarcRefersTo, "<urn:uuid:missing>")
	feedRecord(t, v, 0, wf, "", true)
	require.NoError(t, v.Resolve())

	problems := v.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, CheckRefersTo, problems[0].Check)
	assert.Equal(t, ProblemUnresolvedReference, problems[0].Kind)
	assert.Contains(t, problems[0].Message, "<urn:uuid:missing>")
}

func TestVerifierWarcinfoReference(t *testing.T) {
	assert := assert.New(t)

	v := NewVerifier(kvstore.NewMemory())
	feedRecord(t, v, 0, verifyFields("warcinfo", "<urn:uuid:info>", ""), "", true)
	wf := verifyFields("resource", "<urn:uuid:a>", "hello")
	wf.Set(WarcWarcinfoID, "<urn:uuid:info>")
	feedRecord(t, v, 312, wf, "hello", true)
	require.NoError(t, v.Resolve())
	assert.Empty(v.Problems())

	// Pointing the warcinfo id at a non warcinfo record is a finding
	v = NewVerifier(kvstore.NewMemory())
	feedRecord(t, v, 0, verifyFields("resource", "<urn:uuid:other>", "hello"), "hello", true)
	wf = verifyFields("resource", "<urn:uuid:a>", "hello")
	wf.Set(WarcWarcinfoID, "<urn:uuid:other>")
	feedRecord(t, v, 312, wf, "hello", true)
	require.NoError(t, v.Resolve())

	problems := v.Problems()
	require.Len(t, problems, 1)
	assert.Equal(CheckWarcinfoID, problems[0].Check)
	assert.Equal(ProblemBadReferenceMatch, problems[0].Kind)
}

func TestVerifierRevisitRefersToMismatch(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())

	feedRecord(t, v, 0, verifyFields("resource", "<urn:uuid:original>", "hello"), "hello", true)

	wf := verifyFields("revisit", "<urn:uuid:a>", "")
	wf.Set(WarcProfile, "http://netpreserve.org/warc/1.1/revisit/identical-payload-digest")
	wf.Set(WarcRefersTo, "<urn:uuid:original>")
	wf.Set(WarcRefersToTargetURI, "http://example.com/other.txt")
	wf.Set(WarcRefersToDate, "2001-01-01T00:00:00Z")
	feedRecord(t, v, 312, wf, "", true)
	require.NoError(t, v.Resolve())

	checks := problemChecks(v.Problems())
	assert.Contains(t, checks, CheckRefersToTargetURI)
	assert.Contains(t, checks, CheckRefersToDate)
	for _, p := range v.Problems() {
		assert.Equal(t, ProblemBadReferenceMatch, p.Kind)
	}
}

func TestVerifierRevisitPayloadDigest(t *testing.T) {
	assert := assert.New(t)

	revisit := func(digest string) *WarcFields {
		wf := verifyFields("revisit", "<urn:uuid:a>", "")
		wf.Set(WarcProfile, "http://netpreserve.org/warc/1.1/revisit/identical-payload-digest")
		wf.Set(WarcRefersTo, "<urn:uuid:original>")
		wf.Set(WarcPayloadDigest, digest)
		return wf
	}
	original := verifyFields("resource", "<urn:uuid:original>", "hello")
	original.Set(WarcPayloadDigest, sha1Hello)

	// Matching digests resolve cleanly
	v := NewVerifier(kvstore.NewMemory())
	feedRecord(t, v, 0, original, "hello", true)
	feedRecord(t, v, 312, revisit(sha1Hello), "", true)
	require.NoError(t, v.Resolve())
	assert.Empty(v.Problems())

	// A revisit declaring a different digest than its referenced record
	v = NewVerifier(kvstore.NewMemory())
	feedRecord(t, v, 0, original, "hello", true)
	feedRecord(t, v, 312, revisit("sha1:VL2MMHO4YXUKFWV63YHTWSBM3GXKSQ2M"), "", true)
	require.NoError(t, v.Resolve())

	problems := v.Problems()
	require.Len(t, problems, 1)
	assert.Equal(CheckPayloadDigest, problems[0].Check)
	assert.Equal(ProblemDigestMismatch, problems[0].Kind)
	assert.Equal("<urn:uuid:a>", problems[0].RecordID)
	assert.Equal(int64(312), problems[0].Position)
}

func TestVerifierConcurrentToCrossFile(t *testing.T) {
	assert := assert.New(t)

	concurrent := func() *WarcFields {
		wf := verifyFields("metadata", "<urn:uuid:b>", "")
		wf.Set(WarcConcurrentTo, "<urn:uuid:a>")
		return wf
	}

	// Same file resolves cleanly
	v := NewVerifier(kvstore.NewMemory())
	feedRecordIn(t, v, "one.warc", 0, verifyFields("response", "<urn:uuid:a>", ""), "", true)
	feedRecordIn(t, v, "one.warc", 312, concurrent(), "", true)
	require.NoError(t, v.Resolve())
	assert.Empty(v.Problems())

	// Concurrent records must live in the same file
	v = NewVerifier(kvstore.NewMemory())
	feedRecordIn(t, v, "one.warc", 0, verifyFields("response", "<urn:uuid:a>", ""), "", true)
	feedRecordIn(t, v, "two.warc", 0, concurrent(), "", true)
	require.NoError(t, v.Resolve())

	problems := v.Problems()
	require.Len(t, problems, 1)
	assert.Equal(CheckConcurrentTo, problems[0].Check)
	assert.Equal(ProblemBadReferenceMatch, problems[0].Kind)
	assert.Equal("two.warc", problems[0].File)
	assert.Contains(problems[0].Message, "one.warc")
}

func TestVerifierSegmentChain(t *testing.T) {
	assert := assert.New(t)

	v := NewVerifier(kvstore.NewMemory())
	wf := verifyFields("resource", "<urn:uuid:origin>", "hello")
	wf.Set(WarcSegmentNumber, "1")
	feedRecord(t, v, 0, wf, "hello", true)

	wf = verifyFields("continuation", "<urn:uuid:cont>", "goodbye")
	wf.Set(WarcSegmentNumber, "2")
	wf.Set(WarcSegmentOriginID, "<urn:uuid:origin>")
	wf.Set(WarcSegmentTotalLength, "12")
	feedRecord(t, v, 312, wf, "goodbye", true)

	require.NoError(t, v.Resolve())
	assert.Empty(v.Problems())
}

func TestVerifierSegmentTotalLengthMismatch(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())
	wf := verifyFields("resource", "<urn:uuid:origin>", "hello")
	wf.Set(WarcSegmentNumber, "1")
	feedRecord(t, v, 0, wf, "hello", true)

	wf = verifyFields("continuation", "<urn:uuid:cont>", "goodbye")
	wf.Set(WarcSegmentNumber, "2")
	wf.Set(WarcSegmentOriginID, "<urn:uuid:origin>")
	wf.Set(WarcSegmentTotalLength, "99")
	feedRecord(t, v, 312, wf, "goodbye", true)

	require.NoError(t, v.Resolve())
	problems := v.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, CheckSegment, problems[0].Check)
	assert.Equal(t, ProblemBadReferenceMatch, problems[0].Kind)
}

func TestVerifierSegmentChainGap(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())

	wf := verifyFields("continuation", "<urn:uuid:cont>", "goodbye")
	wf.Set(WarcSegmentNumber, "3")
	wf.Set(WarcSegmentOriginID, "<urn:uuid:origin>")
	wf.Set(WarcSegmentTotalLength, "7")
	feedRecord(t, v, 0, wf, "goodbye", true)

	require.NoError(t, v.Resolve())
	for _, p := range v.Problems() {
		assert.Equal(t, CheckSegment, p.Check)
	}
	assert.GreaterOrEqual(t, len(v.Problems()), 2, "missing origin and gap in chain")
}

func TestVerifierSegmentFieldMisuse(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())

	wf := verifyFields("resource", "<urn:uuid:a>", "hello")
	wf.Set(WarcSegmentNumber, "2")
	wf.Set(WarcSegmentTotalLength, "5")
	feedRecord(t, v, 0, wf, "hello", true)

	problems := v.Problems()
	require.Len(t, problems, 2)
	for _, p := range problems {
		assert.Equal(t, CheckSegment, p.Check)
		assert.Equal(t, ProblemSpecViolation, p.Kind)
	}
}

func TestVerifierMisalignment(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())
	feedRecord(t, v, 0, verifyFields("resource", "<urn:uuid:a>", "hello"), "hello", false)
	feedRecord(t, v, 312, verifyFields("resource", "<urn:uuid:b>", "hello"), "hello", false)

	problems := v.Problems()
	require.Len(t, problems, 1, "misalignment is reported once per file")
	assert.Equal(t, CheckRecordAtTimeCompression, problems[0].Check)
	assert.Equal(t, ProblemRecordMemberMisalignment, problems[0].Kind)
}

func TestVerifierExcludeChecks(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory(),
		WithExcludeChecks(CheckBlockDigest, CheckRecordAtTimeCompression))

	wf := verifyFields("resource", "<urn:uuid:a>", "goodbye")
	wf.Set(WarcBlockDigest, sha1Hello)
	feedRecord(t, v, 0, wf, "goodbye", false)

	require.NoError(t, v.Resolve())
	assert.Empty(t, v.Problems())
}

func TestVerifierInvalidIPAddress(t *testing.T) {
	v := NewVerifier(kvstore.NewMemory())

	wf := verifyFields("response", "<urn:uuid:a>", "")
	wf.Set(WarcIPAddress, "not-an-ip")
	feedRecord(t, v, 0, wf, "", true)

	assert.Contains(t, problemChecks(v.Problems()), CheckIPAddress)
}

func TestVerifierProblemString(t *testing.T) {
	p := Problem{
		File:     "test.warc",
		Position: 312,
		RecordID: "<urn:uuid:a>",
		Check:    CheckBlockDigest,
		Kind:     ProblemDigestMismatch,
		Message:  "digest mismatch",
	}
	assert.Equal(t, "test.warc:312 <urn:uuid:a> [block-digest]: digest mismatch", p.String())
}
