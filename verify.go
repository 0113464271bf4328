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
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	whatwg "github.com/nlnwa/whatwg-url/url"
)

// Names of the individual verifier checks. Each can be disabled with
// WithExcludeChecks.
const (
	CheckMandatoryFields         = "mandatory-fields"
	CheckKnownRecordType         = "known-record-type"
	CheckContentType             = "content-type"
	CheckConcurrentTo            = "concurrent-to"
	CheckBlockDigest             = "block-digest"
	CheckPayloadDigest           = "payload-digest"
	CheckIPAddress               = "ip-address"
	CheckRefersTo                = "refers-to"
	CheckRefersToTargetURI       = "refers-to-target-uri"
	CheckRefersToDate            = "refers-to-date"
	CheckTargetURI               = "target-uri"
	CheckTruncated               = "truncated"
	CheckWarcinfoID              = "warcinfo-id"
	CheckFilename                = "filename"
	CheckProfile                 = "profile"
	CheckSegment                 = "segment"
	CheckDuplicateRecordID       = "duplicate-record-id"
	CheckRecordAtTimeCompression = "record-at-time-compression"
)

// AllChecks lists every check name known to the Verifier.
var AllChecks = []string{
	CheckMandatoryFields,
	CheckKnownRecordType,
	CheckContentType,
	CheckConcurrentTo,
	CheckBlockDigest,
	CheckPayloadDigest,
	CheckIPAddress,
	CheckRefersTo,
	CheckRefersToTargetURI,
	CheckRefersToDate,
	CheckTargetURI,
	CheckTruncated,
	CheckWarcinfoID,
	CheckFilename,
	CheckProfile,
	CheckSegment,
	CheckDuplicateRecordID,
	CheckRecordAtTimeCompression,
}

// Problem classification names.
const (
	ProblemMissingMandatoryField    = "MissingMandatoryField"
	ProblemUnknownRecordType        = "UnknownRecordType"
	ProblemDigestMismatch           = "DigestMismatch"
	ProblemUnresolvedReference      = "UnresolvedReference"
	ProblemBadReferenceMatch        = "BadReferenceMatch"
	ProblemRecordMemberMisalignment = "RecordMemberMisalignment"
	ProblemDuplicateRecordID        = "DuplicateRecordId"
	ProblemSpecViolation            = "SpecViolation"
)

// Problem describes one finding of the Verifier.
type Problem struct {
	File     string `json:"file"`
	Position int64  `json:"position"`
	RecordID string `json:"record_id,omitempty"`
	Check    string `json:"check"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s:%d %s [%s]: %s", p.File, p.Position, p.RecordID, p.Check, p.Message)
}

// Store is the key value storage backing the two verification passes.
// Implementations must return keys in ascending byte order from
// IterPrefix.
type Store interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	IterPrefix(prefix []byte, fn func(key, value []byte) error) error
}

// Stored facts about a record, used by the second pass.
type recordFacts struct {
	Type          string `cbor:"t"`
	TargetURI     string `cbor:"u"`
	Date          string `cbor:"d"`
	PayloadDigest string `cbor:"g"`
	File          string `cbor:"f"`
	Position      int64  `cbor:"p"`
}

// A reference from one record to another, resolved in the second pass.
type referenceRow struct {
	FromID    string `cbor:"i"`
	FromType  string `cbor:"y"`
	File      string `cbor:"f"`
	Position  int64  `cbor:"p"`
	Field     string `cbor:"n"`
	ToID      string `cbor:"t"`
	TargetURI string `cbor:"u"` // WARC-Refers-To-Target-URI on the referring record
	Date      string `cbor:"d"` // WARC-Refers-To-Date on the referring record
	Digest    string `cbor:"g"` // WARC-Payload-Digest on the referring record
}

type segmentRow struct {
	Length   int64  `cbor:"l"`
	RecordID string `cbor:"i"`
	File     string `cbor:"f"`
	Position int64  `cbor:"p"`
}

type segmentTotalRow struct {
	Total    int64  `cbor:"t"`
	RecordID string `cbor:"i"`
	File     string `cbor:"f"`
	Position int64  `cbor:"p"`
}

type verifyRecord struct {
	file           string
	position       int64
	id             string
	recordType     string
	fields         *WarcFields
	blockDigests   []*digest
	payloadDigests []*digest
	payload        *PayloadExtractor
	payloadIsBlock bool
	revisit        bool
	blockLen       int64
	aligned        bool
}

// Verifier checks WARC files in two passes. The first pass is driven one
// record at a time with BeginRecord, BlockData and EndRecord and performs
// all per record checks while collecting facts into the Store. The second
// pass, Resolve, checks the references between records.
type Verifier struct {
	opts     *options
	store    Store
	exclude  map[string]bool
	problems []Problem
	refSeq   uint64
	warned   map[string]bool
	cur      *verifyRecord
}

// NewVerifier creates a Verifier using the given store.
func NewVerifier(store Store, opts ...Option) *Verifier {
	o := newOptions(opts...)
	exclude := map[string]bool{}
	for _, c := range o.excludeChecks {
		exclude[c] = true
	}
	return &Verifier{
		opts:    o,
		store:   store,
		exclude: exclude,
		warned:  map[string]bool{},
	}
}

// Problems returns the findings collected so far.
func (v *Verifier) Problems() []Problem {
	return v.problems
}

func (v *Verifier) enabled(check string) bool {
	return !v.exclude[check]
}

func (v *Verifier) problem(file string, position int64, id, check, kind, msg string) {
	v.problems = append(v.problems, Problem{
		File:     file,
		Position: position,
		RecordID: id,
		Check:    check,
		Kind:     kind,
		Message:  msg,
	})
}

func (v *Verifier) recordProblem(check, kind, msg string) {
	v.problem(v.cur.file, v.cur.position, v.cur.id, check, kind, msg)
}

// BeginRecord starts verification of one record. aligned tells whether
// the record started at a compression member boundary.
func (v *Verifier) BeginRecord(meta *Metadata, h *Header, aligned bool) error {
	wf := FieldsFromPairs(h.Fields)
	r := &verifyRecord{
		file:       meta.File,
		position:   meta.Position,
		id:         wf.Get(WarcRecordID),
		recordType: wf.Get(WarcType),
		fields:     wf,
		aligned:    aligned,
	}
	v.cur = r

	v.checkMandatoryFields()
	v.checkRecordType()
	v.checkContentType()
	v.checkConcurrentTo()
	v.checkIPAddress()
	v.checkTargetURI()
	v.checkTruncated()
	v.checkFilename()
	v.checkProfile()
	v.checkSegmentFields()

	return v.setupDigests()
}

func (v *Verifier) checkMandatoryFields() {
	if !v.enabled(CheckMandatoryFields) {
		return
	}
	for _, name := range []string{WarcRecordID, ContentLength, WarcDate, WarcType} {
		if !v.cur.fields.Has(name) {
			v.recordProblem(CheckMandatoryFields, ProblemMissingMandatoryField,
				"missing mandatory field "+name)
		}
	}
}

func (v *Verifier) checkRecordType() {
	if !v.enabled(CheckKnownRecordType) {
		return
	}
	if rt := v.cur.recordType; rt != "" && recordTypeOf(rt) == 0 {
		v.recordProblem(CheckKnownRecordType, ProblemUnknownRecordType,
			"unknown record type '"+rt+"'")
	}
}

func (v *Verifier) checkContentType() {
	if !v.enabled(CheckContentType) {
		return
	}
	length, _ := strconv.ParseInt(v.cur.fields.Get(ContentLength), 10, 64)
	if length == 0 {
		return
	}
	contentType := strings.ToLower(v.cur.fields.Get(ContentType))
	expectPrefix := ""
	expectParam := ""
	switch v.cur.recordType {
	case RtWarcinfo:
		expectPrefix = "application/warc-fields"
	case RtRequest:
		expectPrefix = "application/http"
		expectParam = "msgtype=request"
	case RtResponse:
		expectPrefix = "application/http"
		expectParam = "msgtype=response"
	default:
		return
	}
	if !strings.HasPrefix(contentType, expectPrefix) {
		v.recordProblem(CheckContentType, ProblemSpecViolation,
			fmt.Sprintf("expected content type %s, found '%s'", expectPrefix, contentType))
		return
	}
	if expectParam != "" && strings.Contains(contentType, "msgtype=") &&
		!strings.Contains(contentType, expectParam) {
		v.recordProblem(CheckContentType, ProblemSpecViolation,
			fmt.Sprintf("expected %s in content type '%s'", expectParam, contentType))
	}
}

func (v *Verifier) checkConcurrentTo() {
	if !v.enabled(CheckConcurrentTo) {
		return
	}
	if !v.cur.fields.Has(WarcConcurrentTo) {
		return
	}
	const legal = maskRequest | maskResponse | maskResource | maskMetadata | maskRevisit
	if recordTypeOf(v.cur.recordType)&legal == 0 {
		v.recordProblem(CheckConcurrentTo, ProblemSpecViolation,
			WarcConcurrentTo+" not allowed on "+v.cur.recordType+" records")
	}
}

func (v *Verifier) checkIPAddress() {
	if !v.enabled(CheckIPAddress) {
		return
	}
	ip := v.cur.fields.Get(WarcIPAddress)
	if ip == "" {
		return
	}
	if net.ParseIP(ip) == nil {
		v.recordProblem(CheckIPAddress, ProblemSpecViolation,
			"invalid IP address '"+ip+"'")
	}
	if v.cur.recordType == RtWarcinfo {
		v.recordProblem(CheckIPAddress, ProblemSpecViolation,
			WarcIPAddress+" not allowed on warcinfo records")
	}
}

func (v *Verifier) checkTargetURI() {
	if !v.enabled(CheckTargetURI) {
		return
	}
	uri := v.cur.fields.Get(WarcTargetURI)
	const required = maskResponse | maskResource | maskRequest | maskRevisit | maskConversion | maskContinuation
	if uri == "" {
		if recordTypeOf(v.cur.recordType)&required != 0 {
			v.recordProblem(CheckTargetURI, ProblemMissingMandatoryField,
				"missing "+WarcTargetURI)
		}
		return
	}
	if _, err := whatwg.Parse(uri); err != nil {
		v.recordProblem(CheckTargetURI, ProblemSpecViolation,
			"invalid target URI '"+uri+"'")
	}
}

func (v *Verifier) checkTruncated() {
	if !v.enabled(CheckTruncated) {
		return
	}
	reason := v.cur.fields.Get(WarcTruncated)
	if reason != "" && !truncatedReasons[strings.ToLower(reason)] {
		v.recordProblem(CheckTruncated, ProblemSpecViolation,
			"unknown truncation reason '"+reason+"'")
	}
}

func (v *Verifier) checkFilename() {
	if !v.enabled(CheckFilename) {
		return
	}
	if v.cur.fields.Has(WarcFilename) && v.cur.recordType != RtWarcinfo {
		v.recordProblem(CheckFilename, ProblemSpecViolation,
			WarcFilename+" only allowed on warcinfo records")
	}
}

func (v *Verifier) checkProfile() {
	if !v.enabled(CheckProfile) {
		return
	}
	if v.cur.recordType == RtRevisit && !v.cur.fields.Has(WarcProfile) {
		v.recordProblem(CheckProfile, ProblemMissingMandatoryField,
			"revisit records require "+WarcProfile)
	}
}

func (v *Verifier) checkSegmentFields() {
	if !v.enabled(CheckSegment) {
		return
	}
	wf := v.cur.fields
	number := int64(-1)
	if s := wf.Get(WarcSegmentNumber); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 {
			v.recordProblem(CheckSegment, ProblemSpecViolation,
				"invalid "+WarcSegmentNumber+" '"+s+"'")
		} else {
			number = n
		}
	}
	if v.cur.recordType == RtContinuation {
		if number == 1 {
			v.recordProblem(CheckSegment, ProblemSpecViolation,
				"continuation records cannot be segment number 1")
		}
		if number < 0 {
			v.recordProblem(CheckSegment, ProblemMissingMandatoryField,
				"continuation records require "+WarcSegmentNumber)
		}
		if !wf.Has(WarcSegmentOriginID) {
			v.recordProblem(CheckSegment, ProblemMissingMandatoryField,
				"continuation records require "+WarcSegmentOriginID)
		}
	} else {
		if number > 1 {
			v.recordProblem(CheckSegment, ProblemSpecViolation,
				"only continuation records may have segment numbers above 1")
		}
		if wf.Has(WarcSegmentTotalLength) {
			v.recordProblem(CheckSegment, ProblemSpecViolation,
				WarcSegmentTotalLength+" only allowed on continuation records")
		}
	}
}

func (v *Verifier) setupDigests() error {
	r := v.cur
	r.revisit = r.recordType == RtRevisit

	if v.enabled(CheckBlockDigest) {
		for _, value := range r.fields.GetAll(WarcBlockDigest) {
			d, err := newDigest(value, unknownEncoding)
			if err != nil {
				v.recordProblem(CheckBlockDigest, ProblemSpecViolation, err.Error())
				continue
			}
			r.blockDigests = append(r.blockDigests, d)
		}
	}

	if v.enabled(CheckPayloadDigest) && !r.revisit {
		for _, value := range r.fields.GetAll(WarcPayloadDigest) {
			d, err := newDigest(value, unknownEncoding)
			if err != nil {
				v.recordProblem(CheckPayloadDigest, ProblemSpecViolation, err.Error())
				continue
			}
			r.payloadDigests = append(r.payloadDigests, d)
		}
		if len(r.payloadDigests) > 0 {
			contentType := strings.ToLower(r.fields.Get(ContentType))
			if (r.recordType == RtResponse || r.recordType == RtRequest) &&
				strings.HasPrefix(contentType, "application/http") {
				// Trailing bytes after the body must not stop digesting,
				// the block digest already covers the exact block.
				r.payload = NewPayloadExtractor(WithLenientTrailingBytes())
			} else {
				r.payloadIsBlock = true
			}
		}
	}
	return nil
}

// BlockData feeds a piece of the record block.
func (v *Verifier) BlockData(p []byte) error {
	r := v.cur
	r.blockLen += int64(len(p))
	for _, d := range r.blockDigests {
		_, _ = d.Write(p)
	}
	switch {
	case r.payloadIsBlock:
		for _, d := range r.payloadDigests {
			_, _ = d.Write(p)
		}
	case r.payload != nil:
		if _, err := r.payload.Write(p); err != nil {
			// Malformed HTTP blocks cannot produce a payload digest
			v.recordProblem(CheckPayloadDigest, ProblemSpecViolation, err.Error())
			r.payload = nil
			r.payloadDigests = nil
			return nil
		}
		v.drainPayload()
	}
	return nil
}

func (v *Verifier) drainPayload() {
	for {
		m, ok := v.cur.payload.Next()
		if !ok {
			return
		}
		if m.ExtractChunk != nil {
			for _, d := range v.cur.payloadDigests {
				_, _ = d.Write(m.ExtractChunk.Data)
			}
		}
	}
}

// EndRecord completes the first pass checks of the current record and
// persists the facts needed by Resolve.
func (v *Verifier) EndRecord() error {
	r := v.cur
	if r == nil {
		return nil
	}
	if r.payload != nil {
		if err := r.payload.Finish(); err == nil {
			v.drainPayload()
		}
	}

	for _, d := range r.blockDigests {
		if err := d.validate(); err != nil {
			v.recordProblem(CheckBlockDigest, ProblemDigestMismatch, err.Error())
		}
	}
	// A revisit record's payload digest describes the original capture,
	// so there is nothing to compare against here.
	if !r.revisit {
		for _, d := range r.payloadDigests {
			if err := d.validate(); err != nil {
				v.recordProblem(CheckPayloadDigest, ProblemDigestMismatch, err.Error())
			}
		}
	}

	if v.enabled(CheckRecordAtTimeCompression) && !r.aligned && !v.warned[r.file] {
		v.warned[r.file] = true
		v.problem(r.file, r.position, r.id, CheckRecordAtTimeCompression,
			ProblemRecordMemberMisalignment,
			"file not using record-at-time compression")
	}

	if err := v.persistFacts(); err != nil {
		return err
	}
	v.cur = nil
	return nil
}

func (v *Verifier) persistFacts() error {
	r := v.cur
	if r.id == "" {
		return nil
	}

	key := append([]byte("r:"), r.id...)
	if v.enabled(CheckDuplicateRecordID) {
		if _, found, err := v.store.Get(key); err != nil {
			return err
		} else if found {
			v.recordProblem(CheckDuplicateRecordID, ProblemDuplicateRecordID,
				"duplicate record id "+r.id)
		}
	}
	facts, err := cbor.Marshal(recordFacts{
		Type:          r.recordType,
		TargetURI:     r.fields.Get(WarcTargetURI),
		Date:          r.fields.Get(WarcDate),
		PayloadDigest: r.fields.Get(WarcPayloadDigest),
		File:          r.file,
		Position:      r.position,
	})
	if err != nil {
		return err
	}
	// On duplicate ids the later record wins
	if err := v.store.Put(key, facts); err != nil {
		return err
	}

	put := func(field, to string) error {
		row, err := cbor.Marshal(referenceRow{
			FromID:    r.id,
			FromType:  r.recordType,
			File:      r.file,
			Position:  r.position,
			Field:     field,
			ToID:      to,
			TargetURI: r.fields.Get(WarcRefersToTargetURI),
			Date:      r.fields.Get(WarcRefersToDate),
			Digest:    r.fields.Get(WarcPayloadDigest),
		})
		if err != nil {
			return err
		}
		key := make([]byte, 4, 12)
		copy(key, "ref:")
		key = binary.BigEndian.AppendUint64(key, v.refSeq)
		v.refSeq++
		return v.store.Put(key, row)
	}
	for _, to := range r.fields.GetAll(WarcConcurrentTo) {
		if err := put(WarcConcurrentTo, to); err != nil {
			return err
		}
	}
	if to := r.fields.Get(WarcRefersTo); to != "" {
		if err := put(WarcRefersTo, to); err != nil {
			return err
		}
	}
	if to := r.fields.Get(WarcWarcinfoID); to != "" {
		if err := put(WarcWarcinfoID, to); err != nil {
			return err
		}
	}

	return v.persistSegments()
}

func (v *Verifier) persistSegments() error {
	r := v.cur
	numberString := r.fields.Get(WarcSegmentNumber)
	if numberString == "" {
		return nil
	}
	number, err := strconv.ParseInt(numberString, 10, 64)
	if err != nil || number < 1 {
		return nil
	}
	origin := r.id
	if r.recordType == RtContinuation {
		origin = r.fields.Get(WarcSegmentOriginID)
		if origin == "" {
			return nil
		}
	}

	row, err := cbor.Marshal(segmentRow{
		Length:   r.blockLen,
		RecordID: r.id,
		File:     r.file,
		Position: r.position,
	})
	if err != nil {
		return err
	}
	key := append([]byte("seg:"), origin...)
	key = append(key, 0)
	key = binary.BigEndian.AppendUint32(key, uint32(number))
	if err := v.store.Put(key, row); err != nil {
		return err
	}

	if total := r.fields.Get(WarcSegmentTotalLength); total != "" {
		n, err := strconv.ParseInt(total, 10, 64)
		if err != nil {
			v.recordProblem(CheckSegment, ProblemSpecViolation,
				"invalid "+WarcSegmentTotalLength+" '"+total+"'")
			return nil
		}
		row, err := cbor.Marshal(segmentTotalRow{
			Total:    n,
			RecordID: r.id,
			File:     r.file,
			Position: r.position,
		})
		if err != nil {
			return err
		}
		return v.store.Put(append([]byte("segtot:"), origin...), row)
	}
	return nil
}

// Resolve runs the second pass, checking every reference collected by the
// first pass against the stored record facts.
func (v *Verifier) Resolve() error {
	if err := v.resolveReferences(); err != nil {
		return err
	}
	return v.resolveSegments()
}

func (v *Verifier) resolveReferences() error {
	return v.store.IterPrefix([]byte("ref:"), func(key, value []byte) error {
		var row referenceRow
		if err := cbor.Unmarshal(value, &row); err != nil {
			return err
		}
		check := CheckRefersTo
		switch row.Field {
		case WarcConcurrentTo:
			check = CheckConcurrentTo
		case WarcWarcinfoID:
			check = CheckWarcinfoID
		}
		if !v.enabled(check) {
			return nil
		}

		factsBytes, found, err := v.store.Get(append([]byte("r:"), row.ToID...))
		if err != nil {
			return err
		}
		if !found {
			v.problem(row.File, row.Position, row.FromID, check,
				ProblemUnresolvedReference,
				fmt.Sprintf("%s %s does not resolve to any record", row.Field, row.ToID))
			return nil
		}
		var facts recordFacts
		if err := cbor.Unmarshal(factsBytes, &facts); err != nil {
			return err
		}

		if row.Field == WarcWarcinfoID && facts.Type != RtWarcinfo {
			v.problem(row.File, row.Position, row.FromID, check,
				ProblemBadReferenceMatch,
				fmt.Sprintf("%s %s resolves to a %s record", row.Field, row.ToID, facts.Type))
		}
		// Concurrent records describe the same capture event and must
		// live in the same file.
		if row.Field == WarcConcurrentTo && facts.File != row.File {
			v.problem(row.File, row.Position, row.FromID, check,
				ProblemBadReferenceMatch,
				fmt.Sprintf("%s %s resolves to a record in %s", row.Field, row.ToID, facts.File))
		}
		if row.Field == WarcRefersTo && row.FromType == RtRevisit {
			if v.enabled(CheckRefersToTargetURI) &&
				row.TargetURI != "" && row.TargetURI != facts.TargetURI {
				v.problem(row.File, row.Position, row.FromID, CheckRefersToTargetURI,
					ProblemBadReferenceMatch,
					fmt.Sprintf("%s '%s' does not match target URI '%s' of %s",
						WarcRefersToTargetURI, row.TargetURI, facts.TargetURI, row.ToID))
			}
			if v.enabled(CheckRefersToDate) &&
				row.Date != "" && row.Date != facts.Date {
				v.problem(row.File, row.Position, row.FromID, CheckRefersToDate,
					ProblemBadReferenceMatch,
					fmt.Sprintf("%s '%s' does not match date '%s' of %s",
						WarcRefersToDate, row.Date, facts.Date, row.ToID))
			}
			// A revisit's payload digest describes the original capture,
			// so it must agree with the referenced record's digest.
			if v.enabled(CheckPayloadDigest) &&
				row.Digest != "" && facts.PayloadDigest != "" &&
				!digestsEqual(row.Digest, facts.PayloadDigest) {
				v.problem(row.File, row.Position, row.FromID, CheckPayloadDigest,
					ProblemDigestMismatch,
					fmt.Sprintf("%s '%s' does not match payload digest '%s' of %s",
						WarcPayloadDigest, row.Digest, facts.PayloadDigest, row.ToID))
			}
		}
		return nil
	})
}

func (v *Verifier) resolveSegments() error {
	if !v.enabled(CheckSegment) {
		return nil
	}
	return v.store.IterPrefix([]byte("segtot:"), func(key, value []byte) error {
		origin := string(key[len("segtot:"):])
		var tot segmentTotalRow
		if err := cbor.Unmarshal(value, &tot); err != nil {
			return err
		}

		var sum int64
		var count, max int64
		seen := map[int64]bool{}
		prefix := append([]byte("seg:"), origin...)
		prefix = append(prefix, 0)
		err := v.store.IterPrefix(prefix, func(key, value []byte) error {
			number := int64(binary.BigEndian.Uint32(key[len(key)-4:]))
			var row segmentRow
			if err := cbor.Unmarshal(value, &row); err != nil {
				return err
			}
			sum += row.Length
			count++
			seen[number] = true
			if number > max {
				max = number
			}
			return nil
		})
		if err != nil {
			return err
		}

		if !seen[1] {
			v.problem(tot.File, tot.Position, tot.RecordID, CheckSegment,
				ProblemUnresolvedReference,
				"origin segment of "+origin+" not found")
		}
		if max != count {
			v.problem(tot.File, tot.Position, tot.RecordID, CheckSegment,
				ProblemUnresolvedReference,
				fmt.Sprintf("segment chain of %s has gaps: %d segments, highest number %d",
					origin, count, max))
		}
		if sum != tot.Total {
			v.problem(tot.File, tot.Position, tot.RecordID, CheckSegment,
				ProblemBadReferenceMatch,
				fmt.Sprintf("%s is %d but segments of %s total %d",
					WarcSegmentTotalLength, tot.Total, origin, sum))
		}
		return nil
	})
}
