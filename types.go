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
	"github.com/google/uuid"
)

// Standard WARC header field names.
const (
	ContentLength             = "Content-Length"
	ContentType               = "Content-Type"
	WarcBlockDigest           = "WARC-Block-Digest"
	WarcConcurrentTo          = "WARC-Concurrent-To"
	WarcDate                  = "WARC-Date"
	WarcFilename              = "WARC-Filename"
	WarcIPAddress             = "WARC-IP-Address"
	WarcIdentifiedPayloadType = "WARC-Identified-Payload-Type"
	WarcPayloadDigest         = "WARC-Payload-Digest"
	WarcProfile               = "WARC-Profile"
	WarcRecordID              = "WARC-Record-ID"
	WarcRefersTo              = "WARC-Refers-To"
	WarcRefersToDate          = "WARC-Refers-To-Date"
	WarcRefersToTargetURI     = "WARC-Refers-To-Target-URI"
	WarcSegmentNumber         = "WARC-Segment-Number"
	WarcSegmentOriginID       = "WARC-Segment-Origin-ID"
	WarcSegmentTotalLength    = "WARC-Segment-Total-Length"
	WarcTargetURI             = "WARC-Target-URI"
	WarcTruncated             = "WARC-Truncated"
	WarcType                  = "WARC-Type"
	WarcWarcinfoID            = "WARC-Warcinfo-ID"
)

type recordTypeMask uint16

// Record type constants
const (
	maskWarcinfo recordTypeMask = 1 << iota
	maskResponse
	maskResource
	maskRequest
	maskMetadata
	maskRevisit
	maskConversion
	maskContinuation
)

const (
	RtWarcinfo     = "warcinfo"
	RtResponse     = "response"
	RtResource     = "resource"
	RtRequest      = "request"
	RtMetadata     = "metadata"
	RtRevisit      = "revisit"
	RtConversion   = "conversion"
	RtContinuation = "continuation"
)

var recordTypeStringToMask = map[string]recordTypeMask{
	RtWarcinfo:     maskWarcinfo,
	RtResponse:     maskResponse,
	RtResource:     maskResource,
	RtRequest:      maskRequest,
	RtMetadata:     maskMetadata,
	RtRevisit:      maskRevisit,
	RtConversion:   maskConversion,
	RtContinuation: maskContinuation,
}

// recordTypeOf returns the mask for a record type string. Zero means the
// type is not one of the eight types defined by the standard.
func recordTypeOf(s string) recordTypeMask {
	return recordTypeStringToMask[s]
}

type version struct {
	id  uint8
	txt string
}

func (v *version) String() string { return "WARC/" + v.txt }

var (
	// V1_0 is the WARC/1.0 version
	V1_0 = &version{id: 1, txt: "1.0"}
	// V1_1 is the WARC/1.1 version
	V1_1 = &version{id: 2, txt: "1.1"}
)

// Values allowed in the WARC-Truncated field.
var truncatedReasons = map[string]bool{
	"length":      true,
	"time":        true,
	"disconnect":  true,
	"unspecified": true,
}

const (
	// maxHeaderLength caps the serialized size of a record header.
	maxHeaderLength = 32768
	// readBufferSize is the chunk size used when streaming record blocks.
	readBufferSize = 4096
)

const (
	sp       = ' '
	ht       = '\t'
	cr       = '\r'
	lf       = '\n'
	sphtcrlf = " \t\r\n"
	crlf     = "\r\n"
	crlfcrlf = "\r\n\r\n"
)

// NewRecordID returns a fresh record identifier on urn:uuid form,
// including the angle brackets used in WARC headers.
func NewRecordID() string {
	return "<urn:uuid:" + uuid.New().String() + ">"
}
