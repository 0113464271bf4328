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
	"fmt"
	"net/url"
	"strings"

	whatwg "github.com/nlnwa/whatwg-url/url"
	"github.com/zeebo/xxh3"
)

const (
	// maxComponentLength caps a single path component, in bytes.
	maxComponentLength = 240
	// MaxPathLength caps the whole joined path, in bytes.
	MaxPathLength = 4096
)

// File names that name devices on Windows, with or without extension.
var reservedDeviceNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// RecordExtractor turns the payload of response and resource records into
// ExtractMetadata, ExtractChunk and ExtractEnd messages suitable for
// writing files.
type RecordExtractor struct {
	payload  *PayloadExtractor
	identity bool
	sums     *blockChecksums
	meta     *ExtractMetadata
}

// NewRecordExtractor creates a RecordExtractor for a single record.
func NewRecordExtractor() *RecordExtractor {
	return &RecordExtractor{sums: newBlockChecksums()}
}

// ReadHeader decides from the record header whether the record has
// extractable content and where it should be placed. Records qualify when
// they are responses carrying an HTTP response message with a target URI,
// or resource records with a target URI.
func (e *RecordExtractor) ReadHeader(h *Header) (*ExtractMetadata, error) {
	wf := FieldsFromPairs(h.Fields)
	recordType := strings.ToLower(wf.Get(WarcType))
	uri := wf.Get(WarcTargetURI)
	contentType := strings.ToLower(wf.Get(ContentType))

	meta := &ExtractMetadata{}
	e.meta = meta

	switch {
	case recordType == RtResponse && uri != "" && isHTTPResponseType(contentType):
		e.payload = NewPayloadExtractor()
	case recordType == RtResource && uri != "":
		e.identity = true
	default:
		return meta, nil
	}

	components, err := URLToPathComponents(uri)
	if err != nil {
		e.payload = nil
		e.identity = false
		return meta, fmt.Errorf("warcat: cannot map %s to a path: %w", uri, err)
	}
	meta.HasContent = true
	meta.PathComponents = components
	meta.IsTruncated = wf.Get(WarcTruncated) != ""
	return meta, nil
}

func isHTTPResponseType(contentType string) bool {
	if !strings.HasPrefix(contentType, "application/http") {
		return false
	}
	if strings.Contains(contentType, "msgtype=") {
		return strings.Contains(contentType, "msgtype=response")
	}
	return true
}

// ExtractData feeds block data and returns any produced messages.
func (e *RecordExtractor) ExtractData(p []byte) ([]*Message, error) {
	switch {
	case e.identity:
		data := make([]byte, len(p))
		copy(data, p)
		_, _ = e.sums.Write(data)
		return []*Message{{ExtractChunk: &ExtractChunk{Data: data}}}, nil
	case e.payload != nil:
		if _, err := e.payload.Write(p); err != nil {
			return nil, err
		}
		return drain(e.payload), nil
	default:
		return nil, nil
	}
}

// FinishBlock signals the end of the record block.
func (e *RecordExtractor) FinishBlock() ([]*Message, error) {
	switch {
	case e.identity:
		return []*Message{{ExtractEnd: e.sums.endExtract()}}, nil
	case e.payload != nil:
		if err := e.payload.Finish(); err != nil {
			return nil, err
		}
		return drain(e.payload), nil
	default:
		return nil, nil
	}
}

func drain(x *PayloadExtractor) []*Message {
	var out []*Message
	for {
		m, ok := x.Next()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}

// URLToPathComponents maps a URL to filesystem safe path components on the
// form scheme, authority, path segments. The query string is appended to
// the last segment and an empty leaf segment becomes "index".
func URLToPathComponents(rawurl string) ([]string, error) {
	u, err := whatwg.Parse(rawurl)
	if err != nil {
		return nil, err
	}

	var components []string
	scheme := strings.TrimSuffix(u.Protocol(), ":")
	components = append(components, escapeComponent(scheme))
	if host := u.Host(); host != "" {
		components = append(components, escapeComponent(host))
	}

	segments := strings.Split(strings.TrimPrefix(u.Pathname(), "/"), "/")
	last := len(segments) - 1
	if segments[last] == "" {
		segments[last] = "index"
	}
	if query := u.Search(); query != "" {
		segments[last] += query
	}
	for _, s := range segments {
		components = append(components, escapeComponent(s))
	}
	return components, nil
}

// escapeComponent makes a single path component safe for common
// filesystems. Percent escapes are decoded first so equivalent URLs map
// to the same file.
func escapeComponent(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7f || strings.IndexByte(`/\:*?"<>|%`, c) >= 0 {
			fmt.Fprintf(&b, "%%%02X", c)
		} else {
			b.WriteByte(c)
		}
	}
	out := b.String()

	switch out {
	case ".":
		return "_"
	case "..":
		return "__"
	}

	base := strings.ToLower(out)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if reservedDeviceNames[base] {
		out = "_" + out
	}

	if out != "" {
		if last := out[len(out)-1]; last == '.' || last == ' ' {
			out = out[:len(out)-1] + "_"
		}
	}

	if len(out) > maxComponentLength {
		sum := xxh3.HashString(out)
		out = fmt.Sprintf("%s %016x", out[:maxComponentLength-17], sum)
	}
	return out
}
