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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func parseFields(t *testing.T, data string, opts ...Option) (*WarcFields, *Validation, error) {
	t.Helper()
	p := &warcfieldsParser{opts: newOptions(opts...)}
	validation := &Validation{}
	wf, err := p.Parse(bufio.NewReader(strings.NewReader(data)), validation, &position{})
	return wf, validation, err
}

func TestParseWarcFields(t *testing.T) {
	assert := assert.New(t)

	wf, validation, err := parseFields(t,
		"WARC-Date: 2017-03-06T04:03:53Z\r\n"+
			"WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>\r\n"+
			"WARC-Type: warcinfo\r\n"+
			"Content-Type: application/warc-fields\r\n"+
			"Content-Length: 249\r\n"+
			"\r\n")

	assert.NoError(err)
	assert.True(validation.Valid())
	assert.Equal("2017-03-06T04:03:53Z", wf.Get(WarcDate))
	assert.Equal("warcinfo", wf.Get(WarcType))
	assert.Equal("249", wf.Get(ContentLength))
	assert.Equal([]string{WarcDate, WarcRecordID, WarcType, ContentType, ContentLength}, wf.Names())
}

func TestParseWarcFieldsMissingCarriageReturn(t *testing.T) {
	assert := assert.New(t)
	data := "WARC-Type: warcinfo\nContent-Length: 0\n\n"

	wf, validation, err := parseFields(t, data, WithSyntaxErrorPolicy(ErrWarn))
	assert.NoError(err)
	assert.False(validation.Valid())
	assert.Equal("warcinfo", wf.Get(WarcType))

	_, _, err = parseFields(t, data, WithSyntaxErrorPolicy(ErrFail))
	assert.Error(err)

	wf, validation, err = parseFields(t, data, WithSyntaxErrorPolicy(ErrIgnore))
	assert.NoError(err)
	assert.True(validation.Valid())
	assert.Equal("0", wf.Get(ContentLength))
}

func TestParseWarcFieldsContinuation(t *testing.T) {
	assert := assert.New(t)

	wf, validation, err := parseFields(t,
		"WARC-Target-URI: http://example.com/very/long\r\n"+
			" /path\r\n"+
			"Content-Length: 0\r\n"+
			"\r\n")

	assert.NoError(err)
	assert.True(validation.Valid())
	assert.Equal("http://example.com/very/long /path", wf.Get(WarcTargetURI))
	assert.Equal("0", wf.Get(ContentLength))
}

func TestParseWarcFieldsIllegalFieldName(t *testing.T) {
	assert := assert.New(t)
	data := "WARC Type: warcinfo\r\nContent-Length: 0\r\n\r\n"

	wf, validation, err := parseFields(t, data, WithSyntaxErrorPolicy(ErrWarn))
	assert.NoError(err)
	assert.False(validation.Valid())
	assert.False(wf.Has("WARC Type"))

	_, _, err = parseFields(t, data, WithSyntaxErrorPolicy(ErrFail))
	assert.Error(err)
}

func TestParseWarcFieldsTooLong(t *testing.T) {
	assert := assert.New(t)

	data := "Name: " + strings.Repeat("x", maxHeaderLength) + "\r\n\r\n"
	_, _, err := parseFields(t, data)
	assert.Error(err)
	var protocolError *ProtocolError
	assert.ErrorAs(err, &protocolError)
	assert.Equal(InvalidHeader, protocolError.Kind)
}

func TestScanHeaderDeliminator(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"crlf", "a: b\r\n\r\nrest", 8},
		{"bare lf", "a: b\n\nrest", 6},
		{"mixed", "a: b\n\r\nrest", 7},
		{"incomplete", "a: b\r\n", -1},
		{"empty", "", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scanHeaderDeliminator([]byte(tt.data)))
		})
	}
}

func TestParseVersionLine(t *testing.T) {
	assert := assert.New(t)

	v, err := parseVersionLine([]byte("WARC/1.0\r\n"), &Validation{}, newOptions(), &position{})
	assert.NoError(err)
	assert.Equal(V1_0, v)

	v, err = parseVersionLine([]byte("WARC/1.1\r\n"), &Validation{}, newOptions(), &position{})
	assert.NoError(err)
	assert.Equal(V1_1, v)

	validation := &Validation{}
	v, err = parseVersionLine([]byte("WARC/0.18\r\n"), validation, newOptions(WithSpecViolationPolicy(ErrWarn)), &position{})
	assert.NoError(err)
	assert.Equal("WARC/0.18", v.String())
	assert.False(validation.Valid())

	_, err = parseVersionLine([]byte("WARC/0.18\r\n"), &Validation{}, newOptions(WithSpecViolationPolicy(ErrFail)), &position{})
	assert.Error(err)

	_, err = parseVersionLine([]byte("HTTP/1.1\r\n"), &Validation{}, newOptions(), &position{})
	assert.Error(err)
}
