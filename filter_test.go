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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterFields(recordType, uri string) *WarcFields {
	wf := &WarcFields{}
	wf.Set(WarcType, recordType)
	if uri != "" {
		wf.Set(WarcTargetURI, uri)
	}
	return wf
}

func TestFieldFilterEmpty(t *testing.T) {
	f := NewFieldFilter()
	assert.True(t, f.Allow(filterFields("response", "http://example.com/")))
}

func TestFieldFilterIncludeExact(t *testing.T) {
	assert := assert.New(t)

	f := NewFieldFilter()
	f.AddInclude("WARC-Type:response")
	assert.True(f.Allow(filterFields("response", "")))
	assert.False(f.Allow(filterFields("request", "")))
}

func TestFieldFilterIncludePresence(t *testing.T) {
	assert := assert.New(t)

	f := NewFieldFilter()
	f.AddInclude(WarcTargetURI)
	assert.True(f.Allow(filterFields("response", "http://example.com/")))
	assert.False(f.Allow(filterFields("warcinfo", "")))
}

func TestFieldFilterExcludeExact(t *testing.T) {
	assert := assert.New(t)

	f := NewFieldFilter()
	f.AddExclude("WARC-Type:request")
	assert.True(f.Allow(filterFields("response", "")))
	assert.False(f.Allow(filterFields("request", "")))
}

func TestFieldFilterExcludePresence(t *testing.T) {
	assert := assert.New(t)

	f := NewFieldFilter()
	f.AddExclude(WarcTargetURI)
	assert.True(f.Allow(filterFields("warcinfo", "")))
	assert.False(f.Allow(filterFields("response", "http://example.com/")))
}

func TestFieldFilterExcludeBeatsInclude(t *testing.T) {
	f := NewFieldFilter()
	f.AddInclude("WARC-Type:response")
	f.AddExclude(WarcTargetURI)
	assert.False(t, f.Allow(filterFields("response", "http://example.com/")))
}

func TestFieldFilterIncludePattern(t *testing.T) {
	assert := assert.New(t)

	f := NewFieldFilter()
	require.NoError(t, f.AddIncludePattern("WARC-Target-URI:\\.txt$"))
	assert.True(f.Allow(filterFields("response", "http://example.com/hello.txt")))
	assert.False(f.Allow(filterFields("response", "http://example.com/hello.html")))
}

func TestFieldFilterExcludePattern(t *testing.T) {
	assert := assert.New(t)

	f := NewFieldFilter()
	require.NoError(t, f.AddExcludePattern("WARC-Target-URI:^https:"))
	assert.True(f.Allow(filterFields("response", "http://example.com/")))
	assert.False(f.Allow(filterFields("response", "https://example.com/")))
}

func TestFieldFilterInvalidPattern(t *testing.T) {
	f := NewFieldFilter()
	assert.Error(t, f.AddIncludePattern("WARC-Type:["))
	assert.Error(t, f.AddExcludePattern("WARC-Type:["))
}

func TestFieldFilterRepeatedField(t *testing.T) {
	wf := &WarcFields{}
	wf.Set(WarcType, "request")
	wf.Add(WarcConcurrentTo, "<urn:uuid:a>")
	wf.Add(WarcConcurrentTo, "<urn:uuid:b>")

	f := NewFieldFilter()
	f.AddInclude("WARC-Concurrent-To:<urn:uuid:b>")
	assert.True(t, f.Allow(wf))
}
