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

package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetPut(t *testing.T) {
	assert := assert.New(t)
	m := NewMemory()

	_, found, err := m.Get([]byte("missing"))
	require.NoError(t, err)
	assert.False(found)

	require.NoError(t, m.Put([]byte("a"), []byte("1")))
	value, found, err := m.Get([]byte("a"))
	require.NoError(t, err)
	assert.True(found)
	assert.Equal([]byte("1"), value)

	// Overwrite
	require.NoError(t, m.Put([]byte("a"), []byte("2")))
	value, _, _ = m.Get([]byte("a"))
	assert.Equal([]byte("2"), value)
}

func TestMemoryCopiesValues(t *testing.T) {
	assert := assert.New(t)
	m := NewMemory()

	value := []byte("original")
	require.NoError(t, m.Put([]byte("a"), value))
	value[0] = 'X'

	stored, _, _ := m.Get([]byte("a"))
	assert.Equal([]byte("original"), stored)

	stored[0] = 'Y'
	again, _, _ := m.Get([]byte("a"))
	assert.Equal([]byte("original"), again)
}

func TestMemoryIterPrefix(t *testing.T) {
	assert := assert.New(t)
	m := NewMemory()

	require.NoError(t, m.Put([]byte("ref:2"), []byte("b")))
	require.NoError(t, m.Put([]byte("ref:1"), []byte("a")))
	require.NoError(t, m.Put([]byte("ref:3"), []byte("c")))
	require.NoError(t, m.Put([]byte("r:x"), []byte("other")))

	var keys, values []string
	err := m.IterPrefix([]byte("ref:"), func(key, value []byte) error {
		keys = append(keys, string(key))
		values = append(values, string(value))
		return nil
	})
	require.NoError(t, err)
	assert.Equal([]string{"ref:1", "ref:2", "ref:3"}, keys)
	assert.Equal([]string{"a", "b", "c"}, values)
}

func TestPrefixUpperBound(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		want   []byte
	}{
		{"simple", []byte("ref:"), []byte("ref;")},
		{"ff tail", []byte{'a', 0xff}, []byte{'b'}},
		{"all ff", []byte{0xff, 0xff}, nil},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, prefixUpperBound(tt.prefix))
		})
	}
}
