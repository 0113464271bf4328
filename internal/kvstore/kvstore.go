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

// Package kvstore provides the key value stores backing verification, a
// disk backed store on top of pebble and an in memory store for small
// inputs.
package kvstore

import (
	"bytes"
	"errors"
	"sort"

	"github.com/cockroachdb/pebble"
)

// DB is a pebble backed key value store.
type DB struct {
	db *pebble.DB
}

// Open opens or creates a pebble database at path.
func Open(path string) (*DB, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

// Get returns the value stored under key, and whether it was found.
func (d *DB) Get(key []byte) ([]byte, bool, error) {
	value, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	result := make([]byte, len(value))
	copy(result, value)
	if err := closer.Close(); err != nil {
		return nil, false, err
	}
	return result, true, nil
}

// Put stores value under key, replacing any previous value.
func (d *DB) Put(key, value []byte) error {
	return d.db.Set(key, value, pebble.NoSync)
}

// IterPrefix calls fn for every key with the given prefix, in ascending
// key order.
func (d *DB) IterPrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := d.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer func() { _ = iter.Close() }()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// prefixUpperBound returns the smallest key larger than every key with
// the given prefix, or nil if no such key exists.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// Memory is an in memory key value store.
type Memory struct {
	m map[string][]byte
}

// NewMemory creates an empty in memory store.
func NewMemory() *Memory {
	return &Memory{m: map[string][]byte{}}
}

func (s *Memory) Get(key []byte) ([]byte, bool, error) {
	value, found := s.m[string(key)]
	if !found {
		return nil, false, nil
	}
	result := make([]byte, len(value))
	copy(result, value)
	return result, true, nil
}

func (s *Memory) Put(key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	s.m[string(key)] = v
	return nil
}

func (s *Memory) IterPrefix(prefix []byte, fn func(key, value []byte) error) error {
	var keys []string
	for k := range s.m {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), s.m[k]); err != nil {
			return err
		}
	}
	return nil
}
