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
	"io"
	"strings"
)

type nameValue struct {
	Name  string
	Value string
}

func (n *nameValue) String() string {
	return n.Name + ": " + n.Value
}

// WarcFields is an ordered list of WARC header fields. Insertion order and
// the original spelling of names are preserved; lookups are case insensitive.
type WarcFields []*nameValue

// Get gets the first value associated with the given name.
// If the name doesn't exist or there are no values associated with the name, Get returns "".
// To access multiple values of a name, use GetAll.
func (wf *WarcFields) Get(name string) string {
	for _, nv := range *wf {
		if strings.EqualFold(nv.Name, name) {
			return nv.Value
		}
	}
	return ""
}

func (wf *WarcFields) GetAll(name string) []string {
	var result []string
	for _, nv := range *wf {
		if strings.EqualFold(nv.Name, name) {
			result = append(result, nv.Value)
		}
	}
	return result
}

func (wf *WarcFields) Has(name string) bool {
	for _, nv := range *wf {
		if strings.EqualFold(nv.Name, name) {
			return true
		}
	}
	return false
}

func (wf *WarcFields) Add(name string, value string) {
	*wf = append(*wf, &nameValue{Name: name, Value: value})
}

// Set replaces the first field with the given name and removes any
// further fields with that name. A field is appended if none exists.
func (wf *WarcFields) Set(name string, value string) {
	var result []*nameValue
	isSet := false
	for _, nv := range *wf {
		if strings.EqualFold(nv.Name, name) {
			if isSet {
				continue
			}
			nv.Value = value
			isSet = true
		}
		result = append(result, nv)
	}
	if !isSet {
		result = append(result, &nameValue{Name: name, Value: value})
	}
	*wf = result
}

func (wf *WarcFields) Delete(name string) {
	var result []*nameValue
	for _, nv := range *wf {
		if !strings.EqualFold(nv.Name, name) {
			result = append(result, nv)
		}
	}
	*wf = result
}

// Names returns the field names in insertion order.
func (wf *WarcFields) Names() []string {
	names := make([]string, len(*wf))
	for i, nv := range *wf {
		names[i] = nv.Name
	}
	return names
}

// Pairs returns the fields as name value pairs in insertion order.
func (wf *WarcFields) Pairs() [][2]string {
	pairs := make([][2]string, len(*wf))
	for i, nv := range *wf {
		pairs[i] = [2]string{nv.Name, nv.Value}
	}
	return pairs
}

// FieldsFromPairs builds a WarcFields from name value pairs.
func FieldsFromPairs(pairs [][2]string) *WarcFields {
	wf := WarcFields{}
	for _, p := range pairs {
		wf.Add(p[0], p[1])
	}
	return &wf
}

func (wf *WarcFields) Write(w io.Writer) (bytesWritten int64, err error) {
	var n int
	for _, field := range *wf {
		n, err = fmt.Fprintf(w, "%s: %s\r\n", field.Name, field.Value)
		bytesWritten += int64(n)
		if err != nil {
			return
		}
	}
	return
}

func (wf *WarcFields) String() string {
	sb := &strings.Builder{}
	if _, err := wf.Write(sb); err != nil {
		panic(err)
	}
	return sb.String()
}
