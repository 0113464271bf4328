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
	"fmt"
	"io"
	"strings"
)

func ExampleDecoder() {
	data := "WARC/1.1\r\n" +
		"WARC-Type: resource\r\n" +
		"WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>\r\n" +
		"WARC-Date: 2017-03-06T04:03:53Z\r\n" +
		"WARC-Target-URI: http://example.com/hello.txt\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello" +
		"\r\n\r\n"

	dec, err := NewDecoder(strings.NewReader(data))
	if err != nil {
		panic(err)
	}
	var block strings.Builder
	for {
		m, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(err)
		}
		switch {
		case m.Header != nil:
			fmt.Println(FieldsFromPairs(m.Header.Fields).Get(WarcType))
		case m.BlockChunk != nil:
			block.Write(m.BlockChunk.Data)
		case m.BlockEnd != nil:
			fmt.Println(block.String())
		}
	}

	// Output:
	// resource
	// hello
}

func ExampleEncoder() {
	wf := &WarcFields{}
	wf.Add(WarcType, "resource")
	wf.Add(WarcTargetURI, "http://example.com/hello.txt")
	wf.Add(ContentLength, "5")

	b := &bytes.Buffer{}
	enc := NewEncoder(b)
	if err := enc.WriteHeader(&Header{Version: "WARC/1.1", Fields: wf.Pairs()}); err != nil {
		panic(err)
	}
	if err := enc.WriteBlock([]byte("hello")); err != nil {
		panic(err)
	}
	if err := enc.FinishBlock(nil); err != nil {
		panic(err)
	}
	if err := enc.Finish(); err != nil {
		panic(err)
	}

	fmt.Println(strings.ReplaceAll(b.String(), "\r\n", "\n"))

	// Output:
	// WARC/1.1
	// WARC-Type: resource
	// WARC-Target-URI: http://example.com/hello.txt
	// Content-Length: 5
	//
	// hello
}
