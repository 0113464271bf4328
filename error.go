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
	"strings"
)

// HeaderFieldError is used for violations of WARC header specification
type HeaderFieldError struct {
	fieldName string
	msg       string
}

func newHeaderFieldError(fieldName string, msg string) *HeaderFieldError {
	return &HeaderFieldError{fieldName: fieldName, msg: msg}
}

func newHeaderFieldErrorf(fieldName string, msg string, param ...interface{}) *HeaderFieldError {
	return &HeaderFieldError{fieldName: fieldName, msg: fmt.Sprintf(msg, param...)}
}

func (e *HeaderFieldError) Error() string {
	if e.fieldName != "" {
		return fmt.Sprintf("warcat: %s at header %s", e.msg, e.fieldName)
	}
	return fmt.Sprintf("warcat: %s", e.msg)
}

// SyntaxError is used for syntactical errors like wrong line endings
type SyntaxError struct {
	msg     string
	line    int
	wrapped error
}

func newSyntaxError(msg string, pos *position) *SyntaxError {
	return &SyntaxError{msg: msg, line: pos.lineNumber}
}

func newWrappedSyntaxError(msg string, pos *position, wrapped error) *SyntaxError {
	return &SyntaxError{msg: msg, line: pos.lineNumber, wrapped: wrapped}
}

func (e *SyntaxError) Error() string {
	if e.line > 0 {
		return fmt.Sprintf("warcat: %s at line %d", e.msg, e.line)
	}
	return fmt.Sprintf("warcat: %s", e.msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.wrapped
}

// containerErrorKind classifies failures in the compression container
// wrapping the records, as opposed to the records themselves.
type containerErrorKind uint8

const (
	// TruncatedMember means a compression member ended mid-stream.
	TruncatedMember containerErrorKind = iota + 1
	// BadMagic means the input does not start with a recognized magic number.
	BadMagic
	// DictionaryWithoutFrame means a dictionary frame was not followed by
	// any data frame.
	DictionaryWithoutFrame
	// UnexpectedCompression means the configured format does not match the
	// actual stream contents.
	UnexpectedCompression
)

var containerErrorKindStrings = map[containerErrorKind]string{
	TruncatedMember:        "truncated member",
	BadMagic:               "bad magic number",
	DictionaryWithoutFrame: "dictionary without following frame",
	UnexpectedCompression:  "unexpected compression format",
}

func (k containerErrorKind) String() string { return containerErrorKindStrings[k] }

// ContainerError is returned for errors in the compression layer.
type ContainerError struct {
	Kind    containerErrorKind
	Offset  int64
	wrapped error
}

func newContainerError(kind containerErrorKind, offset int64) *ContainerError {
	return &ContainerError{Kind: kind, Offset: offset}
}

func newWrappedContainerError(kind containerErrorKind, offset int64, wrapped error) *ContainerError {
	return &ContainerError{Kind: kind, Offset: offset, wrapped: wrapped}
}

func (e *ContainerError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("warcat: %s at offset %d: %v", e.Kind, e.Offset, e.wrapped)
	}
	return fmt.Sprintf("warcat: %s at offset %d", e.Kind, e.Offset)
}

func (e *ContainerError) Unwrap() error { return e.wrapped }

// protocolErrorKind classifies violations of the record grammar.
type protocolErrorKind uint8

const (
	// InvalidVersion means the record does not start with a supported
	// WARC version line.
	InvalidVersion protocolErrorKind = iota + 1
	// InvalidHeader means a header field could not be parsed.
	InvalidHeader
	// LengthMismatch means the block size does not match Content-Length.
	LengthMismatch
	// MissingTrailer means the record is not terminated by CRLF CRLF.
	MissingTrailer
	// ChecksumMismatch means a declared block checksum does not match the
	// computed one.
	ChecksumMismatch
)

var protocolErrorKindStrings = map[protocolErrorKind]string{
	InvalidVersion:   "invalid version",
	InvalidHeader:    "invalid header",
	LengthMismatch:   "content length mismatch",
	MissingTrailer:   "missing end of record marker",
	ChecksumMismatch: "checksum mismatch",
}

func (k protocolErrorKind) String() string { return protocolErrorKindStrings[k] }

// ProtocolError is returned for malformed records.
type ProtocolError struct {
	Kind protocolErrorKind
	msg  string
}

func newProtocolError(kind protocolErrorKind, msg string) *ProtocolError {
	return &ProtocolError{Kind: kind, msg: msg}
}

func newProtocolErrorf(kind protocolErrorKind, msg string, param ...interface{}) *ProtocolError {
	return &ProtocolError{Kind: kind, msg: fmt.Sprintf(msg, param...)}
}

func (e *ProtocolError) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("warcat: %s: %s", e.Kind, e.msg)
	}
	return fmt.Sprintf("warcat: %s", e.Kind)
}

type multiErr []error

func (e multiErr) Error() string {
	switch len(e) {

	case 0:
		return ""

	case 1:
		return e[0].Error()
	}

	const (
		start = "["
		sep   = ", "
		end   = "]"
	)

	n := len(start) + len(end) + (len(sep) * (len(e) - 1))
	for i := 0; i < len(e); i++ {
		n += len(e[i].Error())
	}

	var b strings.Builder
	b.Grow(n)
	b.WriteString(start)
	b.WriteString(e[0].Error())
	for _, s := range e[1:] {
		b.WriteString(sep)
		b.WriteString(s.Error())
	}
	b.WriteString(end)
	return b.String()
}
