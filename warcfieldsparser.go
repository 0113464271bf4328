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
	"bytes"
	"errors"
	"io"
)

var (
	colon        = []byte{':'}
	endOfHeaders = errors.New("EOH")
)

// isTokenChar reports whether c may appear in a field name. The allowed set
// is the token rule of the WARC grammar: printable US-ASCII except
// separators.
func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

func isToken(s []byte) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if !isTokenChar(c) {
			return false
		}
	}
	return true
}

type warcfieldsParser struct {
	opts *options
}

func (p *warcfieldsParser) parseLine(line []byte, wf WarcFields, pos *position) (WarcFields, error) {
	line = bytes.TrimRight(line, sphtcrlf)

	fv := bytes.SplitN(line, colon, 2)
	if len(fv) != 2 {
		return wf, newSyntaxError("could not parse header line. Missing ':' in "+string(fv[0]), pos)
	}

	name := bytes.Trim(fv[0], sphtcrlf)
	value := bytes.Trim(fv[1], sphtcrlf)
	if !isToken(name) {
		return wf, newSyntaxError("illegal field name '"+string(name)+"'", pos)
	}

	wf.Add(string(name), string(value))
	return wf, nil
}

// readLine reads the next line from r.
// error is returned for syntax error or if r returns an error. If the error is fatal then line is nil.
// If line is not nil it means that readLine was able to get something useful which could be used by a lenient
// parser even though err was not nil.
// nextChar returns the first character a new call to readLine would process.
func (p *warcfieldsParser) readLine(r *bufio.Reader, pos *position) (line []byte, nextChar byte, rawLen int, err error) {
	l, e := r.ReadBytes('\n')
	rawLen = len(l)
	if e != nil {
		if e == io.EOF {
			e = endOfHeaders
		}
		return l, nextChar, rawLen, e
	}
	if p.opts.errSyntax > ErrIgnore && (len(l) < 2 || l[len(l)-2] != '\r') {
		err = newSyntaxError("missing carriage return", pos)
		if p.opts.errSyntax == ErrFail {
			return nil, nextChar, rawLen, err
		}
	}
	line = bytes.Trim(l, sphtcrlf)

	n, e := r.Peek(1)
	if e == io.EOF {
		return line, 0, rawLen, err
	}
	if e != nil {
		return nil, 0, rawLen, e
	}

	nextChar = n[0]
	return line, nextChar, rawLen, err
}

// Parse reads WARC header fields from r until the empty line terminating
// the header block. The empty line is consumed.
func (p *warcfieldsParser) Parse(r *bufio.Reader, validation *Validation, pos *position) (*WarcFields, error) {
	wf := WarcFields{}
	size := 0

	for {
		line, nc, n, err := p.readLine(r, pos.incrLineNumber())
		size += n
		if size > maxHeaderLength {
			return nil, newProtocolError(InvalidHeader, "header exceeds maximum length")
		}
		if err != nil {
			if err == endOfHeaders {
				if len(line) > 0 {
					switch p.opts.errSyntax {
					case ErrIgnore:
					case ErrWarn:
						validation.addError(newSyntaxError("missing newline", pos))
					case ErrFail:
						return nil, newSyntaxError("missing newline", pos)
					}
					if wf, err = p.parseLine(line, wf, pos); err != nil {
						validation.addError(err)
					}
				}
				return &wf, nil
			}
			if line == nil {
				return nil, err
			}
			validation.addError(err)
		}

		// Empty line ends the header block
		if len(line) == 0 {
			return &wf, nil
		}

		// Check for continuation
		for nc == sp || nc == ht {
			var l []byte
			l, nc, n, err = p.readLine(r, pos.incrLineNumber())
			size += n
			if size > maxHeaderLength {
				return nil, newProtocolError(InvalidHeader, "header exceeds maximum length")
			}
			if err != nil && err != endOfHeaders {
				if l == nil {
					return nil, err
				}
				validation.addError(err)
			}
			line = append(line, ' ')
			line = append(line, l...)
			if err == endOfHeaders {
				nc = 0
			}
		}

		wf, err = p.parseLine(line, wf, pos)
		if err != nil {
			switch p.opts.errSyntax {
			case ErrIgnore:
			case ErrWarn:
				validation.addError(err)
			case ErrFail:
				return nil, err
			}
		}
	}
}

// scanHeaderDeliminator returns the index just past the empty line that
// terminates a header block, or -1 if buf does not yet contain one.
// Both CRLF and bare LF line endings are recognized.
func scanHeaderDeliminator(buf []byte) int {
	for i := 0; i < len(buf); i++ {
		if buf[i] != lf {
			continue
		}
		// Find the start of the next line and check if it is empty.
		rest := buf[i+1:]
		if len(rest) >= 2 && rest[0] == cr && rest[1] == lf {
			return i + 3
		}
		if len(rest) >= 1 && rest[0] == lf {
			return i + 2
		}
	}
	return -1
}

// parseVersionLine parses "WARC/<major>.<minor>" and resolves it against
// the known versions per the syntax error policy.
func parseVersionLine(line []byte, validation *Validation, opts *options, pos *position) (*version, error) {
	if !bytes.HasPrefix(line, []byte("WARC/")) {
		return nil, newProtocolError(InvalidVersion, "missing record version")
	}
	s := string(bytes.Trim(line[5:], sphtcrlf))
	switch s {
	case V1_0.txt:
		return V1_0, nil
	case V1_1.txt:
		return V1_1, nil
	default:
		switch opts.errSpec {
		case ErrWarn:
			validation.addError(newSyntaxError("unsupported WARC version: "+s, pos))
			return &version{txt: s}, nil
		case ErrFail:
			return nil, newProtocolError(InvalidVersion, "unsupported WARC version: "+s)
		default:
			return &version{txt: s}, nil
		}
	}
}
