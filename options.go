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

// The errorPolicy constants describe how to handle WARC record errors.
type errorPolicy int8

const (
	ErrIgnore errorPolicy = 0 // Ignore the given error.
	ErrWarn   errorPolicy = 1 // Ignore given error, but submit a warning.
	ErrFail   errorPolicy = 2 // Fail on given error.
)

type options struct {
	errSyntax       errorPolicy // how to handle syntax errors
	errSpec         errorPolicy // how to handle violations of the WARC specification
	compression     Compression // compression format for reading or writing
	level           CompressionLevel
	fileName        string   // name reported in Metadata events
	excludeChecks   []string // verifier checks to skip
	lenientTrailing bool     // tolerate data after a Content-Length body
}

// Option configures a Decoder, Encoder or Verifier.
type Option interface {
	apply(*options)
}

// EmptyOption does not alter the configuration. It can be embedded in
// another structure to build custom options.
type EmptyOption struct{}

func (EmptyOption) apply(*options) {}

// funcOption wraps a function that modifies options into an
// implementation of the Option interface.
type funcOption struct {
	f func(*options)
}

func (fo *funcOption) apply(po *options) {
	fo.f(po)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{
		f: f,
	}
}

func defaultOptions() *options {
	return &options{
		errSyntax:   ErrWarn,
		errSpec:     ErrWarn,
		compression: CompressionAuto,
		level:       LevelBalanced,
		fileName:    "-",
	}
}

func newOptions(opts ...Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(o)
	}
	return o
}

// WithSyntaxErrorPolicy sets the policy for handling syntax errors in WARC records.
// defaults to ErrWarn
func WithSyntaxErrorPolicy(policy errorPolicy) Option {
	return newFuncOption(func(o *options) {
		o.errSyntax = policy
	})
}

// WithSpecViolationPolicy sets the policy for handling violations of the WARC specification.
// defaults to ErrWarn
func WithSpecViolationPolicy(policy errorPolicy) Option {
	return newFuncOption(func(o *options) {
		o.errSpec = policy
	})
}

// WithCompression sets the compression format to use.
// defaults to CompressionAuto which detects the format from the stream on
// read and writes uncompressed records.
func WithCompression(c Compression) Option {
	return newFuncOption(func(o *options) {
		o.compression = c
	})
}

// WithCompressionLevel sets the compression effort for written members.
// defaults to LevelBalanced
func WithCompressionLevel(l CompressionLevel) Option {
	return newFuncOption(func(o *options) {
		o.level = l
	})
}

// WithFileName sets the file name reported in Metadata events.
// defaults to "-"
func WithFileName(name string) Option {
	return newFuncOption(func(o *options) {
		o.fileName = name
	})
}

// WithLenientTrailingBytes makes the payload extractor discard data
// found after a Content-Length delimited body instead of failing.
func WithLenientTrailingBytes() Option {
	return newFuncOption(func(o *options) {
		o.lenientTrailing = true
	})
}

// WithExcludeChecks disables the named verifier checks.
func WithExcludeChecks(names ...string) Option {
	return newFuncOption(func(o *options) {
		o.excludeChecks = append(o.excludeChecks, names...)
	})
}
