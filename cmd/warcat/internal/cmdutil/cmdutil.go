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

// Package cmdutil holds helpers shared by the warcat subcommands.
package cmdutil

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Sentinel errors used to select the process exit code.
var (
	// ErrProblemsFound is returned when verification found problems.
	ErrProblemsFound = errors.New("problems found")
	// ErrUsage is returned on invalid arguments or flag combinations.
	ErrUsage = errors.New("usage error")
)

// Usagef returns a usage error with a formatted message.
func Usagef(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, a...))
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// OpenInput opens a file for reading. The name "-" means stdin.
func OpenInput(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

// OpenOutput opens a file for writing, truncating any existing content.
// The name "-" means stdout.
func OpenOutput(name string) (io.WriteCloser, error) {
	if name == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(name)
}
