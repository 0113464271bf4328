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

package main

import (
	"errors"
	"os"

	"github.com/nlnwa/warcat/cmd/warcat/cmd"
	"github.com/nlnwa/warcat/cmd/warcat/internal/cmdutil"
)

func main() {
	if err := cmd.NewCommand().Execute(); err != nil {
		switch {
		case errors.Is(err, cmdutil.ErrUsage):
			os.Exit(1)
		case errors.Is(err, cmdutil.ErrProblemsFound):
			os.Exit(3)
		default:
			os.Exit(2)
		}
	}
}
