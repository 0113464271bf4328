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

package verify

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nlnwa/warcat"
	"github.com/nlnwa/warcat/cmd/warcat/internal/cmdutil"
	"github.com/nlnwa/warcat/internal/kvstore"
)

type conf struct {
	input         []string
	database      string
	excludeChecks []string
	files         []string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "verify [database]",
		Short: "Verify WARC files against the standard",
		Long: `Verify WARC files, checking record syntax, digests and the references
between records. Facts are kept in memory unless a database directory is
given, which allows verifying collections larger than memory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return cmdutil.Usagef("expected at most one database directory")
			}
			if len(args) == 1 {
				c.database = args[0]
			}
			c.files = c.input
			if len(c.files) == 0 {
				c.files = []string{"-"}
			}
			return runE(c)
		},
	}

	cmd.Flags().StringArrayVarP(&c.input, "input", "i", nil, `read from file, "-" is stdin, repeatable`)
	cmd.Flags().StringArrayVar(&c.excludeChecks, "exclude-check", nil, "name of a check to skip, repeatable")

	return cmd
}

func runE(c *conf) error {
	known := map[string]bool{}
	for _, name := range warcat.AllChecks {
		known[name] = true
	}
	for _, name := range c.excludeChecks {
		if !known[name] {
			return cmdutil.Usagef("unknown check '%s'", name)
		}
	}

	var store warcat.Store
	if c.database != "" {
		db, err := kvstore.Open(c.database)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		store = db
	} else {
		store = kvstore.NewMemory()
	}

	v := warcat.NewVerifier(store, warcat.WithExcludeChecks(c.excludeChecks...))
	failed := false
	for _, name := range c.files {
		ok, err := verifyFile(v, name)
		if err != nil {
			return err
		}
		if !ok {
			failed = true
		}
	}
	if err := v.Resolve(); err != nil {
		return err
	}

	problems := v.Problems()
	printProblems(problems)
	if failed || len(problems) > 0 {
		return cmdutil.ErrProblemsFound
	}
	return nil
}

// verifyFile runs the first verification pass over one file. A decode
// error fails the file but does not stop verification of the remaining
// files.
func verifyFile(v *warcat.Verifier, name string) (bool, error) {
	in, err := cmdutil.OpenInput(name)
	if err != nil {
		return false, err
	}
	defer func() { _ = in.Close() }()

	dec, err := warcat.NewDecoder(in, warcat.WithFileName(name))
	if err != nil {
		return false, err
	}
	defer func() { _ = dec.Close() }()

	var meta *warcat.Metadata
	for {
		m, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			color.Red("%s: %v", name, err)
			_ = v.EndRecord()
			return false, nil
		}
		switch {
		case m.Metadata != nil:
			meta = m.Metadata
		case m.Header != nil:
			if err := v.BeginRecord(meta, m.Header, dec.Aligned()); err != nil {
				return false, err
			}
		case m.BlockChunk != nil:
			if err := v.BlockData(m.BlockChunk.Data); err != nil {
				return false, err
			}
		case m.BlockEnd != nil:
			if err := v.EndRecord(); err != nil {
				return false, err
			}
		}
	}
	for _, err := range *dec.Validation() {
		log.Warn(err)
	}
	return true, nil
}

func printProblems(problems []warcat.Problem) {
	for _, p := range problems {
		fmt.Fprintf(os.Stdout, "%s:%d %s %s: %s\n",
			p.File, p.Position, color.RedString(p.Kind), color.YellowString(p.Check), p.Message)
		if p.RecordID != "" {
			fmt.Fprintf(os.Stdout, "  record: %s\n", p.RecordID)
		}
	}
	if len(problems) > 0 {
		color.Red("%d problems found", len(problems))
	}
}
