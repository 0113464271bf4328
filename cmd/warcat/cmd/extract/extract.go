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

package extract

import (
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nlnwa/warcat"
	"github.com/nlnwa/warcat/cmd/warcat/internal/cmdutil"
)

type conf struct {
	input           []string
	outputDir       string
	include         []string
	exclude         []string
	includePatterns []string
	excludePatterns []string
	continueOnError bool
	files           []string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "extract [file]...",
		Short: "Extract the resources in WARC files into files",
		Long: `Extract the content of response and resource records into files below
the output directory. The file layout follows the target URI of each
record. Filter rules are on the form "name" or "name:value" and match
against the WARC header fields of each record.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.files = append(c.input, args...)
			if len(c.files) == 0 {
				c.files = []string{"-"}
			}
			return runE(c)
		},
	}

	cmd.Flags().StringArrayVarP(&c.input, "input", "i", nil, `read from file, "-" is stdin, repeatable`)
	cmd.Flags().StringVarP(&c.outputDir, "output-dir", "o", ".", "directory to extract files into")
	cmd.Flags().StringArrayVar(&c.include, "include", nil, "only extract records matching the rule")
	cmd.Flags().StringArrayVar(&c.exclude, "exclude", nil, "skip records matching the rule")
	cmd.Flags().StringArrayVar(&c.includePatterns, "include-pattern", nil, "only extract records with a field matching the regular expression")
	cmd.Flags().StringArrayVar(&c.excludePatterns, "exclude-pattern", nil, "skip records with a field matching the regular expression")
	cmd.Flags().BoolVar(&c.continueOnError, "continue-on-error", false, "log extraction errors and continue with the next record")

	return cmd
}

func runE(c *conf) error {
	filter := warcat.NewFieldFilter()
	for _, rule := range c.include {
		filter.AddInclude(rule)
	}
	for _, rule := range c.exclude {
		filter.AddExclude(rule)
	}
	for _, rule := range c.includePatterns {
		if err := filter.AddIncludePattern(rule); err != nil {
			return cmdutil.Usagef("%v", err)
		}
	}
	for _, rule := range c.excludePatterns {
		if err := filter.AddExcludePattern(rule); err != nil {
			return cmdutil.Usagef("%v", err)
		}
	}

	sink := cmdutil.NewFileSink(c.outputDir)
	for _, name := range c.files {
		if err := extractFile(c, sink, filter, name); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(c *conf, sink *cmdutil.FileSink, filter *warcat.FieldFilter, name string) error {
	in, err := cmdutil.OpenInput(name)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	dec, err := warcat.NewDecoder(in, warcat.WithFileName(name))
	if err != nil {
		return err
	}
	defer func() { _ = dec.Close() }()

	w := cmdutil.NewRecordWriter(sink)
	extracting := false
	count := 0
	for {
		m, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			w.Abort()
			if !c.continueOnError {
				return err
			}
			// Skip the broken record and pick up decoding at the next
			// record boundary
			log.Warnf("%s: %v", name, err)
			extracting = false
			if err := dec.Resync(); err != nil {
				return err
			}
			continue
		}

		switch {
		case m.Header != nil:
			wf := warcat.FieldsFromPairs(m.Header.Fields)
			if !filter.Allow(wf) {
				extracting = false
				continue
			}
			extracting, err = w.Begin(m.Header)
			if err != nil && !c.continueOnError {
				return err
			}
			if err != nil {
				log.Errorf("%s: %v", name, err)
				extracting = false
			}
		case m.BlockChunk != nil && extracting:
			if err := w.Data(m.BlockChunk.Data); err != nil {
				if !c.continueOnError {
					w.Abort()
					return err
				}
				log.Errorf("%s: %v", name, err)
				w.Abort()
				extracting = false
			}
		case m.BlockEnd != nil && extracting:
			path, err := w.End()
			if err != nil {
				if !c.continueOnError {
					return err
				}
				log.Errorf("%s: %v", name, err)
				continue
			}
			if path != "" {
				count++
				log.Debugf("extracted %s", path)
			}
		}
	}
	log.Infof("extracted %d files from %s", count, name)
	return nil
}
