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

package export

import (
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nlnwa/warcat"
	"github.com/nlnwa/warcat/cmd/warcat/internal/cmdutil"
)

type conf struct {
	input  []string
	output string
	format string
	files  []string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "export [file]...",
		Short: "Convert WARC files to a message sequence",
		Long: `Convert WARC files to a sequence of messages describing every record,
suitable for inspection or for feeding back to the import command.
The file name "-" reads from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.files = append(c.input, args...)
			if len(c.files) == 0 {
				c.files = []string{"-"}
			}
			return runE(c)
		},
	}

	cmd.Flags().StringArrayVarP(&c.input, "input", "i", nil, `read from file, "-" is stdin, repeatable`)
	cmd.Flags().StringVarP(&c.output, "output", "o", "-", "write output to file")
	cmd.Flags().StringVar(&c.format, "format", "json-seq", "output format, one of json-seq, jsonl or cbor-seq")

	return cmd
}

func runE(c *conf) error {
	format, err := warcat.SeqFormatFromString(c.format)
	if err != nil {
		return cmdutil.Usagef("%v", err)
	}
	if format == warcat.CSV {
		return cmdutil.Usagef("csv format is not supported for export")
	}

	out, err := cmdutil.OpenOutput(c.output)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	sw := warcat.NewSeqWriter(out, format)
	for _, name := range c.files {
		if err := exportFile(sw, name); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func exportFile(sw *warcat.SeqWriter, name string) error {
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

	for {
		m, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := sw.Put(m); err != nil {
			return err
		}
	}
	for _, err := range *dec.Validation() {
		log.Warn(err)
	}
	return nil
}
