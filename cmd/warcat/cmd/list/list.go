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

package list

import (
	"io"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nlnwa/warcat"
	"github.com/nlnwa/warcat/cmd/warcat/internal/cmdutil"
)

// defaultFields are the columns shown when --field is not given.
const defaultFields = ":position,WARC-Record-ID,WARC-Type,Content-Type,WARC-Target-URI"

type conf struct {
	input  []string
	output string
	format string
	fields []string
	files  []string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "list [file]...",
		Short: "List records from WARC files",
		Long: `List the header fields of every record in the given WARC files. Besides
WARC header field names, the pseudo fields ":position" and ":file" select
the record offset and the file name.`,
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
	cmd.Flags().StringVar(&c.format, "format", "csv", "output format, one of csv, json-seq, jsonl or cbor-seq")
	cmd.Flags().StringArrayVar(&c.fields, "field", nil, "comma separated fields to list, repeatable")

	return cmd
}

func runE(c *conf) error {
	format, err := warcat.SeqFormatFromString(c.format)
	if err != nil {
		return cmdutil.Usagef("%v", err)
	}
	if len(c.fields) == 0 {
		c.fields = []string{defaultFields}
	}
	fields := strings.Split(strings.Join(c.fields, ","), ",")

	out, err := cmdutil.OpenOutput(c.output)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	sw := warcat.NewSeqWriter(out, format, fields...)
	for _, name := range c.files {
		if err := listFile(sw, format, fields, name); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func listFile(sw *warcat.SeqWriter, format warcat.SeqFormat, fields []string, name string) error {
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

	var meta *warcat.Metadata
	for {
		m, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		switch {
		case m.Metadata != nil:
			meta = m.Metadata
		case m.Header != nil:
			if err := sw.Put(row(format, fields, meta, m.Header)); err != nil {
				return err
			}
		}
	}
	for _, err := range *dec.Validation() {
		log.Warn(err)
	}
	return nil
}

func row(format warcat.SeqFormat, fields []string, meta *warcat.Metadata, h *warcat.Header) interface{} {
	wf := warcat.FieldsFromPairs(h.Fields)
	if format == warcat.CSV {
		var values []string
		for _, f := range fields {
			switch f {
			case ":position":
				values = append(values, strconv.FormatInt(meta.Position, 10))
			case ":file":
				values = append(values, meta.File)
			default:
				values = append(values, wf.Get(f))
			}
		}
		return values
	}

	values := map[string]interface{}{}
	for _, f := range fields {
		switch f {
		case ":position":
			values[f] = meta.Position
		case ":file":
			values[f] = meta.File
		default:
			values[f] = wf.Get(f)
		}
	}
	return values
}
