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

package get

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nlnwa/warcat"
	"github.com/nlnwa/warcat/cmd/warcat/internal/cmdutil"
)

type conf struct {
	position  int64
	id        string
	output    string
	outputDir string
	format    string
	mode      string
	fileName  string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "get <export|extract> [file]",
		Short: "Fetch a single record from a WARC file",
		Long: `Fetch the record at the given position of a WARC file. With "export" the
record is written as a message sequence, with "extract" its content is
written to a file. For compressed files the position must be the start
of a compression member, as reported by the list command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return cmdutil.Usagef("expected a mode and a file name")
			}
			c.mode = args[0]
			if len(args) == 2 {
				c.fileName = args[1]
			}
			if c.mode != "export" && c.mode != "extract" {
				return cmdutil.Usagef("unknown mode '%s'", c.mode)
			}
			if c.fileName == "" {
				return cmdutil.Usagef("missing file name")
			}
			if c.position < 0 {
				return cmdutil.Usagef("missing record position")
			}
			return runE(c)
		},
	}

	cmd.Flags().StringVarP(&c.fileName, "input", "i", "", "WARC file to read")
	cmd.Flags().Int64VarP(&c.position, "position", "p", -1, "byte position of the record")
	cmd.Flags().StringVar(&c.id, "id", "", "expected record id, mismatch is an error")
	cmd.Flags().StringVarP(&c.output, "output", "o", "-", "write exported messages to file")
	cmd.Flags().StringVar(&c.outputDir, "output-dir", ".", "directory to extract the file into")
	cmd.Flags().StringVar(&c.format, "format", "json-seq", "export format, one of json-seq, jsonl or cbor-seq")
	_ = cmd.MarkFlagRequired("position")

	return cmd
}

func runE(c *conf) error {
	f, err := os.Open(c.fileName)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Seek(c.position, io.SeekStart); err != nil {
		return err
	}

	dec, err := warcat.NewDecoder(f, warcat.WithFileName(c.fileName))
	if err != nil {
		return err
	}
	defer func() { _ = dec.Close() }()

	switch c.mode {
	case "export":
		return exportRecord(c, dec)
	default:
		return extractRecord(c, dec)
	}
}

// checkID verifies the record id against the --id flag.
func checkID(c *conf, h *warcat.Header) error {
	if c.id == "" {
		return nil
	}
	id := warcat.FieldsFromPairs(h.Fields).Get(warcat.WarcRecordID)
	if id != c.id {
		return fmt.Errorf("record at position %d has id %s, expected %s", c.position, id, c.id)
	}
	return nil
}

func exportRecord(c *conf, dec *warcat.Decoder) error {
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
	for {
		m, err := dec.Next()
		if err != nil {
			return err
		}
		switch {
		case m.Metadata != nil:
			// Positions are relative to the seek offset
			m.Metadata.Position = c.position
		case m.Header != nil:
			if err := checkID(c, m.Header); err != nil {
				return err
			}
		}
		if err := sw.Put(m); err != nil {
			return err
		}
		if m.BlockEnd != nil {
			return sw.Flush()
		}
	}
}

func extractRecord(c *conf, dec *warcat.Decoder) error {
	w := cmdutil.NewRecordWriter(cmdutil.NewFileSink(c.outputDir))
	extracting := false
	for {
		m, err := dec.Next()
		if err != nil {
			w.Abort()
			return err
		}
		switch {
		case m.Header != nil:
			if err := checkID(c, m.Header); err != nil {
				return err
			}
			extracting, err = w.Begin(m.Header)
			if err != nil {
				return err
			}
			if !extracting {
				return fmt.Errorf("record at position %d has no extractable content", c.position)
			}
		case m.BlockChunk != nil && extracting:
			if err := w.Data(m.BlockChunk.Data); err != nil {
				w.Abort()
				return err
			}
		case m.BlockEnd != nil:
			path, err := w.End()
			if err != nil {
				return err
			}
			log.Infof("extracted %s", path)
			return nil
		}
	}
}
