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

package importcmd

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nlnwa/warcat"
	"github.com/nlnwa/warcat/cmd/warcat/internal/cmdutil"
)

type conf struct {
	input       string
	output      string
	format      string
	compression string
	level       string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "import [file]",
		Short: "Convert a message sequence back to a WARC file",
		Long: `Convert a message sequence, as produced by the export command, back to
a WARC file. Messages are read from stdin unless a file is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				c.input = args[0]
			}
			return runE(c)
		},
	}

	cmd.Flags().StringVarP(&c.input, "input", "i", "-", `read messages from file, "-" is stdin`)
	cmd.Flags().StringVarP(&c.output, "output", "o", "-", "write the WARC file to file")
	cmd.Flags().StringVar(&c.format, "format", "json-seq", "input format, one of json-seq, jsonl or cbor-seq")
	cmd.Flags().StringVar(&c.compression, "compression", "auto", "output compression, one of auto, none, gzip or zstd")
	cmd.Flags().StringVar(&c.level, "compression-level", "balanced", "compression level, one of low, balanced or high")

	return cmd
}

func runE(c *conf) error {
	format, err := warcat.SeqFormatFromString(c.format)
	if err != nil {
		return cmdutil.Usagef("%v", err)
	}
	compression, err := warcat.CompressionFromString(c.compression)
	if err != nil {
		return cmdutil.Usagef("%v", err)
	}
	if compression == warcat.CompressionAuto {
		if c.output == "-" {
			log.Warn("cannot detect compression for stdout, writing uncompressed")
			compression = warcat.CompressionNone
		} else {
			compression = warcat.CompressionFromPath(c.output)
		}
	}
	level, err := warcat.CompressionLevelFromString(c.level)
	if err != nil {
		return cmdutil.Usagef("%v", err)
	}

	in, err := cmdutil.OpenInput(c.input)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	sr, err := warcat.NewSeqReader(in, format)
	if err != nil {
		return cmdutil.Usagef("%v", err)
	}

	out, err := cmdutil.OpenOutput(c.output)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	enc := warcat.NewEncoder(out,
		warcat.WithCompression(compression),
		warcat.WithCompressionLevel(level))

	count := 0
	for {
		m := &warcat.Message{}
		err := sr.Next(m)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if m.EndOfFile != nil {
			continue
		}
		if end := m.BlockEnd; end != nil &&
			end.Crc32 == nil && end.Crc32c == nil && end.Xxh3 == nil {
			return fmt.Errorf("message %d: BlockEnd carries no checksum", count)
		}
		count++
		if err := enc.WriteMessage(m); err != nil {
			return err
		}
	}
	return enc.Finish()
}
