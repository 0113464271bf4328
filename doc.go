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

/*
Package warcat reads, writes, verifies and extracts WARC files.

# WARC

The WARC format offers a standard way to structure, manage and store billions of resources collected from the web and elsewhere.
To learn more about the WARC standard, read the specification at https://iipc.github.io/warc-specifications/specifications/warc-format/warc-1.1/

# Messages

All operations speak a common stream of [Message] values. A record decodes to a
[Metadata], a [Header], zero or more [BlockChunk] and a [BlockEnd]; a file ends
with an [EndOfFile]. The same messages encode back into WARC records, so a
decoded sequence round trips byte for byte. Message sequences serialize to
json-seq, jsonl, cbor-seq or csv with [SeqWriter] and [SeqReader].

# Read and write WARC files

The [Decoder] reads WARC files, plain or compressed with gzip or zstd, and
yields messages. It is initialized with [NewDecoder]. The [PushDecoder] is a
variant fed with explicit writes. The [Encoder] writes messages as WARC
records and is initialized with [NewEncoder]; compression format and level are
selected with [WithCompression] and [WithCompressionLevel].

# Verification

The [Verifier] checks records against the standard in two passes, with facts
kept in a [Store]. Individual checks can be disabled with [WithExcludeChecks].

# Extraction

The [RecordExtractor] turns response and resource records into files, decoding
HTTP transfer framing and mapping target URIs to safe paths.
*/
package warcat
