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

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

type digestEncoding uint8

const (
	unknownEncoding digestEncoding = 0
	Base16          digestEncoding = 1
	Base32          digestEncoding = 2
	Base64          digestEncoding = 3
)

func (d digestEncoding) encode(digest *digest) string {
	dig := digest.Sum(nil)
	switch d {
	case Base16:
		return hex.EncodeToString(dig)
	case Base32:
		return base32.StdEncoding.EncodeToString(dig)
	case Base64:
		return base64.StdEncoding.EncodeToString(dig)
	default:
		return string(dig)
	}
}

// Digest algorithm names. Labels in WARC files are matched case
// insensitively and a few legacy spellings are accepted, see digestAliases.
const (
	AlgoMD5     = "md5"
	AlgoSHA1    = "sha1"
	AlgoSHA256  = "sha256"
	AlgoSHA384  = "sha384"
	AlgoSHA512  = "sha512"
	AlgoSHA3256 = "sha3-256"
	AlgoSHA3512 = "sha3-512"
	AlgoBLAKE2b = "blake2b"
	AlgoBLAKE3  = "blake3"
)

var digestAliases = map[string]string{
	"sha-1":   AlgoSHA1,
	"sha-256": AlgoSHA256,
	"sha-384": AlgoSHA384,
	"sha-512": AlgoSHA512,
	"sha3":    AlgoSHA3256,
	"blake2":  AlgoBLAKE2b,
}

// newHash returns a hash for the given canonical algorithm name.
func newHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case AlgoMD5:
		return md5.New(), nil
	case AlgoSHA1:
		return sha1.New(), nil
	case AlgoSHA256:
		return sha256.New(), nil
	case AlgoSHA384:
		return sha512.New384(), nil
	case AlgoSHA512:
		return sha512.New(), nil
	case AlgoSHA3256:
		return sha3.New256(), nil
	case AlgoSHA3512:
		return sha3.New512(), nil
	case AlgoBLAKE2b:
		h, err := blake2b.New512(nil)
		if err != nil {
			return nil, err
		}
		return h, nil
	case AlgoBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm '%s'", algorithm)
	}
}

func canonicalAlgorithm(s string) string {
	s = strings.ToLower(s)
	if a, ok := digestAliases[s]; ok {
		return a
	}
	return s
}

func detectEncoding(algorithm, digest string, defaultEncoding digestEncoding) digestEncoding {
	h, err := newHash(algorithm)
	if err != nil {
		return defaultEncoding
	}
	size := h.Size()
	if algorithm == AlgoMD5 && len(digest) == 32 {
		// Special handling for md5 where encoded length are the same for base16 and base32.
		// Distinction can be done on base32 padding
		if strings.HasSuffix(digest, "=") {
			return Base32
		}
		return Base16
	}
	switch len(digest) {
	case size * 2:
		return Base16
	case base32.StdEncoding.EncodedLen(size):
		return Base32
	case base32.StdEncoding.WithPadding(base32.NoPadding).EncodedLen(size):
		return Base32
	case base64.StdEncoding.EncodedLen(size):
		return Base64
	}
	return defaultEncoding
}

type digest struct {
	hash.Hash
	name     string
	hash     string
	count    int64
	encoding digestEncoding
}

// Write (via the embedded io.Writer interface) adds more data to the running hash.
// It never returns an error.
func (d *digest) Write(p []byte) (n int, err error) {
	d.count += int64(len(p))
	return d.Hash.Write(p)
}

// format renders the digest on the labelled form found in WARC headers.
// sha1 digests are rendered base32 by convention, everything else hex.
func (d *digest) format() string {
	e := d.encoding
	if e == unknownEncoding {
		if d.name == AlgoSHA1 {
			e = Base32
		} else {
			e = Base16
		}
	}
	return fmt.Sprintf("%s:%s", d.name, e.encode(d))
}

func (d *digest) validate() error {
	computed := d.encoding.encode(d)
	expected := strings.TrimRight(d.hash, "=")
	if !strings.EqualFold(strings.TrimRight(computed, "="), expected) {
		return fmt.Errorf("wrong digest: expected %s:%s, computed: %s:%s", d.name, d.hash, d.name, computed)
	}
	return nil
}

// digestValue decodes the value part of a labelled digest string. ok is
// false when the value cannot be decoded with the detected encoding.
func digestValue(s string) (algorithm string, raw []byte, ok bool) {
	t := strings.SplitN(s, ":", 2)
	algorithm = canonicalAlgorithm(t[0])
	if len(t) < 2 {
		return algorithm, nil, false
	}
	value := t[1]
	switch detectEncoding(algorithm, value, unknownEncoding) {
	case Base16:
		raw, err := hex.DecodeString(strings.ToLower(value))
		return algorithm, raw, err == nil
	case Base32:
		value = strings.TrimRight(strings.ToUpper(value), "=")
		raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(value)
		return algorithm, raw, err == nil
	case Base64:
		raw, err := base64.StdEncoding.DecodeString(value)
		return algorithm, raw, err == nil
	}
	return algorithm, nil, false
}

// digestsEqual reports whether two labelled digest strings describe the
// same digest. Values are compared decoded, so different encodings of the
// same digest compare equal. Digests of different algorithms never do.
func digestsEqual(a, b string) bool {
	aAlgo, aRaw, aOK := digestValue(a)
	bAlgo, bRaw, bOK := digestValue(b)
	if aAlgo != bAlgo {
		return false
	}
	if !aOK || !bOK {
		return strings.EqualFold(strings.TrimRight(a, "="), strings.TrimRight(b, "="))
	}
	return bytes.Equal(aRaw, bRaw)
}

// newDigest parses a digest string on the form "algorithm:value". The value
// may be empty, in which case the digest can only be used for computing.
func newDigest(digestString string, defaultEncoding digestEncoding) (*digest, error) {
	t := strings.SplitN(digestString, ":", 2)
	algorithm := canonicalAlgorithm(t[0])
	if algorithm == "" {
		algorithm = AlgoSHA1
	}
	var hashValue string
	if len(t) > 1 {
		hashValue = t[1]
	}
	h, err := newHash(algorithm)
	if err != nil {
		return nil, err
	}
	encoding := detectEncoding(algorithm, hashValue, defaultEncoding)
	return &digest{h, algorithm, hashValue, 0, encoding}, nil
}
