// Copyright 2025 Real Good Apps, LLC
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package store

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/RealGoodAppsLLC/ExpressionMagic/compr"
)

const (
	// KeyLength is the length of
	// the key that needs to be provided
	// to Seal and OpenSealed.
	// (The contents of the key should
	// be from a cryptographically secure
	// source of random bytes.)
	KeyLength = 32
	// MACLength is the length of the MAC
	// appended to sealed blobs.
	MACLength = 32

	headerLength = 14
	sealVersion  = 1
)

// sealed blobs begin with these four bytes;
// the first is deliberately outside ASCII so
// a blob is never mistaken for a text file
var sealMagic = [4]byte{0xfe, 'e', 'm', 'x'}

// compression algorithm bytes recorded in the header
const (
	algoZstd byte = iota + 1
	algoS2
)

// Key is a shared secret key used to sign sealed blobs.
type Key [KeyLength]byte

// RandomKey generates a new Key from a
// cryptographically secure source of random bytes.
func RandomKey() (*Key, error) {
	key := new(Key)
	if _, err := rand.Read(key[:]); err != nil {
		return nil, err
	}
	return key, nil
}

// ParseKey decodes a base64-encoded Key
// (the inverse of Key.String).
func ParseKey(text string) (*Key, error) {
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("store: invalid key: %v", err)
	}
	if len(raw) != KeyLength {
		return nil, fmt.Errorf("store: invalid key: decoded length should be %d bytes", KeyLength)
	}
	key := new(Key)
	copy(key[:], raw)
	return key, nil
}

// String encodes the key in base64.
func (k *Key) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

var (
	// ErrBadSignature is returned by OpenSealed when
	// the appended MAC does not match the computed one.
	ErrBadSignature = errors.New("bad blob signature")

	// ErrCorrupt is returned by OpenSealed when the blob
	// is structurally broken in some way other than the
	// signature: truncated, mislabeled, or undecodable.
	ErrCorrupt = errors.New("corrupt sealed blob")
)

func algoByte(name string) (byte, bool) {
	switch name {
	case "zstd":
		return algoZstd, true
	case "s2":
		return algoS2, true
	}
	return 0, false
}

func algoName(b byte) (string, bool) {
	switch b {
	case algoZstd:
		return "zstd", true
	case algoS2:
		return "s2", true
	}
	return "", false
}

// appendMAC appends a MAC to 'data'
// using the provided key
func appendMAC(key *Key, data []byte) ([]byte, error) {
	h, err := blake2b.New256(key[:])
	if err != nil {
		return nil, err
	}
	h.Write(data)
	return h.Sum(data), nil
}

// Seal compresses raw with the named algorithm
// ("zstd" or "s2") and signs the result with the
// provided MAC key.
//
// The output layout is a fixed header (magic, format
// version, algorithm, uncompressed size), then the
// compressed payload, then a keyed blake2b-256 MAC
// over everything prior.
//
// See OpenSealed for authenticating and decoding
// a sealed blob.
func Seal(raw []byte, key *Key, algo string) ([]byte, error) {
	ab, ok := algoByte(algo)
	if !ok {
		return nil, fmt.Errorf("store: unknown compression %q", algo)
	}
	out := make([]byte, 0, headerLength+len(raw)+MACLength)
	out = append(out, sealMagic[:]...)
	out = append(out, sealVersion, ab)
	out = binary.BigEndian.AppendUint64(out, uint64(len(raw)))
	out = compr.Compression(algo).Compress(raw, out)
	return appendMAC(key, out)
}

// just pick an upper limit to prevent DoS
const maxRawSize = 1 << 30

// OpenSealed authenticates a blob produced by Seal
// and returns the original raw bytes.
//
// If key is non-nil, the appended MAC is checked (in
// constant time) before anything else is examined, and
// ErrBadSignature is returned on a mismatch. A nil key
// skips authentication. Structural problems with the
// blob itself are reported as (wrapped) ErrCorrupt.
func OpenSealed(blob []byte, key *Key) ([]byte, error) {
	if len(blob) < headerLength+MACLength {
		return nil, fmt.Errorf("%w: %d bytes is too small to fit the header and MAC", ErrCorrupt, len(blob))
	}
	split := len(blob) - MACLength
	if key != nil {
		h, err := blake2b.New256(key[:])
		if err != nil {
			return nil, err
		}
		h.Write(blob[:split])
		sum := h.Sum(nil)
		if subtle.ConstantTimeCompare(sum, blob[split:]) != 1 {
			return nil, ErrBadSignature
		}
	}
	if !bytes.Equal(blob[:len(sealMagic)], sealMagic[:]) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if blob[4] != sealVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, blob[4])
	}
	algo, ok := algoName(blob[5])
	if !ok {
		return nil, fmt.Errorf("%w: unknown compression byte %#x", ErrCorrupt, blob[5])
	}
	size := binary.BigEndian.Uint64(blob[6:headerLength])
	if size > maxRawSize {
		return nil, fmt.Errorf("%w: recorded size %d beyond limit %d", ErrCorrupt, size, maxRawSize)
	}
	raw := make([]byte, size)
	if size == 0 {
		return raw, nil
	}
	if err := compr.Decompression(algo).Decompress(blob[headerLength:split], raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return raw, nil
}
