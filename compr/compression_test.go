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

package compr

import (
	"bytes"
	"testing"
)

func TestRoundtrip(t *testing.T) {
	for _, name := range []string{"zstd", "s2"} {
		t.Run(name, func(t *testing.T) {
			comp := Compression(name)
			if comp == nil {
				t.Fatalf("no compressor for %s", name)
			} else if n := comp.Name(); n != name {
				t.Fatalf("bad compressor name %q", n)
			}
			dec := Decompression(name)
			if dec == nil {
				t.Fatalf("no decompressor for %s", name)
			} else if n := dec.Name(); n != name {
				t.Fatalf("bad decompressor name %q", n)
			}
			ctl := bytes.Repeat([]byte("rules are made to be compressed "), 512)
			cmp := comp.Compress(ctl, nil)
			if len(cmp) >= len(ctl) {
				t.Errorf("no compression: %d -> %d", len(ctl), len(cmp))
			}
			dst := make([]byte, len(ctl))
			if err := dec.Decompress(cmp, dst); err != nil {
				t.Fatal(err)
			} else if !bytes.Equal(ctl, dst) {
				t.Error("mismatch")
			}
			// appending to an existing prefix
			prefix := []byte("header")
			out := comp.Compress(ctl, append([]byte(nil), prefix...))
			if !bytes.HasPrefix(out, prefix) {
				t.Fatal("prefix clobbered")
			}
			dst = make([]byte, len(ctl))
			if err := dec.Decompress(out[len(prefix):], dst); err != nil {
				t.Fatal(err)
			} else if !bytes.Equal(ctl, dst) {
				t.Error("mismatch after prefix")
			}
			// the destination must be exactly the decoded size
			if err := dec.Decompress(cmp, make([]byte, len(ctl)-1)); err == nil {
				t.Error("short destination did not fail")
			}
		})
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	if Compression("lz4") != nil || Compression("") != nil {
		t.Error("unknown compression name did not yield nil")
	}
	if Decompression("lz4") != nil || Decompression("") != nil {
		t.Error("unknown decompression name did not yield nil")
	}
}
