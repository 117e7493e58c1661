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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RealGoodAppsLLC/ExpressionMagic/eval"
	"github.com/RealGoodAppsLLC/ExpressionMagic/expr"
	"github.com/RealGoodAppsLLC/ExpressionMagic/rules"
	"github.com/RealGoodAppsLLC/ExpressionMagic/store"
)

var (
	dashv      bool
	dashh      bool
	dashredact bool
	dashstrict bool
	dashrule   string
	dashk      string
	dashc      string
	dasho      string
)

func init() {
	flag.BoolVar(&dashv, "v", false, "verbose")
	flag.BoolVar(&dashh, "h", false, "show usage help")
	flag.BoolVar(&dashredact, "redact", false, "redact constants when printing rules")
	flag.BoolVar(&dashstrict, "strict", false, "turn null-access and bad-argument faults into errors")
	flag.StringVar(&dashrule, "rule", "", "evaluate only the named rule")
	flag.StringVar(&dashk, "k", "", "key file to use for sealing+authenticating definitions")
	flag.StringVar(&dashc, "c", "zstd", "compression algorithm for seal (zstd or s2)")
	flag.StringVar(&dasho, "o", "-", "output file (or - for stdout)")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func logf(f string, args ...interface{}) {
	if f[len(f)-1] != '\n' {
		f += "\n"
	}
	fmt.Fprintf(os.Stderr, f, args...)
}

func load(defpath string) *rules.Definition {
	s, err := rules.OpenDefinition(os.DirFS(filepath.Dir(defpath)), filepath.Base(defpath))
	if err != nil {
		exitf("%s\n", err)
	}
	return s
}

func compile(defpath string) *rules.Set {
	set, err := load(defpath).Compile()
	if err != nil {
		exitf("%s\n", err)
	}
	return set
}

func loadKey() *store.Key {
	if dashk == "" {
		exitf("-k <keyfile> is required\n")
	}
	buf, err := os.ReadFile(dashk)
	if err != nil {
		exitf("%s\n", err)
	}
	key, err := store.ParseKey(strings.TrimSpace(string(buf)))
	if err != nil {
		exitf("%s\n", err)
	}
	return key
}

func writeout(buf []byte) {
	var out io.WriteCloser
	var err error
	if dasho == "-" {
		out = os.Stdout
	} else {
		out, err = os.Create(dasho)
		if err != nil {
			exitf("creating output: %s\n", err)
		}
	}
	if _, err := out.Write(buf); err != nil {
		exitf("writing output: %s\n", err)
	}
	if err := out.Close(); err != nil {
		exitf("closing output: %s\n", err)
	}
}

// entry point for 'emx check ...'
func check(defpath string) {
	s := load(defpath)
	if err := s.Validate(); err != nil {
		exitf("%s\n", err)
	}
	if dashv {
		set, err := s.Compile()
		if err != nil {
			exitf("%s\n", err)
		}
		for _, name := range set.Names() {
			logf("rule %s: ok", name)
		}
	}
}

// entry point for 'emx show ...'
func show(defpath, rule string) {
	set := compile(defpath)
	names := set.Names()
	if rule != "" {
		if set.Lambda(rule) == nil {
			exitf("no rule %q in %s\n", rule, defpath)
		}
		names = []string{rule}
	}
	text := expr.ToString
	if dashredact {
		text = expr.ToRedacted
	}
	for _, name := range names {
		fmt.Printf("%s: %s\n", name, text(set.Lambda(name)))
	}
}

// entry point for 'emx eval ...'
func evaluate(defpath, inpath string) {
	set := compile(defpath)
	names := set.Names()
	if dashrule != "" {
		if set.Lambda(dashrule) == nil {
			exitf("no rule %q in %s\n", dashrule, defpath)
		}
		names = []string{dashrule}
	}
	buf, err := os.ReadFile(inpath)
	if err != nil {
		exitf("%s\n", err)
	}
	var input any
	if err := json.Unmarshal(buf, &input); err != nil {
		exitf("parsing %s: %s\n", inpath, err)
	}
	for _, name := range names {
		res, err := eval.InvokeLambda(set.Lambda(name), input, dashstrict)
		if err != nil {
			exitf("rule %s: %s\n", name, err)
		}
		switch {
		case !res.OK:
			fmt.Printf("%s: absent\n", name)
		case res.Value == nil:
			fmt.Printf("%s: null\n", name)
		default:
			fmt.Printf("%s: %v\n", name, res.Value)
		}
	}
}

// entry point for 'emx seal ...'
func seal(defpath string) {
	key := loadKey()
	// refuse to seal a definition that doesn't compile
	if err := load(defpath).Validate(); err != nil {
		exitf("%s\n", err)
	}
	raw, err := os.ReadFile(defpath)
	if err != nil {
		exitf("%s\n", err)
	}
	blob, err := store.Seal(raw, key, dashc)
	if err != nil {
		exitf("%s\n", err)
	}
	if dashv {
		logf("sealed %d bytes into %d", len(raw), len(blob))
	}
	writeout(blob)
}

// entry point for 'emx open ...'
func open(blobpath string) {
	key := loadKey()
	buf, err := os.ReadFile(blobpath)
	if err != nil {
		exitf("%s\n", err)
	}
	raw, err := store.OpenSealed(buf, key)
	if err != nil {
		exitf("%s\n", err)
	}
	writeout(raw)
}

// entry point for 'emx keygen'
func keygen() {
	key, err := store.RandomKey()
	if err != nil {
		exitf("%s\n", err)
	}
	writeout([]byte(key.String() + "\n"))
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 || dashh {
		fmt.Fprintf(os.Stderr, "usage:\n")
		fmt.Fprintf(os.Stderr, "    %s check <definition.json|definition.yaml>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        parse, compile, and type-check a definition\n")
		fmt.Fprintf(os.Stderr, "    %s [-redact] show <definition> <rule?>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        print rule expressions as text\n")
		fmt.Fprintf(os.Stderr, "    %s [-rule <name>] [-strict] eval <definition> <input.json>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        evaluate every rule against one JSON record\n")
		fmt.Fprintf(os.Stderr, "    %s -k <keyfile> [-c zstd|s2] [-o <output>] seal <definition>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        compress and sign a definition\n")
		fmt.Fprintf(os.Stderr, "    %s -k <keyfile> [-o <output>] open <blob>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        authenticate and unpack a sealed definition\n")
		fmt.Fprintf(os.Stderr, "    %s [-o <output>] keygen\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        generate a new sealing key\n")
		fmt.Fprintf(os.Stderr, "flag usage:\n")
		flag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "check":
		if len(args) != 2 {
			exitf("usage: check <definition.json|definition.yaml>")
		}
		check(args[1])
	case "show":
		if len(args) < 2 || len(args) > 3 {
			exitf("usage: show <definition> <rule?>")
		}
		if len(args) == 2 {
			args = append(args, "")
		}
		show(args[1], args[2])
	case "eval":
		if len(args) != 3 {
			exitf("usage: eval <definition> <input.json>")
		}
		evaluate(args[1], args[2])
	case "seal":
		if len(args) != 2 {
			exitf("usage: seal <definition>")
		}
		seal(args[1])
	case "open":
		if len(args) != 2 {
			exitf("usage: open <blob>")
		}
		open(args[1])
	case "keygen":
		if len(args) != 1 {
			exitf("usage: keygen")
		}
		keygen()
	default:
		exitf("commands: check, show, eval, seal, open, keygen\n")
	}
}
