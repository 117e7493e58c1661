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

// Package rules loads declarative rule definitions
// and compiles them into named lambdas.
//
// A definition names one input parameter and a list of
// rules. A rule is either an inline encoded expression
// (see expr.Decode) evaluated over that parameter, or a
// combination of other rules by name ("all", "any",
// "not"). Definitions are written in JSON; YAML files
// are accepted and converted on open.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path"

	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"
)

// ParamSpec declares the input parameter that
// every rule in a definition binds.
type ParamSpec struct {
	// Name is the parameter's display name.
	Name string `json:"name"`
	// Type is the textual type set the parameter may
	// assume at runtime, as accepted by expr.ParseTypeSet.
	// An empty Type means "any".
	Type string `json:"type,omitempty"`
}

// RuleSpec is one named rule belonging to a Definition.
// Exactly one of Expr, All, Any and Not must be set.
type RuleSpec struct {
	// Name identifies the rule within its definition.
	Name string `json:"name"`
	// Expr is an encoded expression body evaluated
	// over the definition's parameter.
	Expr json.RawMessage `json:"expr,omitempty"`
	// All names rules that must all hold.
	All []string `json:"all,omitempty"`
	// Any names rules of which at least one must hold.
	Any []string `json:"any,omitempty"`
	// Not names a rule whose result is negated.
	Not string `json:"not,omitempty"`
}

// Equal returns whether r and other are equivalent.
func (r RuleSpec) Equal(other RuleSpec) bool {
	return r.Name == other.Name &&
		string(r.Expr) == string(other.Expr) &&
		slices.Equal(r.All, other.All) &&
		slices.Equal(r.Any, other.Any) &&
		r.Not == other.Not
}

// Definition is a named collection of rules
// over a single input parameter.
type Definition struct {
	// Name is the name of the rule set that will
	// be produced from this Definition.
	Name string `json:"name"`
	// Param is the input parameter every rule binds.
	Param ParamSpec `json:"param"`
	// Rules is the list of rules comprising the set.
	Rules []RuleSpec `json:"rules,omitempty"`
}

// Equal returns whether d and other are
// equivalent. Equivalent definitions marshal
// to equivalent JSON.
func (d *Definition) Equal(other *Definition) bool {
	if d == nil || other == nil {
		return d == nil && other == nil
	}
	return d.Name == other.Name &&
		d.Param == other.Param &&
		slices.EqualFunc(d.Rules, other.Rules, (RuleSpec).Equal)
}

// just pick an upper limit to prevent DoS
const maxDefSize = 1024 * 1024

func checkDef(f fs.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() > maxDefSize {
		return fmt.Errorf("definition of size %d beyond limit %d", info.Size(), maxDefSize)
	}
	return nil
}

// DecodeDefinition decodes a JSON definition from src.
//
// See also: OpenDefinition
func DecodeDefinition(src io.Reader) (*Definition, error) {
	s := new(Definition)
	err := json.NewDecoder(src).Decode(s)
	return s, err
}

// OpenDefinition opens the definition at p within where.
//
// Files ending in .yaml or .yml are converted from YAML
// before decoding; everything else is decoded as JSON.
func OpenDefinition(where fs.FS, p string) (*Definition, error) {
	f, err := where.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := checkDef(f); err != nil {
		return nil, err
	}
	switch path.Ext(p) {
	case ".yaml", ".yml":
		buf, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		buf, err = yaml.YAMLToJSON(buf)
		if err != nil {
			return nil, fmt.Errorf("rules: converting %s: %w", p, err)
		}
		return DecodeDefinition(bytes.NewReader(buf))
	default:
		return DecodeDefinition(f)
	}
}
