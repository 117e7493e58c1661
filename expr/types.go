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

package expr

import (
	"fmt"
	"strings"
)

// TypeSet is a set of runtime value types
type TypeSet uint16

const (
	NullType   TypeSet = 1 << iota // the null value
	BoolType                       // boolean values
	IntType                        // signed integers
	FloatType                      // floating-point numbers
	StringType                     // strings
	TimeType                       // timestamps
	ListType                       // ordered sequences
	StructType                     // field/value records

	maxTypeBit
)

const (
	// AnyType is the TypeSet that
	// contains all types.
	AnyType = maxTypeBit - 1
	// NumericType is the return type
	// of number operations.
	NumericType = IntType | FloatType
	// LogicalType is the return type
	// of logical operations.
	LogicalType = BoolType
	// OrdinalType is the set of types
	// that admit an ordered comparison
	// against a value of the same type.
	OrdinalType = NumericType | StringType | TimeType
)

var typeNames = []struct {
	bit  TypeSet
	name string
}{
	{NullType, "null"},
	{BoolType, "bool"},
	{IntType, "int"},
	{FloatType, "float"},
	{StringType, "string"},
	{TimeType, "time"},
	{ListType, "list"},
	{StructType, "struct"},
}

// Only returns whether or not t
// contains only the types in set.
// (In other words, Only computes
// whether or not the intersection
// of t and set is equal to t.)
func (t TypeSet) Only(set TypeSet) bool {
	return (t &^ set) == 0
}

func (t TypeSet) AnyOf(set TypeSet) bool {
	return (t & set) != 0
}

// Comparable returns whether or not
// two values can be compared against
// one another under ordinary typing rules
func (t TypeSet) Comparable(other TypeSet) bool {
	// integers compare against floats,
	// so any numeric overlap will do
	if t.AnyOf(NumericType) && other.AnyOf(NumericType) {
		return true
	}
	return (t & other) != 0
}

// Logical returns whether or not the
// type set includes the boolean type
// (in other words, whether it is sensible
// to use this type in a logical expression)
func (t TypeSet) Logical() bool {
	return t.AnyOf(BoolType)
}

func (t TypeSet) String() string {
	if t == AnyType {
		return "any"
	}
	var str strings.Builder
	first := true
	for i := range typeNames {
		if t&typeNames[i].bit != 0 {
			if !first {
				str.WriteString("|")
			}
			str.WriteString(typeNames[i].name)
			first = false
		}
	}
	return str.String()
}

// ParseTypeSet parses the textual representation
// of a TypeSet as produced by TypeSet.String:
// "any" or a '|'-separated list of type names.
func ParseTypeSet(s string) (TypeSet, error) {
	if s == "any" {
		return AnyType, nil
	}
	var out TypeSet
	for _, part := range strings.Split(s, "|") {
		bit := TypeSet(0)
		for i := range typeNames {
			if typeNames[i].name == part {
				bit = typeNames[i].bit
				break
			}
		}
		if bit == 0 {
			return 0, fmt.Errorf("unrecognized type %q", part)
		}
		out |= bit
	}
	return out, nil
}
