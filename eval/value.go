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

package eval

import (
	"fmt"
	"math"
	"time"
)

// Values flowing through a Program are drawn from a small
// dynamic domain:
//
//	nil
//	bool
//	int64
//	float64
//	string
//	time.Time
//	[]any            (elements drawn from this domain)
//	map[string]any   (values drawn from this domain)
//
// Normalize widens a Go value into that domain: narrower
// integer and float kinds are converted, and containers are
// normalized recursively. Values of any other kind produce
// an *ArgError.
func Normalize(v any) (any, error) {
	switch v := v.(type) {
	case nil, bool, int64, float64, string, time.Time:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, errarg(nil, "%d overflows int64", v)
		}
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, errarg(nil, "%d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return float64(v), nil
	case []any:
		out := make([]any, len(v))
		for i := range v {
			elem, err := Normalize(v[i])
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			norm, err := Normalize(elem)
			if err != nil {
				return nil, err
			}
			out[k] = norm
		}
		return out, nil
	default:
		return nil, errarg(nil, "unsupported value of type %T", v)
	}
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

func isContainer(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return true
	}
	return false
}

func toFloat(v any) float64 {
	switch v := v.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return 0
}

// kindof names a value's kind in error messages,
// matching the expr.TypeSet type names
func kindof(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "string"
	case time.Time:
		return "time"
	case []any:
		return "list"
	case map[string]any:
		return "struct"
	}
	return fmt.Sprintf("%T", v)
}
