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

// Copy returns a deep copy of e, or nil if
// e is malformed and cannot be re-encoded.
//
// Parameters bound by lambdas within e are re-minted
// with fresh identities in the copy; free parameter
// references keep their original identity.
func Copy(e Node) Node {
	if e == nil {
		return nil
	}
	buf, err := Encode(e)
	if err != nil {
		return nil
	}
	d := &decoder{scope: Free(e)}
	out, err := d.node(buf)
	if err != nil {
		return nil
	}
	return out
}
