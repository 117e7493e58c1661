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

// Package expr implements the AST
// representation of typed expressions.
//
// Each of the AST node types satisfies
// the Node interface. Trees are immutable
// once constructed: every rewriting entry
// point returns a new tree that shares
// unchanged subtrees with its input, so
// nodes may be referenced freely from
// multiple trees and multiple goroutines.
//
// The critical entry points for this
// package are Walk, Check, and Substitute.
// Those routines allow a caller to examine
// the AST, collect diagnostics, or replace
// parameter references with other
// expressions.
package expr
