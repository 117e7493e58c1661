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
	"bytes"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dchest/siphash"

	"github.com/RealGoodAppsLLC/ExpressionMagic/expr"
)

// siphash keys for cache entry addressing
const (
	k0 = 0
	k1 = 1
)

// Logger is the interface the cache uses
// to report compilation failures.
type Logger interface {
	Printf(f string, args ...any)
}

// Cache memoizes compiled programs, keyed by the
// encoding of their lambdas. The zero value is ready
// to use. A Cache is safe for concurrent use.
type Cache struct {
	// Logger, if non-nil, is used to log
	// failures encountered by the cache.
	Logger Logger

	lock    sync.Mutex
	entries map[uint64][]*centry

	// statistics; accessed atomically
	hits, misses, failures int64
}

type centry struct {
	// enc is the full encoding of the cached lambda;
	// entries that collide on the hash key are
	// disambiguated by comparing encodings
	enc  []byte
	prog *Program
}

func (c *Cache) errorf(f string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(f, args...)
	}
}

// Program returns the compiled form of l,
// compiling and caching it on first use.
//
// Two lambdas share an entry exactly when their encodings
// are identical (see expr.Encode); parameter names and
// declared types participate in the key, parameter
// identities do not.
func (c *Cache) Program(l *expr.Lambda) (*Program, error) {
	if l == nil {
		return nil, errors.New("eval: nil lambda")
	}
	enc, err := expr.Encode(l)
	if err != nil {
		atomic.AddInt64(&c.failures, 1)
		c.errorf("eval.Cache: encoding: %s", err)
		return nil, err
	}
	key := siphash.Hash(k0, k1, enc)
	c.lock.Lock()
	for _, e := range c.entries[key] {
		if bytes.Equal(e.enc, enc) {
			c.lock.Unlock()
			atomic.AddInt64(&c.hits, 1)
			return e.prog, nil
		}
	}
	c.lock.Unlock()
	// compile outside the lock; concurrent fills of the
	// same entry race benignly and the first insert wins
	prog, err := Compile(l)
	if err != nil {
		atomic.AddInt64(&c.failures, 1)
		c.errorf("eval.Cache: compiling %q: %s", expr.ToString(l), err)
		return nil, err
	}
	atomic.AddInt64(&c.misses, 1)
	c.lock.Lock()
	if c.entries == nil {
		c.entries = make(map[uint64][]*centry)
	}
	for _, e := range c.entries[key] {
		if bytes.Equal(e.enc, enc) {
			c.lock.Unlock()
			return e.prog, nil
		}
	}
	c.entries[key] = append(c.entries[key], &centry{enc: enc, prog: prog})
	c.lock.Unlock()
	return prog, nil
}

// Invoke applies l to arg through the cache;
// see Invoke for the strict semantics.
func (c *Cache) Invoke(l *expr.Lambda, arg any, strict bool) (Result, error) {
	p, err := c.Program(l)
	if err != nil {
		return Result{}, err
	}
	return Invoke(p, arg, strict)
}

// Entries returns the number of programs currently cached.
// (Note that this is fundamentally racy; this is only here
// for telemetry and testing purposes.)
func (c *Cache) Entries() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	n := 0
	for _, list := range c.entries {
		n += len(list)
	}
	return n
}

// Reset drops every cached program and zeroes the counters.
func (c *Cache) Reset() {
	c.lock.Lock()
	c.entries = nil
	c.lock.Unlock()
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.failures, 0)
}

// Accesses returns the total number of
// times the cache was accessed.
func (c *Cache) Accesses() int64 {
	return c.Hits() + c.Misses() + c.Failures()
}

// Hits returns the number of times the cache
// substituted a compilation with a cached program.
func (c *Cache) Hits() int64 {
	return atomic.LoadInt64(&c.hits)
}

// Misses returns the number of times the cache
// had to compile a program.
func (c *Cache) Misses() int64 {
	return atomic.LoadInt64(&c.misses)
}

// Failures returns the number of times the cache
// failed to encode or compile a lambda.
func (c *Cache) Failures() int64 {
	return atomic.LoadInt64(&c.failures)
}
