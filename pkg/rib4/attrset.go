// Copyright (C) 2014 Nippon Telegraph and Telephone Corporation.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rib4

import (
	"sync"

	farm "github.com/dgryski/go-farm"

	"github.com/bgpcore/bgpcore/pkg/packet/bgp"
)

// AttrSet is a shared, immutable handle to a path-attribute list. Many
// entries arriving in the same UPDATE carry identical attributes; the
// Interner lets them share one AttrSet instead of each holding its own
// copy.
type AttrSet struct {
	Attrs       []bgp.PathAttributeInterface
	fingerprint uint64
	wire        []byte
}

// Interner deduplicates attribute lists by their serialized form, hashed
// with farm.Hash64 to key a bucket map. Collisions are resolved by
// comparing the serialized bytes, so a hash collision never merges two
// distinct attribute sets.
type Interner struct {
	mu      sync.Mutex
	buckets map[uint64][]*AttrSet
}

// NewInterner returns an empty Interner.
func NewInterner() *Interner {
	return &Interner{buckets: map[uint64][]*AttrSet{}}
}

func serializeAll(attrs []bgp.PathAttributeInterface) ([]byte, error) {
	var buf []byte
	for _, a := range attrs {
		b, err := a.Serialize()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
	}
	return buf, nil
}

// Intern returns a shared AttrSet equal to attrs, reusing a prior one when
// available. On a Serialize error (should not happen for attributes that
// already round-tripped through parsing) it falls back to a fresh,
// unshared AttrSet.
func (in *Interner) Intern(attrs []bgp.PathAttributeInterface) *AttrSet {
	wire, err := serializeAll(attrs)
	if err != nil {
		return &AttrSet{Attrs: attrs}
	}
	fp := farm.Hash64(wire)

	in.mu.Lock()
	defer in.mu.Unlock()
	for _, existing := range in.buckets[fp] {
		if string(existing.wire) == string(wire) {
			return existing
		}
	}
	set := &AttrSet{Attrs: attrs, fingerprint: fp, wire: wire}
	in.buckets[fp] = append(in.buckets[fp], set)
	return set
}
