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
	"fmt"
	"sync"

	radix "github.com/armon/go-radix"

	"github.com/bgpcore/bgpcore/pkg/eventbus"
	"github.com/bgpcore/bgpcore/pkg/packet/bgp"
)

// bitKey renders a prefix as its most-significant Length bits, one
// character per bit, so that a string-keyed radix tree's own prefix
// matching becomes CIDR longest-prefix matching.
func bitKey(p bgp.Prefix4) string {
	var buf [32]byte
	for i := uint8(0); i < p.Length; i++ {
		if p.Addr&(1<<(31-i)) != 0 {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf[:p.Length])
}

type node struct {
	prefix  bgp.Prefix4
	entries map[uint32]*Entry
	best    *Entry
}

// Rib4 is the IPv4 Routing Information Base: a multimap of candidate paths
// per prefix with deterministic best-path selection. Mutation methods take
// an exclusive, non-reentrant sync.Mutex, but never call back into a
// subscriber while holding it: events are collected during the mutation
// and delivered on the Bus only after the lock is released, which is what
// makes re-entrant RIB access from an event handler safe without an
// actual reentrant lock.
type Rib4 struct {
	mu       sync.Mutex
	tree     *radix.Tree
	interner *Interner
	bus      *eventbus.Bus
	nextID   uint64
	batches  map[uint32]uint64
}

// New returns an empty Rib4 publishing route events on bus.
func New(bus *eventbus.Bus) *Rib4 {
	return &Rib4{
		tree:     radix.New(),
		interner: NewInterner(),
		bus:      bus,
	}
}

func (r *Rib4) nodeFor(p bgp.Prefix4, create bool) *node {
	key := bitKey(p)
	if v, ok := r.tree.Get(key); ok {
		return v.(*node)
	}
	if !create {
		return nil
	}
	n := &node{prefix: p, entries: map[uint32]*Entry{}}
	r.tree.Insert(key, n)
	return n
}

func candidateList(entries map[uint32]*Entry) []*Entry {
	out := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	return out
}

func sameContent(a, b *Entry) bool {
	return a.Attribs == b.Attribs && a.Weight == b.Weight && a.Src == b.Src && a.IBGPPeerASN == b.IBGPPeerASN
}

// Insert installs or replaces the candidate path from entry.SrcRouterID for
// entry.Route, interns its attribute list, and recomputes the best path.
// Re-announcing byte-identical content from the same source is treated as
// a duplicate: no best-path change is made and a RouteDuplicate event
// fires instead of RouteAdded. sender identifies the Subscriber that
// caused this mutation (typically the FSM that received the UPDATE), so
// the published event skips it; pass nil if there is none.
func (r *Rib4) Insert(entry *Entry, sender eventbus.Subscriber) {
	r.mu.Lock()
	entry.Attribs = r.interner.Intern(entry.Attribs.Attrs)

	n := r.nodeFor(entry.Route, true)
	old, hadOld := n.entries[entry.SrcRouterID]
	prevBest := n.best
	wasBestBefore := hadOld && prevBest == old

	n.entries[entry.SrcRouterID] = entry
	newBest := selectEntry(candidateList(n.entries))
	n.best = newBest

	// A fresh *Entry is allocated on every call, even for a byte-identical
	// re-announcement, so pointer identity alone can't tell a duplicate from
	// a change: compare content explicitly, keyed on whether this entry was
	// (and remains) the winner for its prefix.
	duplicate := hadOld && wasBestBefore && newBest == entry && sameContent(old, entry)

	var ev eventbus.Event
	publish := true
	switch {
	case duplicate:
		ev = eventbus.Event{Kind: eventbus.RouteDuplicate, Prefix: entry.Route, Best: newBest}
	case prevBest != newBest:
		ev = eventbus.Event{Kind: eventbus.RouteAdded, Prefix: entry.Route, Best: newBest}
	default:
		publish = false
	}
	r.mu.Unlock()

	if publish {
		r.bus.Publish(sender, ev)
	}
}

// InsertLocal installs locally-originated routes (SrcRouterID 0). Every
// prefix passed in one call that shares the same NEXT_HOP is assigned the
// same UpdateID, so a later Withdraw of one member of the batch can be
// recognized by callers as part of the same origination event; prefixes
// with distinct next hops each get their own UpdateID. sender is forwarded
// to Insert for each route (see Insert).
func (r *Rib4) InsertLocal(routes []bgp.Prefix4, attrs []bgp.PathAttributeInterface, weight int32, sender eventbus.Subscriber) error {
	nh, ok := findNextHop(attrs)
	if !ok {
		return fmt.Errorf("InsertLocal: NEXT_HOP attribute is required")
	}

	r.mu.Lock()
	id := r.nextHopBatch(nh)
	r.mu.Unlock()

	for _, route := range routes {
		r.Insert(&Entry{
			Route:       route,
			SrcRouterID: 0,
			Attribs:     &AttrSet{Attrs: attrs},
			UpdateID:    id,
			Weight:      weight,
			Src:         IBGP,
		}, sender)
	}
	return nil
}

func findNextHop(attrs []bgp.PathAttributeInterface) (uint32, bool) {
	for _, a := range attrs {
		if nh, ok := a.(*bgp.PathAttributeNextHop); ok {
			return nh.Value, true
		}
	}
	return 0, false
}

// nextHopBatch returns a stable UpdateID for a given next hop, allocating a
// fresh one the first time it is seen. Callers must hold r.mu.
func (r *Rib4) nextHopBatch(nh uint32) uint64 {
	if r.batches == nil {
		r.batches = map[uint32]uint64{}
	}
	if id, ok := r.batches[nh]; ok {
		return id
	}
	r.nextID++
	r.batches[nh] = r.nextID
	return r.nextID
}

// WithdrawResult reports the effect of a Withdraw call.
type WithdrawResult struct {
	// Found is true if an entry existed for (prefix, srcRouterID).
	Found bool
	// WasBest is true if the removed entry had been the best path.
	WasBest bool
	// NewBest is the node's best path after removal, or nil if the
	// prefix now has no candidates at all.
	NewBest *Entry
	// PrefixGone is true if the prefix has no remaining candidates and
	// was dropped from the RIB entirely.
	PrefixGone bool
}

// Withdraw removes the candidate path for (prefix, srcRouterID), if any,
// and recomputes the best path. sender is forwarded to the published event
// (see Insert).
func (r *Rib4) Withdraw(prefix bgp.Prefix4, srcRouterID uint32, sender eventbus.Subscriber) WithdrawResult {
	r.mu.Lock()
	n := r.nodeFor(prefix, false)
	if n == nil {
		r.mu.Unlock()
		return WithdrawResult{}
	}
	old, ok := n.entries[srcRouterID]
	if !ok {
		r.mu.Unlock()
		return WithdrawResult{}
	}
	wasBest := n.best == old
	delete(n.entries, srcRouterID)

	result := WithdrawResult{Found: true, WasBest: wasBest}
	var ev eventbus.Event
	publish := false

	if len(n.entries) == 0 {
		r.tree.Delete(bitKey(prefix))
		result.PrefixGone = true
		if wasBest {
			ev = eventbus.Event{Kind: eventbus.RouteWithdrawn, Prefix: prefix}
			publish = true
		}
	} else {
		n.best = selectEntry(candidateList(n.entries))
		result.NewBest = n.best
		if wasBest {
			ev = eventbus.Event{Kind: eventbus.RouteAdded, Prefix: prefix, Best: n.best}
			publish = true
		}
	}
	r.mu.Unlock()

	if publish {
		r.bus.Publish(sender, ev)
	}
	return result
}

// Discard removes every candidate path sourced from srcRouterID (used when
// a peering session goes down) and returns the prefixes whose best path
// changed as a result, i.e. those where the discarded entry had been the
// best. sender is forwarded to every published event (see Insert).
func (r *Rib4) Discard(srcRouterID uint32, sender eventbus.Subscriber) []bgp.Prefix4 {
	r.mu.Lock()
	type change struct {
		prefix bgp.Prefix4
		ev     eventbus.Event
	}
	var changed []bgp.Prefix4
	var events []change
	var toDelete []string

	r.tree.Walk(func(key string, v interface{}) bool {
		n := v.(*node)
		old, ok := n.entries[srcRouterID]
		if !ok {
			return false
		}
		wasBest := n.best == old
		delete(n.entries, srcRouterID)
		if wasBest {
			changed = append(changed, n.prefix)
		}

		if len(n.entries) == 0 {
			toDelete = append(toDelete, key)
			if wasBest {
				events = append(events, change{n.prefix, eventbus.Event{Kind: eventbus.RouteWithdrawn, Prefix: n.prefix}})
			}
			return false
		}
		n.best = selectEntry(candidateList(n.entries))
		if wasBest {
			events = append(events, change{n.prefix, eventbus.Event{Kind: eventbus.RouteAdded, Prefix: n.prefix, Best: n.best}})
		}
		return false
	})
	for _, key := range toDelete {
		r.tree.Delete(key)
	}
	r.mu.Unlock()

	for _, c := range events {
		r.bus.Publish(sender, c.ev)
	}
	return changed
}

// Lookup performs a longest-prefix-match against addr and returns the
// matching node's current best path.
func (r *Rib4) Lookup(addr uint32) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	full := bgp.NewPrefix4(addr, 32)
	_, v, ok := r.tree.LongestPrefix(bitKey(full))
	if !ok {
		return nil, false
	}
	n := v.(*node)
	if n.best == nil {
		return nil, false
	}
	return n.best, true
}

// Get returns the exact-match node's best path for prefix, without
// longest-prefix fallback.
func (r *Rib4) Get(prefix bgp.Prefix4) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.nodeFor(prefix, false)
	if n == nil || n.best == nil {
		return nil, false
	}
	return n.best, true
}
