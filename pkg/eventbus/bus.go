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

// Package eventbus is a synchronous, single-threaded publish/subscribe
// channel between the RIB and the FSMs that peer into it. The bus holds an
// ordinary reference to every subscriber until Unsubscribe removes it; it
// does not detect or skip a subscriber that is no longer in use.
package eventbus

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bgpcore/bgpcore/pkg/packet/bgp"
)

// Kind distinguishes the notifications carried on the bus.
type Kind uint8

const (
	// RouteAdded fires when a prefix gains a new best path (Insert, Withdraw
	// or Discard left a different entry as best, whether or not one already
	// existed).
	RouteAdded Kind = iota
	// RouteWithdrawn fires when a prefix loses its best path entirely,
	// i.e. the RIB no longer has any candidate for it.
	RouteWithdrawn
	// RouteDuplicate fires when a newly inserted entry is content-identical
	// to the one already installed as best for its (prefix, source). The new
	// entry still replaces the stored one and stays best; the event marks it
	// as a repeat announcement instead of a RouteAdded.
	RouteDuplicate
	// RouteCollision fires when a local FSM's peer OPEN carries a BGP
	// identifier matching a peer another FSM sharing this bus is already
	// connected to or negotiating with (RFC 4271 §6.8).
	RouteCollision
)

// Event is one bus notification.
type Event struct {
	Kind   Kind
	Prefix bgp.Prefix4
	// Best is the winning entry after the change (nil for RouteWithdrawn
	// and RouteCollision).
	Best interface{}
	// PeerBGPID is the peer BGP identifier a RouteCollision concerns; zero
	// for every other Kind.
	PeerBGPID uint32
}

// Subscriber receives events synchronously, on the publisher's goroutine.
// OnRouteEvent must return quickly. It may cause a nested Publish on the
// same Bus (for example by mutating the RIB), since Publish holds no lock
// while delivering. Its return value reports whether sub acted
// on ev: for RouteCollision, whether sub tore its own session down in
// favor of the publisher; ignored for every other Kind.
type Subscriber interface {
	OnRouteEvent(ev Event) bool
}

type subscription struct {
	id  uuid.UUID
	sub Subscriber
}

// Bus fans a stream of Events out to its subscribers. Subscribe, Unsubscribe
// and the subscriber-list snapshot taken by Publish are safe to call from
// multiple goroutines at once, matching the RIB4 topology where several
// FSMs run on separate threads but share one Bus. Publish itself does not
// hold Bus's lock while invoking subscribers: a handler that mutates the
// RIB and thereby re-enters Publish on the same goroutine (the FSM's
// collision handler does this) must not deadlock against its own call.
type Bus struct {
	mu   sync.Mutex
	subs []subscription
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers sub and returns a handle that Unsubscribe accepts.
func (b *Bus) Subscribe(sub Subscriber) (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.UUID{}, err
	}
	b.mu.Lock()
	b.subs = append(b.subs, subscription{id: id, sub: sub})
	b.mu.Unlock()
	return id, nil
}

// Unsubscribe removes a subscriber previously returned by Subscribe. It is
// a no-op if id is unknown.
func (b *Bus) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.subs[:0]
	for _, s := range b.subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	b.subs = out
}

// Publish delivers ev to every current subscriber except sender, in
// registration order, and returns how many acted on it (OnRouteEvent
// returned true). sender is excluded so a mutation's own originator never
// receives an echo of the event it caused; pass nil if there is none.
func (b *Bus) Publish(sender Subscriber, ev Event) int {
	logrus.WithFields(logrus.Fields{
		"Topic":  "eventbus",
		"Kind":   ev.Kind,
		"Prefix": ev.Prefix.String(),
	}).Debug("publishing route event")

	b.mu.Lock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()

	n := 0
	for _, s := range subs {
		if s.sub == sender {
			continue
		}
		if s.sub.OnRouteEvent(ev) {
			n++
		}
	}
	return n
}
