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

package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgpcore/bgpcore/pkg/packet/bgp"
)

type recorder struct {
	events []Event
	acts   bool
}

func (r *recorder) OnRouteEvent(ev Event) bool {
	r.events = append(r.events, ev)
	return r.acts
}

func TestBusDeliversInOrder(t *testing.T) {
	b := New()
	r := &recorder{acts: true}
	_, err := b.Subscribe(r)
	require.NoError(t, err)

	p := bgp.NewPrefix4(0x0A000000, 8)
	n := b.Publish(nil, Event{Kind: RouteAdded, Prefix: p})
	assert.Equal(t, 1, n)
	n = b.Publish(nil, Event{Kind: RouteWithdrawn, Prefix: p})
	assert.Equal(t, 1, n)

	require.Len(t, r.events, 2)
	assert.Equal(t, RouteAdded, r.events[0].Kind)
	assert.Equal(t, RouteWithdrawn, r.events[1].Kind)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	r := &recorder{acts: true}
	id, err := b.Subscribe(r)
	require.NoError(t, err)

	b.Unsubscribe(id)
	n := b.Publish(nil, Event{Kind: RouteAdded})
	assert.Equal(t, 0, n)
	assert.Empty(t, r.events)
}

func TestBusMultipleSubscribers(t *testing.T) {
	b := New()
	r1, r2 := &recorder{acts: true}, &recorder{acts: true}
	_, err := b.Subscribe(r1)
	require.NoError(t, err)
	_, err = b.Subscribe(r2)
	require.NoError(t, err)

	n := b.Publish(nil, Event{Kind: RouteCollision, PeerBGPID: 0x02020202})
	assert.Equal(t, 2, n)
	assert.Len(t, r1.events, 1)
	assert.Len(t, r2.events, 1)
}

func TestBusExcludesSenderFromDelivery(t *testing.T) {
	b := New()
	r1, r2 := &recorder{acts: true}, &recorder{acts: true}
	_, err := b.Subscribe(r1)
	require.NoError(t, err)
	_, err = b.Subscribe(r2)
	require.NoError(t, err)

	n := b.Publish(r1, Event{Kind: RouteAdded})
	assert.Equal(t, 1, n)
	assert.Empty(t, r1.events, "sender must not receive its own event")
	assert.Len(t, r2.events, 1)
}

func TestBusPublishCountsOnlyThoseThatActed(t *testing.T) {
	b := New()
	acted, didNot := &recorder{acts: true}, &recorder{acts: false}
	_, err := b.Subscribe(acted)
	require.NoError(t, err)
	_, err = b.Subscribe(didNot)
	require.NoError(t, err)

	n := b.Publish(nil, Event{Kind: RouteCollision, PeerBGPID: 0x02020202})
	assert.Equal(t, 1, n)
	assert.Len(t, acted.events, 1)
	assert.Len(t, didNot.events, 1)
}
