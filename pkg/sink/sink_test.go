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

package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgpcore/bgpcore/pkg/packet/bgp"
)

func keepaliveBytes(t *testing.T) []byte {
	b, err := bgp.NewBGPKeepAlive().Serialize()
	require.NoError(t, err)
	return b
}

func TestSinkWholeMessageInOneFeed(t *testing.T) {
	s := New()
	require.NoError(t, s.Feed(keepaliveBytes(t)))
	msg, ok := s.Pop()
	assert.True(t, ok)
	assert.Len(t, msg, bgp.HeaderLength)
	_, ok = s.Pop()
	assert.False(t, ok)
}

func TestSinkSplitAcrossFeeds(t *testing.T) {
	s := New()
	b := keepaliveBytes(t)
	require.NoError(t, s.Feed(b[:10]))
	_, ok := s.Pop()
	assert.False(t, ok, "incomplete message must not be popped")
	require.NoError(t, s.Feed(b[10:]))
	msg, ok := s.Pop()
	assert.True(t, ok)
	assert.Equal(t, b, msg)
}

func TestSinkArrivalOrder(t *testing.T) {
	s := New()
	one := keepaliveBytes(t)
	two, err := bgp.NewBGPNotification(bgp.ErrCease, bgp.ErrSubAdministrativeReset, nil).Serialize()
	require.NoError(t, err)

	require.NoError(t, s.Feed(append(append([]byte{}, one...), two...)))

	first, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, one, first)

	second, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, two, second)
}

func TestSinkRejectsBadMarker(t *testing.T) {
	s := New()
	b := keepaliveBytes(t)
	b[0] = 0x00
	err := s.Feed(b)
	require.Error(t, err)
	me, ok := bgp.AsMessageError(err)
	require.True(t, ok)
	assert.Equal(t, bgp.ErrSubConnectionNotSynchronized, me.SubCode)
}

func TestSinkOverflowGuard(t *testing.T) {
	s := New()
	err := s.Feed(make([]byte, MaxBuffered+1))
	require.Error(t, err)
}

func TestSinkClear(t *testing.T) {
	s := New()
	require.NoError(t, s.Feed(keepaliveBytes(t)[:5]))
	s.Clear()
	require.NoError(t, s.Feed(keepaliveBytes(t)))
	_, ok := s.Pop()
	assert.True(t, ok)
}
