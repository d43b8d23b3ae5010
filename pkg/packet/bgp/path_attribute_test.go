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

package bgp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOriginSerializeDecodeRoundTrip(t *testing.T) {
	orig := NewPathAttributeOrigin(OriginIncomplete)
	wire, err := orig.Serialize()
	require.NoError(t, err)

	got := &PathAttributeOrigin{}
	require.NoError(t, got.DecodeFromBytes(wire))
	assert.Equal(t, OriginIncomplete, got.Value)
}

func TestOriginRejectsWrongLength(t *testing.T) {
	bad := &PathAttribute{flags: FlagTransitive, Type: AttrOrigin, Length: 2, Value: []byte{0, 0}}
	wire := bad.Serialize(bad.Value)
	got := &PathAttributeOrigin{}
	assert.Error(t, got.DecodeFromBytes(wire))
}

func TestAggregatorPicksWidthFromTypeCode(t *testing.T) {
	twoB := NewPathAttributeAggregator(65001, 0x0A000001, false)
	assert.Equal(t, AttrAggregator, twoB.TypeCode())
	wire, err := twoB.Serialize()
	require.NoError(t, err)
	got := &PathAttributeAggregator{}
	require.NoError(t, got.DecodeFromBytes(wire))
	assert.Equal(t, uint32(65001), got.AS)
	assert.Equal(t, uint32(0x0A000001), got.Address)

	fourB := NewPathAttributeAggregator(4200000000, 0x0A000001, true)
	assert.Equal(t, AttrAS4Aggregator, fourB.TypeCode())
	wire, err = fourB.Serialize()
	require.NoError(t, err)
	got = &PathAttributeAggregator{}
	require.NoError(t, got.DecodeFromBytes(wire))
	assert.Equal(t, uint32(4200000000), got.AS)
}

func TestCommunitiesSerializeDecodeRoundTrip(t *testing.T) {
	orig := NewPathAttributeCommunities([]uint32{0xFFFF0000, 0x00010002})
	wire, err := orig.Serialize()
	require.NoError(t, err)

	got := &PathAttributeCommunities{}
	require.NoError(t, got.DecodeFromBytes(wire))
	assert.Equal(t, []uint32{0xFFFF0000, 0x00010002}, got.Value)
}

func TestPathAttributeSerializeUsesExtendedLengthAboveThreshold(t *testing.T) {
	big := make([]uint32, 100) // 400 bytes > 255
	orig := NewPathAttributeCommunities(big)
	wire, err := orig.Serialize()
	require.NoError(t, err)

	assert.NotZero(t, wire[0]&FlagExtended)

	got := &PathAttributeCommunities{}
	require.NoError(t, got.DecodeFromBytes(wire))
	assert.Len(t, got.Value, 100)
}

func TestAtomicAggregateHasNoValue(t *testing.T) {
	orig := NewPathAttributeAtomicAggregate()
	wire, err := orig.Serialize()
	require.NoError(t, err)

	got := &PathAttributeAtomicAggregate{}
	require.NoError(t, got.DecodeFromBytes(wire))
	assert.Equal(t, 0, len(got.PathAttribute.Value))
}

func TestIsTransitiveReflectsFlags(t *testing.T) {
	assert.True(t, NewPathAttributeOrigin(OriginIGP).IsTransitive())
	assert.False(t, NewPathAttributeMultiExitDisc(0).IsTransitive())
}
