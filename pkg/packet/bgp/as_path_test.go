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

func TestAsPathSegmentLenCountsSetAsOne(t *testing.T) {
	set := AsPathSegment{Type: SegTypeSet, ASNs: []uint32{65001, 65002, 65003}}
	assert.Equal(t, 1, set.Len())

	seq := AsPathSegment{Type: SegTypeSequence, ASNs: []uint32{65001, 65002, 65003}}
	assert.Equal(t, 3, seq.Len())
}

func TestPathLengthSumsAcrossMixedSegments(t *testing.T) {
	segs := []AsPathSegment{
		{Type: SegTypeSequence, ASNs: []uint32{1, 2}},
		{Type: SegTypeSet, ASNs: []uint32{3, 4, 5}},
		{Type: SegTypeSequence, ASNs: []uint32{6}},
	}
	assert.Equal(t, 4, PathLength(segs))
}

func TestASPath4ByteSerializeDecodeRoundTrip(t *testing.T) {
	orig := NewPathAttributeAsPath([]AsPathSegment{
		{Type: SegTypeSequence, ASNs: []uint32{65001, 4200000000}, Is4B: true},
		{Type: SegTypeSet, ASNs: []uint32{65010, 65011}, Is4B: true},
	})
	wire, err := orig.Serialize()
	require.NoError(t, err)

	got := &PathAttributeAsPath{Is4B: true}
	require.NoError(t, got.DecodeFromBytes(wire))
	require.Len(t, got.Segments, 2)
	assert.Equal(t, []uint32{65001, 4200000000}, got.Segments[0].ASNs)
	assert.Equal(t, SegTypeSet, got.Segments[1].Type)
}

func TestASPath2ByteSerializeDecodeRoundTrip(t *testing.T) {
	orig := NewPathAttributeAsPath([]AsPathSegment{
		{Type: SegTypeSequence, ASNs: []uint32{65001, AsTrans}, Is4B: false},
	})
	wire, err := orig.Serialize()
	require.NoError(t, err)

	got := &PathAttributeAsPath{Is4B: false}
	require.NoError(t, got.DecodeFromBytes(wire))
	require.Len(t, got.Segments, 1)
	assert.Equal(t, []uint32{65001, AsTrans}, got.Segments[0].ASNs)
	assert.False(t, got.Segments[0].Is4B)
}

func TestAS4PathSerializeDecodeRoundTrip(t *testing.T) {
	orig := NewPathAttributeAs4Path([]AsPathSegment{
		{Type: SegTypeSequence, ASNs: []uint32{4200000000, 65001}},
	})
	wire, err := orig.Serialize()
	require.NoError(t, err)

	got := &PathAttributeAs4Path{}
	require.NoError(t, got.DecodeFromBytes(wire))
	require.Len(t, got.Segments, 1)
	assert.Equal(t, []uint32{4200000000, 65001}, got.Segments[0].ASNs)
	assert.True(t, got.Segments[0].Is4B)
}
