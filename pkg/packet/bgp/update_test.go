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

func TestUpdateSerializeDecodeRoundTrip(t *testing.T) {
	orig := &BGPUpdate{
		WithdrawnRoutes: []Prefix4{NewPrefix4(0x0A000000, 24)},
		Attrs: []PathAttributeInterface{
			NewPathAttributeOrigin(OriginIGP),
			NewPathAttributeAsPath([]AsPathSegment{{Type: SegTypeSequence, ASNs: []uint32{65001, 65002}, Is4B: true}}),
			NewPathAttributeNextHop(0xC0A80001),
			NewPathAttributeMultiExitDisc(10),
			NewPathAttributeLocalPref(100),
		},
		NLRI: []Prefix4{NewPrefix4(0x0B000000, 16)},
	}

	wire, err := orig.Serialize()
	require.NoError(t, err)

	got := &BGPUpdate{}
	require.NoError(t, got.DecodeFromBytes(wire, true))

	assert.Equal(t, orig.WithdrawnRoutes, got.WithdrawnRoutes)
	assert.Equal(t, orig.NLRI, got.NLRI)
	require.Len(t, got.Attrs, len(orig.Attrs))

	nh, ok := got.GetAttr(AttrNextHop).(*PathAttributeNextHop)
	require.True(t, ok)
	assert.Equal(t, uint32(0xC0A80001), nh.Value)

	asPath, ok := got.GetAttr(AttrASPath).(*PathAttributeAsPath)
	require.True(t, ok)
	require.Len(t, asPath.Segments, 1)
	assert.Equal(t, []uint32{65001, 65002}, asPath.Segments[0].ASNs)
}

func TestUpdateValidateRequiresMandatoryAttrsWhenNLRIPresent(t *testing.T) {
	u := &BGPUpdate{NLRI: []Prefix4{NewPrefix4(0x0A000000, 24)}}
	assert.Error(t, u.Validate())

	u.Attrs = []PathAttributeInterface{
		NewPathAttributeOrigin(OriginIGP),
		NewPathAttributeAsPath(nil),
		NewPathAttributeNextHop(0x0A000001),
	}
	assert.NoError(t, u.Validate())
}

func TestUpdateValidateSkipsPureWithdrawal(t *testing.T) {
	u := &BGPUpdate{WithdrawnRoutes: []Prefix4{NewPrefix4(0x0A000000, 24)}}
	assert.NoError(t, u.Validate())
}

func TestUpdateSerializeOrdersAttributesByTypeCode(t *testing.T) {
	u := &BGPUpdate{
		Attrs: []PathAttributeInterface{
			NewPathAttributeLocalPref(100),
			NewPathAttributeOrigin(OriginIGP),
			NewPathAttributeNextHop(0x0A000001),
		},
	}
	wire, err := u.Serialize()
	require.NoError(t, err)

	got := &BGPUpdate{}
	require.NoError(t, got.DecodeFromBytes(wire, true))
	require.Len(t, got.Attrs, 3)
	assert.Equal(t, AttrOrigin, got.Attrs[0].TypeCode())
	assert.Equal(t, AttrNextHop, got.Attrs[1].TypeCode())
	assert.Equal(t, AttrLocalPref, got.Attrs[2].TypeCode())
}

func TestUpdateDecodeRejectsDuplicateAttribute(t *testing.T) {
	one, err := NewPathAttributeOrigin(OriginIGP).Serialize()
	require.NoError(t, err)
	two, err := NewPathAttributeOrigin(OriginEGP).Serialize()
	require.NoError(t, err)
	attrData := append(one, two...)

	buf := make([]byte, 0)
	buf = append(buf, 0, 0) // no withdrawn routes
	buf = append(buf, byte(len(attrData)>>8), byte(len(attrData)))
	buf = append(buf, attrData...)

	u := &BGPUpdate{}
	assert.Error(t, u.DecodeFromBytes(buf, true))
}

func TestPrependGrowsExistingSequenceInPlace(t *testing.T) {
	u := &BGPUpdate{Attrs: []PathAttributeInterface{
		NewPathAttributeAsPath([]AsPathSegment{{Type: SegTypeSequence, ASNs: []uint32{65002}, Is4B: true}}),
	}}
	before := PathLength(u.GetAttr(AttrASPath).(*PathAttributeAsPath).Segments)
	require.NoError(t, u.Prepend(65001, true))
	after := PathLength(u.GetAttr(AttrASPath).(*PathAttributeAsPath).Segments)

	assert.Equal(t, before+1, after)
	segs := u.GetAttr(AttrASPath).(*PathAttributeAsPath).Segments
	assert.Equal(t, []uint32{65001, 65002}, segs[0].ASNs)
}

func TestPrependSubstitutesAsTransFor2ByteOverflow(t *testing.T) {
	u := &BGPUpdate{}
	require.NoError(t, u.Prepend(700000, false))
	segs := u.GetAttr(AttrASPath).(*PathAttributeAsPath).Segments
	assert.Equal(t, []uint32{AsTrans}, segs[0].ASNs)

	as4 := u.GetAttr(AttrAS4Path)
	assert.Nil(t, as4, "AS4_PATH only accompanies a prepend when one already existed")
}

func TestDowngradeThenRestoreRecoversOriginalASPath(t *testing.T) {
	u := &BGPUpdate{Attrs: []PathAttributeInterface{
		NewPathAttributeAsPath([]AsPathSegment{{Type: SegTypeSequence, ASNs: []uint32{65001, 700000, 65003}, Is4B: true}}),
	}}
	require.NoError(t, u.DowngradeAsPath())

	twoB := u.GetAttr(AttrASPath).(*PathAttributeAsPath)
	assert.False(t, twoB.Segments[0].Is4B)
	assert.Equal(t, []uint32{65001, AsTrans, 65003}, twoB.Segments[0].ASNs)
	require.True(t, u.HasAttr(AttrAS4Path))

	require.NoError(t, u.RestoreAsPath())
	restored := u.GetAttr(AttrASPath).(*PathAttributeAsPath)
	assert.True(t, restored.Segments[0].Is4B)
	assert.Equal(t, []uint32{65001, 700000, 65003}, restored.Segments[0].ASNs)
	assert.False(t, u.HasAttr(AttrAS4Path))
}

func TestRestoreAsPathWithNoAS4PathJustWidens(t *testing.T) {
	u := &BGPUpdate{Attrs: []PathAttributeInterface{
		NewPathAttributeAsPath([]AsPathSegment{{Type: SegTypeSequence, ASNs: []uint32{65001, 65002}, Is4B: false}}),
	}}
	require.NoError(t, u.RestoreAsPath())
	restored := u.GetAttr(AttrASPath).(*PathAttributeAsPath)
	assert.True(t, restored.Segments[0].Is4B)
	assert.Equal(t, []uint32{65001, 65002}, restored.Segments[0].ASNs)
}

func TestCloneAttrsIsIndependentOfSource(t *testing.T) {
	orig := []PathAttributeInterface{
		NewPathAttributeAsPath([]AsPathSegment{{Type: SegTypeSequence, ASNs: []uint32{65001}, Is4B: true}}),
	}
	cloned := CloneAttrs(orig)
	clonedAsPath := cloned[0].(*PathAttributeAsPath)
	clonedAsPath.Segments[0].ASNs[0] = 65099

	origAsPath := orig[0].(*PathAttributeAsPath)
	assert.Equal(t, uint32(65001), origAsPath.Segments[0].ASNs[0])
}

func TestDropNonTransitiveRemovesMED(t *testing.T) {
	u := &BGPUpdate{Attrs: []PathAttributeInterface{
		NewPathAttributeOrigin(OriginIGP),
		NewPathAttributeMultiExitDisc(10),
	}}
	u.DropNonTransitive()
	assert.True(t, u.HasAttr(AttrOrigin))
	assert.False(t, u.HasAttr(AttrMultiExitDisc))
}
