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

// Path attributes are modeled as a tagged sum: PathAttributeInterface is
// implemented by one concrete struct per attribute type, each embedding the
// common PathAttribute header. Callers that need a specific variant do a
// type switch or GetAttr+type-assert; there is no dynamic downcast.
package bgp

import (
	"encoding/binary"
	"fmt"
)

// PathAttributeInterface is implemented by every path attribute variant.
type PathAttributeInterface interface {
	DecodeFromBytes([]byte) error
	Serialize() ([]byte, error)
	Len() int
	Flags() uint8
	TypeCode() BGPAttrType
	IsTransitive() bool
}

// PathAttribute is the shared TLV header every variant embeds.
type PathAttribute struct {
	flags  uint8
	Type   BGPAttrType
	Length uint16
	Value  []byte
}

func (p *PathAttribute) Len() int {
	l := 2 + int(p.Length)
	if p.flags&FlagExtended != 0 {
		l += 2
	} else {
		l++
	}
	return l
}

func (p *PathAttribute) Flags() uint8       { return p.flags }
func (p *PathAttribute) TypeCode() BGPAttrType { return p.Type }
func (p *PathAttribute) IsTransitive() bool { return p.flags&FlagTransitive != 0 }

func (p *PathAttribute) DecodeFromBytes(data []byte) error {
	if len(data) < 2 {
		return NewMessageError(ErrUpdateMessage, ErrSubAttributeLengthError, data, "attribute header length is short")
	}
	p.flags = data[0]
	p.Type = BGPAttrType(data[1])
	if p.flags&FlagExtended != 0 {
		if len(data) < 4 {
			return NewMessageError(ErrUpdateMessage, ErrSubAttributeLengthError, data, "attribute header length is short")
		}
		p.Length = binary.BigEndian.Uint16(data[2:4])
		data = data[4:]
	} else {
		if len(data) < 3 {
			return NewMessageError(ErrUpdateMessage, ErrSubAttributeLengthError, data, "attribute header length is short")
		}
		p.Length = uint16(data[2])
		data = data[3:]
	}
	if len(data) < int(p.Length) {
		return NewMessageError(ErrUpdateMessage, ErrSubAttributeLengthError, data, "attribute value length is short")
	}
	p.Value = data[:p.Length]
	return nil
}

func (p *PathAttribute) Serialize(value []byte) []byte {
	p.Value = value
	p.Length = uint16(len(value))
	if p.Length > 255 {
		p.flags |= FlagExtended
	} else {
		p.flags &^= FlagExtended
	}
	buf := make([]byte, p.Len())
	buf[0] = p.flags
	buf[1] = uint8(p.Type)
	if p.flags&FlagExtended != 0 {
		binary.BigEndian.PutUint16(buf[2:4], p.Length)
		copy(buf[4:], value)
	} else {
		buf[2] = byte(p.Length)
		copy(buf[3:], value)
	}
	return buf
}

func newHeader(t BGPAttrType) PathAttribute {
	return PathAttribute{flags: defaultFlags[t], Type: t}
}

// ---- ORIGIN ----

type PathAttributeOrigin struct {
	PathAttribute
	Value Origin
}

func NewPathAttributeOrigin(value Origin) *PathAttributeOrigin {
	return &PathAttributeOrigin{PathAttribute: newHeader(AttrOrigin), Value: value}
}

func (p *PathAttributeOrigin) DecodeFromBytes(data []byte) error {
	if err := p.PathAttribute.DecodeFromBytes(data); err != nil {
		return err
	}
	if len(p.PathAttribute.Value) != 1 {
		return NewMessageError(ErrUpdateMessage, ErrSubInvalidOriginAttr, nil, "origin length isn't correct")
	}
	p.Value = Origin(p.PathAttribute.Value[0])
	return nil
}

func (p *PathAttributeOrigin) Serialize() ([]byte, error) {
	return p.PathAttribute.Serialize([]byte{byte(p.Value)}), nil
}

// ---- NEXT_HOP ----

type PathAttributeNextHop struct {
	PathAttribute
	Value uint32
}

func NewPathAttributeNextHop(value uint32) *PathAttributeNextHop {
	return &PathAttributeNextHop{PathAttribute: newHeader(AttrNextHop), Value: value}
}

func (p *PathAttributeNextHop) DecodeFromBytes(data []byte) error {
	if err := p.PathAttribute.DecodeFromBytes(data); err != nil {
		return err
	}
	if len(p.PathAttribute.Value) != 4 {
		return NewMessageError(ErrUpdateMessage, ErrSubInvalidNextHopAttr, nil, "nexthop length isn't correct")
	}
	p.Value = binary.BigEndian.Uint32(p.PathAttribute.Value)
	return nil
}

func (p *PathAttributeNextHop) Serialize() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, p.Value)
	return p.PathAttribute.Serialize(buf), nil
}

// ---- MULTI_EXIT_DISC ----

type PathAttributeMultiExitDisc struct {
	PathAttribute
	Value uint32
}

func NewPathAttributeMultiExitDisc(value uint32) *PathAttributeMultiExitDisc {
	return &PathAttributeMultiExitDisc{PathAttribute: newHeader(AttrMultiExitDisc), Value: value}
}

func (p *PathAttributeMultiExitDisc) DecodeFromBytes(data []byte) error {
	if err := p.PathAttribute.DecodeFromBytes(data); err != nil {
		return err
	}
	if len(p.PathAttribute.Value) != 4 {
		return NewMessageError(ErrUpdateMessage, ErrSubAttributeLengthError, nil, "med length isn't correct")
	}
	p.Value = binary.BigEndian.Uint32(p.PathAttribute.Value)
	return nil
}

func (p *PathAttributeMultiExitDisc) Serialize() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, p.Value)
	return p.PathAttribute.Serialize(buf), nil
}

// ---- LOCAL_PREF ----

type PathAttributeLocalPref struct {
	PathAttribute
	Value uint32
}

func NewPathAttributeLocalPref(value uint32) *PathAttributeLocalPref {
	return &PathAttributeLocalPref{PathAttribute: newHeader(AttrLocalPref), Value: value}
}

func (p *PathAttributeLocalPref) DecodeFromBytes(data []byte) error {
	if err := p.PathAttribute.DecodeFromBytes(data); err != nil {
		return err
	}
	if len(p.PathAttribute.Value) != 4 {
		return NewMessageError(ErrUpdateMessage, ErrSubAttributeLengthError, nil, "local pref length isn't correct")
	}
	p.Value = binary.BigEndian.Uint32(p.PathAttribute.Value)
	return nil
}

func (p *PathAttributeLocalPref) Serialize() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, p.Value)
	return p.PathAttribute.Serialize(buf), nil
}

// ---- ATOMIC_AGGREGATE ----

type PathAttributeAtomicAggregate struct {
	PathAttribute
}

func NewPathAttributeAtomicAggregate() *PathAttributeAtomicAggregate {
	return &PathAttributeAtomicAggregate{PathAttribute: newHeader(AttrAtomicAggregate)}
}

func (p *PathAttributeAtomicAggregate) DecodeFromBytes(data []byte) error {
	return p.PathAttribute.DecodeFromBytes(data)
}

func (p *PathAttributeAtomicAggregate) Serialize() ([]byte, error) {
	return p.PathAttribute.Serialize(nil), nil
}

// ---- AGGREGATOR / AS4_AGGREGATOR ----
//
// One struct serves both AttrAggregator (2-byte ASN) and AttrAS4Aggregator
// (4-byte ASN); the wire width is selected by Type, matching how the FSM's
// negotiated ASN width decides which of the two gets emitted.

type PathAttributeAggregator struct {
	PathAttribute
	AS      uint32
	Address uint32
}

func NewPathAttributeAggregator(as uint32, address uint32, fourByte bool) *PathAttributeAggregator {
	t := AttrAggregator
	if fourByte {
		t = AttrAS4Aggregator
	}
	return &PathAttributeAggregator{PathAttribute: newHeader(t), AS: as, Address: address}
}

func (p *PathAttributeAggregator) DecodeFromBytes(data []byte) error {
	if err := p.PathAttribute.DecodeFromBytes(data); err != nil {
		return err
	}
	v := p.PathAttribute.Value
	switch len(v) {
	case 6:
		p.AS = uint32(binary.BigEndian.Uint16(v[0:2]))
		p.Address = binary.BigEndian.Uint32(v[2:6])
	case 8:
		p.AS = binary.BigEndian.Uint32(v[0:4])
		p.Address = binary.BigEndian.Uint32(v[4:8])
	default:
		return NewMessageError(ErrUpdateMessage, ErrSubAttributeLengthError, nil, "aggregator length isn't correct")
	}
	return nil
}

func (p *PathAttributeAggregator) Serialize() ([]byte, error) {
	var buf []byte
	if p.Type == AttrAS4Aggregator {
		buf = make([]byte, 8)
		binary.BigEndian.PutUint32(buf[0:4], p.AS)
		binary.BigEndian.PutUint32(buf[4:8], p.Address)
	} else {
		buf = make([]byte, 6)
		binary.BigEndian.PutUint16(buf[0:2], uint16(p.AS))
		binary.BigEndian.PutUint32(buf[2:6], p.Address)
	}
	return p.PathAttribute.Serialize(buf), nil
}

// ---- COMMUNITY ----

type PathAttributeCommunities struct {
	PathAttribute
	Value []uint32
}

func NewPathAttributeCommunities(value []uint32) *PathAttributeCommunities {
	return &PathAttributeCommunities{PathAttribute: newHeader(AttrCommunity), Value: value}
}

func (p *PathAttributeCommunities) DecodeFromBytes(data []byte) error {
	if err := p.PathAttribute.DecodeFromBytes(data); err != nil {
		return err
	}
	v := p.PathAttribute.Value
	if len(v)%4 != 0 {
		return NewMessageError(ErrUpdateMessage, ErrSubAttributeLengthError, nil, "communities length isn't correct")
	}
	p.Value = nil
	for len(v) > 0 {
		p.Value = append(p.Value, binary.BigEndian.Uint32(v[:4]))
		v = v[4:]
	}
	return nil
}

func (p *PathAttributeCommunities) Serialize() ([]byte, error) {
	buf := make([]byte, len(p.Value)*4)
	for i, c := range p.Value {
		binary.BigEndian.PutUint32(buf[i*4:], c)
	}
	return p.PathAttribute.Serialize(buf), nil
}

// ---- ORIGINATOR_ID / CLUSTER_LIST ----
//
// Carried opaquely: this module has no route-reflection role, so these are
// parsed/serialized for wire fidelity when relaying but never inspected for
// policy.

type PathAttributeOriginatorID struct {
	PathAttribute
	Value uint32
}

func (p *PathAttributeOriginatorID) DecodeFromBytes(data []byte) error {
	if err := p.PathAttribute.DecodeFromBytes(data); err != nil {
		return err
	}
	if len(p.PathAttribute.Value) != 4 {
		return NewMessageError(ErrUpdateMessage, ErrSubAttributeLengthError, nil, "originator id length isn't correct")
	}
	p.Value = binary.BigEndian.Uint32(p.PathAttribute.Value)
	return nil
}

func (p *PathAttributeOriginatorID) Serialize() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, p.Value)
	return p.PathAttribute.Serialize(buf), nil
}

type PathAttributeClusterList struct {
	PathAttribute
	Value []uint32
}

func (p *PathAttributeClusterList) DecodeFromBytes(data []byte) error {
	if err := p.PathAttribute.DecodeFromBytes(data); err != nil {
		return err
	}
	v := p.PathAttribute.Value
	if len(v)%4 != 0 {
		return NewMessageError(ErrUpdateMessage, ErrSubAttributeLengthError, nil, "cluster list length isn't correct")
	}
	p.Value = nil
	for len(v) > 0 {
		p.Value = append(p.Value, binary.BigEndian.Uint32(v[:4]))
		v = v[4:]
	}
	return nil
}

func (p *PathAttributeClusterList) Serialize() ([]byte, error) {
	buf := make([]byte, len(p.Value)*4)
	for i, c := range p.Value {
		binary.BigEndian.PutUint32(buf[i*4:], c)
	}
	return p.PathAttribute.Serialize(buf), nil
}

// decodeOneAttr constructs the correctly-typed variant for a given type
// code and decodes it, used by the UPDATE attribute-list parser (RFC 4271
// §4.3). use4byte carries the session's negotiated ASN width, needed only
// by AS_PATH since its wire encoding does not self-describe ASN width.
func decodeOneAttr(data []byte, use4byte bool) (PathAttributeInterface, error) {
	if len(data) < 2 {
		return nil, NewMessageError(ErrUpdateMessage, ErrSubAttributeLengthError, data, "attribute header length is short")
	}
	typ := BGPAttrType(data[1])
	var attr PathAttributeInterface
	switch typ {
	case AttrOrigin:
		attr = &PathAttributeOrigin{}
	case AttrASPath:
		attr = &PathAttributeAsPath{Is4B: use4byte}
	case AttrNextHop:
		attr = &PathAttributeNextHop{}
	case AttrMultiExitDisc:
		attr = &PathAttributeMultiExitDisc{}
	case AttrLocalPref:
		attr = &PathAttributeLocalPref{}
	case AttrAtomicAggregate:
		attr = &PathAttributeAtomicAggregate{}
	case AttrAggregator, AttrAS4Aggregator:
		attr = &PathAttributeAggregator{}
	case AttrCommunity:
		attr = &PathAttributeCommunities{}
	case AttrOriginatorID:
		attr = &PathAttributeOriginatorID{}
	case AttrClusterList:
		attr = &PathAttributeClusterList{}
	case AttrAS4Path:
		attr = &PathAttributeAs4Path{}
	default:
		return nil, NewMessageError(ErrUpdateMessage, ErrSubUnrecognizedWellKnownAttr, data, fmt.Sprintf("unknown attribute type %d", typ))
	}
	if err := attr.DecodeFromBytes(data); err != nil {
		return nil, err
	}
	return attr, nil
}
