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
	"encoding/binary"
	"fmt"
)

// BGPUpdate is an UPDATE message body: withdrawn routes, path attributes,
// and newly-reachable NLRI (RFC 4271 §4.3).
type BGPUpdate struct {
	WithdrawnRoutes []Prefix4
	Attrs           []PathAttributeInterface
	NLRI            []Prefix4
}

func decodePrefixList(data []byte) ([]Prefix4, []byte, error) {
	var out []Prefix4
	for len(data) > 0 {
		length := data[0]
		if length > 32 {
			return nil, nil, NewMessageError(ErrUpdateMessage, ErrSubMalformedAttributeList, nil, "prefix length > 32")
		}
		nbytes := (int(length) + 7) / 8
		data = data[1:]
		if len(data) < nbytes {
			return nil, nil, NewMessageError(ErrUpdateMessage, ErrSubMalformedAttributeList, nil, "prefix bytes short")
		}
		var addr [4]byte
		copy(addr[:], data[:nbytes])
		out = append(out, NewPrefix4(binary.BigEndian.Uint32(addr[:]), length))
		data = data[nbytes:]
	}
	return out, data, nil
}

func serializePrefixList(prefixes []Prefix4) []byte {
	var buf []byte
	for _, p := range prefixes {
		nbytes := (int(p.Length) + 7) / 8
		var addr [4]byte
		binary.BigEndian.PutUint32(addr[:], p.Addr)
		buf = append(buf, p.Length)
		buf = append(buf, addr[:nbytes]...)
	}
	return buf
}

// DecodeFromBytes parses an UPDATE body. use4byte is the session's
// negotiated ASN width, required to interpret AS_PATH correctly: the wire
// encoding does not self-describe ASN width.
func (u *BGPUpdate) DecodeFromBytes(data []byte, use4byte bool) error {
	if len(data) < 2 {
		return NewMessageError(ErrUpdateMessage, ErrSubMalformedAttributeList, nil, "update body too short")
	}
	wlen := binary.BigEndian.Uint16(data[0:2])
	data = data[2:]
	if len(data) < int(wlen) {
		return NewMessageError(ErrUpdateMessage, ErrSubMalformedAttributeList, nil, "withdrawn routes length is short")
	}
	withdrawn, _, err := decodePrefixList(data[:wlen])
	if err != nil {
		return err
	}
	data = data[wlen:]

	if len(data) < 2 {
		return NewMessageError(ErrUpdateMessage, ErrSubMalformedAttributeList, nil, "update body too short")
	}
	alen := binary.BigEndian.Uint16(data[0:2])
	data = data[2:]
	if len(data) < int(alen) {
		return NewMessageError(ErrUpdateMessage, ErrSubMalformedAttributeList, nil, "attribute length is short")
	}
	attrData := data[:alen]
	data = data[alen:]

	seen := map[BGPAttrType]bool{}
	var attrs []PathAttributeInterface
	for len(attrData) > 0 {
		attr, err := decodeOneAttr(attrData, use4byte)
		if err != nil {
			return err
		}
		if seen[attr.TypeCode()] {
			return NewMessageError(ErrUpdateMessage, ErrSubMalformedAttributeList, nil, fmt.Sprintf("attribute type %d appears more than once", attr.TypeCode()))
		}
		seen[attr.TypeCode()] = true
		attrs = append(attrs, attr)
		attrData = attrData[attr.Len():]
	}

	nlri, _, err := decodePrefixList(data)
	if err != nil {
		return err
	}

	u.WithdrawnRoutes = withdrawn
	u.Attrs = attrs
	u.NLRI = nlri
	return u.Validate()
}

// Validate enforces the mandatory-attribute invariant of RFC 4271 §4.3:
// ORIGIN, AS_PATH and NEXT_HOP must be present whenever NLRI is. Attribute
// uniqueness is not checked here; DecodeFromBytes and AddAttr enforce it.
func (u *BGPUpdate) Validate() error {
	if len(u.NLRI) == 0 {
		return nil
	}
	for _, t := range []BGPAttrType{AttrOrigin, AttrASPath, AttrNextHop} {
		if !u.HasAttr(t) {
			return NewMessageError(ErrUpdateMessage, ErrSubMissingWellKnownAttr, []byte{byte(t)}, fmt.Sprintf("missing mandatory attribute %d", t))
		}
	}
	return nil
}

// Serialize emits withdrawn routes, then attributes in canonical ascending
// type-code order, then NLRI.
func (u *BGPUpdate) Serialize() ([]byte, error) {
	wbuf := serializePrefixList(u.WithdrawnRoutes)

	ordered := make([]PathAttributeInterface, len(u.Attrs))
	copy(ordered, u.Attrs)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j-1].TypeCode() > ordered[j].TypeCode(); j-- {
			ordered[j-1], ordered[j] = ordered[j], ordered[j-1]
		}
	}
	var abuf []byte
	for _, a := range ordered {
		b, err := a.Serialize()
		if err != nil {
			return nil, err
		}
		abuf = append(abuf, b...)
	}

	nbuf := serializePrefixList(u.NLRI)

	buf := make([]byte, 0, 4+len(wbuf)+len(abuf)+len(nbuf))
	tmp := make([]byte, 2)
	binary.BigEndian.PutUint16(tmp, uint16(len(wbuf)))
	buf = append(buf, tmp...)
	buf = append(buf, wbuf...)
	binary.BigEndian.PutUint16(tmp, uint16(len(abuf)))
	buf = append(buf, tmp...)
	buf = append(buf, abuf...)
	buf = append(buf, nbuf...)
	return buf, nil
}

// NewBGPUpdateMessage wraps an UPDATE body in a BGPMessage envelope.
func NewBGPUpdateMessage(withdrawn []Prefix4, attrs []PathAttributeInterface, nlri []Prefix4) *BGPMessage {
	return &BGPMessage{
		Header: Header{Type: MsgUpdate},
		Body:   &BGPUpdate{WithdrawnRoutes: withdrawn, Attrs: attrs, NLRI: nlri},
	}
}

// ---- attribute-list operations ----

// GetAttr returns the attribute of the given type, or nil if absent.
func (u *BGPUpdate) GetAttr(t BGPAttrType) PathAttributeInterface {
	for _, a := range u.Attrs {
		if a.TypeCode() == t {
			return a
		}
	}
	return nil
}

func (u *BGPUpdate) HasAttr(t BGPAttrType) bool {
	return u.GetAttr(t) != nil
}

// AddAttr appends attr, rejecting a duplicate type code.
func (u *BGPUpdate) AddAttr(attr PathAttributeInterface) error {
	if u.HasAttr(attr.TypeCode()) {
		return fmt.Errorf("attribute type %d already present", attr.TypeCode())
	}
	u.Attrs = append(u.Attrs, attr)
	return nil
}

// SetAttrs replaces the whole attribute list.
func (u *BGPUpdate) SetAttrs(attrs []PathAttributeInterface) {
	u.Attrs = attrs
}

// DropAttr removes the attribute of the given type, if present.
func (u *BGPUpdate) DropAttr(t BGPAttrType) {
	out := u.Attrs[:0]
	for _, a := range u.Attrs {
		if a.TypeCode() != t {
			out = append(out, a)
		}
	}
	u.Attrs = out
}

// UpdateAttr drops any existing attribute of attr's type, then adds attr.
func (u *BGPUpdate) UpdateAttr(attr PathAttributeInterface) {
	u.DropAttr(attr.TypeCode())
	u.Attrs = append(u.Attrs, attr)
}

// SetNextHop overwrites NEXT_HOP via UpdateAttr.
func (u *BGPUpdate) SetNextHop(addr uint32) {
	u.UpdateAttr(NewPathAttributeNextHop(addr))
}

// DropNonTransitive removes every attribute whose transitive flag is
// false, called before re-advertising to an EBGP peer.
func (u *BGPUpdate) DropNonTransitive() {
	out := u.Attrs[:0]
	for _, a := range u.Attrs {
		if a.IsTransitive() {
			out = append(out, a)
		}
	}
	u.Attrs = out
}

// CloneAttrs deep-copies the mutable parts of an attribute list so that
// AS_PATH transforms on an outbound copy never mutate a RIB entry's shared,
// copy-on-write attribute handle.
func CloneAttrs(attrs []PathAttributeInterface) []PathAttributeInterface {
	out := make([]PathAttributeInterface, len(attrs))
	for i, a := range attrs {
		switch v := a.(type) {
		case *PathAttributeAsPath:
			cp := *v
			cp.Segments = cloneSegments(v.Segments)
			out[i] = &cp
		case *PathAttributeAs4Path:
			cp := *v
			cp.Segments = cloneSegments(v.Segments)
			out[i] = &cp
		case *PathAttributeCommunities:
			cp := *v
			cp.Value = append([]uint32(nil), v.Value...)
			out[i] = &cp
		case *PathAttributeClusterList:
			cp := *v
			cp.Value = append([]uint32(nil), v.Value...)
			out[i] = &cp
		case *PathAttributeOrigin:
			cp := *v
			out[i] = &cp
		case *PathAttributeNextHop:
			cp := *v
			out[i] = &cp
		case *PathAttributeMultiExitDisc:
			cp := *v
			out[i] = &cp
		case *PathAttributeLocalPref:
			cp := *v
			out[i] = &cp
		case *PathAttributeAtomicAggregate:
			cp := *v
			out[i] = &cp
		case *PathAttributeAggregator:
			cp := *v
			out[i] = &cp
		case *PathAttributeOriginatorID:
			cp := *v
			out[i] = &cp
		default:
			out[i] = a
		}
	}
	return out
}

// Clone returns an UPDATE with a deep-copied attribute list, used before
// mutating an outbound copy in preparation for a peer.
func (u *BGPUpdate) Clone() *BGPUpdate {
	return &BGPUpdate{
		WithdrawnRoutes: append([]Prefix4(nil), u.WithdrawnRoutes...),
		Attrs:           CloneAttrs(u.Attrs),
		NLRI:            append([]Prefix4(nil), u.NLRI...),
	}
}

// ---- AS_PATH semantic operations ----

func prependInto(segs []AsPathSegment, asn uint32, is4b bool) []AsPathSegment {
	if len(segs) > 0 && segs[0].Type == SegTypeSequence && len(segs[0].ASNs) < 255 {
		segs[0].ASNs = append([]uint32{asn}, segs[0].ASNs...)
		return segs
	}
	newSeg := AsPathSegment{Type: SegTypeSequence, ASNs: []uint32{asn}, Is4B: is4b}
	return append([]AsPathSegment{newSeg}, segs...)
}

// Prepend inserts the local ASN at the front of AS_PATH, following the
// 2-byte/4-byte mode rules of RFC 6793 exactly.
func (u *BGPUpdate) Prepend(asn uint32, use4b bool) error {
	as4, hasAS4 := u.GetAttr(AttrAS4Path).(*PathAttributeAs4Path)
	asPathAttr, hasASPath := u.GetAttr(AttrASPath).(*PathAttributeAsPath)

	if use4b {
		if hasAS4 {
			return fmt.Errorf("prepend: AS4_PATH present, call RestoreAsPath first")
		}
		if !hasASPath {
			u.UpdateAttr(NewPathAttributeAsPath([]AsPathSegment{{Type: SegTypeSequence, ASNs: []uint32{asn}, Is4B: true}}))
			return nil
		}
		if len(asPathAttr.Segments) > 0 && !asPathAttr.Segments[0].Is4B {
			return fmt.Errorf("prepend: AS_PATH is 2-byte, call RestoreAsPath first")
		}
		asPathAttr.Segments = prependInto(asPathAttr.Segments, asn, true)
		u.UpdateAttr(asPathAttr)
		return nil
	}

	if hasASPath && len(asPathAttr.Segments) > 0 && asPathAttr.Segments[0].Is4B {
		return fmt.Errorf("prepend: AS_PATH is 4-byte, expected 2-byte peer path")
	}
	prepAsn := asn
	if asn >= 0xFFFF {
		prepAsn = AsTrans
	}
	if !hasASPath {
		u.UpdateAttr(NewPathAttributeAsPath([]AsPathSegment{{Type: SegTypeSequence, ASNs: []uint32{prepAsn}, Is4B: false}}))
	} else {
		asPathAttr.Segments = prependInto(asPathAttr.Segments, prepAsn, false)
		u.UpdateAttr(asPathAttr)
	}
	if hasAS4 {
		as4.Segments = prependInto(as4.Segments, asn, true)
		u.UpdateAttr(as4)
	}
	return nil
}

// RestoreAsPath reconstructs a 4-byte AS_PATH from a 2-byte AS_PATH plus an
// optional AS4_PATH, per RFC 6793 §4.2.3's trailing-suffix overlay.
func (u *BGPUpdate) RestoreAsPath() error {
	asPathAttr, hasASPath := u.GetAttr(AttrASPath).(*PathAttributeAsPath)
	if !hasASPath {
		return nil
	}
	if len(asPathAttr.Segments) > 0 && asPathAttr.Segments[0].Is4B {
		return fmt.Errorf("restoreAsPath: AS_PATH is already 4-byte")
	}
	segs := cloneSegments(asPathAttr.Segments)

	as4, hasAS4 := u.GetAttr(AttrAS4Path).(*PathAttributeAs4Path)
	if !hasAS4 {
		for i := range segs {
			segs[i].Is4B = true
		}
		asPathAttr.Segments = segs
		u.UpdateAttr(asPathAttr)
		return nil
	}

	var overlay []uint32
	for _, s := range as4.Segments {
		if s.Type == SegTypeSequence {
			overlay = append(overlay, s.ASNs...)
		}
	}

	total := 0
	for _, s := range segs {
		total += len(s.ASNs)
	}
	if len(overlay) <= total {
		oi := len(overlay)
		for i := len(segs) - 1; i >= 0 && oi > 0; i-- {
			if segs[i].Type != SegTypeSequence {
				break
			}
			n := len(segs[i].ASNs)
			if n > oi {
				n = oi
			}
			src := overlay[oi-n : oi]
			dstStart := len(segs[i].ASNs) - n
			copy(segs[i].ASNs[dstStart:], src)
			oi -= n
		}
	}
	for i := range segs {
		segs[i].Is4B = true
	}
	asPathAttr.Segments = segs
	u.UpdateAttr(asPathAttr)
	u.DropAttr(AttrAS4Path)
	return nil
}

// DowngradeAsPath rewrites a 4-byte AS_PATH into a 2-byte AS_PATH plus a
// shadow AS4_PATH, substituting AS_TRANS for ASNs >= 0xFFFF.
func (u *BGPUpdate) DowngradeAsPath() error {
	asPathAttr, hasASPath := u.GetAttr(AttrASPath).(*PathAttributeAsPath)
	if !hasASPath {
		return nil
	}
	if len(asPathAttr.Segments) > 0 && !asPathAttr.Segments[0].Is4B {
		return fmt.Errorf("downgradeAsPath: AS_PATH is already 2-byte")
	}
	as4Segs := cloneSegments(asPathAttr.Segments)
	twoBSegs := make([]AsPathSegment, len(asPathAttr.Segments))
	for i, s := range asPathAttr.Segments {
		asns := make([]uint32, len(s.ASNs))
		for j, a := range s.ASNs {
			if a >= 0xFFFF {
				asns[j] = AsTrans
			} else {
				asns[j] = a
			}
		}
		twoBSegs[i] = AsPathSegment{Type: s.Type, ASNs: asns, Is4B: false}
	}
	u.UpdateAttr(NewPathAttributeAsPath(twoBSegs))
	u.UpdateAttr(NewPathAttributeAs4Path(as4Segs))
	return nil
}
