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
)

// AsPathSegment is one AS_SET or AS_SEQUENCE run within an AS_PATH.
// Is4B records the wire width the segment was decoded with (or is destined
// to be serialized with); ASNs are always widened to uint32 in memory.
type AsPathSegment struct {
	Type uint8
	ASNs []uint32
	Is4B bool
}

// Len returns the segment's contribution to AS_PATH length as counted by
// best-path selection: AS_SET counts as 1 regardless of member count,
// AS_SEQUENCE counts as its member count.
func (s AsPathSegment) Len() int {
	if s.Type == SegTypeSet {
		return 1
	}
	return len(s.ASNs)
}

func (s AsPathSegment) clone() AsPathSegment {
	asns := make([]uint32, len(s.ASNs))
	copy(asns, s.ASNs)
	return AsPathSegment{Type: s.Type, ASNs: asns, Is4B: s.Is4B}
}

func cloneSegments(segs []AsPathSegment) []AsPathSegment {
	out := make([]AsPathSegment, len(segs))
	for i, s := range segs {
		out[i] = s.clone()
	}
	return out
}

// PathLength sums segment lengths per the §4.5 counting rule.
func PathLength(segs []AsPathSegment) int {
	total := 0
	for _, s := range segs {
		total += s.Len()
	}
	return total
}

// ---- AS_PATH ----

type PathAttributeAsPath struct {
	PathAttribute
	Segments []AsPathSegment
	// Is4B tells DecodeFromBytes which wire width to expect; the caller
	// (the UPDATE parser, which knows the session's negotiated ASN width)
	// must set it before decoding since the wire format alone does not
	// self-describe the ASN width.
	Is4B bool
}

func NewPathAttributeAsPath(segments []AsPathSegment) *PathAttributeAsPath {
	return &PathAttributeAsPath{PathAttribute: newHeader(AttrASPath), Segments: segments}
}

func (p *PathAttributeAsPath) DecodeFromBytes(data []byte) error {
	if err := p.PathAttribute.DecodeFromBytes(data); err != nil {
		return err
	}
	v := p.PathAttribute.Value
	p.Segments = nil
	width := 2
	if p.Is4B {
		width = 4
	}
	for len(v) > 0 {
		if len(v) < 2 {
			return NewMessageError(ErrUpdateMessage, ErrSubMalformedASPath, nil, "AS_PATH segment header is short")
		}
		segType := v[0]
		if segType != SegTypeSet && segType != SegTypeSequence {
			return NewMessageError(ErrUpdateMessage, ErrSubMalformedASPath, nil, "unknown AS_PATH segment type")
		}
		num := int(v[1])
		v = v[2:]
		if len(v) < num*width {
			return NewMessageError(ErrUpdateMessage, ErrSubMalformedASPath, nil, "AS_PATH segment data is short")
		}
		asns := make([]uint32, num)
		for i := 0; i < num; i++ {
			if p.Is4B {
				asns[i] = binary.BigEndian.Uint32(v[i*4:])
			} else {
				asns[i] = uint32(binary.BigEndian.Uint16(v[i*2:]))
			}
		}
		p.Segments = append(p.Segments, AsPathSegment{Type: segType, ASNs: asns, Is4B: p.Is4B})
		v = v[num*width:]
	}
	return nil
}

func (p *PathAttributeAsPath) Serialize() ([]byte, error) {
	var buf []byte
	for _, s := range p.Segments {
		width := 2
		if s.Is4B {
			width = 4
		}
		seg := make([]byte, 2+len(s.ASNs)*width)
		seg[0] = s.Type
		seg[1] = uint8(len(s.ASNs))
		for i, as := range s.ASNs {
			if s.Is4B {
				binary.BigEndian.PutUint32(seg[2+i*4:], as)
			} else {
				binary.BigEndian.PutUint16(seg[2+i*2:], uint16(as))
			}
		}
		buf = append(buf, seg...)
	}
	return p.PathAttribute.Serialize(buf), nil
}

// ---- AS4_PATH ----
//
// Always 4-byte ASNs; carried alongside a 2-byte AS_PATH by a speaker that
// has not negotiated the 4-byte ASN capability with this peer (RFC 6793).

type PathAttributeAs4Path struct {
	PathAttribute
	Segments []AsPathSegment
}

func NewPathAttributeAs4Path(segments []AsPathSegment) *PathAttributeAs4Path {
	return &PathAttributeAs4Path{PathAttribute: newHeader(AttrAS4Path), Segments: segments}
}

func (p *PathAttributeAs4Path) DecodeFromBytes(data []byte) error {
	if err := p.PathAttribute.DecodeFromBytes(data); err != nil {
		return err
	}
	v := p.PathAttribute.Value
	p.Segments = nil
	for len(v) > 0 {
		if len(v) < 2 {
			return NewMessageError(ErrUpdateMessage, ErrSubMalformedASPath, nil, "AS4_PATH segment header is short")
		}
		segType := v[0]
		num := int(v[1])
		v = v[2:]
		if len(v) < num*4 {
			return NewMessageError(ErrUpdateMessage, ErrSubMalformedASPath, nil, "AS4_PATH segment data is short")
		}
		asns := make([]uint32, num)
		for i := 0; i < num; i++ {
			asns[i] = binary.BigEndian.Uint32(v[i*4:])
		}
		p.Segments = append(p.Segments, AsPathSegment{Type: segType, ASNs: asns, Is4B: true})
		v = v[num*4:]
	}
	return nil
}

func (p *PathAttributeAs4Path) Serialize() ([]byte, error) {
	var buf []byte
	for _, s := range p.Segments {
		seg := make([]byte, 2+len(s.ASNs)*4)
		seg[0] = s.Type
		seg[1] = uint8(len(s.ASNs))
		for i, as := range s.ASNs {
			binary.BigEndian.PutUint32(seg[2+i*4:], as)
		}
		buf = append(buf, seg...)
	}
	return p.PathAttribute.Serialize(buf), nil
}
