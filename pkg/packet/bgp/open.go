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

import "encoding/binary"

const optParamCapability uint8 = 2

// BGPOpen is the OPEN message body (RFC 4271 §4.2).
type BGPOpen struct {
	Version       uint8
	MyAS          uint16 // low 16 bits of the local ASN, AS_TRANS if it overflows
	HoldTime      uint16
	BGPIdentifier uint32
	Capabilities  []CapabilityInterface
}

func (o *BGPOpen) DecodeFromBytes(data []byte) error {
	if len(data) < 10 {
		return NewMessageError(ErrOpenMessage, ErrSubUnsupportedVersionNumber, nil, "open message too short")
	}
	o.Version = data[0]
	o.MyAS = binary.BigEndian.Uint16(data[1:3])
	o.HoldTime = binary.BigEndian.Uint16(data[3:5])
	o.BGPIdentifier = binary.BigEndian.Uint32(data[5:9])
	optLen := data[9]
	data = data[10:]
	if len(data) < int(optLen) {
		return NewMessageError(ErrOpenMessage, ErrSubUnsupportedOptionalParam, nil, "optional parameters length is short")
	}
	data = data[:optLen]

	for len(data) > 0 {
		if len(data) < 2 {
			return NewMessageError(ErrOpenMessage, ErrSubUnsupportedOptionalParam, nil, "optional parameter header is short")
		}
		paramType := data[0]
		paramLen := int(data[1])
		data = data[2:]
		if len(data) < paramLen {
			return NewMessageError(ErrOpenMessage, ErrSubUnsupportedOptionalParam, nil, "optional parameter value is short")
		}
		value := data[:paramLen]
		data = data[paramLen:]

		if paramType != optParamCapability {
			continue
		}
		v := value
		for len(v) > 0 {
			if len(v) < 2 {
				return NewMessageError(ErrOpenMessage, ErrSubUnsupportedOptionalParam, nil, "capability header is short")
			}
			code := v[0]
			clen := int(v[1])
			v = v[2:]
			if len(v) < clen {
				return NewMessageError(ErrOpenMessage, ErrSubUnsupportedOptionalParam, nil, "capability value is short")
			}
			cap, err := decodeCapability(code, v[:clen])
			if err != nil {
				return err
			}
			o.Capabilities = append(o.Capabilities, cap)
			v = v[clen:]
		}
	}
	return nil
}

func (o *BGPOpen) Serialize() ([]byte, error) {
	var capBuf []byte
	for _, c := range o.Capabilities {
		v, err := c.Serialize()
		if err != nil {
			return nil, err
		}
		capBuf = append(capBuf, c.Code(), uint8(len(v)))
		capBuf = append(capBuf, v...)
	}
	var optBuf []byte
	if len(capBuf) > 0 {
		optBuf = append([]byte{optParamCapability, uint8(len(capBuf))}, capBuf...)
	}

	buf := make([]byte, 10, 10+len(optBuf))
	buf[0] = o.Version
	binary.BigEndian.PutUint16(buf[1:3], o.MyAS)
	binary.BigEndian.PutUint16(buf[3:5], o.HoldTime)
	binary.BigEndian.PutUint32(buf[5:9], o.BGPIdentifier)
	buf[9] = uint8(len(optBuf))
	buf = append(buf, optBuf...)
	return buf, nil
}

// GetCapability returns the first capability of the given code, or nil.
func (o *BGPOpen) GetCapability(code uint8) CapabilityInterface {
	for _, c := range o.Capabilities {
		if c.Code() == code {
			return c
		}
	}
	return nil
}

// NewBGPOpen builds an OPEN advertising Multiprotocol IPv4-unicast and,
// when use4b is true, the 4-byte ASN capability with the full asn.
func NewBGPOpen(asn uint32, holdTime uint16, routerID uint32, use4b bool) *BGPOpen {
	myAS := asn
	if myAS > 0xFFFF {
		myAS = AsTrans
	}
	o := &BGPOpen{
		Version:       BGPVersion,
		MyAS:          uint16(myAS),
		HoldTime:      holdTime,
		BGPIdentifier: routerID,
		Capabilities:  []CapabilityInterface{NewCapMultiProtocol()},
	}
	if use4b {
		o.Capabilities = append(o.Capabilities, NewCapFourOctetASNumber(asn))
	}
	return o
}

// NewBGPOpenMessage wraps NewBGPOpen in a BGPMessage envelope.
func NewBGPOpenMessage(asn uint32, holdTime uint16, routerID uint32, use4b bool) *BGPMessage {
	return &BGPMessage{Header: Header{Type: MsgOpen}, Body: NewBGPOpen(asn, holdTime, routerID, use4b)}
}
