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

// CapabilityInterface is implemented by every OPEN capability this module
// parses. Only CapFourOctetASNumber and CapMultiProtocol are ever
// advertised locally; RouteRefresh and GracefulRestart are recognized on
// the wire (so a peer that sends them never breaks OPEN decoding) but are
// never acted upon: this module negotiates a session but does neither
// route-refresh nor graceful restart.
type CapabilityInterface interface {
	Code() uint8
	DecodeFromBytes([]byte) error
	Serialize() ([]byte, error)
	Len() int
}

type baseCapability struct {
	code  uint8
	value []byte
}

func (c *baseCapability) Code() uint8 { return c.code }
func (c *baseCapability) Len() int    { return len(c.value) }

func (c *baseCapability) DecodeFromBytes(data []byte) error {
	c.value = append([]byte(nil), data...)
	return nil
}

func (c *baseCapability) Serialize() ([]byte, error) {
	return append([]byte(nil), c.value...), nil
}

// CapMultiProtocol advertises AFI/SAFI 1/1 (IPv4 unicast) only; this module
// has no IPv6 support.
type CapMultiProtocol struct {
	baseCapability
	AFI  uint16
	SAFI uint8
}

func NewCapMultiProtocol() *CapMultiProtocol {
	return &CapMultiProtocol{baseCapability: baseCapability{code: CapCodeMultiProtocol}, AFI: 1, SAFI: 1}
}

func (c *CapMultiProtocol) DecodeFromBytes(data []byte) error {
	if len(data) < 4 {
		return NewMessageError(ErrOpenMessage, ErrSubUnsupportedOptionalParam, nil, "multiprotocol capability too short")
	}
	c.AFI = binary.BigEndian.Uint16(data[0:2])
	c.SAFI = data[3]
	return nil
}

func (c *CapMultiProtocol) Serialize() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], c.AFI)
	buf[3] = c.SAFI
	return buf, nil
}

func (c *CapMultiProtocol) Len() int { return 4 }

// CapFourOctetASNumber carries the local 4-byte ASN (RFC 6793).
type CapFourOctetASNumber struct {
	baseCapability
	ASN uint32
}

func NewCapFourOctetASNumber(asn uint32) *CapFourOctetASNumber {
	return &CapFourOctetASNumber{baseCapability: baseCapability{code: CapCodeFourOctetASN}, ASN: asn}
}

func (c *CapFourOctetASNumber) DecodeFromBytes(data []byte) error {
	if len(data) < 4 {
		return NewMessageError(ErrOpenMessage, ErrSubUnsupportedOptionalParam, nil, "four octet asn capability too short")
	}
	c.ASN = binary.BigEndian.Uint32(data[0:4])
	return nil
}

func (c *CapFourOctetASNumber) Serialize() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, c.ASN)
	return buf, nil
}

func (c *CapFourOctetASNumber) Len() int { return 4 }

// CapUnknown is the fallback for any capability code this module does not
// interpret; it is decoded opaquely so OPEN parsing never fails on it.
type CapUnknown struct {
	baseCapability
}

func decodeCapability(code uint8, value []byte) (CapabilityInterface, error) {
	var cap CapabilityInterface
	switch code {
	case CapCodeMultiProtocol:
		cap = &CapMultiProtocol{}
	case CapCodeFourOctetASN:
		cap = &CapFourOctetASNumber{}
	default:
		cap = &CapUnknown{baseCapability{code: code}}
	}
	if err := cap.DecodeFromBytes(value); err != nil {
		return nil, err
	}
	return cap, nil
}
