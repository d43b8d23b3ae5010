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
	"bytes"
	"encoding/binary"
)

var allOnesMarker = bytes.Repeat([]byte{0xff}, 16)

// Header is the 19-byte BGP message header: a 16-byte all-ones marker, a
// 2-byte total length (header included), and a 1-byte type.
type Header struct {
	Len  uint16
	Type BGPMsgType
}

// DecodeHeader validates the marker and reads Len/Type. It never consumes
// more than HeaderLength bytes.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderLength {
		return nil, NewMessageError(ErrMessageHeader, ErrSubBadMessageLength, nil, "short header")
	}
	if !bytes.Equal(data[:16], allOnesMarker) {
		return nil, NewMessageError(ErrMessageHeader, ErrSubConnectionNotSynchronized, nil, "marker is not all ones")
	}
	length := binary.BigEndian.Uint16(data[16:18])
	if int(length) < HeaderLength || int(length) > MaxMessageLength {
		return nil, NewMessageError(ErrMessageHeader, ErrSubBadMessageLength, nil, "bad message length")
	}
	typ := BGPMsgType(data[18])
	switch typ {
	case MsgOpen, MsgUpdate, MsgNotification, MsgKeepalive:
	default:
		return nil, NewMessageError(ErrMessageHeader, ErrSubBadMessageType, nil, "unknown message type")
	}
	return &Header{Len: length, Type: typ}, nil
}

// Serialize writes the 19-byte header. h.Len must already reflect the total
// message length; callers building a message from scratch should set it
// after serializing the body.
func (h *Header) Serialize() []byte {
	buf := make([]byte, HeaderLength)
	copy(buf[:16], allOnesMarker)
	binary.BigEndian.PutUint16(buf[16:18], h.Len)
	buf[18] = uint8(h.Type)
	return buf
}
