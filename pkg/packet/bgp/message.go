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

// Body is implemented by every message type's payload.
type Body interface {
	Serialize() ([]byte, error)
}

// BGPMessage pairs a decoded Header with its Body.
type BGPMessage struct {
	Header Header
	Body   Body
}

// ParseBGPMessage decodes one complete, length-delimited message. data must
// be exactly Header.Len bytes (the sink guarantees this). use4byte is only
// consulted for UPDATE bodies.
func ParseBGPMessage(data []byte, use4byte bool) (*BGPMessage, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if len(data) < int(h.Len) {
		return nil, NewMessageError(ErrMessageHeader, ErrSubBadMessageLength, nil, "message shorter than header length")
	}
	body := data[HeaderLength:h.Len]

	msg := &BGPMessage{Header: *h}
	switch h.Type {
	case MsgOpen:
		o := &BGPOpen{}
		if err := o.DecodeFromBytes(body); err != nil {
			return nil, err
		}
		msg.Body = o
	case MsgUpdate:
		u := &BGPUpdate{}
		if err := u.DecodeFromBytes(body, use4byte); err != nil {
			return nil, err
		}
		msg.Body = u
	case MsgNotification:
		n := &BGPNotification{}
		if err := n.DecodeFromBytes(body); err != nil {
			return nil, err
		}
		msg.Body = n
	case MsgKeepalive:
		msg.Body = &BGPKeepAlive{}
	default:
		return nil, NewMessageError(ErrMessageHeader, ErrSubBadMessageType, nil, "unknown message type")
	}
	return msg, nil
}

// Serialize renders the full wire message: header followed by body.
func (m *BGPMessage) Serialize() ([]byte, error) {
	b, err := m.Body.Serialize()
	if err != nil {
		return nil, err
	}
	if HeaderLength+len(b) > MaxMessageLength {
		return nil, NewMessageError(ErrMessageHeader, ErrSubBadMessageLength, nil, "message too long")
	}
	m.Header.Len = uint16(HeaderLength + len(b))
	return append(m.Header.Serialize(), b...), nil
}
