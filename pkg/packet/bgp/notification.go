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

// BGPNotification is the NOTIFICATION message body (RFC 4271 §4.5). It
// carries the same (code, subcode) taxonomy as MessageError.
type BGPNotification struct {
	Code    uint8
	SubCode uint8
	Data    []byte
}

func (n *BGPNotification) DecodeFromBytes(data []byte) error {
	if len(data) < 2 {
		return NewMessageError(ErrMessageHeader, ErrSubBadMessageLength, nil, "notification too short")
	}
	n.Code = data[0]
	n.SubCode = data[1]
	n.Data = append([]byte(nil), data[2:]...)
	return nil
}

func (n *BGPNotification) Serialize() ([]byte, error) {
	buf := make([]byte, 2+len(n.Data))
	buf[0] = n.Code
	buf[1] = n.SubCode
	copy(buf[2:], n.Data)
	return buf, nil
}

// NewBGPNotification builds a NOTIFICATION from a MessageError-shaped
// (code, subcode, data) triple, the FSM's uniform path to a wire message.
func NewBGPNotification(code, subCode uint8, data []byte) *BGPMessage {
	return &BGPMessage{
		Header: Header{Type: MsgNotification},
		Body:   &BGPNotification{Code: code, SubCode: subCode, Data: data},
	}
}

// BGPKeepAlive is the KEEPALIVE message body: header only, empty body.
type BGPKeepAlive struct{}

func (k *BGPKeepAlive) DecodeFromBytes(data []byte) error { return nil }
func (k *BGPKeepAlive) Serialize() ([]byte, error)        { return []byte{}, nil }

func NewBGPKeepAlive() *BGPMessage {
	return &BGPMessage{Header: Header{Len: HeaderLength, Type: MsgKeepalive}, Body: &BGPKeepAlive{}}
}
