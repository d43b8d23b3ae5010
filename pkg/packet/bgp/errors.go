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
	"errors"
	"fmt"
)

// MessageError is the taxonomy carrier for framing/parse/negotiation
// failures: a (code, subcode) pair the FSM translates directly into a
// NOTIFICATION message, plus the offending bytes for diagnostics.
type MessageError struct {
	Code    uint8
	SubCode uint8
	Data    []byte
	Message string
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("code %d, subcode %d, message %s", e.Code, e.SubCode, e.Message)
}

// NewMessageError builds a *MessageError wrapped as an error, matching the
// call sites throughout the parse/serialize paths below.
func NewMessageError(code, subCode uint8, data []byte, msg string) error {
	return &MessageError{Code: code, SubCode: subCode, Data: data, Message: msg}
}

// AsMessageError unwraps err into a *MessageError if it is (or wraps) one.
func AsMessageError(err error) (*MessageError, bool) {
	var me *MessageError
	ok := errors.As(err, &me)
	return me, ok
}
