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

// Package sink reassembles a stream of arbitrary byte slices into complete,
// length-delimited BGP wire messages. It performs no I/O of its own: the
// transport layer feeds it bytes and drains it for messages.
package sink

import (
	"github.com/eapache/queue"

	"github.com/bgpcore/bgpcore/pkg/packet/bgp"
)

// MaxBuffered is the DoS guard on the running reassembly buffer: Feed fails
// once accepting more bytes would exceed this.
const MaxBuffered = 8192

// Sink is a single-producer, single-consumer message reassembly buffer.
// It is not safe for concurrent Feed/Pop calls from multiple goroutines;
// each FSM owns and drives its own Sink from one goroutine.
type Sink struct {
	buf   []byte
	ready *queue.Queue
}

// New returns an empty Sink.
func New() *Sink {
	return &Sink{ready: queue.New()}
}

// Feed appends bytes to the running buffer and pulls out every complete
// message it can find, queuing each for Pop in arrival order. It returns a
// framing error (marker not all-ones, or the DoS guard tripped) that the
// FSM must translate into a fatal NOTIFICATION.
func (s *Sink) Feed(b []byte) error {
	if len(s.buf)+len(b) > MaxBuffered {
		return bgp.NewMessageError(bgp.ErrMessageHeader, bgp.ErrSubBadMessageLength, nil, "sink buffer overflow")
	}
	s.buf = append(s.buf, b...)

	for len(s.buf) >= bgp.HeaderLength {
		h, err := bgp.DecodeHeader(s.buf)
		if err != nil {
			return err
		}
		if len(s.buf) < int(h.Len) {
			break
		}
		msg := make([]byte, h.Len)
		copy(msg, s.buf[:h.Len])
		s.buf = s.buf[h.Len:]
		s.ready.Add(msg)
	}
	return nil
}

// Pop returns the oldest complete message, or ok=false if none is ready
// yet ("need more bytes").
func (s *Sink) Pop() (msg []byte, ok bool) {
	if s.ready.Length() == 0 {
		return nil, false
	}
	v := s.ready.Peek()
	s.ready.Remove()
	return v.([]byte), true
}

// Clear drops all buffered and queued bytes, used on FSM reset.
func (s *Sink) Clear() {
	s.buf = nil
	s.ready = queue.New()
}
