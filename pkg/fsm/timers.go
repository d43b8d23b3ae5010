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

package fsm

import (
	"github.com/bgpcore/bgpcore/pkg/bgplog"
	"github.com/bgpcore/bgpcore/pkg/packet/bgp"
)

// Tick advances every running timer by one second. It never blocks and
// never reads the wall clock itself: the driver loop decides what a
// second means, which keeps the FSM deterministic and easy to test.
func (f *FSM) Tick() int {
	switch f.state {
	case Idle, Broken:
		return TickNoChange
	}

	if f.holdRemaining > 0 {
		f.holdRemaining--
	}
	if f.holdRemaining == 0 {
		f.log.Log(bgplog.Warn, "hold timer expired", f.fields(nil))
		f.fail(bgp.ErrHoldTimerExpired, 0, "hold timer expired")
		return TickHoldExpired
	}

	if f.state != Established {
		return TickNoChange
	}

	if f.keepaliveRemaining > 0 {
		f.keepaliveRemaining--
	}
	if f.keepaliveRemaining == 0 {
		f.enqueue(bgp.NewBGPKeepAlive())
		f.keepaliveRemaining = int(f.negotiated.Keepalive)
		return TickKeepaliveOut
	}
	return TickNoChange
}
