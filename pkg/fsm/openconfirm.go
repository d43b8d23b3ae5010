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

func (f *FSM) handleOpenConfirm(msg *bgp.BGPMessage) (int, error) {
	switch msg.Header.Type {
	case bgp.MsgKeepalive:
		f.holdRemaining = int(f.negotiated.HoldTime)
		f.state = Established
		f.log.Log(bgplog.Info, "session established", f.fields(bgplog.Fields{"PeerASN": f.negotiated.PeerASN}))
		return StatusEstablished, nil
	case bgp.MsgNotification:
		return f.onPeerNotification(msg)
	default:
		return f.fail(bgp.ErrFSM, bgp.ErrSubFSMUnspecified, "expected KEEPALIVE in OpenConfirm")
	}
}
