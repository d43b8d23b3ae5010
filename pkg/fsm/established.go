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
	"github.com/bgpcore/bgpcore/pkg/rib4"
)

func (f *FSM) handleEstablished(msg *bgp.BGPMessage) (int, error) {
	switch msg.Header.Type {
	case bgp.MsgKeepalive:
		f.holdRemaining = int(f.negotiated.HoldTime)
		return StatusNoChange, nil
	case bgp.MsgUpdate:
		f.holdRemaining = int(f.negotiated.HoldTime)
		return f.handleUpdate(msg.Body.(*bgp.BGPUpdate))
	case bgp.MsgNotification:
		return f.onPeerNotification(msg)
	default:
		return f.fail(bgp.ErrFSM, bgp.ErrSubFSMUnspecified, "unexpected message type in Established")
	}
}

func (f *FSM) handleUpdate(u *bgp.BGPUpdate) (int, error) {
	// The RIB always stores a 4-byte AS_PATH. A peer negotiated down to
	// 2-byte ASNs sends one at half width, possibly with a shadow
	// AS4_PATH; RestoreAsPath reconstructs the full-width path in both
	// cases (RFC 6793 §4.2.3). It rejects an AS_PATH that is already
	// 4-byte, which the parser of a 2-byte session never produces.
	if !f.negotiated.Use4ByteASN && u.HasAttr(bgp.AttrASPath) {
		if err := u.RestoreAsPath(); err != nil {
			return f.fail(bgp.ErrUpdateMessage, bgp.ErrSubMalformedASPath, err.Error())
		}
	}

	for _, w := range u.WithdrawnRoutes {
		f.rib.Withdraw(w, f.negotiated.PeerRouterID, f)
	}

	if len(u.NLRI) > 0 {
		src := rib4.EBGP
		if f.negotiated.IsIBGP {
			src = rib4.IBGP
		}
		for _, prefix := range u.NLRI {
			f.rib.Insert(&rib4.Entry{
				Route:       prefix,
				SrcRouterID: f.negotiated.PeerRouterID,
				Attribs:     &rib4.AttrSet{Attrs: u.Attrs},
				Src:         src,
				IBGPPeerASN: f.negotiated.PeerASN,
			}, f)
		}
	}

	f.log.Log(bgplog.Debug, "processed UPDATE", f.fields(bgplog.Fields{
		"Withdrawn": len(u.WithdrawnRoutes),
		"NLRI":      len(u.NLRI),
	}))
	return StatusNoChange, nil
}

// PrepareOutbound builds the UPDATE this FSM would send to re-advertise
// entry to its peer. For EBGP egress it strips non-transitive attributes,
// prepends the local AS to AS_PATH, and overwrites NEXT_HOP with this
// session's own egress address; IBGP egress carries all three through
// unchanged, since the receiving router is in the same AS. Either way, the
// AS_PATH is downgraded to 2-byte width afterward if the peer never
// negotiated 4-byte ASNs.
func (f *FSM) PrepareOutbound(prefix bgp.Prefix4, entry *rib4.Entry) (*bgp.BGPUpdate, error) {
	u := &bgp.BGPUpdate{Attrs: bgp.CloneAttrs(entry.Attribs.Attrs), NLRI: []bgp.Prefix4{prefix}}

	if !f.negotiated.IsIBGP {
		u.DropNonTransitive()
		// The RIB's shared AttrSet always carries a 4-byte AS_PATH (UPDATEs
		// are normalized on the way in); prepend in 4-byte mode regardless
		// of this peer's negotiated width and downgrade afterwards if
		// needed.
		if err := u.Prepend(f.cfg.LocalASN, true); err != nil {
			return nil, err
		}
		u.SetNextHop(f.cfg.LocalAddress)
	}
	if !f.negotiated.Use4ByteASN {
		if err := u.DowngradeAsPath(); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// SendUpdate serializes and enqueues an outbound UPDATE built by
// PrepareOutbound.
func (f *FSM) SendUpdate(u *bgp.BGPUpdate) {
	f.enqueue(&bgp.BGPMessage{Header: bgp.Header{Type: bgp.MsgUpdate}, Body: u})
}
