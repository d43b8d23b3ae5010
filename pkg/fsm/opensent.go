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

func min16(a, b uint16) uint16 {
	if a < b {
		return a
	}
	return b
}

// resolveCollision reports whether the local session should be the one
// torn down when two OPENs cross on the wire for the same peer: the
// speaker with the numerically higher BGP identifier keeps its connection
// (RFC 4271 §6.8).
func resolveCollision(localID, peerID uint32) bool {
	return localID < peerID
}

func (f *FSM) handleOpenSent(msg *bgp.BGPMessage) (int, error) {
	if msg.Header.Type != bgp.MsgOpen {
		if msg.Header.Type == bgp.MsgNotification {
			return f.onPeerNotification(msg)
		}
		return f.fail(bgp.ErrFSM, bgp.ErrSubFSMUnspecified, "expected OPEN in OpenSent")
	}
	open := msg.Body.(*bgp.BGPOpen)

	if open.Version != bgp.BGPVersion {
		return f.fail(bgp.ErrOpenMessage, bgp.ErrSubUnsupportedVersionNumber, "unsupported BGP version")
	}
	if open.HoldTime > 0 && open.HoldTime < minAcceptableHoldTime {
		return f.fail(bgp.ErrOpenMessage, bgp.ErrSubUnacceptableHoldTime, "unacceptable hold time")
	}
	if open.BGPIdentifier == 0 || open.BGPIdentifier == f.cfg.LocalRouterID {
		return f.fail(bgp.ErrOpenMessage, bgp.ErrSubBadBGPIdentifier, "invalid BGP identifier")
	}

	if f.checkCollision(open.BGPIdentifier) {
		f.log.Log(bgplog.Info, "closed a colliding session on this peer's behalf", f.fields(bgplog.Fields{"PeerBGPID": open.BGPIdentifier}))
	}

	peerASN := uint32(open.MyAS)
	use4b := false
	if cap4, ok := open.GetCapability(bgp.CapCodeFourOctetASN).(*bgp.CapFourOctetASNumber); ok {
		// The 2-byte MyAS field is only exempt from matching the capability's
		// low 16 bits when it carries AS_TRANS, i.e. the 4-byte ASN doesn't
		// fit in 2 bytes and the capability is the authoritative value;
		// otherwise the two must agree or the peer is sending inconsistent
		// ASNs.
		if open.MyAS != bgp.AsTrans && uint32(open.MyAS) != cap4.ASN&0xFFFF {
			return f.fail(bgp.ErrOpenMessage, bgp.ErrSubBadPeerAS, "2-byte and 4-byte ASNs disagree")
		}
		peerASN = cap4.ASN
		use4b = f.cfg.Use4ByteASN
	}
	if f.cfg.PeerASN != 0 && peerASN != f.cfg.PeerASN {
		return f.fail(bgp.ErrOpenMessage, bgp.ErrSubBadPeerAS, "unexpected peer AS")
	}

	holdTime := min16(open.HoldTime, f.cfg.HoldTime)
	keepalive := holdTime / 3

	f.negotiated = Negotiated{
		PeerASN:      peerASN,
		PeerRouterID: open.BGPIdentifier,
		HoldTime:     holdTime,
		Keepalive:    keepalive,
		Use4ByteASN:  use4b,
		IsIBGP:       peerASN == f.cfg.LocalASN,
	}
	f.holdRemaining = int(holdTime)
	f.keepaliveRemaining = int(keepalive)

	f.enqueue(bgp.NewBGPKeepAlive())
	f.state = OpenConfirm
	f.log.Log(bgplog.Info, "received peer OPEN, sent KEEPALIVE", f.fields(bgplog.Fields{
		"PeerASN":      peerASN,
		"PeerRouterID": open.BGPIdentifier,
		"HoldTime":     holdTime,
	}))
	return StatusAdvanced, nil
}

func (f *FSM) onPeerNotification(msg *bgp.BGPMessage) (int, error) {
	n := msg.Body.(*bgp.BGPNotification)
	f.log.Log(bgplog.Warn, "peer sent NOTIFICATION", f.fields(bgplog.Fields{"Code": n.Code, "SubCode": n.SubCode}))
	f.resetHard()
	f.state = Idle
	return StatusTornDown, nil
}
