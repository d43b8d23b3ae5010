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

// Package fsm implements the BGP-4 peer state machine (RFC 4271 §8) as a
// pure, synchronous state object: it owns no socket and starts no
// goroutine of its own. A driver loop feeds it inbound bytes through Run
// and a wall-clock tick through Tick, and drains outbound wire messages
// from Outbound.
package fsm

import (
	"fmt"

	"github.com/eapache/channels"
	"github.com/google/uuid"

	"github.com/bgpcore/bgpcore/pkg/bgplog"
	"github.com/bgpcore/bgpcore/pkg/eventbus"
	"github.com/bgpcore/bgpcore/pkg/packet/bgp"
	"github.com/bgpcore/bgpcore/pkg/rib4"
	"github.com/bgpcore/bgpcore/pkg/sink"
)

// State is one of the RFC 4271 §8 session states. Connect and Active are
// not modeled: this FSM has no transport of its own, so it starts directly
// in OpenSent once Start is called by whatever established the connection,
// or, when the peer's OPEN arrives first, answers it from Idle with its own
// OPEN and KEEPALIVE and moves to OpenConfirm.
type State uint8

const (
	Idle State = iota
	OpenSent
	OpenConfirm
	Established
	Broken
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case OpenSent:
		return "OpenSent"
	case OpenConfirm:
		return "OpenConfirm"
	case Established:
		return "Established"
	case Broken:
		return "Broken"
	default:
		return "Unknown"
	}
}

// Run's return codes.
const (
	// StatusError indicates a fatal, unrecoverable error unrelated to a
	// clean protocol-driven transition (e.g. Run called after Broken).
	StatusError = -1
	// StatusNoChange indicates messages were processed but the state did
	// not change.
	StatusNoChange = 0
	// StatusAdvanced indicates the state advanced towards Established
	// (a peer OPEN received in Idle or OpenSent moves to OpenConfirm).
	StatusAdvanced = 1
	// StatusEstablished indicates the session just reached Established.
	StatusEstablished = 2
	// StatusTornDown indicates the session was reset to Idle or Broken.
	StatusTornDown = 3
)

// Tick's return codes.
const (
	TickNoChange     = 0
	TickKeepaliveOut = 1
	TickHoldExpired  = 2
)

const (
	defaultOpenSentHoldTime = 240
	defaultHoldTime         = 90
	minAcceptableHoldTime   = 3
)

// Config is the per-neighbor configuration an FSM is constructed from.
// Only HoldTime and PeerASN can change afterwards, through ApplyLiveConfig;
// changing any other field requires tearing the session down and building
// a new FSM.
type Config struct {
	LocalASN      uint32
	PeerASN       uint32 // 0 accepts any peer ASN, deciding EBGP/IBGP from what OPEN reports
	LocalRouterID uint32
	HoldTime      uint16
	Use4ByteASN   bool
	// LocalAddress is this session's egress address, written into NEXT_HOP
	// when re-advertising a route to an EBGP peer.
	LocalAddress uint32
}

// Negotiated captures the outcome of the OPEN exchange.
type Negotiated struct {
	PeerASN       uint32
	PeerRouterID  uint32
	HoldTime      uint16
	Keepalive     uint16
	Use4ByteASN   bool
	IsIBGP        bool
}

// FSM is one BGP peering session's state machine.
type FSM struct {
	cfg   Config
	log   bgplog.Handler
	sink  *sink.Sink
	rib   *rib4.Rib4
	bus   *eventbus.Bus
	subID uuid.UUID

	state      State
	negotiated Negotiated
	sentOpen   *bgp.BGPOpen

	holdRemaining      int
	keepaliveRemaining int

	outbound *channels.InfiniteChannel
}

// New builds an Idle FSM bound to rib and bus and subscribes it to bus, so
// that a route learned by any other FSM sharing this bus and RIB is
// re-advertised to this FSM's own peer once it reaches Established, and a
// peer OPEN colliding with another FSM's peer BGP identifier is resolved
// between them (see OnRouteEvent). Outbound wire messages the FSM produces
// (OPEN, KEEPALIVE, UPDATE, NOTIFICATION) are queued onto an unbounded
// channel rather than written directly, so a slow transport never blocks
// the state machine's own processing.
func New(cfg Config, rib *rib4.Rib4, bus *eventbus.Bus, log bgplog.Handler) *FSM {
	if log == nil {
		log = bgplog.Discard{}
	}
	f := &FSM{
		cfg:      cfg,
		log:      log,
		sink:     sink.New(),
		rib:      rib,
		bus:      bus,
		state:    Idle,
		outbound: channels.NewInfiniteChannel(),
	}
	if id, err := bus.Subscribe(f); err == nil {
		f.subID = id
	} else {
		f.log.Log(bgplog.Warn, "failed to subscribe to event bus", f.fields(bgplog.Fields{"Error": err.Error()}))
	}
	return f
}

// State returns the current session state.
func (f *FSM) State() State { return f.state }

// Outbound returns the channel of serialized wire messages waiting to be
// written to the peer, in emission order.
func (f *FSM) Outbound() <-chan interface{} { return f.outbound.Out() }

func (f *FSM) enqueue(msg *bgp.BGPMessage) {
	b, err := msg.Serialize()
	if err != nil {
		f.log.Log(bgplog.Error, "failed to serialize outbound message", bgplog.Fields{"Topic": "fsm", "Type": msg.Header.Type})
		return
	}
	f.outbound.In() <- b
}

func (f *FSM) fields(extra bgplog.Fields) bgplog.Fields {
	out := bgplog.Fields{"Topic": "fsm", "State": f.state.String()}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Start moves an Idle FSM to OpenSent, sending our OPEN. Calling Start
// from any state other than Idle is a programming error.
func (f *FSM) Start() error {
	if f.state != Idle {
		return fmt.Errorf("fsm: Start called in state %s, want Idle", f.state)
	}
	open := bgp.NewBGPOpen(f.cfg.LocalASN, f.cfg.HoldTime, f.cfg.LocalRouterID, f.cfg.Use4ByteASN)
	f.sentOpen = open
	msg := &bgp.BGPMessage{Header: bgp.Header{Type: bgp.MsgOpen}, Body: open}
	f.enqueue(msg)

	f.state = OpenSent
	f.holdRemaining = defaultOpenSentHoldTime
	f.log.Log(bgplog.Info, "sent OPEN, waiting for peer OPEN", f.fields(nil))
	return nil
}

// Stop performs a clean administrative shutdown: it sends CEASE, flushes
// this peer's routes from the RIB, and transitions to Idle.
func (f *FSM) Stop() {
	if f.state == Established || f.state == OpenConfirm || f.state == OpenSent {
		f.enqueue(bgp.NewBGPNotification(bgp.ErrCease, bgp.ErrSubAdministrativeReset, nil))
	}
	f.resetHard()
	f.log.Log(bgplog.Info, "session administratively stopped", f.fields(nil))
}

// resetSoft returns the FSM to Idle without touching the RIB: used for
// protocol-level restarts where routes are expected to be re-learned
// immediately (e.g. going back through OPEN renegotiation).
func (f *FSM) resetSoft() {
	f.state = Idle
	f.sink.Clear()
	f.negotiated = Negotiated{}
	f.holdRemaining = 0
	f.keepaliveRemaining = 0
}

// resetHard additionally discards every RIB entry sourced from this peer,
// used whenever the session is lost or torn down for cause.
func (f *FSM) resetHard() {
	if f.negotiated.PeerRouterID != 0 {
		f.rib.Discard(f.negotiated.PeerRouterID, f)
	}
	f.resetSoft()
}

// Close unsubscribes the FSM from its event bus. Call it once the FSM is
// permanently discarded; a stopped FSM that will be Start-ed again should
// stay subscribed.
func (f *FSM) Close() {
	f.bus.Unsubscribe(f.subID)
}

// ApplyLiveConfig updates the two Config fields that are safe to change
// without tearing down a running session: HoldTime only takes effect on the
// next OPEN negotiation, PeerASN is re-checked on the next OPEN this FSM
// receives. It does not touch an already-negotiated session in place.
func (f *FSM) ApplyLiveConfig(holdTime uint16, peerASN uint32) {
	f.cfg.HoldTime = holdTime
	f.cfg.PeerASN = peerASN
	f.log.Log(bgplog.Info, "applied live configuration change", f.fields(bgplog.Fields{"HoldTime": holdTime, "PeerASN": peerASN}))
}

func (f *FSM) fail(code, subcode uint8, msg string) (int, error) {
	f.enqueue(bgp.NewBGPNotification(code, subcode, nil))
	f.log.Log(bgplog.Warn, msg, f.fields(bgplog.Fields{"Code": code, "SubCode": subcode}))
	f.resetHard()
	f.state = Idle
	return StatusTornDown, bgp.NewMessageError(code, subcode, nil, msg)
}

// Run feeds newly-received bytes through message reassembly and processes
// every complete message against the current state, returning a Status*
// code summarizing what happened.
func (f *FSM) Run(data []byte) (int, error) {
	if f.state == Broken {
		return StatusError, fmt.Errorf("fsm: Run called on a broken session")
	}
	if err := f.sink.Feed(data); err != nil {
		me, _ := bgp.AsMessageError(err)
		return f.fail(me.Code, me.SubCode, "framing error")
	}

	best := StatusNoChange
	for {
		raw, ok := f.sink.Pop()
		if !ok {
			break
		}
		msg, err := bgp.ParseBGPMessage(raw, f.negotiated.Use4ByteASN)
		if err != nil {
			me, _ := bgp.AsMessageError(err)
			return f.fail(me.Code, me.SubCode, "malformed message")
		}
		status, err := f.dispatch(msg)
		if err != nil {
			return status, err
		}
		if status > best {
			best = status
		}
		if f.state == Broken {
			break
		}
	}
	return best, nil
}

func (f *FSM) dispatch(msg *bgp.BGPMessage) (int, error) {
	switch f.state {
	case Idle:
		// A peer OPEN arriving before Start is a passive open: send our own
		// OPEN first, then handle the peer's exactly as in OpenSent.
		if msg.Header.Type != bgp.MsgOpen {
			return f.fail(bgp.ErrFSM, bgp.ErrSubFSMUnspecified, "message received in unexpected state")
		}
		if err := f.Start(); err != nil {
			return StatusError, err
		}
		return f.handleOpenSent(msg)
	case OpenSent:
		return f.handleOpenSent(msg)
	case OpenConfirm:
		return f.handleOpenConfirm(msg)
	case Established:
		return f.handleEstablished(msg)
	default:
		return f.fail(bgp.ErrFSM, bgp.ErrSubFSMUnspecified, "message received in unexpected state")
	}
}

// checkCollision announces to every other FSM sharing this bus that a peer
// OPEN carrying peerBGPID just arrived, so any of them already connected to
// (or negotiating with) the same peer identifier can resolve the collision
// against it (RFC 4271 §6.8). It reports whether an existing session acted
// by tearing itself down, meaning this FSM is clear to proceed.
func (f *FSM) checkCollision(peerBGPID uint32) bool {
	acted := f.bus.Publish(f, eventbus.Event{Kind: eventbus.RouteCollision, PeerBGPID: peerBGPID})
	return acted > 0
}

// OnRouteEvent implements eventbus.Subscriber. RouteAdded/RouteWithdrawn
// re-advertise the change to this FSM's own peer once Established;
// RouteDuplicate is ignored. RouteCollision compares ev.PeerBGPID against
// this FSM's own negotiated peer: if they match and resolveCollision says
// this FSM's local BGP identifier is the numerically smaller one, this
// session closes in favor of the publisher and OnRouteEvent returns true.
func (f *FSM) OnRouteEvent(ev eventbus.Event) bool {
	switch ev.Kind {
	case eventbus.RouteAdded:
		if f.state != Established {
			return false
		}
		entry, ok := ev.Best.(*rib4.Entry)
		if !ok {
			return false
		}
		u, err := f.PrepareOutbound(ev.Prefix, entry)
		if err != nil {
			f.log.Log(bgplog.Error, "failed to prepare outbound UPDATE for re-advertisement", f.fields(bgplog.Fields{"Error": err.Error()}))
			return false
		}
		f.SendUpdate(u)
		return false
	case eventbus.RouteWithdrawn:
		if f.state != Established {
			return false
		}
		f.SendUpdate(&bgp.BGPUpdate{WithdrawnRoutes: []bgp.Prefix4{ev.Prefix}})
		return false
	case eventbus.RouteCollision:
		if f.state != OpenSent && f.state != OpenConfirm && f.state != Established {
			return false
		}
		if f.negotiated.PeerRouterID != ev.PeerBGPID {
			return false
		}
		if !resolveCollision(f.cfg.LocalRouterID, ev.PeerBGPID) {
			return false
		}
		f.enqueue(bgp.NewBGPNotification(bgp.ErrCease, bgp.ErrSubConnectionCollision, nil))
		f.resetHard()
		f.state = Idle
		f.log.Log(bgplog.Warn, "closed session after OPEN collision", f.fields(bgplog.Fields{"PeerBGPID": ev.PeerBGPID}))
		return true
	default:
		return false
	}
}
