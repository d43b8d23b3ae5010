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

// Package rib4 implements the IPv4 Routing Information Base: a multimap of
// candidate paths per prefix with deterministic best-path selection.
package rib4

import "github.com/bgpcore/bgpcore/pkg/packet/bgp"

// SourceKind distinguishes an EBGP-learned entry from an IBGP-learned one,
// an arbitration input in the best-path selection order.
type SourceKind uint8

const (
	EBGP SourceKind = iota
	IBGP
)

// Entry is one candidate path for a prefix, keyed in the RIB by
// (Route, SrcRouterID). SrcRouterID == 0 denotes a locally-originated
// route.
type Entry struct {
	Route       bgp.Prefix4
	SrcRouterID uint32
	Attribs     *AttrSet
	UpdateID    uint64
	Weight      int32
	Src         SourceKind
	IBGPPeerASN uint32
}

// IsLocal reports whether the entry was locally originated.
func (e *Entry) IsLocal() bool { return e.SrcRouterID == 0 }
