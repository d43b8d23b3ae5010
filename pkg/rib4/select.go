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

package rib4

import (
	"github.com/sirupsen/logrus"

	"github.com/bgpcore/bgpcore/pkg/packet/bgp"
)

var log = logrus.StandardLogger()

func attr(e *Entry, t bgp.BGPAttrType) bgp.PathAttributeInterface {
	for _, a := range e.Attribs.Attrs {
		if a.TypeCode() == t {
			return a
		}
	}
	return nil
}

// compareByWeight prefers the higher configured weight, a purely local
// arbitration knob that never crosses the wire.
func compareByWeight(e1, e2 *Entry) *Entry {
	log.WithFields(logrus.Fields{"Topic": "rib4", "Key": "compareByWeight"}).Debug("comparing weight")
	if e1.Weight > e2.Weight {
		return e1
	} else if e1.Weight < e2.Weight {
		return e2
	}
	return nil
}

// compareByLocalOrigin prefers a locally-originated entry over one learned
// from a peer. Returns nil when both entries share origin kind.
func compareByLocalOrigin(e1, e2 *Entry) *Entry {
	log.WithFields(logrus.Fields{"Topic": "rib4", "Key": "compareByLocalOrigin"}).Debug("comparing local origin")
	if e1.IsLocal() == e2.IsLocal() {
		return nil
	}
	if e1.IsLocal() {
		return e1
	}
	return e2
}

// compareByLocalPref prefers the higher LOCAL_PREF. An entry without the
// attribute is treated as the RFC 4271 default of 100.
func compareByLocalPref(e1, e2 *Entry) *Entry {
	log.WithFields(logrus.Fields{"Topic": "rib4", "Key": "compareByLocalPref"}).Debug("comparing local-pref")
	get := func(e *Entry) uint32 {
		if a, ok := attr(e, bgp.AttrLocalPref).(*bgp.PathAttributeLocalPref); ok {
			return a.Value
		}
		return 100
	}
	lp1, lp2 := get(e1), get(e2)
	if lp1 > lp2 {
		return e1
	} else if lp1 < lp2 {
		return e2
	}
	return nil
}

func asPathLen(e *Entry) int {
	switch a := attr(e, bgp.AttrASPath).(type) {
	case *bgp.PathAttributeAsPath:
		return bgp.PathLength(a.Segments)
	}
	return 0
}

// compareByASPathLength prefers the shorter AS_PATH, counting an AS_SET
// segment as a single hop regardless of its member count.
func compareByASPathLength(e1, e2 *Entry) *Entry {
	log.WithFields(logrus.Fields{"Topic": "rib4", "Key": "compareByASPathLength"}).Debug("comparing AS_PATH length")
	l1, l2 := asPathLen(e1), asPathLen(e2)
	if l1 < l2 {
		return e1
	} else if l1 > l2 {
		return e2
	}
	return nil
}

// compareByOrigin prefers IGP over EGP over Incomplete.
func compareByOrigin(e1, e2 *Entry) *Entry {
	log.WithFields(logrus.Fields{"Topic": "rib4", "Key": "compareByOrigin"}).Debug("comparing ORIGIN")
	o1, ok1 := attr(e1, bgp.AttrOrigin).(*bgp.PathAttributeOrigin)
	o2, ok2 := attr(e2, bgp.AttrOrigin).(*bgp.PathAttributeOrigin)
	if !ok1 || !ok2 {
		return nil
	}
	if o1.Value == o2.Value {
		return nil
	} else if o1.Value < o2.Value {
		return e1
	}
	return e2
}

func firstSequenceASN(e *Entry) (uint32, bool) {
	a, ok := attr(e, bgp.AttrASPath).(*bgp.PathAttributeAsPath)
	if !ok {
		return 0, false
	}
	for _, s := range a.Segments {
		if s.Type == bgp.SegTypeSequence && len(s.ASNs) > 0 {
			return s.ASNs[0], true
		}
	}
	return 0, false
}

func med(e *Entry) uint32 {
	if a, ok := attr(e, bgp.AttrMultiExitDisc).(*bgp.PathAttributeMultiExitDisc); ok {
		return a.Value
	}
	return 0
}

// compareByMED prefers the lower MULTI_EXIT_DISC, but only between paths
// learned from the same neighboring AS (RFC 4271 §9.1.2.2, "deterministic
// MED" absent, always-compare-med not modeled).
func compareByMED(e1, e2 *Entry) *Entry {
	log.WithFields(logrus.Fields{"Topic": "rib4", "Key": "compareByMED"}).Debug("comparing MED")
	asn1, ok1 := firstSequenceASN(e1)
	asn2, ok2 := firstSequenceASN(e2)
	if ok1 && ok2 && asn1 != asn2 {
		return nil
	}
	m1, m2 := med(e1), med(e2)
	if m1 < m2 {
		return e1
	} else if m1 > m2 {
		return e2
	}
	return nil
}

// compareBySourceType prefers an EBGP-learned entry over an IBGP-learned
// one.
func compareBySourceType(e1, e2 *Entry) *Entry {
	log.WithFields(logrus.Fields{"Topic": "rib4", "Key": "compareBySourceType"}).Debug("comparing source type")
	if e1.Src == e2.Src {
		return nil
	}
	if e1.Src == EBGP {
		return e1
	}
	return e2
}

// compareByRouterID prefers the numerically lower BGP identifier of the
// originating router, the tie-break of last resort.
func compareByRouterID(e1, e2 *Entry) *Entry {
	log.WithFields(logrus.Fields{"Topic": "rib4", "Key": "compareByRouterID"}).Debug("comparing router-id")
	if e1.SrcRouterID == e2.SrcRouterID {
		return nil
	}
	if e1.SrcRouterID < e2.SrcRouterID {
		return e1
	}
	return e2
}

var selectors = []func(e1, e2 *Entry) *Entry{
	compareByWeight,
	compareByLocalOrigin,
	compareByLocalPref,
	compareByASPathLength,
	compareByOrigin,
	compareByMED,
	compareBySourceType,
	compareByRouterID,
}

// better runs the ordered tie-break chain and returns the winner. If every
// step returns nil the two entries are indistinguishable and e1 is kept for
// determinism (this occurs only when both entries carry identical
// attributes and identify the same router, i.e. they are the same route).
func better(e1, e2 *Entry) *Entry {
	for _, cmp := range selectors {
		if winner := cmp(e1, e2); winner != nil {
			return winner
		}
	}
	return e1
}

// selectEntry returns the best of a non-empty candidate set.
func selectEntry(candidates []*Entry) *Entry {
	best := candidates[0]
	for _, c := range candidates[1:] {
		best = better(best, c)
	}
	return best
}
