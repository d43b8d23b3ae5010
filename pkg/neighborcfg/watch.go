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

package neighborcfg

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/bgpcore/bgpcore/pkg/bgplog"
)

// Watch re-reads path on every filesystem change (fsnotify, driven by
// viper.WatchConfig) and calls apply with the new HoldTime/PeerASN for
// every neighbor whose values changed. LocalASN, LocalRouterID, and
// Use4ByteASN are fixed once an FSM is built; a live edit to them is logged
// and otherwise ignored, since renegotiating a peer's identity mid-session
// is out of scope. Watch returns a stop function, but calling it does
// nothing: the watch runs until the process exits.
func Watch(path string, log bgplog.Handler, apply func(key string, holdTime uint16, peerASN uint32)) (stop func(), err error) {
	if log == nil {
		log = bgplog.Discard{}
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	prev, err := decodeSet(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		log.Log(bgplog.Info, "neighbor config file changed, reloading", bgplog.Fields{"Topic": "neighborcfg", "Path": e.Name})
		if err := v.ReadInConfig(); err != nil {
			log.Log(bgplog.Error, "failed to re-read neighbor config", bgplog.Fields{"Topic": "neighborcfg", "Error": err.Error()})
			return
		}
		next, err := decodeSet(v)
		if err != nil {
			log.Log(bgplog.Error, "failed to decode neighbor config", bgplog.Fields{"Topic": "neighborcfg", "Error": err.Error()})
			return
		}
		for key, n := range next.Neighbors {
			old, ok := prev.Neighbors[key]
			if ok && (old.LocalASN != n.LocalASN || old.LocalRouterID != n.LocalRouterID || old.Use4ByteASN != n.Use4ByteASN) {
				log.Log(bgplog.Warn, "ignoring live change to a fixed neighbor field", bgplog.Fields{"Topic": "neighborcfg", "Key": key})
			}
			if !ok || old.HoldTime != n.HoldTime || old.PeerASN != n.PeerASN {
				apply(key, n.HoldTime, n.PeerASN)
			}
		}
		prev = next
	})
	v.WatchConfig()

	// viper does not expose a way to stop its internal fsnotify watcher;
	// the returned stop is a no-op placeholder for API symmetry until it
	// does.
	return func() {}, nil
}

func decodeSet(v *viper.Viper) (*Set, error) {
	var raw struct {
		Neighbors map[string]Neighbor `mapstructure:"neighbors"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return nil, err
	}
	s := &Set{Neighbors: raw.Neighbors}
	applyDefaults(v, s)
	return s, nil
}
