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

// Package neighborcfg loads and hot-reloads the static per-neighbor
// configuration an FSM is built from.
package neighborcfg

import (
	"fmt"
	"net"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/bgpcore/bgpcore/pkg/fsm"
)

const (
	defaultHoldTime = 90
	defaultASN      = 0
)

// Neighbor is one peer's static configuration, as read from file.
type Neighbor struct {
	LocalASN      uint32 `mapstructure:"local-asn" toml:"local-asn"`
	PeerASN       uint32 `mapstructure:"peer-asn" toml:"peer-asn"`
	LocalRouterID string `mapstructure:"local-router-id" toml:"local-router-id"`
	// LocalAddress is this session's egress address, written into NEXT_HOP
	// when re-advertising a route to this peer over EBGP. Optional for an
	// IBGP-only neighbor, which never rewrites NEXT_HOP.
	LocalAddress string `mapstructure:"local-address" toml:"local-address"`
	HoldTime     uint16 `mapstructure:"hold-time" toml:"hold-time"`
	Use4ByteASN  bool   `mapstructure:"four-byte-asn" toml:"four-byte-asn"`
}

// Set is every neighbor this speaker is configured to peer with, keyed by
// the name of its table in the configuration file ([neighbors.<name>]).
type Set struct {
	Neighbors map[string]Neighbor `mapstructure:"neighbors"`
}

func applyDefaults(v *viper.Viper, s *Set) {
	for key, n := range s.Neighbors {
		if !v.IsSet(fmt.Sprintf("neighbors.%s.hold-time", key)) {
			n.HoldTime = defaultHoldTime
		}
		if !v.IsSet(fmt.Sprintf("neighbors.%s.peer-asn", key)) {
			n.PeerASN = defaultASN
		}
		s.Neighbors[key] = n
	}
}

func ipv4ToUint32(s string) (uint32, error) {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return 0, fmt.Errorf("neighborcfg: %q is not a dotted-quad IPv4 address", s)
	}
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3]), nil
}

// ToFSMConfig converts one neighbor entry into the fsm package's Config.
func (n Neighbor) ToFSMConfig() (fsm.Config, error) {
	id, err := ipv4ToUint32(n.LocalRouterID)
	if err != nil {
		return fsm.Config{}, err
	}
	var localAddr uint32
	if n.LocalAddress != "" {
		localAddr, err = ipv4ToUint32(n.LocalAddress)
		if err != nil {
			return fsm.Config{}, err
		}
	}
	return fsm.Config{
		LocalASN:      n.LocalASN,
		PeerASN:       n.PeerASN,
		LocalRouterID: id,
		LocalAddress:  localAddr,
		HoldTime:      n.HoldTime,
		Use4ByteASN:   n.Use4ByteASN,
	}, nil
}

// LoadStaticDefaults decodes a bare TOML file of default neighbor settings
// directly with BurntSushi/toml, bypassing viper entirely. It exists for
// callers that only want the fixed defaults baked into a release (a
// read-only reference file, never hot-reloaded) rather than the live,
// re-readable configuration Load and Watch manage.
func LoadStaticDefaults(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("neighborcfg: opening %s: %w", path, err)
	}
	defer f.Close()

	var raw struct {
		Neighbors map[string]Neighbor `toml:"neighbors"`
	}
	if _, err := toml.DecodeReader(f, &raw); err != nil {
		return nil, fmt.Errorf("neighborcfg: decoding %s: %w", path, err)
	}
	s := &Set{Neighbors: raw.Neighbors}
	for key, n := range s.Neighbors {
		if n.HoldTime == 0 {
			n.HoldTime = defaultHoldTime
		}
		s.Neighbors[key] = n
	}
	return s, nil
}

// Load reads path (format inferred by extension: toml, yaml, json, ...) via
// viper and decodes it into a Set with mapstructure, then fills in any
// field the file left unset.
func Load(path string) (*Set, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("neighborcfg: reading %s: %w", path, err)
	}

	var raw struct {
		Neighbors map[string]Neighbor `mapstructure:"neighbors"`
	}
	if err := v.Unmarshal(&raw, func(c *mapstructure.DecoderConfig) { c.ErrorUnused = true }); err != nil {
		return nil, fmt.Errorf("neighborcfg: decoding %s: %w", path, err)
	}
	s := &Set{Neighbors: raw.Neighbors}
	applyDefaults(v, s)
	return s, nil
}
