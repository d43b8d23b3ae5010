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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[neighbors.peer1]
local-asn = 65001
peer-asn = 65002
local-router-id = "10.0.0.1"
hold-time = 30
four-byte-asn = true

[neighbors.peer2]
local-asn = 65001
local-router-id = "10.0.0.1"
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "neighbors.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadDecodesNeighbors(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)
	set, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, set.Neighbors, "peer1")

	peer1 := set.Neighbors["peer1"]
	assert.Equal(t, uint32(65001), peer1.LocalASN)
	assert.Equal(t, uint32(65002), peer1.PeerASN)
	assert.Equal(t, uint16(30), peer1.HoldTime)
	assert.True(t, peer1.Use4ByteASN)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)
	set, err := Load(path)
	require.NoError(t, err)

	peer2 := set.Neighbors["peer2"]
	assert.Equal(t, uint16(defaultHoldTime), peer2.HoldTime)
	assert.Equal(t, uint32(defaultASN), peer2.PeerASN)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeTempConfig(t, `
[neighbors.peer1]
local-asn = 65001
local-router-id = "10.0.0.1"
bogus-field = "x"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestToFSMConfigConvertsRouterID(t *testing.T) {
	n := Neighbor{LocalASN: 65001, PeerASN: 65002, LocalRouterID: "10.0.0.1", HoldTime: 90, Use4ByteASN: true}
	cfg, err := n.ToFSMConfig()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0A000001), cfg.LocalRouterID)
	assert.Equal(t, uint32(65001), cfg.LocalASN)
}

func TestToFSMConfigRejectsBadRouterID(t *testing.T) {
	n := Neighbor{LocalRouterID: "not-an-ip"}
	_, err := n.ToFSMConfig()
	assert.Error(t, err)
}

func TestToFSMConfigConvertsLocalAddress(t *testing.T) {
	n := Neighbor{LocalRouterID: "10.0.0.1", LocalAddress: "10.0.0.254"}
	cfg, err := n.ToFSMConfig()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0A0000FE), cfg.LocalAddress)
}

func TestToFSMConfigLeavesLocalAddressZeroWhenUnset(t *testing.T) {
	n := Neighbor{LocalRouterID: "10.0.0.1"}
	cfg, err := n.ToFSMConfig()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), cfg.LocalAddress)
}

func TestToFSMConfigRejectsBadLocalAddress(t *testing.T) {
	n := Neighbor{LocalRouterID: "10.0.0.1", LocalAddress: "not-an-ip"}
	_, err := n.ToFSMConfig()
	assert.Error(t, err)
}

func TestLoadStaticDefaultsDefaultsUnsetHoldTime(t *testing.T) {
	path := writeTempConfig(t, `
[neighbors.peer1]
local-asn = 65001
local-router-id = "10.0.0.1"
`)
	set, err := LoadStaticDefaults(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(defaultHoldTime), set.Neighbors["peer1"].HoldTime)
}

func TestWatchReportsChangedNeighbor(t *testing.T) {
	path := writeTempConfig(t, sampleTOML)
	type change struct {
		key      string
		holdTime uint16
		peerASN  uint32
	}
	changed := make(chan change, 4)

	stop, err := Watch(path, nil, func(key string, holdTime uint16, peerASN uint32) {
		changed <- change{key, holdTime, peerASN}
	})
	require.NoError(t, err)
	defer stop()

	updated := "\n[neighbors.peer1]\nlocal-asn = 65001\npeer-asn = 65099\nlocal-router-id = \"10.0.0.1\"\nhold-time = 60\nfour-byte-asn = true\n\n[neighbors.peer2]\nlocal-asn = 65001\nlocal-router-id = \"10.0.0.1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case c := <-changed:
		assert.Equal(t, "peer1", c.key)
		assert.Equal(t, uint32(65099), c.peerASN)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a config change notification")
	}
}
