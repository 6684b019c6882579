/*
 * Copyright 2026 Fieldwatch Systems, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTargets(t *testing.T) {
	tests := []struct {
		name    string
		targets []string
		want    []string
		wantErr bool
	}{
		{
			name:    "small subnet skips network and broadcast",
			targets: []string{"192.168.1.0/30"},
			want:    []string{"192.168.1.1", "192.168.1.2"},
		},
		{
			name:    "host route",
			targets: []string{"10.0.0.5/32"},
			want:    []string{"10.0.0.5"},
		},
		{
			name:    "point to point keeps both addresses",
			targets: []string{"10.0.0.0/31"},
			want:    []string{"10.0.0.0", "10.0.0.1"},
		},
		{
			name:    "bare address",
			targets: []string{"172.16.0.9"},
			want:    []string{"172.16.0.9"},
		},
		{
			name:    "overlapping inputs deduplicate",
			targets: []string{"192.168.1.0/30", "192.168.1.2/32"},
			want:    []string{"192.168.1.1", "192.168.1.2"},
		},
		{
			name:    "invalid bare address",
			targets: []string{"10.0.0.300"},
			wantErr: true,
		},
		{
			name:    "invalid prefix",
			targets: []string{"10.0.0.0/33"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandTargets(tt.targets)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandTargetsFullSubnet(t *testing.T) {
	hosts, err := ExpandTargets([]string{"10.1.0.0/24"})
	require.NoError(t, err)

	require.Len(t, hosts, 254)
	assert.Equal(t, "10.1.0.1", hosts[0])
	assert.Equal(t, "10.1.0.254", hosts[len(hosts)-1])
	assert.NotContains(t, hosts, "10.1.0.0")
	assert.NotContains(t, hosts, "10.1.0.255")
}

func TestBroadcastTargets(t *testing.T) {
	tests := []struct {
		name     string
		networks []string
		want     []string
	}{
		{
			name:     "narrow prefix widens to site broadcast",
			networks: []string{"192.168.3.0/24"},
			want:     []string{"192.168.3.255", "192.168.255.255"},
		},
		{
			name:     "site prefix broadcasts once",
			networks: []string{"10.2.0.0/16"},
			want:     []string{"10.2.255.255"},
		},
		{
			name:     "wider than site prefix stays as is",
			networks: []string{"172.16.0.0/12"},
			want:     []string{"172.31.255.255"},
		},
		{
			name:     "host route contributes nothing",
			networks: []string{"10.0.0.5/32"},
			want:     nil,
		},
		{
			name:     "bare address contributes nothing",
			networks: []string{"10.0.0.5"},
			want:     nil,
		},
		{
			name:     "shared site broadcast deduplicates",
			networks: []string{"10.2.3.0/24", "10.2.7.0/24"},
			want:     []string{"10.2.3.255", "10.2.255.255", "10.2.7.255"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BroadcastTargets(tt.networks)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBroadcastTargetsInvalidNetwork(t *testing.T) {
	_, err := BroadcastTargets([]string{"10.0.0.0/40"})
	require.Error(t, err)
}
