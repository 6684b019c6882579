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
	"fmt"
	"net"
	"strings"
)

// supernetPrefixLen is the prefix the broadcast probe widens to. Building
// networks commonly segment floors into /24s behind switches that drop
// directed broadcast for anything but the wider site prefix.
const supernetPrefixLen = 16

// ExpandTargets expands CIDR networks and bare host addresses into
// individual probe targets. Network and broadcast addresses are skipped for
// IPv4 prefixes shorter than /31; duplicates across overlapping inputs are
// dropped.
func ExpandTargets(targets []string) ([]string, error) {
	var hosts []string

	seen := make(map[string]struct{})

	for _, target := range targets {
		expanded, err := expandTarget(target)
		if err != nil {
			return nil, err
		}

		for _, host := range expanded {
			if _, dup := seen[host]; dup {
				continue
			}

			seen[host] = struct{}{}
			hosts = append(hosts, host)
		}
	}

	return hosts, nil
}

func expandTarget(target string) ([]string, error) {
	if !strings.Contains(target, "/") {
		if net.ParseIP(target) == nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
		}

		return []string{target}, nil
	}

	baseIP, ipnet, err := net.ParseCIDR(target)
	if err != nil {
		return nil, fmt.Errorf("parse network %s: %w", target, err)
	}

	var ips []string

	for currentIP := baseIP.Mask(ipnet.Mask); ipnet.Contains(currentIP); incIP(currentIP) {
		ones, _ := ipnet.Mask.Size()
		if currentIP.To4() != nil && ones < 31 {
			if currentIP.Equal(ipnet.IP) || isBroadcast(currentIP, ipnet) {
				continue
			}
		}

		ips = append(ips, currentIP.String())
	}

	return ips, nil
}

// BroadcastTargets computes the directed-broadcast addresses for the given
// networks: each IPv4 network's own broadcast, plus the broadcast of the
// network widened to /16 when the configured prefix is narrower than that.
// Bare hosts, IPv6 networks, and /31-/32 prefixes contribute nothing.
func BroadcastTargets(networks []string) ([]string, error) {
	var out []string

	seen := make(map[string]struct{})

	add := func(ip net.IP) {
		s := ip.String()
		if _, dup := seen[s]; dup {
			return
		}

		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, network := range networks {
		if !strings.Contains(network, "/") {
			continue
		}

		_, ipnet, err := net.ParseCIDR(network)
		if err != nil {
			return nil, fmt.Errorf("parse network %s: %w", network, err)
		}

		v4 := ipnet.IP.To4()
		if v4 == nil {
			continue
		}

		ones, bits := ipnet.Mask.Size()
		if bits != 32 || ones >= 31 {
			continue
		}

		add(broadcastAddr(ipnet))

		if ones > supernetPrefixLen {
			wideMask := net.CIDRMask(supernetPrefixLen, 32)
			add(broadcastAddr(&net.IPNet{IP: v4.Mask(wideMask), Mask: wideMask}))
		}
	}

	return out, nil
}

// incIP increments an IP address in place.
func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}

// isBroadcast checks if an IP is the broadcast address of a network.
func isBroadcast(ip net.IP, ipnet *net.IPNet) bool {
	return ip.Equal(broadcastAddr(ipnet))
}

// broadcastAddr computes the directed-broadcast address of a network.
func broadcastAddr(ipnet *net.IPNet) net.IP {
	broadcast := make(net.IP, len(ipnet.IP))
	for i := range ipnet.IP {
		broadcast[i] = ipnet.IP[i] | ^ipnet.Mask[i]
	}

	return broadcast
}
