// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gossip

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/grandcat/zeroconf"
)

const serviceName = "_synapsenet._tcp"

// Announce registers this node on the local network via mDNS so peers
// running local-network discovery (§4.F topology (ii)) can find it.
func Announce(instance string, port int, domain string) (*zeroconf.Server, error) {
	server, err := zeroconf.Register(instance, serviceName, domain, port, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("gossip: mdns announce: %w", err)
	}
	return server, nil
}

// DiscoveredPeer is one mDNS-resolved candidate peer.
type DiscoveredPeer struct {
	Instance  string
	Addresses []string
	Port      int
}

// Browse resolves local-network peers via mDNS and invokes onPeer for
// each, retrying the browse call with exponential backoff if the local
// resolver transiently fails to start.
func Browse(ctx context.Context, domain string, onPeer func(DiscoveredPeer)) error {
	operation := func() error {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			return fmt.Errorf("gossip: build mdns resolver: %w", err)
		}

		entries := make(chan *zeroconf.ServiceEntry, 16)
		go func() {
			for entry := range entries {
				addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
				for _, ip := range entry.AddrIPv4 {
					addrs = append(addrs, ip.String())
				}
				for _, ip := range entry.AddrIPv6 {
					addrs = append(addrs, ip.String())
				}
				onPeer(DiscoveredPeer{Instance: entry.Instance, Addresses: addrs, Port: entry.Port})
			}
		}()

		return resolver.Browse(ctx, serviceName, domain, entries)
	}

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(operation, backoff.WithMaxRetries(bo, 5))
}

// dialTimeout is a 10-second budget for one discovery round. Browse
// does not apply it: a browse runs until ctx is done.
const dialTimeout = 10 * time.Second
