// internal/link/discovery.go
package link

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/grandcat/zeroconf"
)

// ErrHubNotFound means discovery finished without an IPv4 hub entry.
var ErrHubNotFound = errors.New("link: hub not found")

// Browser is the mDNS browse operation used for full discovery.
// Browse starts delivering entries and returns; delivery stops when ctx ends.
type Browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// zeroconfBrowser is the production Browser.
type zeroconfBrowser struct {
	resolver *zeroconf.Resolver
}

func newZeroconfBrowser() (*zeroconfBrowser, error) {
	r, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}
	return &zeroconfBrowser{resolver: r}, nil
}

func (z *zeroconfBrowser) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	return z.resolver.Browse(ctx, service, domain, entries)
}

// discover returns the first hub advertising service with an IPv4 address.
func discover(ctx context.Context, b Browser, service, domain string) (netip.AddrPort, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 4)
	if err := b.Browse(ctx, service, domain, entries); err != nil {
		return netip.AddrPort{}, fmt.Errorf("link: browse %s: %w", service, err)
	}

	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return netip.AddrPort{}, ErrHubNotFound
			}
			if ap, ok := entryAddr(e); ok {
				return ap, nil
			}
		case <-ctx.Done():
			return netip.AddrPort{}, ErrHubNotFound
		}
	}
}

func entryAddr(e *zeroconf.ServiceEntry) (netip.AddrPort, bool) {
	if e == nil || e.Port <= 0 || e.Port > 0xFFFF {
		return netip.AddrPort{}, false
	}
	for _, ip := range e.AddrIPv4 {
		if a, ok := netip.AddrFromSlice(ip.To4()); ok {
			return netip.AddrPortFrom(a, uint16(e.Port)), true
		}
	}
	return netip.AddrPort{}, false
}
