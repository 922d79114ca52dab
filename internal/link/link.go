// internal/link/link.go
package link

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/pion/logging"

	"github.com/tamzrod/sensor-node/internal/logutil"
)

var (
	ErrRadioOff        = errors.New("link: radio is off")
	ErrChannelMismatch = errors.New("link: hinted channel not available")
	ErrInterfaceDown   = errors.New("link: interface down")
)

// Config is the host network attachment config.
type Config struct {
	// Interface names the network interface; empty picks the first
	// non-loopback interface that is up and has a hardware address.
	Interface string

	// HubAddress is a static "ip:port". When empty the hub is discovered.
	HubAddress string

	DiscoveryService string
	DiscoveryDomain  string

	// AttemptTimeout bounds one connection attempt (discovery + probe).
	AttemptTimeout time.Duration

	// Browser overrides mDNS discovery. Nil uses zeroconf.
	Browser Browser

	LoggerFactory logging.LoggerFactory
}

// Link is the node's attachment to the hub's network.
// A connection attempt resolves the hub and proves it reachable with a TCP probe;
// the resulting channel/peer/device identity feeds the persisted session record.
type Link struct {
	cfg     Config
	log     logging.LeveledLogger
	browser Browser
	static  netip.AddrPort

	off       bool
	connected bool
	iface     string
	hub       netip.AddrPort
	identity  Identity
}

// New validates config. It never touches the network.
func New(cfg Config) (*Link, error) {
	if cfg.AttemptTimeout <= 0 {
		return nil, errors.New("link: attempt timeout must be > 0")
	}

	l := &Link{
		cfg:     cfg,
		log:     logutil.Scoped(cfg.LoggerFactory, "link"),
		browser: cfg.Browser,
	}

	if cfg.HubAddress != "" {
		ap, err := netip.ParseAddrPort(cfg.HubAddress)
		if err != nil {
			return nil, fmt.Errorf("link: hub address %q: %w", cfg.HubAddress, err)
		}
		l.static = ap
	} else if cfg.DiscoveryService == "" {
		return nil, errors.New("link: hub address or discovery service required")
	}

	return l, nil
}

// Connect makes one attempt. A non-nil hint skips discovery and goes
// straight to the remembered peer on the remembered channel.
func (l *Link) Connect(ctx context.Context, hint *Hint) error {
	if l.off {
		return ErrRadioOff
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.AttemptTimeout)
	defer cancel()

	ifi, err := l.pickInterface()
	if err != nil {
		return err
	}
	channel := uint8(ifi.Index)

	var target netip.AddrPort
	switch {
	case hint != nil:
		if hint.Channel != channel {
			return fmt.Errorf("%w: hint=%d current=%d", ErrChannelMismatch, hint.Channel, channel)
		}
		ap, ok := AddrFromPeer(hint.Peer)
		if !ok {
			return errors.New("link: hint carries no peer")
		}
		target = ap

	case l.static.IsValid():
		target = l.static

	default:
		if l.browser == nil {
			b, err := newZeroconfBrowser()
			if err != nil {
				return fmt.Errorf("link: mdns: %w", err)
			}
			l.browser = b
		}
		domain := l.cfg.DiscoveryDomain
		if domain == "" {
			domain = "local."
		}
		ap, err := discover(ctx, l.browser, l.cfg.DiscoveryService, domain)
		if err != nil {
			return err
		}
		target = ap
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", target.String())
	if err != nil {
		return fmt.Errorf("link: probe %s: %w", target, err)
	}
	_ = conn.Close()

	peer, ok := PeerFromAddr(target)
	if !ok {
		return fmt.Errorf("link: hub %s is not IPv4", target)
	}

	var device [IdentityLen]byte
	copy(device[:], ifi.HardwareAddr)

	l.iface = ifi.Name
	l.hub = target
	l.identity = Identity{Channel: channel, Peer: peer, Device: device}
	l.connected = true

	l.log.Debugf("attached via %s (channel %d) to hub %s", ifi.Name, channel, target)
	return nil
}

// Connected is the health check: attached, radio on, and the interface still up.
func (l *Link) Connected() bool {
	if !l.connected || l.off {
		return false
	}
	ifi, err := net.InterfaceByName(l.iface)
	if err != nil || ifi.Flags&net.FlagUp == 0 {
		return false
	}
	return true
}

// Identity returns the identity of the live session.
func (l *Link) Identity() Identity { return l.identity }

// HubAddr is the hub endpoint resolved by the last successful attempt.
func (l *Link) HubAddr() string {
	if !l.hub.IsValid() {
		return ""
	}
	return l.hub.String()
}

// DeviceID is the lowercase hex device identity without separators.
func (l *Link) DeviceID() string {
	d := l.identity.Device
	if d == ([IdentityLen]byte{}) {
		if ifi, err := l.pickInterface(); err == nil {
			copy(d[:], ifi.HardwareAddr)
		}
	}
	return fmt.Sprintf("%02x%02x%02x%02x%02x%02x", d[0], d[1], d[2], d[3], d[4], d[5])
}

// Reset drops the session so the next attempt starts from scratch.
func (l *Link) Reset() {
	l.connected = false
	l.hub = netip.AddrPort{}
	l.log.Debug("reset")
}

// Off disables the radio until Wake.
func (l *Link) Off() {
	l.off = true
	l.connected = false
}

func (l *Link) Wake() { l.off = false }

func (l *Link) pickInterface() (*net.Interface, error) {
	if l.cfg.Interface != "" {
		ifi, err := net.InterfaceByName(l.cfg.Interface)
		if err != nil {
			return nil, fmt.Errorf("link: interface %s: %w", l.cfg.Interface, err)
		}
		if ifi.Flags&net.FlagUp == 0 {
			return nil, fmt.Errorf("%w: %s", ErrInterfaceDown, ifi.Name)
		}
		return ifi, nil
	}

	ifs, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("link: interfaces: %w", err)
	}
	for i := range ifs {
		ifi := ifs[i]
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0 || len(ifi.HardwareAddr) < IdentityLen {
			continue
		}
		return &ifi, nil
	}
	return nil, fmt.Errorf("%w: no usable interface", ErrInterfaceDown)
}
