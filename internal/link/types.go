// internal/link/types.go
package link

import (
	"encoding/binary"
	"net/netip"
)

// IdentityLen matches the persisted identity width.
const IdentityLen = 6

// Hint is the fast-reconnect shortcut carried over a sleep cycle.
type Hint struct {
	Channel uint8
	Peer    [IdentityLen]byte
}

// Identity is what the link observed for the live session.
type Identity struct {
	Channel uint8
	Peer    [IdentityLen]byte
	Device  [IdentityLen]byte
}

// PeerFromAddr packs an IPv4 hub endpoint into a peer identity (4 address bytes + big-endian port).
func PeerFromAddr(ap netip.AddrPort) ([IdentityLen]byte, bool) {
	var out [IdentityLen]byte
	a := ap.Addr().Unmap()
	if !a.Is4() {
		return out, false
	}
	ip := a.As4()
	copy(out[:4], ip[:])
	binary.BigEndian.PutUint16(out[4:], ap.Port())
	return out, true
}

// AddrFromPeer is the inverse of PeerFromAddr.
func AddrFromPeer(p [IdentityLen]byte) (netip.AddrPort, bool) {
	port := binary.BigEndian.Uint16(p[4:])
	if port == 0 {
		return netip.AddrPort{}, false
	}
	return netip.AddrPortFrom(netip.AddrFrom4([4]byte{p[0], p[1], p[2], p[3]}), port), true
}
