// internal/link/signal.go
package link

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

const wirelessProc = "/proc/net/wireless"

// SignalStrength reports the interface signal level in dBm.
// ok is false on wired interfaces or hosts without wireless stats.
func (l *Link) SignalStrength() (int, bool) {
	if l.iface == "" {
		return 0, false
	}
	f, err := os.Open(wirelessProc)
	if err != nil {
		return 0, false
	}
	defer f.Close()
	return parseWireless(f, l.iface)
}

// parseWireless reads the "level" column for iface from /proc/net/wireless.
//
//	Inter-| sta-|   Quality        |   Discarded packets               | Missed | WE
//	 face | tus | link level noise |  nwid  crypt   frag  retry   misc | beacon | 22
//	 wlan0: 0000   54.  -56.  -256        0      0      0      0      0        0
func parseWireless(r io.Reader, iface string) (int, bool) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] != iface+":" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(fields[3], "."), 64)
		if err != nil {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}
