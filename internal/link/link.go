// Package link supervises the network interface the broker is reached over.
package link

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Link is the link-layer capability: a connection plus a signal reading.
type Link interface {
	Connect() error
	IsConnected() bool
	// Signal is the link quality in dBm, or 0 when unknown.
	Signal() int
}

// Interface is a Linux network interface. It counts as connected when it is
// up and holds a non-loopback unicast address.
type Interface struct {
	Name         string
	WirelessPath string
}

func NewInterface(name string) *Interface {
	return &Interface{Name: name, WirelessPath: "/proc/net/wireless"}
}

// ipLinkUp brings an interface administratively up.
var ipLinkUp = func(name string) error {
	out, err := exec.Command("ip", "link", "set", name, "up").CombinedOutput()
	if err != nil {
		return fmt.Errorf("ip link set %s up failed: %s (output: %s)", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// interfaceByName is swapped out in tests.
var interfaceByName = func(name string) (*net.Interface, []net.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, nil, err
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, nil, err
	}
	return iface, addrs, nil
}

func (i *Interface) Connect() error {
	iface, _, err := interfaceByName(i.Name)
	if err != nil {
		return fmt.Errorf("interface %s: %w", i.Name, err)
	}

	if iface.Flags&net.FlagUp == 0 {
		log.Info().Str("iface", i.Name).Msg("Bringing interface up")
		if err := ipLinkUp(i.Name); err != nil {
			return err
		}
	}

	if !i.IsConnected() {
		return fmt.Errorf("interface %s has no usable address", i.Name)
	}
	return nil
}

func (i *Interface) IsConnected() bool {
	iface, addrs, err := interfaceByName(i.Name)
	if err != nil || iface.Flags&net.FlagUp == 0 {
		return false
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if !ipnet.IP.IsLoopback() && ipnet.IP.IsGlobalUnicast() {
			return true
		}
	}
	return false
}

func (i *Interface) Signal() int {
	f, err := os.Open(i.WirelessPath)
	if err != nil {
		return 0
	}
	defer f.Close()
	return parseWireless(f, i.Name)
}

// parseWireless extracts the signal level column for iface from
// /proc/net/wireless.
func parseWireless(r io.Reader, iface string) int {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		name, rest, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(name) != iface {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 3 {
			return 0
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "."), 64)
		if err != nil {
			return 0
		}
		return int(level)
	}
	return 0
}
