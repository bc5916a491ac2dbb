package netutil

import (
	"fmt"
	"net"
	"sort"
	"strings"
)

// Interface is a local IPv4 interface a SIP endpoint can bind to.
type Interface struct {
	Name        string `json:"name"`
	IP          string `json:"ip"`
	DisplayName string `json:"display_name"`
}

// FriendlyName maps OS interface names onto something a settings screen can show.
func FriendlyName(name string) string {
	switch {
	case name == "lo" || name == "lo0":
		return "Loopback"
	case strings.HasPrefix(name, "en") && len(name) <= 4:
		return "Ethernet"
	case strings.HasPrefix(name, "eth"):
		return "Ethernet"
	case strings.HasPrefix(name, "wl"), strings.HasPrefix(name, "wi"):
		return "Wi-Fi"
	case strings.Contains(name, "docker"):
		return "Docker"
	case strings.Contains(name, "vmnet"):
		return "VMware"
	case strings.Contains(name, "vbox"):
		return "VirtualBox"
	case strings.Contains(name, "bridge"):
		return "Bridge"
	case strings.Contains(name, "tap"):
		return "TAP"
	case strings.Contains(name, "tun"):
		return "TUN"
	default:
		return name
	}
}

// AvailableInterfaces lists candidate IPv4 bind addresses, most useful first
// (ethernet, then wi-fi, then the rest). Loopback is included only as a
// last resort so a machine with no network still gets a working default.
func AvailableInterfaces() []Interface {
	ifaces, err := net.Interfaces()
	if err != nil {
		return []Interface{loopback()}
	}

	var out []Interface
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || ip4.IsLoopback() {
				continue
			}
			out = append(out, newInterface(ifc.Name, ip4.String()))
		}
	}
	if len(out) == 0 {
		return []Interface{loopback()}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return priority(out[i]) < priority(out[j])
	})
	return out
}

// DefaultIP returns the IP of the best available interface.
func DefaultIP() string {
	return AvailableInterfaces()[0].IP
}

func newInterface(name, ip string) Interface {
	return Interface{
		Name:        name,
		IP:          ip,
		DisplayName: fmt.Sprintf("%s (%s)", FriendlyName(name), ip),
	}
}

func loopback() Interface {
	return newInterface("lo", "127.0.0.1")
}

func priority(i Interface) int {
	switch FriendlyName(i.Name) {
	case "Loopback":
		return 3
	case "Ethernet":
		return 0
	case "Wi-Fi":
		return 1
	default:
		return 2
	}
}
