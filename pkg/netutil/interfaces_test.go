package netutil

import "testing"

func TestFriendlyName(t *testing.T) {
	cases := map[string]string{
		"eth0":    "Ethernet",
		"en0":     "Ethernet",
		"wlan0":   "Wi-Fi",
		"lo":      "Loopback",
		"lo0":     "Loopback",
		"docker0": "Docker",
		"tun3":    "TUN",
		"weird9":  "weird9",
	}
	for in, want := range cases {
		if got := FriendlyName(in); got != want {
			t.Errorf("FriendlyName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAvailableInterfaces_NeverEmpty(t *testing.T) {
	ifaces := AvailableInterfaces()
	if len(ifaces) == 0 {
		t.Fatalf("expected at least one interface (loopback fallback)")
	}
	for _, i := range ifaces {
		if i.IP == "" || i.DisplayName == "" {
			t.Errorf("incomplete interface entry: %+v", i)
		}
	}
}

func TestDefaultIP_Parseable(t *testing.T) {
	if DefaultIP() == "" {
		t.Fatalf("expected a default IP")
	}
}

func TestPriorityOrder(t *testing.T) {
	if priority(newInterface("eth0", "10.0.0.1")) >= priority(newInterface("lo", "127.0.0.1")) {
		t.Fatalf("ethernet should sort before loopback")
	}
	if priority(newInterface("eth0", "10.0.0.1")) >= priority(newInterface("wlan0", "10.0.0.2")) {
		t.Fatalf("ethernet should sort before wi-fi")
	}
}
