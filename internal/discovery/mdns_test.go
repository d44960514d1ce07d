package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
		wantPath string
		wantSize int64
	}{
		{
			name: "IPv4 server",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "modelserve-gemma.task"},
				HostName:      "devbox.local.",
				Port:          8001,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.20")},
				Text:          []string{"path=/gemma.task", "size=4405655031", "version=v1.0.0"},
			},
			wantIP:   "192.168.1.20",
			wantPort: 8001,
			wantPath: "/gemma.task",
			wantSize: 4405655031,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "devbox.local.",
				Port:     8001,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
				Text:     []string{"path=/model.bin"},
			},
			wantIP:   "fe80::1",
			wantPort: 8001,
			wantPath: "/model.bin",
		},
		{
			name: "prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				Port:     9000,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
				Text:     []string{"path=/a", "size=bogus"},
			},
			wantIP:   "10.0.0.5",
			wantPort: 9000,
			wantPath: "/a",
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				Port: 8001,
				Text: []string{"path=/gemma.task"},
			},
			wantNil: true,
		},
		{
			name: "missing path record",
			entry: &zeroconf.ServiceEntry{
				Port:     8001,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
				Text:     []string{"size=10"},
			},
			wantNil: true,
		},
		{
			name: "relative path",
			entry: &zeroconf.ServiceEntry{
				Port:     8001,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
				Text:     []string{"path=gemma.task"},
			},
			wantNil: true,
		},
		{
			name: "no port",
			entry: &zeroconf.ServiceEntry{
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
				Text:     []string{"path=/gemma.task"},
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if ep != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", ep)
				}
				return
			}
			if ep == nil {
				t.Fatal("parseServiceEntry() = nil, want endpoint")
			}
			if ep.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", ep.IP, tt.wantIP)
			}
			if ep.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", ep.Port, tt.wantPort)
			}
			if ep.Path != tt.wantPath {
				t.Errorf("Path = %v, want %v", ep.Path, tt.wantPath)
			}
			if ep.Size != tt.wantSize {
				t.Errorf("Size = %v, want %v", ep.Size, tt.wantSize)
			}
			if time.Since(ep.DiscoveredAt) > time.Second {
				t.Errorf("DiscoveredAt is not recent: %v", ep.DiscoveredAt)
			}
		})
	}
}

func TestServiceTXT_RoundTrip(t *testing.T) {
	svc := Service{
		Instance: "modelserve-gemma.task",
		Port:     8001,
		Path:     "/gemma.task",
		Size:     1000,
		Version:  "v1.2.3",
	}

	ep := parseServiceEntry(&zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: svc.Instance},
		Port:          svc.Port,
		AddrIPv4:      []net.IP{net.ParseIP("127.0.0.1")},
		Text:          svc.TXT(),
	})
	if ep == nil {
		t.Fatal("advertised TXT records were not accepted by the parser")
	}
	if ep.Path != svc.Path || ep.Size != svc.Size || ep.Version != svc.Version {
		t.Errorf("parsed %+v from %+v", ep, svc)
	}
	if ep.URL() != "http://127.0.0.1:8001/gemma.task" {
		t.Errorf("URL() = %q", ep.URL())
	}
}

func TestAdvertise_RejectsInvalidPort(t *testing.T) {
	if _, err := Advertise(Service{Instance: "x", Port: 0, Path: "/x"}); err == nil {
		t.Error("Advertise() with port 0 should fail")
	}
}

func TestDedupe(t *testing.T) {
	a := &Endpoint{IP: "10.0.0.5", Port: 8001, Path: "/m"}
	b := &Endpoint{IP: "10.0.0.5", Port: 8001, Path: "/m"}
	c := &Endpoint{IP: "10.0.0.6", Port: 8001, Path: "/m"}

	got := dedupe([]*Endpoint{a, b, c})
	if len(got) != 2 {
		t.Fatalf("dedupe() returned %d endpoints, want 2", len(got))
	}
	if got[0] != a || got[1] != c {
		t.Errorf("dedupe() did not keep first occurrences in order")
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}
