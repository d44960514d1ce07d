package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type modelserve instances advertise
	ServiceType = "_modelserve._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 5 * time.Second
)

// TXT record keys
const (
	txtPath    = "path"
	txtSize    = "size"
	txtVersion = "version"
)

// Service describes a running server for advertisement
type Service struct {
	Instance string
	Port     int
	Path     string // Artifact URL path, e.g. "/gemma.task"
	Size     int64
	Version  string
}

// TXT renders the service metadata as TXT records
func (s Service) TXT() []string {
	txt := []string{
		txtPath + "=" + s.Path,
		txtSize + "=" + strconv.FormatInt(s.Size, 10),
	}
	if s.Version != "" {
		txt = append(txt, txtVersion+"="+s.Version)
	}
	return txt
}

// Advertisement is a registered mDNS service
type Advertisement struct {
	server *zeroconf.Server
}

// Shutdown withdraws the advertisement
func (a *Advertisement) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// Advertise publishes svc on all multicast-capable interfaces
func Advertise(svc Service) (*Advertisement, error) {
	if svc.Port <= 0 {
		return nil, fmt.Errorf("cannot advertise port %d", svc.Port)
	}
	server, err := zeroconf.Register(svc.Instance, ServiceType, ServiceDomain, svc.Port, svc.TXT(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Advertisement{server: server}, nil
}

// Scanner browses the local network for modelserve instances
type Scanner struct {
	// Timeout is the maximum time to wait for responses
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan collects every server that answers before the timeout
func (s *Scanner) Scan(ctx context.Context) ([]*Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu        sync.Mutex
		endpoints []*Endpoint
	)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if ep := parseServiceEntry(entry); ep != nil {
					mu.Lock()
					endpoints = append(endpoints, ep)
					mu.Unlock()
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done

	mu.Lock()
	defer mu.Unlock()
	return dedupe(endpoints), nil
}

// FindFirst returns the first server that answers
func (s *Scanner) FindFirst(ctx context.Context) (*Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Endpoint, 1)

	go func() {
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if ep := parseServiceEntry(entry); ep != nil {
					found <- ep
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case ep := <-found:
		return ep, nil
	case <-ctx.Done():
		select {
		case ep := <-found:
			return ep, nil
		default:
		}
		return nil, fmt.Errorf("no modelserve instance found within %s", s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf entry to an Endpoint. Entries without
// an address or an absolute artifact path are ignored.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Endpoint {
	if entry == nil {
		return nil
	}

	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port <= 0 {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	path := metadata[txtPath]
	if !strings.HasPrefix(path, "/") {
		return nil
	}

	var size int64
	if v, ok := metadata[txtSize]; ok {
		size, _ = strconv.ParseInt(v, 10, 64)
	}

	return &Endpoint{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Path:         path,
		Size:         size,
		Version:      metadata[txtVersion],
		DiscoveredAt: time.Now(),
	}
}

func dedupe(endpoints []*Endpoint) []*Endpoint {
	seen := make(map[string]bool)
	out := make([]*Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		key := ep.URL()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ep)
	}
	return out
}
