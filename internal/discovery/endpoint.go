package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Endpoint is a modelserve instance found on the network
type Endpoint struct {
	// Instance is the advertised instance name
	Instance string

	// Hostname is the mDNS hostname (e.g., "devbox.local.")
	Hostname string

	// IP is the preferred address (IPv4 when available)
	IP string

	// Port is the HTTP port
	Port int

	// Path is the artifact URL path
	Path string

	// Size is the advertised artifact length (0 if unknown)
	Size int64

	// Version is the server version
	Version string

	// DiscoveredAt is when the endpoint answered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the endpoint
func (e *Endpoint) String() string {
	return fmt.Sprintf("%s at %s", e.Instance, e.URL())
}

// BaseURL returns the HTTP base URL for the server
func (e *Endpoint) BaseURL() string {
	return "http://" + net.JoinHostPort(e.IP, strconv.Itoa(e.Port))
}

// URL returns the full artifact URL
func (e *Endpoint) URL() string {
	return e.BaseURL() + e.Path
}
