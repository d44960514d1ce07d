package server

import (
	"fmt"
	"net"
)

// LocalIP returns the address of the interface that routes to the internet,
// falling back to 127.0.0.1. No packets are sent; dialing UDP only selects a
// route.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer func() { _ = conn.Close() }()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && addr.IP != nil {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

// BaseURL formats an http base URL for host and port.
func BaseURL(host string, port int) string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(port)))
}

// Endpoints returns the local and LAN base URLs for a server on port.
func Endpoints(port int) (local, lan string) {
	return BaseURL("localhost", port), BaseURL(LocalIP(), port)
}

// AppDefineKey is the compile-time variable the mobile app reads its model
// server base URL from.
const AppDefineKey = "LOCAL_MODEL_SERVER"

// AppBuildFlag returns the build flag that points an app build at base,
// e.g. "--dart-define=LOCAL_MODEL_SERVER=http://10.0.0.5:8001".
func AppBuildFlag(base string) string {
	return fmt.Sprintf("--dart-define=%s=%s", AppDefineKey, base)
}
