// Package discovery advertises and finds modelserve instances over mDNS.
//
// A running server registers itself as a "_modelserve._tcp" service with TXT
// records describing the artifact:
//
//	path=/gemma-3n-E4B-it-int4.task
//	size=4405655031
//	version=v1.0.0
//
// Clients on the same network segment browse for that service type to learn
// the artifact URL without typing the developer machine's LAN address.
//
// # Usage Example
//
//	ad, err := discovery.Advertise(discovery.Service{
//	    Instance: "modelserve-gemma",
//	    Port:     8001,
//	    Path:     "/gemma.task",
//	    Size:     size,
//	})
//	if err != nil {
//	    return err
//	}
//	defer ad.Shutdown()
//
//	endpoints, err := discovery.NewScanner().Scan(ctx)
//
// # Network Requirements
//
// Multicast must be allowed on the interface and the firewall must let
// UDP port 5353 through.
package discovery
