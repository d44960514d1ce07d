// Package server publishes a single model artifact over HTTP with byte-range
// support, so a phone or emulator on the LAN can pull multi-gigabyte files in
// resumable chunks.
//
// # Request Handling
//
// Router answers exactly one path, "/" + artifact name:
//
//	GET     200 with the full body, or 206 for a Range request
//	HEAD    200 with the headers of a full GET and no body
//	OPTIONS 200 on any path, including "*"
//	other   405 with an Allow header on the artifact path, 404 elsewhere
//
// Any other path is 404. An unparseable Range is 416 with
// "Content-Range: bytes */<size>". Every reply carries permissive CORS
// headers, errors included.
//
// # Transfers
//
// Transmitter streams the selected range in 64 KiB chunks. Headers are only
// committed once the first chunk has been read, so an I/O failure up front
// still becomes a 500. After that point a failure aborts the connection.
// A client hanging up mid-transfer is logged at info level and never stops
// the server.
//
// # Lifecycle
//
//	Unbound -> PortClearing -> Listening -> Serving -> Stopped
//
// PortClearing is entered only when ReclaimPort is set: PortReclaimer asks
// lsof for the processes listening on the port, sends SIGTERM, waits and
// escalates to SIGKILL. Bind failures on an occupied port come back as a
// *ServeError of type ErrTypePortInUse suggesting the next port.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{
//	    Host:         "0.0.0.0",
//	    Port:         server.DefaultPort,
//	    ArtifactPath: "/models/gemma-3n-E4B-it-int4.task",
//	    ExpectedSize: 4405655031,
//	    ReclaimPort:  true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
package server
