//go:build !linux && !darwin

package listener

import "net"

// Peer credentials are not available; the socket's file mode is the only
// access control.
func peerUID(*net.UnixConn) (int, error) {
	return -1, errPeerCredUnsupported
}
