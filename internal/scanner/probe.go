package scanner

import (
	"context"
	"net"
	"strconv"
	"time"
)

// ConnectTimeout bounds the TCP dial on the random-scan path. Anything
// slower than this is not worth a status exchange.
const ConnectTimeout = 750 * time.Millisecond

// Probe opens a TCP connection to host:port within ConnectTimeout. On
// success the live socket is returned so the status exchange can reuse it
// instead of reconnecting. There are no retries at this layer.
func Probe(ctx context.Context, host string, port uint16) (net.Conn, error) {
	dialer := net.Dialer{Timeout: ConnectTimeout}
	return dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
}
