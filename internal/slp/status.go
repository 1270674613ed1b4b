// Package slp drives Server List Ping sessions against a single host:
// the status exchange (with an optional latency measurement) and the
// login-phase probe that classifies online-mode behavior.
package slp

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/kauri-off/mine-search/internal/protocol"
)

// StatusProtocolVersion is the protocol number advertised in the status
// handshake. Servers answer status requests regardless of the version, so
// a recent one is fine for every dialect.
const StatusProtocolVersion = 765

// GetStatus performs the handshake + status request exchange and decodes
// the response. A live socket from the probe may be passed in to avoid a
// second connect; nil dials fresh. The socket is consumed either way.
// The ping measurement is best-effort: when the ping frame is not
// answered the status still succeeds with a nil ping.
func GetStatus(ctx context.Context, host string, port uint16, conn net.Conn) (*protocol.Status, *int64, error) {
	if conn == nil {
		var err error
		conn, err = dial(ctx, host, port)
		if err != nil {
			return nil, nil, errors.Wrap(err, "connect for status")
		}
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	r := bufio.NewReader(conn)

	handshake := protocol.Handshake{
		ProtocolVersion: StatusProtocolVersion,
		ServerAddress:   host,
		ServerPort:      port,
		Intent:          protocol.IntentStatus,
	}
	if err := handshake.Write(conn); err != nil {
		return nil, nil, errors.Wrap(err, "write handshake")
	}
	if err := protocol.WriteStatusRequest(conn); err != nil {
		return nil, nil, errors.Wrap(err, "write status request")
	}

	pkt, err := protocol.ReadPacket(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read status response")
	}
	raw, err := protocol.ReadStatusResponse(pkt)
	if err != nil {
		return nil, nil, err
	}
	status, err := protocol.ParseStatus(raw)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse status json")
	}

	return status, measurePing(conn, r), nil
}

// measurePing sends a ping frame and waits for the echo. Any failure on
// either side just drops the measurement.
func measurePing(conn net.Conn, r *bufio.Reader) *int64 {
	timestamp := time.Now().UnixMilli()
	if err := protocol.WritePingRequest(conn, timestamp); err != nil {
		return nil
	}
	if _, err := protocol.ReadPacket(r); err != nil {
		return nil
	}
	ping := time.Now().UnixMilli() - timestamp
	return &ping
}

func dial(ctx context.Context, host string, port uint16) (net.Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
}
