package slp

import (
	"bufio"
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/kauri-off/mine-search/internal/protocol"
)

// Canonical identity sent in every login probe. The session ends at the
// server's first login answer (after an optional SetCompression), so the
// name only has to be well-formed.
var (
	probeName = "Notch"
	probeUUID = [16]byte{
		0x06, 0x9a, 0x79, 0xf4, 0x44, 0xe9, 0x47, 0x26,
		0xa5, 0xbe, 0xfc, 0xa9, 0x0e, 0x38, 0xaa, 0xf5,
	}
)

// ErrUnexpectedLoginPacket is returned when the server answers the login
// start with a packet id outside the known set.
var ErrUnexpectedLoginPacket = errors.New("unexpected packet during login")

// ExtraData is the outcome of a login-phase probe.
type ExtraData struct {
	IsOnlineMode     bool
	DisconnectReason json.RawMessage
}

// GetExtraData drives the login handshake far enough to learn whether the
// server demands Mojang authentication. The protocol version steers the
// LoginStart dialect. The connection is dropped as soon as the answer is
// known; no encryption is ever negotiated.
func GetExtraData(ctx context.Context, host string, port uint16, protocolVersion int32) (*ExtraData, error) {
	conn, err := dial(ctx, host, port)
	if err != nil {
		return nil, errors.Wrap(err, "connect for login")
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	r := bufio.NewReader(conn)

	handshake := protocol.Handshake{
		ProtocolVersion: protocolVersion,
		ServerAddress:   host,
		ServerPort:      port,
		Intent:          protocol.IntentLogin,
	}
	if err := handshake.Write(conn); err != nil {
		return nil, errors.Wrap(err, "write handshake")
	}

	login := protocol.LoginStart{Name: probeName, UUID: probeUUID}
	if err := login.Write(conn, protocolVersion); err != nil {
		return nil, errors.Wrap(err, "write login start")
	}

	pkt, err := protocol.ReadPacket(r)
	if err != nil {
		return nil, errors.Wrap(err, "read login response")
	}

	// SetCompression may precede the real answer; after it every frame
	// arrives in the compressed format.
	if pkt.ID == protocol.IDSetCompression {
		if _, err := protocol.ReadSetCompression(pkt); err != nil {
			return nil, err
		}
		if pkt, err = protocol.ReadPacketCompressed(r); err != nil {
			return nil, errors.Wrap(err, "read compressed login response")
		}
	}

	switch pkt.ID {
	case protocol.IDLoginDisconnect:
		reason, err := protocol.ReadLoginDisconnect(pkt)
		if err != nil {
			return nil, err
		}
		return &ExtraData{IsOnlineMode: false, DisconnectReason: reasonJSON(reason)}, nil
	case protocol.IDEncryptionRequest:
		return &ExtraData{IsOnlineMode: true}, nil
	case protocol.IDLoginFinished:
		return &ExtraData{IsOnlineMode: false}, nil
	default:
		return nil, errors.Wrapf(ErrUnexpectedLoginPacket, "packet id 0x%02X", pkt.ID)
	}
}

// reasonJSON stores the disconnect reason as a JSON value, falling back
// to a JSON string for reasons that are not valid JSON themselves.
func reasonJSON(reason string) json.RawMessage {
	if json.Valid([]byte(reason)) {
		return json.RawMessage(reason)
	}
	quoted, err := json.Marshal(reason)
	if err != nil {
		return nil
	}
	return quoted
}
