package protocol

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// Handshake intents.
const (
	IntentStatus = 1
	IntentLogin  = 2
)

// Serverbound packet ids.
const (
	IDHandshake     = 0x00
	IDStatusRequest = 0x00
	IDPingRequest   = 0x01
	IDLoginStart    = 0x00
)

// Clientbound packet ids.
const (
	IDStatusResponse    = 0x00
	IDPongResponse      = 0x01
	IDLoginDisconnect   = 0x00
	IDEncryptionRequest = 0x01
	IDLoginFinished     = 0x02
	IDSetCompression    = 0x03
)

// Handshake is the first serverbound packet of every session. Intent 1
// switches the connection to the status state, intent 2 to login.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	Intent          int32
}

// Write encodes and sends the handshake as an uncompressed frame.
func (h Handshake) Write(w io.Writer) error {
	buf := new(bytes.Buffer)
	if err := WriteVarInt(buf, h.ProtocolVersion); err != nil {
		return err
	}
	if err := WriteString(buf, h.ServerAddress); err != nil {
		return err
	}
	if err := WriteUint16(buf, h.ServerPort); err != nil {
		return err
	}
	if err := WriteVarInt(buf, h.Intent); err != nil {
		return err
	}
	return WritePacket(w, IDHandshake, buf.Bytes())
}

// WriteStatusRequest sends the empty status request frame.
func WriteStatusRequest(w io.Writer) error {
	return WritePacket(w, IDStatusRequest, nil)
}

// WritePingRequest sends a ping frame carrying a millisecond timestamp the
// server echoes back.
func WritePingRequest(w io.Writer, timestamp int64) error {
	buf := new(bytes.Buffer)
	if err := WriteInt64(buf, timestamp); err != nil {
		return err
	}
	return WritePacket(w, IDPingRequest, buf.Bytes())
}

// ReadStatusResponse decodes the JSON string out of a status response frame.
func ReadStatusResponse(p *Packet) (string, error) {
	if p.ID != IDStatusResponse {
		return "", errors.Errorf("unexpected packet id 0x%02X for status response", p.ID)
	}
	return ReadString(p.Reader())
}

// LoginStart identifies the client at the start of the login state. The
// wire shape changed several times; MarshalForProtocol emits the dialect
// matching the peer's protocol version.
type LoginStart struct {
	Name string
	UUID [16]byte
}

// MarshalForProtocol returns the LoginStart payload for the given protocol
// version:
//
//	>= 764    name + uuid
//	761..763  name + has_uuid(true) + uuid
//	760       name + has_sig_data(false) + has_uuid(true) + uuid
//	759       name + has_uuid(false)
//	<  759    name
func (l LoginStart) MarshalForProtocol(protocol int32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := WriteString(buf, l.Name); err != nil {
		return nil, err
	}

	switch {
	case protocol >= 764:
		buf.Write(l.UUID[:])
	case protocol >= 761:
		if err := WriteBool(buf, true); err != nil {
			return nil, err
		}
		buf.Write(l.UUID[:])
	case protocol == 760:
		if err := WriteBool(buf, false); err != nil { // has_sig_data
			return nil, err
		}
		if err := WriteBool(buf, true); err != nil { // has_uuid
			return nil, err
		}
		buf.Write(l.UUID[:])
	case protocol == 759:
		if err := WriteBool(buf, false); err != nil { // has_uuid
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Write encodes and sends the dialect-correct LoginStart frame.
func (l LoginStart) Write(w io.Writer, protocol int32) error {
	payload, err := l.MarshalForProtocol(protocol)
	if err != nil {
		return err
	}
	return WritePacket(w, IDLoginStart, payload)
}

// ReadSetCompression decodes the threshold out of a SetCompression frame.
func ReadSetCompression(p *Packet) (int32, error) {
	if p.ID != IDSetCompression {
		return 0, errors.Errorf("unexpected packet id 0x%02X for set compression", p.ID)
	}
	return ReadVarInt(p.Reader())
}

// ReadLoginDisconnect decodes the reason string out of a disconnect frame.
func ReadLoginDisconnect(p *Packet) (string, error) {
	if p.ID != IDLoginDisconnect {
		return "", errors.Errorf("unexpected packet id 0x%02X for login disconnect", p.ID)
	}
	return ReadString(p.Reader())
}
