// Package slptest runs an in-process fake Minecraft listener for
// exercising the client sessions without a real server.
package slptest

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"net"

	"github.com/kauri-off/mine-search/internal/protocol"
)

// LoginResponder writes the login-phase reply frames for one session.
type LoginResponder func(conn net.Conn, protocolVersion int32)

// Options shape the fake server's behavior per session.
type Options struct {
	// Status returns the status response JSON for each status exchange.
	Status func() string
	// EchoPing answers ping frames with an echo; when false the
	// connection closes after the status response.
	EchoPing bool
	// Login handles login-intent sessions; nil closes the connection.
	Login LoginResponder
}

// Server is a live fake listener.
type Server struct {
	ln   net.Listener
	opts Options

	// Host and Port point at the listener.
	Host string
	Port uint16
}

// Start listens on a loopback port and serves sessions until Close.
func Start(opts Options) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	addr := ln.Addr().(*net.TCPAddr)
	s := &Server{ln: ln, opts: opts, Host: "127.0.0.1", Port: uint16(addr.Port)}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.handle(conn)
		}
	}()
	return s, nil
}

// Close stops the listener.
func (s *Server) Close() {
	_ = s.ln.Close()
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)

	pkt, err := protocol.ReadPacket(r)
	if err != nil || pkt.ID != protocol.IDHandshake {
		return
	}
	protoVersion, intent, ok := parseHandshake(pkt)
	if !ok {
		return
	}

	switch intent {
	case protocol.IntentStatus:
		s.serveStatus(conn, r)
	case protocol.IntentLogin:
		if s.opts.Login == nil {
			return
		}
		if _, err := protocol.ReadPacket(r); err != nil { // login start
			return
		}
		s.opts.Login(conn, protoVersion)
	}
}

func (s *Server) serveStatus(conn net.Conn, r *bufio.Reader) {
	if _, err := protocol.ReadPacket(r); err != nil { // status request
		return
	}

	payload := new(bytes.Buffer)
	if err := protocol.WriteString(payload, s.opts.Status()); err != nil {
		return
	}
	if err := protocol.WritePacket(conn, protocol.IDStatusResponse, payload.Bytes()); err != nil {
		return
	}

	if !s.opts.EchoPing {
		return
	}
	ping, err := protocol.ReadPacket(r)
	if err != nil {
		return
	}
	_ = protocol.WritePacket(conn, protocol.IDPongResponse, ping.Payload)
}

func parseHandshake(pkt *protocol.Packet) (protoVersion int32, intent int32, ok bool) {
	r := pkt.Reader()
	protoVersion, err := protocol.ReadVarInt(r)
	if err != nil {
		return 0, 0, false
	}
	if _, err := protocol.ReadString(r); err != nil { // server address
		return 0, 0, false
	}
	var port uint16
	if err := binary.Read(r, binary.BigEndian, &port); err != nil {
		return 0, 0, false
	}
	intent, err = protocol.ReadVarInt(r)
	if err != nil {
		return 0, 0, false
	}
	return protoVersion, intent, true
}

// Login reply helpers for the four response branches.

// LoginFinished answers with an empty login-finished frame.
func LoginFinished(conn net.Conn, _ int32) {
	_ = protocol.WritePacket(conn, protocol.IDLoginFinished, nil)
}

// EncryptionRequest answers with an empty encryption-request frame.
func EncryptionRequest(conn net.Conn, _ int32) {
	_ = protocol.WritePacket(conn, protocol.IDEncryptionRequest, nil)
}

// Disconnect answers with a login-disconnect frame carrying reason.
func Disconnect(reason string) LoginResponder {
	return func(conn net.Conn, _ int32) {
		payload := new(bytes.Buffer)
		if err := protocol.WriteString(payload, reason); err != nil {
			return
		}
		_ = protocol.WritePacket(conn, protocol.IDLoginDisconnect, payload.Bytes())
	}
}

// CompressedEncryptionRequest enables compression at threshold, then
// answers with an encryption request in the compressed format.
func CompressedEncryptionRequest(threshold int32) LoginResponder {
	return func(conn net.Conn, _ int32) {
		payload := new(bytes.Buffer)
		if err := protocol.WriteVarInt(payload, threshold); err != nil {
			return
		}
		if err := protocol.WritePacket(conn, protocol.IDSetCompression, payload.Bytes()); err != nil {
			return
		}
		_ = protocol.WritePacketCompressed(conn, protocol.IDEncryptionRequest, nil, threshold)
	}
}
