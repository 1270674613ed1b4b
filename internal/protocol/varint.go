// Package protocol implements the subset of the Minecraft Java protocol
// needed to query server status and classify online-mode behavior:
// VarInt primitives, packet framing (plain and zlib-compressed), the
// handshake/status/login packets and the status response JSON model.
package protocol

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ErrVarIntTooBig is returned when a VarInt runs past 5 bytes.
var ErrVarIntTooBig = errors.New("varint is too big")

// ErrStringTooLong is returned for string lengths beyond the protocol cap.
var ErrStringTooLong = errors.New("string too long")

// maxStringLen bounds incoming string lengths to protect against OOM
// from hostile length prefixes.
const maxStringLen = 32767 * 3 + 2

// ReadVarInt reads a variable-length integer from the reader.
// VarInt is a Minecraft protocol primitive that uses 1-5 bytes.
func ReadVarInt(r io.ByteReader) (int32, error) {
	var numRead int
	var result uint32
	for {
		read, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(read&0x7F) << (7 * numRead)

		numRead++
		if numRead > 5 {
			return 0, ErrVarIntTooBig
		}

		if (read & 0x80) == 0 {
			break
		}
	}
	return int32(result), nil
}

// WriteVarInt writes a variable-length integer to the writer.
func WriteVarInt(w io.Writer, value int32) error {
	v := uint32(value)
	for {
		temp := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			temp |= 0x80
		}
		if _, err := w.Write([]byte{temp}); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}

// VarIntLen reports how many bytes WriteVarInt would emit for value.
func VarIntLen(value int32) int {
	v := uint32(value)
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// WriteString writes a string in protocol format: VarInt length + UTF-8 bytes.
func WriteString(w io.Writer, s string) error {
	b := []byte(s)
	if err := WriteVarInt(w, int32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadString reads a string in protocol format: VarInt length + UTF-8 bytes.
func ReadString(r io.Reader) (string, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReaderAdapter{r: r}
	}

	length, err := ReadVarInt(br)
	if err != nil {
		return "", err
	}
	if length < 0 || length > maxStringLen {
		return "", ErrStringTooLong
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// WriteUint16 writes a big-endian unsigned short.
func WriteUint16(w io.Writer, v uint16) error {
	return binary.Write(w, binary.BigEndian, v)
}

// WriteInt64 writes a big-endian signed long.
func WriteInt64(w io.Writer, v int64) error {
	return binary.Write(w, binary.BigEndian, v)
}

// WriteBool writes a protocol boolean (single byte, 0x00 or 0x01).
func WriteBool(w io.Writer, b bool) error {
	var v byte
	if b {
		v = 0x01
	}
	_, err := w.Write([]byte{v})
	return err
}

// byteReaderAdapter adapts io.Reader to io.ByteReader for VarInt decoding.
type byteReaderAdapter struct {
	r   io.Reader
	buf [1]byte
}

func (b *byteReaderAdapter) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.r, b.buf[:]); err != nil {
		return 0, err
	}
	return b.buf[0], nil
}
