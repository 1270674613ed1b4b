package protocol

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"
)

// maxFrameLen rejects hostile length prefixes before allocating.
const maxFrameLen = 1 << 20

// ErrFrameTooBig is returned for frames whose declared length fails the
// sanity check.
var ErrFrameTooBig = errors.New("frame length out of range")

// Packet is one decoded frame: packet id plus raw payload bytes.
type Packet struct {
	ID      int32
	Payload []byte
}

// Reader returns a reader positioned at the start of the payload.
func (p *Packet) Reader() *bytes.Reader {
	return bytes.NewReader(p.Payload)
}

// WritePacket writes an uncompressed frame: VarInt(length) VarInt(id) payload.
func WritePacket(w io.Writer, id int32, payload []byte) error {
	body := new(bytes.Buffer)
	if err := WriteVarInt(body, id); err != nil {
		return err
	}
	body.Write(payload)

	if err := WriteVarInt(w, int32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// WritePacketCompressed writes a frame in the compressed format:
// VarInt(total_length) VarInt(data_length) data, where data is the raw
// VarInt(id)+payload either zlib-deflated (data_length = raw size) or, for
// raw sizes below the threshold, verbatim with data_length = 0.
func WritePacketCompressed(w io.Writer, id int32, payload []byte, threshold int32) error {
	raw := new(bytes.Buffer)
	if err := WriteVarInt(raw, id); err != nil {
		return err
	}
	raw.Write(payload)

	body := new(bytes.Buffer)
	if int32(raw.Len()) >= threshold {
		if err := WriteVarInt(body, int32(raw.Len())); err != nil {
			return err
		}
		zw := zlib.NewWriter(body)
		if _, err := zw.Write(raw.Bytes()); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
	} else {
		if err := WriteVarInt(body, 0); err != nil {
			return err
		}
		body.Write(raw.Bytes())
	}

	if err := WriteVarInt(w, int32(body.Len())); err != nil {
		return err
	}
	_, err := w.Write(body.Bytes())
	return err
}

// ReadPacket reads one uncompressed frame.
func ReadPacket(r io.Reader) (*Packet, error) {
	body, err := readFrame(r)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewReader(body)
	id, err := ReadVarInt(buf)
	if err != nil {
		return nil, errors.Wrap(err, "read packet id")
	}

	payload := make([]byte, buf.Len())
	if _, err := io.ReadFull(buf, payload); err != nil {
		return nil, err
	}
	return &Packet{ID: id, Payload: payload}, nil
}

// ReadPacketCompressed reads one frame in the compressed format,
// inflating the body when its data_length prefix is non-zero.
func ReadPacketCompressed(r io.Reader) (*Packet, error) {
	body, err := readFrame(r)
	if err != nil {
		return nil, err
	}

	buf := bytes.NewReader(body)
	dataLen, err := ReadVarInt(buf)
	if err != nil {
		return nil, errors.Wrap(err, "read data length")
	}
	if dataLen < 0 || dataLen > maxFrameLen {
		return nil, ErrFrameTooBig
	}

	var raw io.Reader = buf
	if dataLen > 0 {
		zr, err := zlib.NewReader(buf)
		if err != nil {
			return nil, errors.Wrap(err, "open zlib stream")
		}
		defer zr.Close()
		raw = io.LimitReader(zr, int64(dataLen))
	}

	br := &byteReaderAdapter{r: raw}
	id, err := ReadVarInt(br)
	if err != nil {
		return nil, errors.Wrap(err, "read packet id")
	}

	payload, err := io.ReadAll(raw)
	if err != nil {
		return nil, errors.Wrap(err, "inflate payload")
	}
	return &Packet{ID: id, Payload: payload}, nil
}

// readFrame reads the VarInt length prefix and the frame body.
func readFrame(r io.Reader) ([]byte, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReaderAdapter{r: r}
	}

	length, err := ReadVarInt(br)
	if err != nil {
		return nil, err
	}
	if length < 0 || length > maxFrameLen {
		return nil, ErrFrameTooBig
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
