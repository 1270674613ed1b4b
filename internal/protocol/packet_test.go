package protocol_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kauri-off/mine-search/internal/protocol"
)

var _ = Describe("Framing", func() {
	payload := []byte("status payload bytes")

	It("round-trips uncompressed frames", func() {
		buf := new(bytes.Buffer)
		Expect(protocol.WritePacket(buf, 0x42, payload)).To(Succeed())

		pkt, err := protocol.ReadPacket(bytes.NewReader(buf.Bytes()))
		Expect(err).NotTo(HaveOccurred())
		Expect(pkt.ID).To(Equal(int32(0x42)))
		Expect(pkt.Payload).To(Equal(payload))
	})

	It("round-trips empty payloads", func() {
		buf := new(bytes.Buffer)
		Expect(protocol.WritePacket(buf, 0x00, nil)).To(Succeed())

		pkt, err := protocol.ReadPacket(bytes.NewReader(buf.Bytes()))
		Expect(err).NotTo(HaveOccurred())
		Expect(pkt.ID).To(Equal(int32(0x00)))
		Expect(pkt.Payload).To(BeEmpty())
	})

	It("rejects frames beyond the sanity cap", func() {
		buf := new(bytes.Buffer)
		Expect(protocol.WriteVarInt(buf, 1<<21)).To(Succeed())

		_, err := protocol.ReadPacket(bytes.NewReader(buf.Bytes()))
		Expect(err).To(MatchError(protocol.ErrFrameTooBig))
	})

	Describe("compressed format", func() {
		// dataLength reads the inner data_length prefix of an encoded
		// compressed frame.
		dataLength := func(encoded []byte) int32 {
			r := bytes.NewReader(encoded)
			_, err := protocol.ReadVarInt(r) // total length
			Expect(err).NotTo(HaveOccurred())
			n, err := protocol.ReadVarInt(r)
			Expect(err).NotTo(HaveOccurred())
			return n
		}

		It("always compresses at threshold zero", func() {
			buf := new(bytes.Buffer)
			Expect(protocol.WritePacketCompressed(buf, 0x01, payload, 0)).To(Succeed())
			Expect(dataLength(buf.Bytes())).To(BeNumerically(">", 0))

			pkt, err := protocol.ReadPacketCompressed(bytes.NewReader(buf.Bytes()))
			Expect(err).NotTo(HaveOccurred())
			Expect(pkt.ID).To(Equal(int32(0x01)))
			Expect(pkt.Payload).To(Equal(payload))
		})

		It("compresses only at or above the threshold", func() {
			small := new(bytes.Buffer)
			Expect(protocol.WritePacketCompressed(small, 0x01, payload, 256)).To(Succeed())
			Expect(dataLength(small.Bytes())).To(BeZero())

			big := new(bytes.Buffer)
			Expect(protocol.WritePacketCompressed(big, 0x01, bytes.Repeat([]byte("x"), 256), 256)).To(Succeed())
			Expect(dataLength(big.Bytes())).To(BeNumerically(">", 0))
		})

		It("round-trips both encodings", func() {
			for _, threshold := range []int32{0, 8, 1024} {
				buf := new(bytes.Buffer)
				Expect(protocol.WritePacketCompressed(buf, 0x03, payload, threshold)).To(Succeed())

				pkt, err := protocol.ReadPacketCompressed(bytes.NewReader(buf.Bytes()))
				Expect(err).NotTo(HaveOccurred())
				Expect(pkt.ID).To(Equal(int32(0x03)))
				Expect(pkt.Payload).To(Equal(payload))
			}
		})
	})
})
