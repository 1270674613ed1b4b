package scanner_test

import (
	"context"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kauri-off/mine-search/internal/scanner"
)

var _ = Describe("Probe", func() {
	It("hands back the live socket on success", func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		defer ln.Close()

		port := uint16(ln.Addr().(*net.TCPAddr).Port)
		conn, err := scanner.Probe(context.Background(), "127.0.0.1", port)
		Expect(err).NotTo(HaveOccurred())
		Expect(conn.Close()).To(Succeed())
	})

	It("fails fast on a closed port", func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		port := uint16(ln.Addr().(*net.TCPAddr).Port)
		Expect(ln.Close()).To(Succeed())

		start := time.Now()
		_, err = scanner.Probe(context.Background(), "127.0.0.1", port)
		Expect(err).To(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
	})

	It("honors an already cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := scanner.Probe(ctx, "127.0.0.1", 1)
		Expect(err).To(HaveOccurred())
	})
})
