package slp_test

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kauri-off/mine-search/internal/slp"
	"github.com/kauri-off/mine-search/internal/slp/slptest"
)

const paperStatus = `{
	"version": {"name": "Paper 1.20.2", "protocol": 764},
	"players": {"online": 3, "max": 20, "sample": [
		{"id": "069a79f4-44e9-4726-a5be-fca90e38aaf5", "name": "alice"}
	]},
	"description": {"text": "Hello"}
}`

func probeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

var _ = Describe("GetStatus", func() {
	It("returns the decoded status and a plausible ping", func() {
		srv, err := slptest.Start(slptest.Options{
			Status:   func() string { return paperStatus },
			EchoPing: true,
		})
		Expect(err).NotTo(HaveOccurred())
		defer srv.Close()

		ctx, cancel := probeCtx()
		defer cancel()

		start := time.Now()
		status, ping, err := slp.GetStatus(ctx, srv.Host, srv.Port, nil)
		elapsed := time.Since(start)

		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version.Name).To(Equal("Paper 1.20.2"))
		Expect(status.Version.Protocol).To(Equal(int32(764)))
		Expect(status.Players.Online).To(Equal(int64(3)))
		Expect(status.Players.Max).To(Equal(int64(20)))
		Expect(status.Players.Sample).To(HaveLen(1))
		Expect(status.Players.Sample[0].Name).To(Equal("alice"))

		Expect(ping).NotTo(BeNil())
		Expect(*ping).To(BeNumerically(">=", 0))
		Expect(*ping).To(BeNumerically("<=", elapsed.Milliseconds()+1))
	})

	It("still succeeds when the ping echo never arrives", func() {
		srv, err := slptest.Start(slptest.Options{
			Status:   func() string { return paperStatus },
			EchoPing: false,
		})
		Expect(err).NotTo(HaveOccurred())
		defer srv.Close()

		ctx, cancel := probeCtx()
		defer cancel()

		status, ping, err := slp.GetStatus(ctx, srv.Host, srv.Port, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Players.Max).To(Equal(int64(20)))
		Expect(ping).To(BeNil())
	})

	It("flags forge servers", func() {
		srv, err := slptest.Start(slptest.Options{
			Status: func() string {
				return `{
					"version": {"name": "Forge 1.19.2", "protocol": 760},
					"players": {"online": 0, "max": 64},
					"description": "modded",
					"forgeData": {"fmlNetworkVersion": 3}
				}`
			},
		})
		Expect(err).NotTo(HaveOccurred())
		defer srv.Close()

		ctx, cancel := probeCtx()
		defer cancel()

		status, _, err := slp.GetStatus(ctx, srv.Host, srv.Port, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(status.IsForge()).To(BeTrue())
	})

	It("fails on a dead port", func() {
		srv, err := slptest.Start(slptest.Options{Status: func() string { return paperStatus }})
		Expect(err).NotTo(HaveOccurred())
		srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_, _, err = slp.GetStatus(ctx, srv.Host, srv.Port, nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("GetExtraData", func() {
	It("classifies an offline-mode server", func() {
		srv, err := slptest.Start(slptest.Options{Login: slptest.LoginFinished})
		Expect(err).NotTo(HaveOccurred())
		defer srv.Close()

		ctx, cancel := probeCtx()
		defer cancel()

		extra, err := slp.GetExtraData(ctx, srv.Host, srv.Port, 764)
		Expect(err).NotTo(HaveOccurred())
		Expect(extra.IsOnlineMode).To(BeFalse())
		Expect(extra.DisconnectReason).To(BeNil())
	})

	It("classifies an online-mode server", func() {
		srv, err := slptest.Start(slptest.Options{Login: slptest.EncryptionRequest})
		Expect(err).NotTo(HaveOccurred())
		defer srv.Close()

		ctx, cancel := probeCtx()
		defer cancel()

		extra, err := slp.GetExtraData(ctx, srv.Host, srv.Port, 764)
		Expect(err).NotTo(HaveOccurred())
		Expect(extra.IsOnlineMode).To(BeTrue())
	})

	It("stores a whitelist disconnect as parsed JSON", func() {
		srv, err := slptest.Start(slptest.Options{
			Login: slptest.Disconnect(`{"text":"You are not whitelisted on this server!"}`),
		})
		Expect(err).NotTo(HaveOccurred())
		defer srv.Close()

		ctx, cancel := probeCtx()
		defer cancel()

		extra, err := slp.GetExtraData(ctx, srv.Host, srv.Port, 763)
		Expect(err).NotTo(HaveOccurred())
		Expect(extra.IsOnlineMode).To(BeFalse())

		var reason map[string]string
		Expect(json.Unmarshal(extra.DisconnectReason, &reason)).To(Succeed())
		Expect(reason).To(HaveKeyWithValue("text", "You are not whitelisted on this server!"))
	})

	It("wraps a plain-text reason as a JSON string", func() {
		srv, err := slptest.Start(slptest.Options{
			Login: slptest.Disconnect("outdated client"),
		})
		Expect(err).NotTo(HaveOccurred())
		defer srv.Close()

		ctx, cancel := probeCtx()
		defer cancel()

		extra, err := slp.GetExtraData(ctx, srv.Host, srv.Port, 47)
		Expect(err).NotTo(HaveOccurred())

		var reason string
		Expect(json.Unmarshal(extra.DisconnectReason, &reason)).To(Succeed())
		Expect(reason).To(Equal("outdated client"))
	})

	It("reads the answer through mid-login compression", func() {
		srv, err := slptest.Start(slptest.Options{
			Login: slptest.CompressedEncryptionRequest(256),
		})
		Expect(err).NotTo(HaveOccurred())
		defer srv.Close()

		ctx, cancel := probeCtx()
		defer cancel()

		extra, err := slp.GetExtraData(ctx, srv.Host, srv.Port, 765)
		Expect(err).NotTo(HaveOccurred())
		Expect(extra.IsOnlineMode).To(BeTrue())
	})

	It("inflates frames at threshold zero", func() {
		srv, err := slptest.Start(slptest.Options{
			Login: slptest.CompressedEncryptionRequest(0),
		})
		Expect(err).NotTo(HaveOccurred())
		defer srv.Close()

		ctx, cancel := probeCtx()
		defer cancel()

		extra, err := slp.GetExtraData(ctx, srv.Host, srv.Port, 765)
		Expect(err).NotTo(HaveOccurred())
		Expect(extra.IsOnlineMode).To(BeTrue())
	})
})
