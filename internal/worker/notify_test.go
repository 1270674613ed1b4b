package worker

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kauri-off/mine-search/internal/db"
	"github.com/kauri-off/mine-search/internal/slp/slptest"
)

var _ = Describe("notifyCycle", func() {
	It("is a no-op on empty queues", func() {
		e := newTestEngine()
		Expect(e.notifyCycle(context.Background())).To(Succeed())
	})

	It("drains ping requests and quick targets exactly once", func() {
		e := newTestEngine()

		srv, err := slptest.Start(slptest.Options{
			Status: func() string { return statusJSON(2, 16, "dave") },
			Login:  slptest.LoginFinished,
		})
		Expect(err).NotTo(HaveOccurred())
		defer srv.Close()

		// A known server on a dead port: the ping request marks it offline.
		// It sits on its own loopback address, since server rows are unique
		// per ip and the quick target below ingests 127.0.0.1.
		offline := seedServer(e, "127.0.0.2", closedPort())
		Expect(e.DB.Create(&db.PingRequest{ServerID: offline.ID, WithConnection: false}).Error).To(Succeed())

		// A quick target at the fake server, an invalid one, and a slow
		// one that must survive the notify cycle.
		Expect(e.DB.Create(&db.ScanTarget{IP: srv.Host, Port: int32(srv.Port), Quick: true}).Error).To(Succeed())
		Expect(e.DB.Create(&db.ScanTarget{IP: "not-an-address", Port: 25565, Quick: true}).Error).To(Succeed())
		Expect(e.DB.Create(&db.ScanTarget{IP: "203.0.114.9", Port: 25565, Quick: false}).Error).To(Succeed())

		Expect(e.notifyCycle(context.Background())).To(Succeed())

		var pings int64
		Expect(e.DB.Model(&db.PingRequest{}).Count(&pings).Error).To(Succeed())
		Expect(pings).To(BeZero())

		var remaining []db.ScanTarget
		Expect(e.DB.Find(&remaining).Error).To(Succeed())
		Expect(remaining).To(HaveLen(1))
		Expect(remaining[0].Quick).To(BeFalse())

		var after db.Server
		Expect(e.DB.First(&after, offline.ID).Error).To(Succeed())
		Expect(after.IsOnline).To(BeFalse())

		var ingested db.Server
		Expect(e.DB.Where("ip = ? AND port = ?", srv.Host, int32(srv.Port)).First(&ingested).Error).To(Succeed())
		Expect(ingested.IsOnline).To(BeTrue())

		// A second cycle finds nothing left to process.
		Expect(e.notifyCycle(context.Background())).To(Succeed())
	})

	It("skips ping requests for servers that vanished", func() {
		e := newTestEngine()
		Expect(e.DB.Create(&db.PingRequest{ServerID: 4242}).Error).To(Succeed())

		Expect(e.notifyCycle(context.Background())).To(Succeed())

		var pings int64
		Expect(e.DB.Model(&db.PingRequest{}).Count(&pings).Error).To(Succeed())
		Expect(pings).To(BeZero())
	})
})

var _ = Describe("ProcessExternalTargets", func() {
	It("ingests slow targets and leaves quick ones alone", func() {
		e := newTestEngine()

		srv, err := slptest.Start(slptest.Options{
			Status: func() string { return statusJSON(1, 10) },
			Login:  slptest.LoginFinished,
		})
		Expect(err).NotTo(HaveOccurred())
		defer srv.Close()

		Expect(e.DB.Create(&db.ScanTarget{IP: srv.Host, Port: int32(srv.Port), Quick: false}).Error).To(Succeed())
		Expect(e.DB.Create(&db.ScanTarget{IP: "9.9.9.9", Port: 25565, Quick: true}).Error).To(Succeed())

		Expect(e.ProcessExternalTargets(context.Background())).To(Succeed())

		var remaining []db.ScanTarget
		Expect(e.DB.Find(&remaining).Error).To(Succeed())
		Expect(remaining).To(HaveLen(1))
		Expect(remaining[0].Quick).To(BeTrue())

		var count int64
		Expect(e.DB.Model(&db.Server{}).Count(&count).Error).To(Succeed())
		Expect(count).To(Equal(int64(1)))
	})

	It("returns immediately when the queue is empty", func() {
		e := newTestEngine()
		Expect(e.ProcessExternalTargets(context.Background())).To(Succeed())
	})
})
