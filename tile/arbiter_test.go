package tile_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/noc"
	"github.com/sarchlab/coyote-go/tile"
)

type recordingInjector struct {
	sent []*noc.Message
}

func (r *recordingInjector) NetworkAndClass(mt noc.MessageType) (int, int) { return 0, 0 }
func (r *recordingInjector) HandleMessageFromTile(msg *noc.Message, now uint64) {
	r.sent = append(r.sent, msg)
}

type recordingBank struct {
	received []*event.CacheRequest
}

func (b *recordingBank) Submit(req *event.CacheRequest, now uint64) {
	b.received = append(b.received, req)
}

var _ = Describe("Arbiter", func() {
	var (
		injector *recordingInjector
		bank0    *recordingBank
		arb      *tile.Arbiter
	)

	BeforeEach(func() {
		injector = &recordingInjector{}
		bank0 = &recordingBank{}
		arb = tile.NewArbiter("T0", 2, 1, 1, 4, injector)
		arb.AddBank(0, bank0)
	})

	It("round-robins NoC-bound traffic across inputs", func() {
		m0 := &noc.Message{Type: noc.RemoteL2Request, Source: 0, Destination: 9}
		m1 := &noc.Message{Type: noc.RemoteL2Request, Source: 1, Destination: 9}
		Expect(arb.SubmitNoC(true, 0, m0, 0)).To(BeTrue())
		Expect(arb.SubmitNoC(true, 1, m1, 0)).To(BeTrue())

		arb.SubmitToNoC(0)
		Expect(injector.sent).To(HaveLen(1))

		arb.SubmitToNoC(0)
		Expect(injector.sent).To(HaveLen(2))
		Expect(injector.sent[0]).NotTo(BeIdenticalTo(injector.sent[1]))
	})

	It("delivers an L2-bound request to its bank once ready", func() {
		req := event.NewCacheRequest(0, 0, 0, 0, 0, event.RegInteger, 0x100, 8, event.Load)
		Expect(arb.SubmitL2(0, 0, req, 0, 3)).To(BeTrue())

		arb.SubmitToL2(2)
		Expect(bank0.received).To(BeEmpty())

		arb.SubmitToL2(3)
		Expect(bank0.received).To(HaveLen(1))
		cycle, ok := req.Waypoints().ReachCacheBank()
		Expect(ok).To(BeTrue())
		Expect(cycle).To(Equal(uint64(3)))
	})

	It("reports HasTraffic while a queue is non-empty", func() {
		Expect(arb.HasTraffic()).To(BeFalse())
		req := event.NewCacheRequest(0, 0, 0, 0, 0, event.RegInteger, 0x200, 8, event.Load)
		arb.SubmitL2(0, 0, req, 0, 0)
		Expect(arb.HasTraffic()).To(BeTrue())
		arb.SubmitToL2(0)
		Expect(arb.HasTraffic()).To(BeFalse())
	})

	It("rejects a submission once the input queue is full", func() {
		for i := 0; i < 4; i++ {
			req := event.NewCacheRequest(0, 0, 0, 0, 0, event.RegInteger, uint64(i), 8, event.Load)
			Expect(arb.SubmitL2(0, 0, req, 0, 0)).To(BeTrue())
		}
		overflow := event.NewCacheRequest(0, 0, 0, 0, 0, event.RegInteger, 99, 8, event.Load)
		Expect(arb.SubmitL2(0, 0, overflow, 0, 0)).To(BeFalse())
	})
})
