package event_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/event"
)

var _ = Describe("RegisterEvent servicing", func() {
	It("transitions serviced false->true exactly once", func() {
		r := event.NewCacheRequest(10, 0, 0, 0, 1, event.RegInteger, 0x1000, 64, event.Load)
		Expect(r.Serviced()).To(BeFalse())
		Expect(r.SetServiced()).To(BeTrue())
		Expect(r.Serviced()).To(BeTrue())
		Expect(r.SetServiced()).To(BeFalse())
	})
})

var _ = Describe("Waypoints", func() {
	It("is write-once per waypoint", func() {
		w := &event.Waypoints{}
		w.SetReachArbiter(5)
		w.SetReachArbiter(9)

		cycle, ok := w.ReachArbiter()
		Expect(ok).To(BeTrue())
		Expect(cycle).To(Equal(uint64(5)))
	})

	It("reports unset waypoints", func() {
		w := &event.Waypoints{}
		_, ok := w.ReachMC()
		Expect(ok).To(BeFalse())
	})
})
