package frontend_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/frontend"
)

var _ FrontEndConformance = (*frontend.NullFrontEnd)(nil)

// FrontEndConformance pins NullFrontEnd to frontend.FrontEnd at compile time.
type FrontEndConformance = frontend.FrontEnd

var _ = Describe("NullFrontEnd", func() {
	It("plays back scripted events one call at a time", func() {
		f := frontend.NewNullFrontEnd()
		req := event.NewCacheRequest(0, 0, 0, 0, 0, event.RegInteger, 0x10, 8, event.Load)
		f.Script[0] = [][]event.Event{{req}, {}}

		var out []event.Event
		Expect(f.SimulateOne(0, 0, &out)).To(BeTrue())
		Expect(out).To(ConsistOf(event.Event(req)))

		out = nil
		Expect(f.SimulateOne(0, 1, &out)).To(BeTrue())
		Expect(out).To(BeEmpty())

		Expect(f.SimulateOne(0, 2, &out)).To(BeFalse())
	})

	It("reports blocked cores without consuming their script", func() {
		f := frontend.NewNullFrontEnd()
		f.Script[0] = [][]event.Event{{}}
		f.Blocked[0] = true

		var out []event.Event
		Expect(f.SimulateOne(0, 0, &out)).To(BeFalse())
		Expect(f.Script[0]).To(HaveLen(1))
	})

	It("records VVL grants and acks", func() {
		f := frontend.NewNullFrontEnd()
		f.SetVVL(2, 16)
		Expect(f.GrantedVVL[2]).To(Equal(uint32(16)))

		Expect(f.AckRegister(2, event.RegVector, 5, 42)).To(BeTrue())
		Expect(f.Acked).To(HaveLen(1))
	})
})
