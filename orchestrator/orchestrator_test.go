package orchestrator_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/frontend"
	"github.com/sarchlab/coyote-go/orchestrator"
)

type fakeSink struct {
	submitted []event.Event
}

func (s *fakeSink) Submit(ev event.Event, now uint64) { s.submitted = append(s.submitted, ev) }

type fakeArbiter struct {
	full map[int]bool
}

func (a *fakeArbiter) HasArbiterQueueFreeSlot(core int) bool { return !a.full[core] }

type fakeLogger struct {
	stalls  []orchestrator.StallReason
	resumes int
}

func (l *fakeLogger) LogInstruction(cycle uint64, core int) {}
func (l *fakeLogger) LogStall(cycle uint64, core int, reason orchestrator.StallReason) {
	l.stalls = append(l.stalls, reason)
}
func (l *fakeLogger) LogResume(cycle uint64, core int) { l.resumes++ }

var _ = Describe("Orchestrator cache miss accounting", func() {
	It("coalesces a second load to an in-flight address instead of resubmitting", func() {
		fe := frontend.NewNullFrontEnd()
		req1 := event.NewCacheRequest(0, 0, 0, 0, 1, event.RegInteger, 0x100, 64, event.Load)
		req2 := event.NewCacheRequest(0, 0, 0, 0, 2, event.RegInteger, 0x100, 64, event.Load)
		fe.Script[0] = [][]event.Event{{req1}, {req2}}

		sink := &fakeSink{}
		arb := &fakeArbiter{full: map[int]bool{}}
		o := orchestrator.New(1, 1, 1, 4, false, fe, sink, arb, nil)

		o.Tick(0)
		o.Tick(1)

		Expect(sink.submitted).To(HaveLen(1))
		Expect(sink.submitted[0]).To(Equal(event.Event(req1)))
	})

	It("defers a load past the in-flight cap and drains it once a slot frees", func() {
		fe := frontend.NewNullFrontEnd()
		req1 := event.NewCacheRequest(0, 0, 0, 0, 1, event.RegInteger, 0x100, 64, event.Load)
		req2 := event.NewCacheRequest(0, 0, 0, 0, 2, event.RegInteger, 0x200, 64, event.Load)
		fe.Script[0] = [][]event.Event{{req1}, {req2}}

		sink := &fakeSink{}
		arb := &fakeArbiter{full: map[int]bool{}}
		o := orchestrator.New(1, 1, 1, 1, false, fe, sink, arb, nil)

		o.Tick(0)
		o.Tick(1)
		Expect(sink.submitted).To(HaveLen(1))

		o.DrainServiced([]event.Event{req1}, 2)
		o.Tick(3)

		Expect(sink.submitted).To(HaveLen(2))
		Expect(sink.submitted[1]).To(Equal(event.Event(req2)))
	})
})

var _ = Describe("Orchestrator barrier synchronization", func() {
	It("holds the first arrival until every other thread also reaches the fence", func() {
		fe := frontend.NewNullFrontEnd()
		fe.Script[0] = [][]event.Event{{event.NewFence(0, 0, 0, 0)}}
		fe.Blocked[1] = true

		sink := &fakeSink{}
		arb := &fakeArbiter{full: map[int]bool{}}
		logger := &fakeLogger{}
		o := orchestrator.New(2, 1, 1, 4, false, fe, sink, arb, logger)

		o.Tick(0)
		Expect(logger.stalls).To(ContainElement(orchestrator.WaitingOnBarrier))
		Expect(logger.resumes).To(Equal(0))

		fe.Blocked[1] = false
		fe.Script[1] = [][]event.Event{{event.NewFence(0, 0, 1, 0)}}
		o.Tick(1)

		Expect(logger.resumes).To(Equal(2))
	})
})

var _ = Describe("Orchestrator fetch-miss deferral", func() {
	It("holds a vector memory instruction produced mid-fetch until the fetch resolves", func() {
		fe := frontend.NewNullFrontEnd()
		fetch := event.NewCacheRequest(0, 0, 0, 0, -1, event.RegDontCare, 0x400, 64, event.Fetch)
		setVVL := event.NewMCPUSetVVL(0, 0, 0, 0, 16, 1.0, 32)
		fe.Script[0] = [][]event.Event{{fetch, setVVL}}

		sink := &fakeSink{}
		arb := &fakeArbiter{full: map[int]bool{}}
		o := orchestrator.New(1, 1, 1, 4, false, fe, sink, arb, nil)

		o.Tick(0)
		Expect(sink.submitted).To(HaveLen(1))
		Expect(sink.submitted[0]).To(Equal(event.Event(fetch)))

		o.DrainServiced([]event.Event{fetch}, 1)

		Expect(sink.submitted).To(HaveLen(2))
		Expect(sink.submitted[1]).To(Equal(event.Event(setVVL)))
	})
})
