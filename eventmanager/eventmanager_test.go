package eventmanager_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/eventmanager"
	"github.com/sarchlab/coyote-go/noc"
)

type fakeTile struct {
	id        int
	received  []event.RegisterEvent
	freeSlots map[int]bool
}

func (t *fakeTile) PutAccess(r event.RegisterEvent, now uint64) {
	t.received = append(t.received, r)
}

func (t *fakeTile) HasArbiterQueueFreeSlot(localCore int) bool {
	return t.freeSlots[localCore]
}

type fakeMCPU struct {
	id       int
	received []*noc.Message
	pending  bool
}

func (m *fakeMCPU) HandleNoCMessage(msg *noc.Message, now uint64) {
	m.received = append(m.received, msg)
}

func (m *fakeMCPU) HasPendingWork() bool { return m.pending }

var _ = Describe("Manager routing", func() {
	var (
		topo eventmanager.Topology
		mgr  *eventmanager.Manager
		t0   *fakeTile
		t1   *fakeTile
		mc0  *fakeMCPU
	)

	BeforeEach(func() {
		topo = eventmanager.Topology{
			CoresPerTile: 2,
			CoreToMCPU:   func(core int) int { return 0 },
		}
		mgr = eventmanager.New(topo)
		t0 = &fakeTile{id: 0, freeSlots: map[int]bool{0: true, 1: false}}
		t1 = &fakeTile{id: 1, freeSlots: map[int]bool{0: true}}
		mc0 = &fakeMCPU{id: 0}
		mgr.RegisterTile(0, t0)
		mgr.RegisterTile(1, t1)
		mgr.RegisterMCPU(0, mc0)
	})

	It("forwards a CacheRequest to the tile named by its SourceTile", func() {
		req := event.NewCacheRequest(0, 0, 4, 1, 5, event.RegVector, 0x100, 64, event.Load)
		mgr.Submit(req, 0)

		Expect(t1.received).To(ConsistOf(event.RegisterEvent(req)))
		Expect(t0.received).To(BeEmpty())
	})

	It("delivers vector memory instructions directly to the core's memory-CPU, bypassing tiles", func() {
		instr := event.NewMCPUInstruction(0, 0, 4, 1, 5, 0x200, event.MCPULoad, event.Unit, 32, nil, 0)
		mgr.Submit(instr, 0)

		Expect(mc0.received).To(HaveLen(1))
		Expect(mc0.received[0].Payload).To(BeIdenticalTo(instr))
		Expect(t0.received).To(BeEmpty())
		Expect(t1.received).To(BeEmpty())
	})

	It("reports arbiter free slots by translating a global core id through the topology", func() {
		Expect(mgr.HasArbiterQueueFreeSlot(0)).To(BeTrue())
		Expect(mgr.HasArbiterQueueFreeSlot(1)).To(BeFalse())
		Expect(mgr.HasArbiterQueueFreeSlot(2)).To(BeTrue())
	})

	It("matures a pending InsnLatencyEvent only once its available cycle arrives", func() {
		le := event.NewInsnLatencyEvent(0, 0, 4, 1, -1, event.RegDontCare, 5, event.RegVector, 3, 10)
		mgr.Submit(le, 0)

		mgr.Tick(5)
		Expect(mgr.DrainServiced()).To(BeEmpty())

		mgr.Tick(10)
		serviced := mgr.DrainServiced()
		Expect(serviced).To(ConsistOf(event.Event(le)))
		Expect(le.Serviced()).To(BeTrue())
	})

	It("buffers acks from tiles and memory-CPUs until drained", func() {
		cacheReq := event.NewCacheRequest(0, 0, 4, 1, 5, event.RegVector, 0x100, 64, event.Load)
		spReq := event.NewScratchpadRequest(0, 0, 4, 1, 0x100, 64, event.Read, 0, 5)
		setVVL := event.NewMCPUSetVVL(0, 0, 4, 1, 8, 1, 32)

		mgr.NotifyAck(cacheReq)
		mgr.NotifyScratchpadAck(spReq)
		mgr.NotifyMCPUAck(setVVL)

		Expect(mgr.DrainServiced()).To(ConsistOf(
			event.Event(cacheReq), event.Event(spReq), event.Event(setVVL),
		))
		Expect(mgr.DrainServiced()).To(BeEmpty())
	})

	It("reports pending work while the latency queue or a memory-CPU still has unfinished work", func() {
		Expect(mgr.HasPendingWork()).To(BeFalse())

		mc0.pending = true
		Expect(mgr.HasPendingWork()).To(BeTrue())
	})
})
