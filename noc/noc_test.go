package noc_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/noc"
)

func destKind(mt noc.MessageType) noc.PEKind {
	switch mt {
	case noc.MemoryRequestLoad, noc.MemoryRequestStore, noc.MemoryRequestWriteback:
		return noc.DestMemoryCPU
	default:
		return noc.DestTile
	}
}

func newTestClassTable() *noc.ClassTable {
	assignments := map[noc.MessageType][2]int{
		noc.RemoteL2Request:       {0, 0},
		noc.RemoteL2Ack:           {0, 0},
		noc.MemoryRequestLoad:     {1, 0},
		noc.MemoryRequestStore:    {1, 0},
		noc.MemoryRequestWriteback: {1, 1},
		noc.MemoryResponse:        {0, 1},
		noc.ScratchpadAck:         {0, 1},
		noc.ScratchpadDataReply:   {0, 1},
	}
	return noc.NewClassTable([]string{"request", "memory"}, assignments, nil)
}

var _ = Describe("ClassTable", func() {
	It("panics when a message type is unmapped", func() {
		Expect(func() {
			noc.NewClassTable([]string{"request"}, map[noc.MessageType][2]int{
				noc.RemoteL2Request: {0, 0},
			}, nil)
		}).To(Panic())
	})

	It("resolves network and class for a mapped type", func() {
		ct := newTestClassTable()
		network, class := ct.NetworkAndClass(noc.RemoteL2Ack)
		Expect(network).To(Equal(0))
		Expect(class).To(Equal(0))
	})
})

var _ = Describe("NoC functional backend", func() {
	It("delivers a packet only once its constant delay has elapsed", func() {
		backend := noc.NewFunctionalBackend(map[noc.MessageType]uint64{
			noc.RemoteL2Request: 10,
		}, 1)
		n := noc.New(newTestClassTable(), backend, nil, destKind)

		msg := &noc.Message{Type: noc.RemoteL2Request, Source: 0, Destination: 1}
		n.HandleMessageFromTile(msg, 100)

		Expect(n.DeliverOnePacketToDestination(109)).To(BeEmpty())
		Expect(n.HasPacketsInFlight()).To(BeTrue())

		delivered := n.DeliverOnePacketToDestination(110)
		Expect(delivered).To(HaveLen(1))
		Expect(delivered[0]).To(BeIdenticalTo(msg))
		Expect(n.HasPacketsInFlight()).To(BeFalse())
	})

	It("never delivers two messages to the same destination in one cycle from the same network", func() {
		backend := noc.NewFunctionalBackend(nil, 1)
		n := noc.New(newTestClassTable(), backend, nil, destKind)

		a := &noc.Message{Type: noc.RemoteL2Request, Source: 0, Destination: 1}
		b := &noc.Message{Type: noc.RemoteL2Request, Source: 2, Destination: 1}
		n.HandleMessageFromTile(a, 0)
		n.HandleMessageFromTile(b, 0)

		delivered := n.DeliverOnePacketToDestination(1)
		Expect(delivered).To(HaveLen(1))
	})
})

type alwaysBusy struct{ allow bool }

func (a *alwaysBusy) AbleToReceivePacket(msg *noc.Message) bool { return a.allow }

var _ = Describe("Memory-CPU admission", func() {
	It("defers delivery one cycle when the memory CPU cannot receive", func() {
		backend := noc.NewFunctionalBackend(nil, 1)
		admission := &alwaysBusy{allow: false}
		n := noc.New(newTestClassTable(), backend, admission, destKind)

		msg := &noc.Message{Type: noc.MemoryRequestLoad, Source: 0, Destination: 5}
		n.HandleMessageFromTile(msg, 0)

		Expect(n.DeliverOnePacketToDestination(1)).To(BeEmpty())

		admission.allow = true
		delivered := n.DeliverOnePacketToDestination(2)
		Expect(delivered).To(HaveLen(1))
	})
})

type scriptedEngine struct {
	retireAt map[int]uint64
	next     int
}

func (e *scriptedEngine) Inject(msg *noc.Message, now uint64) int {
	e.next++
	return e.next
}

func (e *scriptedEngine) Retired(handle int) (uint64, bool) {
	cycle, ok := e.retireAt[handle]
	return cycle, ok
}

func (e *scriptedEngine) Advance(now uint64) {}

var _ = Describe("DetailedBackend", func() {
	It("delivers immediately when the engine already knows the retirement cycle", func() {
		engine := &scriptedEngine{retireAt: map[int]uint64{1: 105}}
		backend := noc.NewDetailedBackend(engine)
		n := noc.New(newTestClassTable(), backend, nil, destKind)

		msg := &noc.Message{Type: noc.RemoteL2Request, Source: 0, Destination: 1}
		n.HandleMessageFromTile(msg, 100)

		Expect(n.DeliverOnePacketToDestination(104)).To(BeEmpty())
		Expect(n.DeliverOnePacketToDestination(105)).To(HaveLen(1))
	})

	It("revises eligibility once Tick discovers a previously unknown retirement cycle", func() {
		engine := &scriptedEngine{retireAt: map[int]uint64{}}
		backend := noc.NewDetailedBackend(engine)
		n := noc.New(newTestClassTable(), backend, nil, destKind)

		msg := &noc.Message{Type: noc.RemoteL2Request, Source: 0, Destination: 1}
		n.HandleMessageFromTile(msg, 100)

		Expect(n.DeliverOnePacketToDestination(101)).To(BeEmpty())
		Expect(n.HasPacketsInFlight()).To(BeTrue())

		engine.retireAt[1] = 103
		n.Tick(102)
		Expect(n.DeliverOnePacketToDestination(102)).To(BeEmpty())

		delivered := n.DeliverOnePacketToDestination(103)
		Expect(delivered).To(HaveLen(1))
		Expect(delivered[0]).To(BeIdenticalTo(msg))
	})
})

var _ = Describe("SimpleMeshBackend", func() {
	It("computes latency from Manhattan distance", func() {
		coords := map[int]noc.Coord{0: {X: 0, Y: 0}, 1: {X: 2, Y: 1}}
		b := noc.NewSimpleMeshBackend(2, 1, 3, coords)
		msg := &noc.Message{Source: 0, Destination: 1}
		Expect(b.PacketLatency(msg, 0)).To(Equal(uint64(2 + 1 + 3*3)))
	})

	It("panics for an unplaced PE", func() {
		b := noc.NewSimpleMeshBackend(0, 0, 1, map[int]noc.Coord{0: {}})
		msg := &noc.Message{Source: 0, Destination: 9}
		Expect(func() { b.PacketLatency(msg, 0) }).To(Panic())
	})
})
