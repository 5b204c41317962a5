package tile_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/tile"
)

func buildSingleTileWithL3(sink *recordingSink, injector *recordingInjector) *tile.Tile {
	geo := tile.NewGeometry(64, 256, 1, 1, 1, 1, 32, 0, 0)
	return tile.NewBuilder().
		WithID(0).
		WithTopology(1, 1).
		WithNetworks(1).
		WithArbiterQueueDepth(4).
		WithGeometry(geo).
		WithPolicies(tile.SetInterleaving, tile.CoreToBank).
		WithNoCInjector(injector).
		WithSink(sink).
		WithBankLatencies(5, 1).
		WithL3(64, 1, 1).
		WithL3Latencies(2, 3, 4).
		Build()
}

var _ = Describe("L3Bank", func() {
	It("sends a bypass-L2 request (a writeback) through the L3 tier and onto the NoC on miss", func() {
		sink := &recordingSink{}
		injector := &recordingInjector{}
		tl := buildSingleTileWithL3(sink, injector)

		req := event.NewCacheRequest(0, 0, 0, 0, -1, event.RegDontCare, 0x1000, 64, event.Writeback)
		req.Flags.BypassL2 = true
		tl.PutAccess(req, 0)

		Expect(tl.HasPendingWork()).To(BeTrue())

		tl.Tick(0)
		tl.Tick(1)
		tl.Tick(2)
		tl.Tick(3) // miss latency (3) elapses, request routed onward to memory

		Expect(injector.sent).To(HaveLen(1))
	})

	It("resolves a repeat access to the same line as a hit", func() {
		sink := &recordingSink{}
		injector := &recordingInjector{}
		tl := buildSingleTileWithL3(sink, injector)

		first := event.NewCacheRequest(0, 0, 0, 0, -1, event.RegDontCare, 0x1000, 64, event.Writeback)
		first.Flags.BypassL2 = true
		tl.PutAccess(first, 0)
		for c := uint64(0); c <= 3; c++ {
			tl.Tick(c)
		}
		Expect(injector.sent).To(HaveLen(1))

		second := event.NewCacheRequest(4, 0, 0, 0, -1, event.RegDontCare, 0x1000, 64, event.Writeback)
		second.Flags.BypassL2 = true
		tl.PutAccess(second, 4)
		for c := uint64(4); c <= 6; c++ {
			tl.Tick(c)
		}

		// A hit resolves locally through PutAccess/NotifyAck rather than
		// issuing a second NoC message.
		Expect(injector.sent).To(HaveLen(1))
		Expect(sink.acked).To(ContainElement(second))
	})
})
