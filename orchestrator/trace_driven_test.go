package orchestrator_test

import (
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/orchestrator"
)

type scriptedReader struct {
	accesses []orchestrator.Access
	next     int
}

func (r *scriptedReader) Next() (orchestrator.Access, error) {
	if r.next >= len(r.accesses) {
		return orchestrator.Access{}, io.EOF
	}
	a := r.accesses[r.next]
	r.next++
	return a, nil
}

var _ = Describe("TraceDrivenOrchestrator", func() {
	It("submits each record once its timestamp arrives, resolving core to tile", func() {
		reader := &scriptedReader{accesses: []orchestrator.Access{
			{Timestamp: 0, Core: 0, PC: 0x400, Type: event.Load, Size: 64, Address: 0x1000},
			{Timestamp: 5, Core: 4, PC: 0x408, Type: event.Store, Size: 8, Address: 0x2000},
		}}
		sink := &fakeSink{}
		o := orchestrator.NewTraceDrivenOrchestrator(reader, sink, nil, func(core int) int { return core / 4 })

		o.Tick(0)
		Expect(sink.submitted).To(HaveLen(1))
		req := sink.submitted[0].(*event.CacheRequest)
		Expect(req.SourceTile()).To(Equal(0))
		Expect(req.Type).To(Equal(event.Load))
		Expect(o.IsFinished()).To(BeFalse())

		o.Tick(4)
		Expect(sink.submitted).To(HaveLen(1))

		o.Tick(5)
		Expect(sink.submitted).To(HaveLen(2))
		req2 := sink.submitted[1].(*event.CacheRequest)
		Expect(req2.SourceTile()).To(Equal(1))
		Expect(req2.Type).To(Equal(event.Store))
	})

	It("is not finished until every submitted request has been acknowledged", func() {
		reader := &scriptedReader{accesses: []orchestrator.Access{
			{Timestamp: 0, Core: 0, PC: 0, Type: event.Load, Size: 64, Address: 0x1000},
		}}
		sink := &fakeSink{}
		o := orchestrator.NewTraceDrivenOrchestrator(reader, sink, nil, func(core int) int { return 0 })

		o.Tick(0)
		Expect(o.IsFinished()).To(BeFalse())

		o.DrainServiced(sink.submitted, 1)
		Expect(o.IsFinished()).To(BeTrue())
	})
})
