package orchestrator

import (
	"errors"
	"io"

	"github.com/sarchlab/coyote-go/event"
)

// TraceReader is the narrow view of trace.Reader the orchestrator needs:
// pulling one parsed access at a time until the trace is exhausted.
type TraceReader interface {
	Next() (Access, error)
}

// Access mirrors trace.Access without importing the trace package, the same
// narrow-interface idiom orchestrator.Sink/ArbiterQuery/Logger already use to
// avoid a dependency on a concrete collaborator's package.
type Access struct {
	Timestamp uint64
	Core      int
	PC        uint32
	Type      event.CacheRequestType
	Size      uint32
	Address   uint64
}

// TraceDrivenOrchestrator replays a fixed, pre-recorded sequence of cache
// accesses instead of stepping a front end thread by thread, grounded on
// TraceDrivenSimulationOrchestrator::run: it advances the clock up to each
// record's timestamp, submits the CacheRequest it describes, then (once the
// trace is exhausted) simply waits for every request still in flight to come
// back. There is no register file or front end thread behind a trace replay,
// so completions are only counted, never used to wake anything.
type TraceDrivenOrchestrator struct {
	reader     TraceReader
	sink       Sink
	logger     Logger
	coreToTile func(core int) int

	currentCycle uint64
	inFlight     int
	next         *Access
	exhausted    bool
}

// NewTraceDrivenOrchestrator builds a TraceDrivenOrchestrator over reader,
// submitting accepted requests to sink. coreToTile resolves a trace record's
// core column to its originating tile, the way eventmanager.Topology does
// for the execution-driven path.
func NewTraceDrivenOrchestrator(reader TraceReader, sink Sink, logger Logger, coreToTile func(core int) int) *TraceDrivenOrchestrator {
	o := &TraceDrivenOrchestrator{
		reader:     reader,
		sink:       sink,
		logger:     logger,
		coreToTile: coreToTile,
	}
	o.advance()
	return o
}

func (o *TraceDrivenOrchestrator) advance() {
	access, err := o.reader.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			panic("orchestrator: trace read failed: " + err.Error())
		}
		o.exhausted = true
		o.next = nil
		return
	}
	o.next = &access
}

// CurrentCycle returns the orchestrator's own clock.
func (o *TraceDrivenOrchestrator) CurrentCycle() uint64 { return o.currentCycle }

// IsFinished reports whether the trace has been fully read and every request
// it produced has been acknowledged.
func (o *TraceDrivenOrchestrator) IsFinished() bool {
	return o.exhausted && o.inFlight == 0
}

// Tick submits every trace record whose timestamp has arrived by now,
// mirroring run()'s "advance the scheduler, then inject" loop collapsed onto
// this simulator's own explicit per-cycle clock.
func (o *TraceDrivenOrchestrator) Tick(now uint64) {
	o.currentCycle = now

	for !o.exhausted && o.next.Timestamp <= now {
		access := *o.next
		tile := o.coreToTile(access.Core)
		req := event.NewCacheRequest(access.Timestamp, access.PC, access.Core, tile, -1, event.RegDontCare, access.Address, access.Size, access.Type)

		o.inFlight++
		o.sink.Submit(req, now)
		if o.logger != nil {
			o.logger.LogInstruction(now, access.Core)
		}

		o.advance()
	}
}

// DrainServiced retires every acknowledgement the memory system produced
// this cycle. A trace replay has no register dependencies to wake, so this
// only tracks how many requests are still outstanding.
func (o *TraceDrivenOrchestrator) DrainServiced(serviced []event.Event, now uint64) {
	o.inFlight -= len(serviced)
}
