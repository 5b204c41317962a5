// Package orchestrator drives the per-cycle simulation loop: stepping cores
// through the external front end, dispatching the events they produce,
// tracking MSHR occupancy and barrier synchronization, and multiplexing
// threads onto cores under coarse-grained multithreading.
package orchestrator

import (
	"github.com/sarchlab/coyote-go/event"
	"github.com/sarchlab/coyote-go/frontend"
)

// StallReason classifies why a core is not currently runnable.
type StallReason int

// Stall reasons, mirroring the original simulator's taxonomy.
const (
	NotStalled StallReason = iota
	RAW
	MSHRs
	FetchMiss
	VectorWaitingOnScalarStore
	WaitingOnBarrier
	CoreFinished
	MaxReasons
)

func (r StallReason) String() string {
	switch r {
	case NotStalled:
		return "NOT_STALLED"
	case RAW:
		return "RAW"
	case MSHRs:
		return "MSHRS"
	case FetchMiss:
		return "FETCH_MISS"
	case VectorWaitingOnScalarStore:
		return "VECTOR_WAITING_ON_SCALAR_STORE"
	case WaitingOnBarrier:
		return "WAITING_ON_BARRIER"
	case CoreFinished:
		return "CORE_FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Sink is where an accepted request is submitted onward (to a tile's
// arbiter or a memory-CPU wrapper), keyed by the event's own routing.
type Sink interface {
	Submit(ev event.Event, now uint64)
}

// ArbiterQuery answers whether core has room to inject another request.
type ArbiterQuery interface {
	HasArbiterQueueFreeSlot(core int) bool
}

// Logger records stall/resume trace records. A nil Logger disables tracing.
type Logger interface {
	LogInstruction(cycle uint64, core int)
	LogStall(cycle uint64, core int, reason StallReason)
	LogResume(cycle uint64, core int)
}

type inFlightEntry struct {
	req     *event.CacheRequest
	waiters []*event.CacheRequest
}

type threadState struct {
	finished          bool
	waitingOnFetch    bool
	waitingOnMSHRs    bool
	waitingOnScalar   bool
	inBarrier         bool
	stallReason       StallReason

	pendingMisses        []*event.CacheRequest
	pendingFetchMisses   []*event.CacheRequest
	pendingSetVVL        *event.MCPUSetVVL
	pendingMCPUInsn      *event.MCPUInstruction
	pendingLatencyEvents []*event.InsnLatencyEvent
	pendingFence         bool
}

// Orchestrator is the execution-driven simulation loop (spec.md §4.6): each
// cycle it steps one runnable thread per core group through the front end,
// dispatches the events produced, drains acknowledgements handed back by the
// memory system, and advances coarse-grained thread scheduling and the
// simulated clock.
type Orchestrator struct {
	numCores          int
	threadsPerCore    int
	threadSwitch      uint64
	maxInFlightMisses int
	l1Writeback       bool

	frontEnd frontend.FrontEnd
	sink     Sink
	arbiter  ArbiterQuery
	logger   Logger

	currentCycle uint64

	threads []threadState

	// runnable[group] is the thread index (absolute core id) currently
	// selected to execute for that core group, or -1 if the whole group has
	// run out of runnable members.
	runnable []int
	// cursor[group] is the round-robin starting point for the next
	// selection within the group.
	cursor []int

	stalledForArbiter map[int]bool

	// inFlight[group] coalesces outstanding L1 misses by address: a second
	// miss to an address already in flight piggybacks on the first and is
	// acked when it returns, instead of being resubmitted. Only LOADs
	// coalesce; STORE/WRITEBACK traffic always submits independently.
	inFlight []map[uint64]*inFlightEntry

	barrierArrivals int
	barrierGroupOf  int // -1 when no barrier is in progress
}

// New builds an Orchestrator for numCores cores arranged into groups of
// threadsPerCore threads apiece (CGMT), backed by fe and submitting accepted
// requests to sink. arbiter answers per-core admission queries and logger
// (may be nil) records stall/resume trace events.
func New(numCores, threadsPerCore int, threadSwitch uint64, maxInFlightMisses int, l1Writeback bool, fe frontend.FrontEnd, sink Sink, arbiter ArbiterQuery, logger Logger) *Orchestrator {
	numGroups := numCores / threadsPerCore

	o := &Orchestrator{
		numCores:          numCores,
		threadsPerCore:    threadsPerCore,
		threadSwitch:      threadSwitch,
		maxInFlightMisses: maxInFlightMisses,
		l1Writeback:       l1Writeback,
		frontEnd:          fe,
		sink:              sink,
		arbiter:           arbiter,
		logger:            logger,
		threads:           make([]threadState, numCores),
		runnable:          make([]int, numGroups),
		cursor:            make([]int, numGroups),
		stalledForArbiter: make(map[int]bool),
		inFlight:          make([]map[uint64]*inFlightEntry, numGroups),
		barrierGroupOf:    -1,
	}
	for g := 0; g < numGroups; g++ {
		o.runnable[g] = g * threadsPerCore
		o.inFlight[g] = make(map[uint64]*inFlightEntry)
	}
	return o
}

func (o *Orchestrator) group(core int) int { return core / o.threadsPerCore }

// IsFinished reports whether every thread has retired.
func (o *Orchestrator) IsFinished() bool {
	for i := range o.threads {
		if !o.threads[i].finished {
			return false
		}
	}
	return true
}

// CurrentCycle returns the orchestrator's own clock.
func (o *Orchestrator) CurrentCycle() uint64 { return o.currentCycle }

// Tick runs one full cycle at now (spec.md §4.6's phases 1-3: step, dispatch,
// thread scheduling). NoC delivery and memory-controller ticking live in
// their own packages and are driven by the caller in between Tick and
// DrainServiced.
func (o *Orchestrator) Tick(now uint64) {
	o.currentCycle = now
	o.stepRunnableThreads(now)
	o.retryStalledForArbiter(now)
}

func (o *Orchestrator) stepRunnableThreads(now uint64) {
	for g, core := range o.runnable {
		if core < 0 {
			continue
		}
		t := &o.threads[core]
		if t.finished {
			continue
		}

		if t.stallReason == RAW {
			t.stallReason = NotStalled
		}

		var produced []event.Event
		advanced := o.frontEnd.SimulateOne(core, now, &produced)

		accepted := true
		for _, ev := range produced {
			if !o.dispatchLive(core, ev, now) {
				accepted = false
			}
		}

		if !advanced {
			// A RAW-blocked thread keeps its slot and is simply retried next
			// cycle; only a stall that requires an external wakeup (a memory
			// reply, a barrier release, ...) hands the slot to another
			// thread in the group.
			o.stall(core, RAW, now)
			continue
		}
		if t.finished {
			o.stall(core, CoreFinished, now)
			o.advanceGroup(g, now)
			continue
		}
		if t.stallReason != NotStalled {
			o.advanceGroup(g, now)
			continue
		}
		if !accepted {
			o.stalledForArbiter[core] = true
			o.advanceGroup(g, now)
			continue
		}
		if o.logger != nil {
			o.logger.LogInstruction(now, core)
		}
	}
}

// dispatchLive handles an event freshly produced by SimulateOne, before it is
// accepted onto the memory system. It returns false if the request could not
// be admitted this cycle (no free arbiter slot), in which case the caller
// stalls the issuing core.
func (o *Orchestrator) dispatchLive(core int, ev event.Event, now uint64) bool {
	t := &o.threads[core]

	switch e := ev.(type) {
	case *event.Finish:
		t.finished = true
		t.stallReason = CoreFinished
		return true

	case *event.Fence:
		if t.waitingOnFetch {
			t.pendingFence = true
			return true
		}
		o.enterBarrier(core, now)
		return true

	case *event.VectorWaitingForScalarStore:
		t.waitingOnScalar = true
		t.stallReason = VectorWaitingOnScalarStore
		return true

	case *event.CacheRequest:
		return o.submitCacheRequest(core, e, now)

	case *event.ScratchpadRequest:
		return o.admitAndSubmit(core, e, now)

	case *event.MCPUInstruction:
		if t.waitingOnFetch {
			t.pendingMCPUInsn = e
			return true
		}
		return o.admitAndSubmit(core, e, now)

	case *event.MCPUSetVVL:
		if t.waitingOnFetch {
			t.pendingSetVVL = e
			return true
		}
		return o.admitAndSubmit(core, e, now)

	case *event.InsnLatencyEvent:
		if t.waitingOnFetch {
			t.pendingLatencyEvents = append(t.pendingLatencyEvents, e)
			return true
		}
		return o.admitAndSubmit(core, e, now)
	}
	return true
}

func (o *Orchestrator) admitAndSubmit(core int, ev event.Event, now uint64) bool {
	if !o.arbiter.HasArbiterQueueFreeSlot(core) {
		return false
	}
	o.sink.Submit(ev, now)
	return true
}

// submitCacheRequest applies MSHR accounting before admission: a FETCH miss
// is always submitted (the core is stalled on fetch regardless), a LOAD that
// matches an address already in flight for this core's group coalesces
// instead of resubmitting, and any other LOAD respects the group's
// max-in-flight-misses cap. STORE and WRITEBACK requests take no MSHR slot
// and are submitted whenever the arbiter has room.
func (o *Orchestrator) submitCacheRequest(core int, req *event.CacheRequest, now uint64) bool {
	t := &o.threads[core]
	g := o.group(core)

	if req.Type == event.Fetch {
		t.waitingOnFetch = true
		t.stallReason = FetchMiss
		o.sink.Submit(req, now)
		return true
	}

	if req.Type == event.Load {
		if entry, ok := o.inFlight[g][req.Address]; ok {
			entry.waiters = append(entry.waiters, req)
			t.stallReason = MSHRs
			return true
		}
		if len(o.inFlight[g]) >= o.maxInFlightMisses {
			t.pendingMisses = append(t.pendingMisses, req)
			t.waitingOnMSHRs = true
			t.stallReason = MSHRs
			return true
		}
	}

	if !o.arbiter.HasArbiterQueueFreeSlot(core) {
		if req.Type == event.Load {
			t.pendingMisses = append(t.pendingMisses, req)
			t.waitingOnMSHRs = true
		}
		return false
	}

	if req.Type == event.Load {
		o.inFlight[g][req.Address] = &inFlightEntry{req: req}
	}
	o.sink.Submit(req, now)
	return true
}

func (o *Orchestrator) stall(core int, reason StallReason, now uint64) {
	t := &o.threads[core]
	if t.stallReason == NotStalled {
		t.stallReason = reason
	}
	if o.logger != nil {
		o.logger.LogStall(now, core, t.stallReason)
	}
}

// advanceGroup removes core from the runnable slot for its group and
// promotes the next eligible member, round-robin. The promoted thread can
// run on the very next Tick: the configured thread-switch latency is not
// applied.
func (o *Orchestrator) advanceGroup(g int, now uint64) {
	core := o.runnable[g]
	if o.threads[core].stallReason == NotStalled {
		return
	}
	o.selectNext(g, now)
}

func (o *Orchestrator) selectNext(g int, now uint64) {
	base := g * o.threadsPerCore
	for i := 1; i <= o.threadsPerCore; i++ {
		cand := base + (o.cursor[g]+i)%o.threadsPerCore
		t := &o.threads[cand]
		if t.finished || t.stallReason != NotStalled {
			continue
		}
		o.cursor[g] = (o.cursor[g] + i) % o.threadsPerCore
		o.runnable[g] = cand
		return
	}
	o.runnable[g] = -1
}

// DrainServiced processes requests the memory system has finished servicing,
// in the order they completed.
func (o *Orchestrator) DrainServiced(serviced []event.Event, now uint64) {
	for _, ev := range serviced {
		o.handleServiced(ev, now)
	}
}

func (o *Orchestrator) handleServiced(ev event.Event, now uint64) {
	switch e := ev.(type) {
	case *event.CacheRequest:
		o.handleServicedCache(e, now)
	case *event.ScratchpadRequest:
		o.frontEnd.AckRegister(e.CoreID(), e.DestRegKind(), e.DestReg(), now)
		o.tryResume(e.CoreID(), now)
	case *event.MCPUSetVVL:
		o.frontEnd.SetVVL(e.CoreID(), e.VVL)
		o.frontEnd.AckRegister(e.CoreID(), e.DestRegKind(), e.DestReg(), now)
		o.tryResume(e.CoreID(), now)
	case *event.MCPUInstruction:
		o.frontEnd.AckRegister(e.CoreID(), e.DestRegKind(), e.DestReg(), now)
		o.tryResume(e.CoreID(), now)
	case *event.InsnLatencyEvent:
		if o.frontEnd.CanResume(e.CoreID(), e.SrcReg, e.SrcKind, e.DestReg(), e.DestRegKind(), e.InsnLatency, now) {
			o.drainPending(e.CoreID(), now)
			o.tryResume(e.CoreID(), now)
		}
	}
}

func (o *Orchestrator) handleServicedCache(req *event.CacheRequest, now uint64) {
	core := req.CoreID()
	g := o.group(core)

	if req.Type == event.Fetch {
		o.threads[core].waitingOnFetch = false
		o.drainPending(core, now)
		o.tryResume(core, now)
		return
	}

	if req.Type == event.Load {
		entry, ok := o.inFlight[g][req.Address]
		if ok {
			o.frontEnd.AckRegister(core, req.DestRegKind(), req.DestReg(), now)
			for _, waiter := range entry.waiters {
				o.frontEnd.AckRegister(waiter.CoreID(), waiter.DestRegKind(), waiter.DestReg(), now)
				o.tryResume(waiter.CoreID(), now)
			}
			delete(o.inFlight[g], req.Address)
			o.submitPendingMisses(g, now)
		}
	} else if req.Type == event.Store && o.l1Writeback {
		o.frontEnd.AckRegister(core, req.DestRegKind(), req.DestReg(), now)
	}

	if wb, ok := o.frontEnd.ServiceCacheRequest(req, now); ok {
		o.submitCacheRequest(wb.CoreID(), wb, now)
	}
	o.frontEnd.CheckInstructionGraduation(req, now)

	if req.Type == event.Store {
		o.frontEnd.DecrementInFlightScalarStores(core)
		if !o.frontEnd.CheckInFlightScalarStores(core) {
			for c := g * o.threadsPerCore; c < (g+1)*o.threadsPerCore; c++ {
				if o.threads[c].waitingOnScalar {
					o.threads[c].waitingOnScalar = false
					o.tryResume(c, now)
				}
			}
		}
	}

	o.tryResume(core, now)
}

// submitPendingMisses drains a group's backlog of LOADs that deferred
// because the in-flight cap was reached, now that a slot has freed up.
func (o *Orchestrator) submitPendingMisses(g int, now uint64) {
	for c := g * o.threadsPerCore; c < (g+1)*o.threadsPerCore; c++ {
		t := &o.threads[c]
		if len(t.pendingMisses) == 0 {
			continue
		}
		remaining := t.pendingMisses[:0]
		for _, req := range t.pendingMisses {
			if len(o.inFlight[g]) >= o.maxInFlightMisses {
				remaining = append(remaining, req)
				continue
			}
			req.SetTimestamp(now)
			o.submitCacheRequest(c, req, now)
		}
		t.pendingMisses = remaining
		if len(t.pendingMisses) == 0 {
			t.waitingOnMSHRs = false
		}
	}
}

// drainPending flushes the deferred-while-fetching queue for core, in the
// same order the original submits them: fence, then the VVL grant request,
// then the instruction, then latency events.
func (o *Orchestrator) drainPending(core int, now uint64) {
	t := &o.threads[core]
	if t.pendingFence {
		t.pendingFence = false
		o.enterBarrier(core, now)
	}
	if t.pendingSetVVL != nil {
		req := t.pendingSetVVL
		t.pendingSetVVL = nil
		req.SetTimestamp(now)
		o.admitAndSubmit(core, req, now)
	}
	if t.pendingMCPUInsn != nil {
		req := t.pendingMCPUInsn
		t.pendingMCPUInsn = nil
		req.SetTimestamp(now)
		o.admitAndSubmit(core, req, now)
	}
	for _, le := range t.pendingLatencyEvents {
		le.SetTimestamp(now)
		o.admitAndSubmit(core, le, now)
	}
	t.pendingLatencyEvents = nil
}

// tryResume clears core's stall if nothing still blocks it, and tells the
// CGMT scheduler the core is eligible again.
func (o *Orchestrator) tryResume(core int, now uint64) {
	t := &o.threads[core]
	if t.finished || t.inBarrier || t.waitingOnFetch || t.waitingOnMSHRs || t.waitingOnScalar {
		return
	}
	if t.stallReason == NotStalled {
		return
	}
	t.stallReason = NotStalled
	delete(o.stalledForArbiter, core)
	if o.logger != nil {
		o.logger.LogResume(now, core)
	}
	o.wakeGroup(core, now)
}

// wakeGroup gives an idle group (every member previously stalled out of
// contention) a chance to pick core, or whichever member is eligible, back
// up as its runnable thread.
func (o *Orchestrator) wakeGroup(core int, now uint64) {
	g := o.group(core)
	if o.runnable[g] < 0 {
		o.selectNext(g, now)
	}
}

// retryStalledForArbiter re-attempts admission for every core that was
// previously denied only for lack of an arbiter slot.
func (o *Orchestrator) retryStalledForArbiter(now uint64) {
	for core := range o.stalledForArbiter {
		if o.arbiter.HasArbiterQueueFreeSlot(core) {
			delete(o.stalledForArbiter, core)
			o.threads[core].stallReason = NotStalled
			if o.logger != nil {
				o.logger.LogResume(now, core)
			}
			o.wakeGroup(core, now)
		}
	}
}

// enterBarrier stalls core on a synchronization fence. The last thread in
// the program to arrive releases every other stalled thread; the arriving
// thread's own group is left to its normal CGMT progression.
func (o *Orchestrator) enterBarrier(core int, now uint64) {
	t := &o.threads[core]
	t.inBarrier = true
	o.stall(core, WaitingOnBarrier, now)
	o.barrierArrivals++

	if o.barrierArrivals < o.numCores {
		return
	}

	for i := range o.threads {
		o.threads[i].inBarrier = false
		o.tryResume(i, now)
	}
	o.barrierArrivals = 0
}
