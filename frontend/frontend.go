// Package frontend defines the boundary between the timing engine and the
// external functional ISA emulator (spec.md §6). The emulator itself is out
// of scope; this package only carries the contract and a deterministic test
// double.
package frontend

import "github.com/sarchlab/coyote-go/event"

// FrontEnd is the external collaborator contract a functional ISA emulator
// must satisfy to drive the orchestrator.
type FrontEnd interface {
	// SimulateOne steps core by one instruction at currentCycle, appending
	// any events it emits. It returns false if the core is blocked on a RAW
	// dependency and did not advance.
	SimulateOne(core int, currentCycle uint64, out *[]event.Event) bool

	// AckRegister signals that a register has become available, returning
	// true if the core becomes eligible to progress as a result.
	AckRegister(core int, kind event.RegKind, reg int, currentCycle uint64) bool

	// CanResume queries whether a deferred latency event has matured.
	CanResume(core, srcReg int, srcKind event.RegKind, dstReg int, dstKind event.RegKind, latency, currentCycle uint64) bool

	// ServiceCacheRequest updates the front end's L1 state for a serviced
	// request, optionally returning a derived writeback request.
	ServiceCacheRequest(req *event.CacheRequest, currentCycle uint64) (writeback *event.CacheRequest, ok bool)

	// SetVVL communicates a granted vector length to core.
	SetVVL(core int, vvl uint32)

	// CheckInstructionGraduation performs auxiliary bookkeeping when req
	// graduates at currentCycle.
	CheckInstructionGraduation(req *event.CacheRequest, currentCycle uint64)

	// DecrementInFlightScalarStores and CheckInFlightScalarStores track
	// outstanding scalar stores for VectorWaitingForScalarStore handling.
	DecrementInFlightScalarStores(core int)
	CheckInFlightScalarStores(core int) bool
}
